package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRunInputIsValid(t *testing.T) {
	in := DefaultRunInput()
	assert.True(t, in.IsValid())
	assert.Equal(t, 0, in.CurrentPage)
	assert.Equal(t, 3, in.WindowSize)
	assert.Equal(t, []string{"Ford", "GMC", "Chevrolet", "Cadillac"}, in.Filters.Makes)
}

func TestRunInputIsValidRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunInput)
	}{
		{name: "zero max pages", mutate: func(in *RunInput) { in.MaxPages = 0 }},
		{name: "negative current page", mutate: func(in *RunInput) { in.CurrentPage = -1 }},
		{name: "zero window", mutate: func(in *RunInput) { in.WindowSize = 0 }},
		{name: "zero max results", mutate: func(in *RunInput) { in.MaxResults = 0 }},
		{name: "zero radius", mutate: func(in *RunInput) { in.SearchRadius = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultRunInput()
			tt.mutate(&in)
			assert.False(t, in.IsValid())
		})
	}
}
