package logger_test

import (
	"testing"

	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestNewWithFields(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "debug", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	child := l.With(logger.String("component", "test"), logger.Int("page", 3))
	require.NotNil(t, child)
	child.Debug("debug message")
	child.Info("info message", logger.Ints("pages", []int{1, 2, 3}))
}

func TestNopLoggerIsUsable(t *testing.T) {
	l := logger.NewNop()
	l.Warn("ignored", logger.String("k", "v"))
	require.Same(t, l, l.With(logger.Bool("x", true)))
	require.NoError(t, l.Sync())
}
