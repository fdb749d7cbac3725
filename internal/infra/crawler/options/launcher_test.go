package options

import (
	"testing"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
)

func TestCreateLauncherAppliesFlags(t *testing.T) {
	l := CreateLauncher(
		WithHeadless(true),
		WithDisableBlinkFeatures("AutomationControlled"),
		WithIncognito(true),
		WithDisableDevShmUsage(true),
		WithUserAgent("test-agent"),
		WithWindowSize(1920, 1080),
	)

	assert.True(t, l.Has(flags.Headless))
	assert.Equal(t, "AutomationControlled", l.Get("disable-blink-features"))
	assert.True(t, l.Has("incognito"))
	assert.True(t, l.Has("disable-dev-shm-usage"))
	assert.Equal(t, "test-agent", l.Get("user-agent"))
	assert.Equal(t, "1920,1080", l.Get("window-size"))
}

func TestCreateLauncherSkipsEmptyValues(t *testing.T) {
	l := CreateLauncher(WithIncognito(false), WithUserAgent(""), WithWindowSize(0, 0))

	assert.False(t, l.Has("incognito"))
	assert.False(t, l.Has("user-agent"))
	assert.False(t, l.Has("window-size"))
}
