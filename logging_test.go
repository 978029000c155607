package nge

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewLoggerTo(&out, &errOut, "nge", false)

	logger.Debugf("hidden %d", 1)
	logger.Infof("hello %s", "world")
	logger.Warnf("careful")
	logger.Errorf("broken")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[nge] INFO: hello world")
	assert.Contains(t, errOut.String(), "[nge] WARN: careful")
	assert.Contains(t, errOut.String(), "[nge] ERROR: broken")
	assert.NotContains(t, out.String(), "careful", "warnings go to the error writer only")

	logger.SetDebug(true)
	assert.True(t, logger.DebugEnabled())
	logger.Debugf("shown")
	assert.Contains(t, out.String(), "DEBUG: shown")

	out.Reset()
	errOut.Reset()
	logger.SetLevel(LevelError)
	assert.False(t, logger.DebugEnabled())
	logger.Infof("quiet")
	logger.Warnf("quiet")
	logger.Errorf("loud")
	assert.Empty(t, out.String())
	assert.NotContains(t, errOut.String(), "quiet")
	assert.Contains(t, errOut.String(), "loud")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" Warn ":  LevelWarn,
		"error":   LevelError,
	} {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, "LEVEL(9)", Level(9).String())
}

func TestApp_LoggerDefaultsToNop(t *testing.T) {
	var app *App
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, NewApp().Logger())
	assert.False(t, NewApp().Logger().DebugEnabled())

	logger := NewLoggerTo(&bytes.Buffer{}, &bytes.Buffer{}, "", false)
	a := NewAppBuilder().UseModule(LoggingModule{Logger: logger}).Build()
	assert.Same(t, logger, a.Logger())
}
