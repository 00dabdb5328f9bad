package utilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestInit_Production(t *testing.T) {
	lg, err := Init(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, lg.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, lg.Core().Enabled(zapcore.WarnLevel))
}

func TestInit_DevDefaultsToDebug(t *testing.T) {
	lg, err := Init(Config{Dev: true})
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.DebugLevel))
}

func TestIDSource(t *testing.T) {
	src := NewIDSource(1)
	a, b := src.Next(), src.Next()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)

	// out-of-range node falls back to KSUIDs
	bad := NewIDSource(5000)
	assert.Len(t, bad.Next(), 27)
}
