package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("hello", String("k", "v"))
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"trace", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWithNamespace(t *testing.T) {
	logger, err := New(&Config{Level: "debug", Format: "json"})
	require.NoError(t, err)

	child := logger.WithNamespace("cache").WithNamespace("sweeper")
	impl, ok := child.(*slogLogger)
	require.True(t, ok)
	assert.Equal(t, "cache.sweeper", impl.namespace)

	// 父 Logger 不受影响
	parent := logger.(*slogLogger)
	assert.Equal(t, "", parent.namespace)
}

func TestSetLevel(t *testing.T) {
	logger, err := New(&Config{Level: "error"})
	require.NoError(t, err)

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("now visible")
}

func TestNoop(t *testing.T) {
	logger := NewNoop()
	logger.Info("dropped")
	assert.Equal(t, logger, logger.With(String("k", "v")))
	assert.NoError(t, logger.SetLevel(ErrorLevel))
}
