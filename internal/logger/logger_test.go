package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/posdenous/naviya-launcher-sub002/internal/config"
)

func TestBuildConfig_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			zc := buildConfig(config.LogConfig{Level: tt.level})
			assert.Equal(t, tt.want, zc.Level.Level())
		})
	}
}

func TestBuildConfig_JSONIsUnsampled(t *testing.T) {
	zc := buildConfig(config.LogConfig{Level: "info", Format: "json"})
	assert.Nil(t, zc.Sampling)
	assert.Equal(t, "json", zc.Encoding)
	assert.Equal(t, "timestamp", zc.EncoderConfig.TimeKey)
	assert.Equal(t, []string{"stdout"}, zc.OutputPaths)

	zc = buildConfig(config.LogConfig{Format: "console"})
	assert.Nil(t, zc.Sampling)
	assert.Equal(t, "console", zc.Encoding)
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(config.LogConfig{Level: "warn", Format: format}, "naviya-guardian", "elder")
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
	}
}
