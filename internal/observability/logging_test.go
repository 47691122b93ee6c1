package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/returnsdesk/oem-returns/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger, err := NewLogger(config.LoggerConfig{Level: tc.level, Format: "console"})
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tc.want-1))
			}
		})
	}
}

func TestWithServiceAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := WithService(zap.New(core), config.AppConfig{Name: "oem-returns", Env: "test", Version: "1.2.3"})

	logger.Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "oem-returns", fields["service"])
	assert.Equal(t, "test", fields["env"])
	assert.Equal(t, "1.2.3", fields["version"])
}
