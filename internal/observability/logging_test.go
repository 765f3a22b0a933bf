package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       LogConfig
		expectErr bool
	}{
		{
			name: "defaults",
			cfg:  DefaultLogConfig(),
		},
		{
			name: "console format to stderr",
			cfg:  LogConfig{Level: "debug", Format: "console", Output: "stderr"},
		},
		{
			name:      "invalid level",
			cfg:       LogConfig{Level: "verbose"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)

			logger.Debug("debug message")
			logger.Info("info message", String("key", "value"))
			logger.Warn("warn message", Int("count", 1))
			logger.Error("error message", Bool("flag", true))
		})
	}
}

func TestLoggerWith(t *testing.T) {
	logger := NopLogger()
	child := logger.With(String("component", "config"))
	require.NotNil(t, child)
	child.Info("message from child")
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	assert.NotPanics(t, func() {
		logger.Info("discarded")
		_ = logger.Sync()
	})
}
