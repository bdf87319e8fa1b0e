package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSlogAdapter(t *testing.T) {
	assert.Same(t, slog.Default(), NewSlogAdapter(nil).Logger())
	assert.Same(t, slog.Default(), DefaultLogger().Logger())

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	assert.Same(t, logger, NewSlogAdapter(logger).Logger())

	var _ Logger = (*SlogAdapter)(nil)
}

func TestSlogAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	tests := []struct {
		level string
		log   func(msg string, args ...any)
	}{
		{level: "DEBUG", log: adapter.Debug},
		{level: "INFO", log: adapter.Info},
		{level: "WARN", log: adapter.Warn},
		{level: "ERROR", log: adapter.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.log("budget state changed", KeyState, "throttled")
			assert.Contains(t, buf.String(), `"level":"`+tt.level+`"`)
			assert.Contains(t, buf.String(), `"state":"throttled"`)
		})
	}
}

func TestSlogAdapterWith(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	adapter.With(KeyTool, "get_ticket").Info("called")
	assert.Contains(t, buf.String(), `"tool":"get_ticket"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
