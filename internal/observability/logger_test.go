package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcore/ndash/internal/config"
)

func TestNewLoggerWithWriterRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("license fetch",
		slog.String("authorization", "Bearer super-secret"),
		slog.String("uri", "http://license.example.com/get"),
	)

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "license fetch")
	assert.Contains(t, out, "license.example.com")
}

func TestNewLoggerWithWriterRedactsURLCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("manifest fetch",
		slog.String("uri", "http://host/manifest.mpd?apikey=abc123&x=1"))

	out := buf.String()
	assert.NotContains(t, out, "abc123")
	assert.Contains(t, out, "apikey=[REDACTED]")
}

func TestLogLevelRoundTrip(t *testing.T) {
	SetLogLevel("debug")
	assert.Equal(t, "debug", GetLogLevel())
	SetLogLevel("error")
	assert.Equal(t, "error", GetLogLevel())
	SetLogLevel("info")
	assert.Equal(t, "info", GetLogLevel())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	require.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	WithComponent(logger, "bandwidth").Info("sample published")
	assert.Contains(t, buf.String(), `"component":"bandwidth"`)
}
