package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightx/upi-insight/internal/config"
)

func newBufferLogger(level, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &Logger{
		level:  parseLogLevel(level),
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}

	return logger, buf
}

func TestLogLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("warn", "text")

	logger.Debug("not shown")
	logger.Info("not shown either")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "not shown")
	assert.Contains(t, out, "shown")
}

func TestTextFormat(t *testing.T) {
	logger, buf := newBufferLogger("debug", "text")

	logger.WithField("session_id", "abc123").Info("turn persisted")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "turn persisted")
	assert.Contains(t, out, "session_id=abc123")
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger("debug", "json")

	logger.WithError(errors.New("engine rejected statement")).Error("query failed")

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "query failed", entry.Message)
	assert.Equal(t, "engine rejected statement", entry.Fields["error"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	logger, buf := newBufferLogger("debug", "text")

	child := logger.WithField("stage", "synthesis")
	logger.Info("parent line")
	child.Info("child line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "stage=synthesis")
	assert.Contains(t, lines[1], "stage=synthesis")
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	assert.Error(t, err)
}
