package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsync/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "socsync.log")

	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLoggerBadPath(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: filepath.Join(blocker, "app.log"),
	})
	assert.Error(t, err)
}

func TestTraceAndRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")

	ctx := WithRunID(WithTraceID(context.Background(), "trace-123"), "run-7")
	logger.InfoContext(ctx, "with ids")
	logger.InfoContext(context.Background(), "without ids")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "trace-123", entries[0]["trace_id"])
	assert.Equal(t, "run-7", entries[0]["run_id"])
	assert.NotContains(t, entries[1], "trace_id")
	assert.NotContains(t, entries[1], "run_id")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"info", 3},
		{"warn", 2},
		{"warning", 2},
		{"error", 1},
		{"bogus", 3},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			assert.Len(t, decodeLines(t, &buf), tt.want)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetRunID(ctx))

	ctx = EnsureTraceID(ctx)
	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, 36)

	// existing IDs are preserved
	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)))
	assert.NotEqual(t, GenerateTraceID(), GenerateTraceID())
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	WithError(WithComponent(logger, "extractor"), errors.New("boom")).Info("failed")
	WithError(logger, nil).Info("fine")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "extractor", entries[0]["component"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.NotContains(t, entries[1], "error")
}
