package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dukex/phasetrack/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, log.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, log.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, log.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, log.ParseLevel("verbose"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := log.New(&buf, "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "reference_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.InDelta(t, 7, entry["reference_id"], 0)
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, slog.Default(), log.FromContext(context.Background()))

	logger := log.New(&bytes.Buffer{}, "info", "text")
	ctx := log.IntoContext(context.Background(), logger)
	assert.Same(t, logger, log.FromContext(ctx))
}
