package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_LevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})

	L().Info().Msg("should be filtered")
	L().Warn().Msg("should appear")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "should appear", entry["message"])
}

func TestConfigure_RunIDAttachedToEveryLine(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, RunID: "abc-123"})

	L().Info().Msg("hi")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc-123", entry["run_id"])
}

func TestWithComponent_TagsComponentField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})

	WithComponent("graph").Info().Msg("tagged")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "graph", entry["component"])
}

func TestRunIDContext_RoundTrip(t *testing.T) {
	ctx := ContextWithRunID(context.Background(), "run-42")
	assert.Equal(t, "run-42", RunIDFromContext(ctx))
	assert.Equal(t, "", RunIDFromContext(context.Background()))
}

func TestWithContext_EnrichesLoggerWithRunID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})

	ctx := ContextWithRunID(context.Background(), "run-99")
	l := WithContext(ctx, *L())
	l.Info().Msg("enriched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-99", entry["run_id"])
}

func TestWithContext_NoRunIDLeavesLoggerUnchanged(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})

	l := WithContext(context.Background(), *L())
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasRunID := entry["run_id"]
	assert.False(t, hasRunID)
}
