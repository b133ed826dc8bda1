package dryrun

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(buf *bytes.Buffer) *Backend {
	return New(zerolog.New(buf))
}

func lastLine(buf *bytes.Buffer) map[string]any {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	_ = json.Unmarshal([]byte(lines[len(lines)-1]), &m)
	return m
}

func TestInhibit_LogsOnceOnTransition(t *testing.T) {
	var buf bytes.Buffer
	b := newTestBackend(&buf)

	require.NoError(t, b.Inhibit())
	assert.Contains(t, lastLine(&buf)["message"], "ENABLED")

	buf.Reset()
	require.NoError(t, b.Inhibit())
	assert.Empty(t, buf.String())
}

func TestUninhibit_LogsOnceOnTransition(t *testing.T) {
	var buf bytes.Buffer
	b := newTestBackend(&buf)
	require.NoError(t, b.Inhibit())

	buf.Reset()
	require.NoError(t, b.Uninhibit())
	assert.Contains(t, lastLine(&buf)["message"], "DISABLED")

	buf.Reset()
	require.NoError(t, b.Uninhibit())
	assert.Empty(t, buf.String())
}

func TestClose_UninhibitsIfInhibited(t *testing.T) {
	var buf bytes.Buffer
	b := newTestBackend(&buf)
	require.NoError(t, b.Inhibit())

	buf.Reset()
	require.NoError(t, b.Close())
	assert.Contains(t, lastLine(&buf)["message"], "DISABLED")
}
