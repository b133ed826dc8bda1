package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
)

func TestWatchFilters_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`verbosity = "warn"`), 0o644))

	reloaded := make(chan struct {
		sinks []filter.SinkFilter
		nodes []filter.NodeFilter
	}, 1)

	fw, err := WatchFilters(path, func(sinks []filter.SinkFilter, nodes []filter.NodeFilter) {
		reloaded <- struct {
			sinks []filter.SinkFilter
			nodes []filter.NodeFilter
		}{sinks, nodes}
	})
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, os.WriteFile(path, []byte(`
[[sink_whitelist]]
name = "^Built-in"
`), 0o644))

	select {
	case r := <-reloaded:
		assert.Len(t, r.sinks, 1)
	case <-time.After(3 * time.Second):
		t.Fatal("filter reload callback was not invoked after write")
	}
}
