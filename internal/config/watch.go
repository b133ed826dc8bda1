package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
	"github.com/rafaelrc7/idle-inhibitd/internal/log"
)

// FilterWatcher watches a config file for writes and re-parses only its
// sink_whitelist/node_blacklist on change — the one config surface worth
// live-iterating on without a restart. Every other setting (verbosity,
// backend, debounce duration) is never touched here.
type FilterWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// WatchFilters starts watching path. onReload is called with the freshly
// compiled filter lists after each write event that parses successfully; a
// file that fails to parse is logged and the previous filters are kept.
func WatchFilters(path string, onReload func(sinks []filter.SinkFilter, nodes []filter.NodeFilter)) (*FilterWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	fw := &FilterWatcher{path: path, watcher: w}
	go fw.run(onReload)
	return fw, nil
}

func (fw *FilterWatcher) run(onReload func(sinks []filter.SinkFilter, nodes []filter.NodeFilter)) {
	l := log.WithComponent("config.watch")
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fc, err := loadFile(fw.path)
			if err != nil {
				l.Warn().Err(err).Msg("config reload: file unreadable, keeping previous filters")
				continue
			}
			sinks, nodes, err := compileFilters(fc)
			if err != nil {
				l.Warn().Err(err).Msg("config reload: filter compile failed, keeping previous filters")
				continue
			}
			l.Info().Int("sink_whitelist", len(sinks)).Int("node_blacklist", len(nodes)).Msg("config reload: filters updated")
			onReload(sinks, nodes)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			l.Warn().Err(err).Msg("config watch error")
		}
	}
}

// Close stops the watcher.
func (fw *FilterWatcher) Close() error {
	return fw.watcher.Close()
}
