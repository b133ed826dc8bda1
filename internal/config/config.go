// Package config resolves the daemon's settings from CLI flags, a TOML
// config file and built-in defaults, in that precedence order, and compiles
// the filter lists the graph model needs at startup.
package config

import (
	"fmt"
	"time"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
)

// Backend names the configured inhibit backend.
type Backend string

const (
	BackendDBus    Backend = "d-bus"
	BackendWayland Backend = "wayland"
	BackendDryRun  Backend = "dry-run"
)

func parseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendDBus, BackendWayland, BackendDryRun:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("idle-inhibitor: unknown backend %q (want d-bus|wayland|dry-run)", s)
	}
}

var validVerbosity = map[string]struct{}{
	"off": {}, "error": {}, "warn": {}, "info": {}, "debug": {}, "trace": {},
}

// Config is the fully resolved, ready-to-use configuration.
type Config struct {
	MediaMinimumDuration time.Duration
	Verbosity            string
	Backend              Backend
	ConfigPath           string
	DiagAddr             string

	SinkWhitelist []filter.SinkFilter
	NodeBlacklist []filter.NodeFilter
}

// Load resolves a Config from parsed CLI flags, reading ConfigPath (or the
// XDG default if ConfigPath is empty) for the file layer. CLI values always
// win over the file; the file is the only source for sink_whitelist and
// node_blacklist, which have no CLI form.
func Load(cli *CLIFlags) (*Config, error) {
	path := cli.ConfigPath
	if path == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("resolve default config path: %w", err)
		}
		path = def
	}

	fc, err := loadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}

	cfg := &Config{ConfigPath: path, DiagAddr: cli.DiagAddr}

	cfg.MediaMinimumDuration, err = resolveMediaDuration(cli, fc)
	if err != nil {
		return nil, err
	}

	cfg.Verbosity, err = resolveVerbosity(cli, fc)
	if err != nil {
		return nil, err
	}

	cfg.Backend, err = parseBackend(cli.IdleInhibitor)
	if err != nil {
		return nil, err
	}

	cfg.SinkWhitelist, cfg.NodeBlacklist, err = compileFilters(fc)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveMediaDuration(cli *CLIFlags, fc fileConfig) (time.Duration, error) {
	seconds := cli.MediaMinimumDuration
	if !cli.Changed("media-minimum-duration") && fc.MediaMinimumDuration != nil {
		seconds = *fc.MediaMinimumDuration
	}
	if seconds < 0 {
		return 0, fmt.Errorf("media_minimum_duration: must be non-negative, got %d", seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

func resolveVerbosity(cli *CLIFlags, fc fileConfig) (string, error) {
	v := cli.Verbosity
	if !cli.Changed("verbosity") && !cli.Quiet && fc.Verbosity != nil {
		v = *fc.Verbosity
	}
	if _, ok := validVerbosity[v]; !ok {
		return "", fmt.Errorf("verbosity: unknown level %q", v)
	}
	return v, nil
}

func compileFilters(fc fileConfig) ([]filter.SinkFilter, []filter.NodeFilter, error) {
	sinks := make([]filter.SinkFilter, 0, len(fc.SinkWhitelist))
	for i, spec := range fc.SinkWhitelist {
		sf, err := filter.NewSinkFilter(spec.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("sink_whitelist[%d]: %w", i, err)
		}
		sinks = append(sinks, sf)
	}

	nodes := make([]filter.NodeFilter, 0, len(fc.NodeBlacklist))
	for i, spec := range fc.NodeBlacklist {
		nf, err := filter.NewNodeFilter(filter.NodeFilterSpec{
			Name:          spec.Name,
			AppName:       spec.AppName,
			MediaClass:    spec.MediaClass,
			MediaRole:     spec.MediaRole,
			MediaSoftware: spec.MediaSoftware,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("node_blacklist[%d]: %w", i, err)
		}
		nodes = append(nodes, nf)
	}

	return sinks, nodes, nil
}
