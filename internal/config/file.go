package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const appName = "idle-inhibitd"

// fileConfig is the subset of settings a config.toml may carry. CLI-only
// concerns (the backend choice, the diagnostics address) have no file
// representation; spec.md §6 only lists the keys below as mirrored.
type fileConfig struct {
	MediaMinimumDuration *int64           `toml:"media_minimum_duration"`
	Verbosity            *string          `toml:"verbosity"`
	SinkWhitelist        []sinkFilterSpec `toml:"sink_whitelist"`
	NodeBlacklist        []nodeFilterSpec `toml:"node_blacklist"`
}

type sinkFilterSpec struct {
	Name string `toml:"name"`
}

type nodeFilterSpec struct {
	Name          string `toml:"name"`
	AppName       string `toml:"app_name"`
	MediaClass    string `toml:"media_class"`
	MediaRole     string `toml:"media_role"`
	MediaSoftware string `toml:"media_software"`
}

// DefaultConfigPath resolves $XDG_CONFIG_HOME/idle-inhibitd/config.toml,
// falling back to ~/.config when XDG_CONFIG_HOME is unset, per spec.md §6's
// "Environment" clause.
func DefaultConfigPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// loadFile parses path into a fileConfig. A missing file is not an error —
// it is treated as an empty file, so every field falls through to defaults.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, err
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}
