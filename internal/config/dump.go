package config

import (
	"fmt"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// resolvedDump mirrors the fileConfig shape but carries the fully merged
// values (CLI + file + defaults), for a user asking "what did the daemon
// actually end up with".
type resolvedDump struct {
	MediaMinimumDuration int64   `toml:"media_minimum_duration"`
	Verbosity            string  `toml:"verbosity"`
	IdleInhibitor        Backend `toml:"idle_inhibitor"`
}

// Dump atomically writes the resolved configuration next to cfg.ConfigPath
// as resolved.toml, using renameio so a crash mid-write never leaves a
// truncated file behind.
func (cfg *Config) Dump() (string, error) {
	out := resolvedDump{
		MediaMinimumDuration: int64(cfg.MediaMinimumDuration.Seconds()),
		Verbosity:            cfg.Verbosity,
		IdleInhibitor:        cfg.Backend,
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal resolved config: %w", err)
	}

	path := filepath.Join(filepath.Dir(cfg.ConfigPath), "resolved.toml")
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return "", fmt.Errorf("write resolved config: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace resolved config: %w", err)
	}

	return path, nil
}
