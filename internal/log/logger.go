// Package log configures the process-wide zerolog logger and hands out
// component-scoped child loggers.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures the options Configure needs at startup.
type Config struct {
	Level  string    // zerolog level name (trace/debug/info/warn/error/disabled), or "off" for disabled
	Output io.Writer // defaults to os.Stdout
	RunID  string    // correlation id attached to every line, see WithContext
}

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Configure initialises the global logger. Safe to call once at startup;
// a second call fully replaces the previous configuration.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if cfg.Level == "off" {
		level = zerolog.Disabled
	} else if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	ctx := zerolog.New(writer).With().Timestamp()
	if cfg.RunID != "" {
		ctx = ctx.Str("run_id", cfg.RunID)
	}
	base = ctx.Logger()
	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

func logger() zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// L returns a pointer to a snapshot of the global logger, for code that
// wants zerolog's chained event API directly (log.L().Debug()...).
func L() *zerolog.Logger {
	l := logger()
	return &l
}

// WithComponent returns a child logger tagged with the given component name
// — the unit used throughout this daemon's packages (graph, audio, loop,
// wayland, screensaver, busctl, ...).
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}
