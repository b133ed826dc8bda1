package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// ContextWithRunID stores the daemon's correlation id in ctx, so any code
// deep in a call chain can recover it without threading it through every
// function signature.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the correlation id stored by
// ContextWithRunID, or "" if absent.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext returns a copy of logger enriched with ctx's correlation id,
// if any.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	id := RunIDFromContext(ctx)
	if id == "" {
		return logger
	}
	return logger.With().Str("run_id", id).Logger()
}
