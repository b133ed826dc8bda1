// Package dryrun implements an inhibit backend that only logs requested
// state transitions, for testing the rest of the daemon without touching a
// real compositor or session bus service.
package dryrun

import "github.com/rs/zerolog"

// Backend logs inhibit/uninhibit transitions without asserting anything.
type Backend struct {
	log       zerolog.Logger
	inhibited bool
}

// New builds a dry-run backend that logs through log.
func New(log zerolog.Logger) *Backend {
	return &Backend{log: log.With().Str("component", "inhibit.dryrun").Logger()}
}

func (b *Backend) Inhibit() error {
	if !b.inhibited {
		b.inhibited = true
		b.log.Info().Msg("idle inhibitor would be ENABLED")
	}
	return nil
}

func (b *Backend) Uninhibit() error {
	if b.inhibited {
		b.inhibited = false
		b.log.Info().Msg("idle inhibitor would be DISABLED")
	}
	return nil
}

func (b *Backend) Close() error {
	return b.Uninhibit()
}
