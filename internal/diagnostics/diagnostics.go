// Package diagnostics serves an optional loopback-only HTTP endpoint
// exposing Prometheus metrics and a JSON status snapshot, for a user who
// wants to pull state over HTTP instead of scraping the stdout status line.
// It is only started when --diag-addr is set.
package diagnostics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusSource reports the current effective/manual inhibit state and the
// number of active sinks for the /status endpoint.
type StatusSource interface {
	EffectiveInhibit() bool
	ManualInhibit() bool
	ActiveSinkCount() int
}

type statusResponse struct {
	Text             string `json:"text"`
	Tooltip          string `json:"tooltip"`
	EffectiveInhibit bool   `json:"effective_inhibit"`
	ManualInhibit    bool   `json:"manual_inhibit"`
	ActiveSinks      int    `json:"active_sinks"`
}

// Server wraps the diagnostics HTTP server.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New builds a Server listening on addr. It does not start listening until
// Serve is called.
func New(addr string, source StatusSource, log zerolog.Logger) *Server {
	log = log.With().Str("component", "diagnostics").Logger()

	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(20, time.Minute))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		resp := statusResponse{
			EffectiveInhibit: source.EffectiveInhibit(),
			ManualInhibit:    source.ManualInhibit(),
			ActiveSinks:      source.ActiveSinkCount(),
		}
		resp.Text, resp.Tooltip = iconAndTooltip(resp.EffectiveInhibit)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn().Err(err).Msg("diagnostics: failed to encode /status response")
		}
	})

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: r},
		log:        log,
	}
}

func iconAndTooltip(effective bool) (string, string) {
	if effective {
		return "", "idle inhibited: audio is playing"
	}
	return "", "idle inhibition inactive"
}

// Serve blocks until ctx is cancelled, then shuts down the HTTP server.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
