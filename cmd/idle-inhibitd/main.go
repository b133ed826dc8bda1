// Command idle-inhibitd inhibits the desktop idle mechanism exactly when
// audio is actively flowing through a monitored sink.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rafaelrc7/idle-inhibitd/internal/audio"
	"github.com/rafaelrc7/idle-inhibitd/internal/audio/pwire"
	"github.com/rafaelrc7/idle-inhibitd/internal/busctl"
	"github.com/rafaelrc7/idle-inhibitd/internal/config"
	"github.com/rafaelrc7/idle-inhibitd/internal/diagnostics"
	"github.com/rafaelrc7/idle-inhibitd/internal/graph"
	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/backend"
	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/backend/dryrun"
	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/backend/screensaver"
	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/backend/wayland"
	"github.com/rafaelrc7/idle-inhibitd/internal/log"
	"github.com/rafaelrc7/idle-inhibitd/internal/loop"
	"github.com/rafaelrc7/idle-inhibitd/internal/mqueue"
	"github.com/rafaelrc7/idle-inhibitd/internal/status"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "idle-inhibitd:", err)
		return 1
	}

	cfg, err := config.Load(cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, "idle-inhibitd:", err)
		return 1
	}

	runID := uuid.NewString()
	log.Configure(log.Config{Level: cfg.Verbosity, RunID: runID})
	l := log.L()

	if cli.DumpConfig {
		path, err := cfg.Dump()
		if err != nil {
			l.Error().Err(err).Msg("failed to dump resolved configuration")
			return 1
		}
		l.Info().Str("path", path).Msg("resolved configuration written")
		return 0
	}

	if err := runDaemon(cfg, l); err != nil {
		l.Error().Err(err).Msg("fatal error")
		return 1
	}
	return 0
}

// compositeStatusSource implements diagnostics.StatusSource by combining
// the loop's thread-safe state accessors with the worker's thread-safe
// active-sink counter; each is owned by a different goroutine, so this
// struct only ever reads through their atomic getters.
type compositeStatusSource struct {
	l *loop.Loop
	w *audio.Worker
}

func (s compositeStatusSource) EffectiveInhibit() bool { return s.l.EffectiveInhibit() }
func (s compositeStatusSource) ManualInhibit() bool    { return s.l.ManualInhibit() }
func (s compositeStatusSource) ActiveSinkCount() int   { return s.w.ActiveSinkCount() }

func runDaemon(cfg *config.Config, baseLog *zerolog.Logger) error {
	conn, err := pwire.Connect()
	if err != nil {
		return fmt.Errorf("connect to audio server: %w", err)
	}

	g := graph.New(cfg.SinkWhitelist, cfg.NodeBlacklist, log.WithComponent("graph"))

	be, err := newBackend(cfg.Backend, log.WithComponent("inhibit."+string(cfg.Backend)))
	if err != nil {
		conn.Close()
		return fmt.Errorf("bring up %s backend: %w", cfg.Backend, err)
	}

	workerCtl, workerCtlRecv, err := mqueue.New[audio.Control]()
	if err != nil {
		return fmt.Errorf("create audio control queue: %w", err)
	}
	outSnd, outRecv, err := mqueue.New[audio.Outbound]()
	if err != nil {
		return fmt.Errorf("create audio outbound queue: %w", err)
	}

	worker := audio.New(conn, g, workerCtlRecv, outSnd, log.WithComponent("audio"))

	var statusWriter loop.StatusWriter
	if cfg.Backend == config.BackendWayland {
		statusWriter = status.New(os.Stdout)
	}

	evLoop, err := loop.New(cfg.MediaMinimumDuration, be, workerCtl, statusWriter, nil, nil, *baseLog)
	if err != nil {
		return fmt.Errorf("create event loop: %w", err)
	}

	bus, err := busctl.New(evLoop.Sender(), log.WithComponent("busctl"))
	if err != nil {
		baseLog.Warn().Err(err).Msg("bus control surface unavailable, continuing without it")
		bus = nil
	} else {
		evLoop.SetPropertyNotifier(bus)
	}

	var diagSrv *diagnostics.Server
	if cfg.DiagAddr != "" {
		diagSrv = diagnostics.New(cfg.DiagAddr, compositeStatusSource{l: evLoop, w: worker}, log.WithComponent("diagnostics"))
	}

	watcher, err := config.WatchFilters(cfg.ConfigPath, func(sinks []filter.SinkFilter, nodes []filter.NodeFilter) {
		_ = workerCtl.Send(audio.Control{Kind: audio.ControlSetFilters, SinkWhitelist: sinks, NodeBlacklist: nodes})
	})
	if err != nil {
		baseLog.Warn().Err(err).Msg("config file watch unavailable, live filter reload disabled")
		watcher = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			_ = evLoop.RequestTerminate()
		case <-ctx.Done():
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return worker.Run()
	})

	eg.Go(func() error {
		for {
			out, rerr := outRecv.Recv()
			if rerr != nil {
				return nil
			}
			switch out.Kind {
			case audio.OutboundCandidate:
				_ = evLoop.Sender().Send(loop.Msg{Kind: loop.MsgAudioCandidate, Candidate: out.Candidate})
			case audio.OutboundFatal:
				_ = evLoop.Sender().Send(loop.Msg{Kind: loop.MsgFatal, Err: out.Err})
			}
		}
	})

	if diagSrv != nil {
		eg.Go(func() error { return diagSrv.Serve(egCtx) })
	}

	eg.Go(func() error {
		defer cancel()
		defer func() { _ = outRecv.Close() }()
		return evLoop.Run()
	})

	err = eg.Wait()

	if watcher != nil {
		_ = watcher.Close()
	}
	if bus != nil {
		_ = bus.Close()
	}
	_ = be.Close()

	return err
}

func newBackend(name config.Backend, logger zerolog.Logger) (backend.Backend, error) {
	switch name {
	case config.BackendDBus:
		return screensaver.New(logger)
	case config.BackendWayland:
		return wayland.Connect(logger)
	case config.BackendDryRun:
		return dryrun.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
