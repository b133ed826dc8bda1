// Package audio runs the audio-graph worker: it owns the connection to the
// audio server, keeps a graph.Graph in sync with its registry events, and
// emits an inhibit candidate to the main loop after every batch of events
// or control messages that changed the graph or forced a recompute, whether
// or not the candidate value changed.
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rafaelrc7/idle-inhibitd/internal/audio/pwire"
	"github.com/rafaelrc7/idle-inhibitd/internal/graph"
	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
	"github.com/rafaelrc7/idle-inhibitd/internal/metrics"
	"github.com/rafaelrc7/idle-inhibitd/internal/mqueue"
)

// ControlKind tags which fields of Control are meaningful.
type ControlKind int

const (
	// ControlGraphUpdated forces a recompute even if nothing changed.
	ControlGraphUpdated ControlKind = iota
	// ControlSetFilters replaces the graph's filter lists, since the
	// Graph is owned exclusively by the worker goroutine: a live
	// filter-list reload from internal/config.FilterWatcher must hand
	// the new lists through this queue rather than touch the graph
	// directly.
	ControlSetFilters
	// ControlTerminate asks the worker to release its connection and
	// return from Run.
	ControlTerminate
)

// Control is an inbound message the main loop sends to the worker.
type Control struct {
	Kind          ControlKind
	SinkWhitelist []filter.SinkFilter
	NodeBlacklist []filter.NodeFilter
}

// OutboundKind tags which field of Outbound is meaningful.
type OutboundKind int

const (
	// OutboundCandidate carries a fresh InhibitCandidate value.
	OutboundCandidate OutboundKind = iota
	// OutboundFatal reports that the worker cannot continue; the main
	// loop is expected to treat this as a fatal event for the process.
	OutboundFatal
)

// Outbound is a message the worker sends to the main loop.
type Outbound struct {
	Kind      OutboundKind
	Candidate bool
	Err       error
}

// connection is the slice of *pwire.Connection the worker depends on. A
// small interface at this boundary, rather than the concrete cgo type,
// keeps the worker's event-handling logic testable without a real audio
// server.
type connection interface {
	Events() <-chan pwire.Event
	Bind(id uint32, kind pwire.Kind) error
	Unbind(id uint32)
	Close() error
}

// Worker owns the audio-server connection and the graph it feeds. Run must
// be called on its own goroutine; it blocks until Control carries
// ControlTerminate, the connection's event channel closes, or a fatal
// condition is hit.
type Worker struct {
	conn    connection
	graph   *graph.Graph
	control mqueue.Receiver[Control]
	out     mqueue.Sender[Outbound]
	log     zerolog.Logger

	bound map[uint32]graph.Kind

	activeSinks atomic.Int32 // read from internal/diagnostics' HTTP goroutine
}

// New wires a worker around an already-open audio connection, a graph to
// keep in sync, the control-message receiver the main loop sends on, and
// the outbound sender the worker reports candidates and fatal errors on.
func New(conn connection, g *graph.Graph, control mqueue.Receiver[Control], out mqueue.Sender[Outbound], log zerolog.Logger) *Worker {
	return &Worker{
		conn:    conn,
		graph:   g,
		control: control,
		out:     out,
		log:     log.With().Str("component", "audio").Logger(),
		bound:   make(map[uint32]graph.Kind),
	}
}

// Run drives the worker until termination. On panic anywhere in the
// handling loop it recovers, reports an OutboundFatal, and returns — the
// rest of the daemon goes down via the main loop observing that message,
// mirroring the process-wide panic hook described for this worker's panic
// handling.
func (w *Worker) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			ferr := fmt.Errorf("audio: worker panic: %v", r)
			w.out.Send(Outbound{Kind: OutboundFatal, Err: ferr})
			err = ferr
		}
	}()

	controlCh := make(chan Control, 1)
	controlErrCh := make(chan error, 1)
	go func() {
		for {
			m, rerr := w.control.Recv()
			if rerr != nil {
				controlErrCh <- rerr
				return
			}
			controlCh <- m
		}
	}()

	var dirty bool
	for {
		select {
		case ev, ok := <-w.conn.Events():
			if !ok {
				return errors.New("audio: connection events channel closed")
			}
			if w.handleEvent(ev) {
				dirty = true
			}

		case m := <-controlCh:
			term, forceDirty, terr := w.handleControl(m)
			if term {
				return terr
			}
			if forceDirty {
				dirty = true
			}

		case rerr := <-controlErrCh:
			return fmt.Errorf("audio: control queue: %w", rerr)
		}

		// Drain whatever else is already queued before recomputing, so a
		// burst of registry events collapses into one active_sinks()
		// recompute instead of one per event.
	drain:
		for {
			select {
			case ev, ok := <-w.conn.Events():
				if !ok {
					return errors.New("audio: connection events channel closed")
				}
				if w.handleEvent(ev) {
					dirty = true
				}
			case m := <-controlCh:
				term, forceDirty, terr := w.handleControl(m)
				if term {
					return terr
				}
				if forceDirty {
					dirty = true
				}
			default:
				break drain
			}
		}

		if dirty {
			w.recompute()
			dirty = false
		}
	}
}

// handleControl applies one control message. terminate reports whether Run
// should return now, in which case err is the value Run should return. dirty
// reports whether the caller should force a recompute this iteration.
func (w *Worker) handleControl(m Control) (terminate, dirty bool, err error) {
	switch m.Kind {
	case ControlTerminate:
		return true, false, w.conn.Close()
	case ControlSetFilters:
		w.graph.SetFilters(m.SinkWhitelist, m.NodeBlacklist)
		return false, true, nil
	case ControlGraphUpdated:
		return false, true, nil
	default:
		return false, false, nil
	}
}

// handleEvent applies one pwire event to the graph and reports whether it
// changed the graph in a way that warrants a recompute.
func (w *Worker) handleEvent(ev pwire.Event) bool {
	switch ev.Kind {
	case pwire.EventGlobal:
		kind := graphKind(ev.ObjectKind)
		w.graph.Insert(graph.ID(ev.ID), toObject(kind, ev.Properties, -1))
		w.bound[ev.ID] = kind
		if err := w.conn.Bind(ev.ID, ev.ObjectKind); err != nil {
			w.log.Warn().Uint32("id", ev.ID).Err(err).Msg("audio: bind failed")
		}
		return true

	case pwire.EventGlobalRemove:
		if _, ok := w.bound[ev.ID]; !ok {
			return false
		}
		delete(w.bound, ev.ID)
		w.conn.Unbind(ev.ID)
		w.graph.Remove(graph.ID(ev.ID))
		return true

	case pwire.EventInfo:
		kind, ok := w.bound[ev.ID]
		if !ok {
			return false
		}
		return w.graph.Update(graph.ID(ev.ID), toUpdate(kind, ev.Properties, ev.LinkState))

	default:
		return false
	}
}

// recompute re-evaluates active_sinks() and emits the resulting candidate.
func (w *Worker) recompute() {
	active := w.graph.ActiveSinks()
	candidate := len(active) > 0

	w.activeSinks.Store(int32(len(active)))
	metrics.ActiveSinks.Set(float64(len(active)))
	metrics.SetGraphObjects(w.graph.Counts())

	if err := w.out.Send(Outbound{Kind: OutboundCandidate, Candidate: candidate}); err != nil {
		w.log.Warn().Err(err).Msg("audio: failed to send inhibit candidate")
	}
}

// ActiveSinkCount returns the most recently computed active-sink count.
// Safe to call from any goroutine (e.g. the diagnostics HTTP handler),
// unlike every other Worker method, which must run on its owning goroutine.
func (w *Worker) ActiveSinkCount() int {
	return int(w.activeSinks.Load())
}
