package loop

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/rafaelrc7/idle-inhibitd/internal/audio"
	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/backend"
	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/state"
	"github.com/rafaelrc7/idle-inhibitd/internal/metrics"
	"github.com/rafaelrc7/idle-inhibitd/internal/mqueue"
)

const (
	tagMain       int32 = 1
	tagCompositor int32 = 2
)

// StatusWriter is notified of every effective-inhibit transition so it can
// emit a stdout status line. Backends that don't carry one (only the
// compositor variant does, see DESIGN.md) pass a nil StatusWriter.
type StatusWriter interface {
	Write(effective bool) error
}

// PropertyNotifier is notified of both the manual and effective inhibit
// state so it can keep D-Bus properties in sync. A nil PropertyNotifier
// means bus control wasn't configured.
type PropertyNotifier interface {
	SetManualInhibit(v bool)
	SetEffectiveInhibit(v bool)
}

// Loop owns the main readiness multiplexer, the main queue, the
// inhibit-state machine and the configured backend.
type Loop struct {
	epfd int

	main    mqueue.Receiver[Msg]
	mainSnd mqueue.Sender[Msg]

	machine *state.Machine
	be      backend.Backend
	source  backend.EventSource // nil unless be also implements EventSource

	status  StatusWriter
	props   PropertyNotifier
	metrics func(effective bool) // nil-safe metrics hook

	workerControl mqueue.Sender[audio.Control]

	log zerolog.Logger

	term bool

	effectiveAtomic atomic.Bool // read from internal/diagnostics' HTTP goroutine
	manualAtomic    atomic.Bool
}

// New builds a Loop. be's concrete type decides the loop's flavor: if it
// also implements backend.EventSource, its fd is folded into the
// multiplexer every iteration (the "compositor-connected" shape); otherwise
// the loop only ever waits on the main queue.
func New(
	minDuration time.Duration,
	be backend.Backend,
	workerControl mqueue.Sender[audio.Control],
	status StatusWriter,
	props PropertyNotifier,
	metrics func(effective bool),
	log zerolog.Logger,
) (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("loop: epoll_create1: %w", err)
	}

	mainSnd, mainRecv, err := mqueue.New[Msg]()
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("loop: create main queue: %w", err)
	}

	l := &Loop{
		epfd:          epfd,
		main:          mainRecv,
		mainSnd:       mainSnd,
		be:            be,
		workerControl: workerControl,
		status:        status,
		props:         props,
		metrics:       metrics,
		log:           log.With().Str("component", "loop").Logger(),
	}
	if source, ok := be.(backend.EventSource); ok {
		l.source = source
	}

	l.machine = state.New(minDuration, nil, l.onEffectiveChange, l.notifyTimerFired)

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, mainRecv.Fd(), &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     tagMain,
	}); err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("loop: register main queue fd: %w", err)
	}

	return l, nil
}

// EffectiveInhibit returns the current effective-inhibit state. Safe to call
// from any goroutine, unlike the state machine it mirrors.
func (l *Loop) EffectiveInhibit() bool { return l.effectiveAtomic.Load() }

// ManualInhibit returns the current manual-toggle state. Safe to call from
// any goroutine, unlike the state machine it mirrors.
func (l *Loop) ManualInhibit() bool { return l.manualAtomic.Load() }

// SetPropertyNotifier wires the bus control property surface in after
// construction, since internal/busctl.New itself needs this Loop's Sender
// to build its ToggleManual method.
func (l *Loop) SetPropertyNotifier(p PropertyNotifier) { l.props = p }

// Sender returns a Sender for Msg, for any producer (bus control, the
// signal-relay goroutine, the audio worker's outbound relay) that needs to
// push onto the main queue.
func (l *Loop) Sender() mqueue.Sender[Msg] { return l.mainSnd }

// RequestTerminate enqueues MsgTerminate. Safe to call from any goroutine;
// typically called once from the process's signal handler.
func (l *Loop) RequestTerminate() error {
	return l.mainSnd.Send(Msg{Kind: MsgTerminate})
}

func (l *Loop) notifyTimerFired() {
	if err := l.mainSnd.Send(Msg{Kind: MsgTimerFired}); err != nil {
		l.log.Warn().Err(err).Msg("loop: failed to enqueue timer-fired token")
	}
}

// onEffectiveChange drives the backend and the optional status/property/
// metrics surfaces on every effective-inhibit transition. A failing
// Inhibit/Uninhibit call loses the whole point of this daemon (the idle
// mechanism would silently disagree with reality), so it is surfaced as a
// fatal main-queue message rather than just logged.
func (l *Loop) onEffectiveChange(effective bool) {
	var beErr error
	if effective {
		beErr = l.be.Inhibit()
	} else {
		beErr = l.be.Uninhibit()
	}
	if beErr != nil {
		if err := l.mainSnd.Send(Msg{Kind: MsgFatal, Err: fmt.Errorf("backend transition to effective=%v: %w", effective, beErr)}); err != nil {
			l.log.Error().Err(beErr).Msg("loop: backend transition failed and fatal message could not be enqueued")
		}
	}
	l.effectiveAtomic.Store(effective)
	metrics.SetEffectiveInhibit(effective)

	if l.props != nil {
		l.props.SetEffectiveInhibit(effective)
	}
	if l.status != nil {
		if err := l.status.Write(effective); err != nil {
			l.log.Warn().Err(err).Msg("loop: failed to write status line")
		}
	}
	if l.metrics != nil {
		l.metrics(effective)
	}
}

// Run drives the event loop until a fatal error or a clean termination
// request. It returns nil on a clean shutdown (MsgTerminate, or the main
// queue having been closed), and the triggering error otherwise.
func (l *Loop) Run() error {
	defer unix.Close(l.epfd)

	for !l.term {
		if l.source != nil {
			if err := l.source.PrepareRead(); err != nil {
				return fmt.Errorf("loop: backend prepare-read: %w", err)
			}
			if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, l.source.ConnectionFD(), &unix.EpollEvent{
				Events: unix.EPOLLIN,
				Fd:     tagCompositor,
			}); err != nil {
				return fmt.Errorf("loop: register compositor fd: %w", err)
			}
		}

		events := make([]unix.EpollEvent, 2)
		n, err := epollWaitRetry(l.epfd, events)
		if err != nil {
			return fmt.Errorf("loop: epoll_wait: %w", err)
		}

		if l.source != nil {
			_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, l.source.ConnectionFD(), nil)
		}

		for i := 0; i < n; i++ {
			switch events[i].Fd {
			case tagMain:
				msg, rerr := l.main.Recv()
				if rerr != nil {
					if errors.Is(rerr, mqueue.ErrClosed) {
						return nil
					}
					return fmt.Errorf("loop: main queue recv: %w", rerr)
				}
				if err := l.handle(msg); err != nil {
					return err
				}
			case tagCompositor:
				if l.source != nil {
					if err := l.source.DispatchPending(); err != nil {
						return fmt.Errorf("loop: backend dispatch-pending: %w", err)
					}
				}
			}
		}
	}

	if err := l.workerControl.Send(audio.Control{Kind: audio.ControlTerminate}); err != nil {
		l.log.Warn().Err(err).Msg("loop: failed to send terminate to audio worker")
	}
	return nil
}

func (l *Loop) handle(msg Msg) error {
	switch msg.Kind {
	case MsgManualToggle:
		l.machine.ManualToggle()
		l.manualAtomic.Store(l.machine.ManualInhibit())
		metrics.ManualTogglesTotal.Inc()
		if l.props != nil {
			l.props.SetManualInhibit(l.machine.ManualInhibit())
		}
	case MsgAudioCandidate:
		l.machine.AudioCandidate(msg.Candidate)
	case MsgTimerFired:
		l.machine.TimerFired()
	case MsgFatal:
		return fmt.Errorf("loop: fatal: %w", msg.Err)
	case MsgTerminate:
		l.term = true
	}
	return nil
}

func epollWaitRetry(epfd int, events []unix.EpollEvent) (int, error) {
	for {
		n, err := unix.EpollWait(epfd, events, -1)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}
