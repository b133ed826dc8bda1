// Package state implements the debounced idle-inhibit state machine: it
// turns a stream of audio-candidate signals, manual toggle requests and
// timer expirations into a single "effective inhibit" boolean, emitted on
// change and after every manual toggle, even when the value stays the same.
package state

import "time"

// Scheduler abstracts the one-shot timer the machine needs for its
// minimum-duration debounce, so tests can run it without real time passing.
// fire is called from whatever goroutine the implementation chooses; the
// caller-supplied fire func must itself be safe to call off the machine's
// owning goroutine (typically it hands a token to a thread-safe queue rather
// than touching the Machine directly).
type Scheduler interface {
	// Start arms a one-shot timer that calls fire after d elapses. The
	// returned stop func cancels it; calling stop after it already fired
	// is a safe no-op.
	Start(d time.Duration, fire func()) (stop func())
}

// realScheduler backs Scheduler with time.AfterFunc.
type realScheduler struct{}

// NewRealScheduler returns a Scheduler backed by the runtime timer wheel.
func NewRealScheduler() Scheduler { return realScheduler{} }

func (realScheduler) Start(d time.Duration, fire func()) func() {
	t := time.AfterFunc(d, fire)
	return func() { t.Stop() }
}

// Machine holds the inhibit-state machine's fields. It is not safe for
// concurrent use: every method must be called from the single goroutine
// that owns it (typically the event loop, fed by its message queue).
type Machine struct {
	minDuration      time.Duration // zero means "no debounce, react immediately"
	scheduler        Scheduler
	onChange         func(effective bool)
	notifyTimerFired func()

	audioInhibit  bool
	manualInhibit bool
	effective     bool

	pendingTimerStop func()
}

// New constructs a Machine. minDuration of zero disables debouncing:
// audio_candidate(true) takes effect immediately.
//
// onChange is invoked synchronously, from inside whichever method call
// caused the transition, whenever the effective state changes or a forced
// emission is requested.
//
// notifyTimerFired is called when the debounce timer expires. It runs on
// whatever goroutine the Scheduler fires on, so it must be safe to call
// concurrently with Machine's other methods; its job is only to hand a
// token to the caller's own serialized event stream (its message queue),
// which later calls TimerFired from the owning goroutine. It must not call
// TimerFired directly.
func New(minDuration time.Duration, scheduler Scheduler, onChange func(effective bool), notifyTimerFired func()) *Machine {
	if scheduler == nil {
		scheduler = NewRealScheduler()
	}
	return &Machine{
		minDuration:      minDuration,
		scheduler:        scheduler,
		onChange:         onChange,
		notifyTimerFired: notifyTimerFired,
	}
}

// Effective returns the current effective inhibit state.
func (m *Machine) Effective() bool { return m.effective }

// ManualInhibit returns the current manual-toggle state, for surfaces (e.g.
// the bus control property) that mirror it independently of Effective.
func (m *Machine) ManualInhibit() bool { return m.manualInhibit }

// AudioCandidate applies audio_candidate(active). See rules 1–2: setting it
// true either inhibits immediately (no debounce configured) or arms a
// one-shot timer whose expiry later calls TimerFired; setting it false
// cancels any pending timer and clears the audio-driven inhibit immediately.
func (m *Machine) AudioCandidate(active bool) {
	if active {
		if m.minDuration == 0 {
			m.audioInhibit = true
			m.reevaluate(false)
			return
		}
		if m.pendingTimerStop != nil {
			// A debounce timer is already running; let it run to expiry.
			return
		}
		m.pendingTimerStop = m.scheduler.Start(m.minDuration, func() {
			if m.notifyTimerFired != nil {
				m.notifyTimerFired()
			}
		})
		return
	}

	if m.pendingTimerStop != nil {
		m.pendingTimerStop()
		m.pendingTimerStop = nil
	}
	m.audioInhibit = false
	m.reevaluate(false)
}

// TimerFired applies the timer_fired event (rule 3). It is a no-op if no
// timer is currently pending — guarding against a timer that fired in the
// brief window before AudioCandidate(false) cancelled it.
func (m *Machine) TimerFired() {
	if m.pendingTimerStop == nil {
		return
	}
	m.pendingTimerStop = nil
	m.audioInhibit = true
	m.reevaluate(false)
}

// ManualToggle applies manual_toggle (rule 4): flips manual_inhibit and
// forces a re-evaluation/emission even if the effective value doesn't
// change, so an external observer (e.g. a D-Bus property) always sees a
// fresh signal after a user-initiated toggle.
func (m *Machine) ManualToggle() {
	m.manualInhibit = !m.manualInhibit
	m.reevaluate(true)
}

func (m *Machine) reevaluate(force bool) {
	next := m.audioInhibit || m.manualInhibit
	if next == m.effective && !force {
		return
	}
	m.effective = next
	if m.onChange != nil {
		m.onChange(next)
	}
}
