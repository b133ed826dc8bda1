// Package backend defines the common contract every idle-inhibit mechanism
// implements, independent of whether it talks to a compositor, a session
// bus service, or nothing at all.
package backend

// Backend asserts or releases idle inhibition through some OS or desktop
// mechanism. Inhibit and Uninhibit are both idempotent: calling either
// again before the other intervenes is a no-op.
type Backend interface {
	Inhibit() error
	Uninhibit() error
	// Close releases any resource still held (inhibitor tokens, surfaces,
	// bus cookies) regardless of current inhibit state. Safe to call once
	// after the backend is no longer needed.
	Close() error
}

// EventSource is implemented by backends that drive their own protocol
// connection (the compositor backend) and need their wakeups folded into
// the main loop's readiness multiplexer.
type EventSource interface {
	// PrepareRead flushes queued outbound messages so a subsequent poll
	// of ConnectionFD reflects this backend's true readiness.
	PrepareRead() error
	// ConnectionFD returns the fd to register with the event loop poller.
	ConnectionFD() int
	// DispatchPending reads and processes whatever became available once
	// ConnectionFD was reported readable.
	DispatchPending() error
}
