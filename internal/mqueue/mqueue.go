// Package mqueue implements a typed FIFO that bridges any number of
// producers to a single consumer sitting inside a polled event loop. It
// pairs an in-process slice queue with a Linux eventfd counter in semaphore
// mode, so the consumer's multiplexer can treat "queue has data" as just
// another readable file descriptor alongside the compositor connection.
package mqueue

import (
	"encoding/binary"
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by Recv once the queue has been closed and drained.
var ErrClosed = errors.New("mqueue: queue closed")

// Queue is the shared state behind a Sender/Receiver pair. Do not use it
// directly; obtain a pair from New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	efd    int
}

// New creates a queue and its single Receiver plus one Sender. Call
// Sender.Clone to hand additional producers their own handle — they all
// share the same underlying counter and slice.
func New[T any]() (Sender[T], Receiver[T], error) {
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE|unix.EFD_CLOEXEC)
	if err != nil {
		return Sender[T]{}, Receiver[T]{}, errWrap("eventfd", err)
	}
	q := &Queue[T]{efd: fd}
	return Sender[T]{q: q}, Receiver[T]{q: q}, nil
}

// Sender enqueues values. It is safe to copy and to use concurrently from
// any number of goroutines; per-sender enqueue order is preserved, and two
// sends that don't race each other are observed in that order by Recv.
type Sender[T any] struct {
	q *Queue[T]
}

// Send enqueues payload, then signals the eventfd counter. It returns
// ErrClosed if the queue has already been closed.
func (s Sender[T]) Send(payload T) error {
	s.q.mu.Lock()
	if s.q.closed {
		s.q.mu.Unlock()
		return ErrClosed
	}
	s.q.items = append(s.q.items, payload)
	s.q.mu.Unlock()

	return writeEventfd(s.q.efd, 1)
}

// Receiver dequeues values. There must be exactly one Receiver per Queue.
type Receiver[T any] struct {
	q *Queue[T]
}

// Fd returns the eventfd descriptor to register with the event loop's
// multiplexer (EPOLLIN). Recv must only be called after the multiplexer
// reports it readable.
func (r Receiver[T]) Fd() int { return r.q.efd }

// Recv blocks on the eventfd counter (decrementing it by one, semaphore
// style), then pops and returns the oldest enqueued value. Call it only
// after the loop's multiplexer reported Fd() readable — doing otherwise
// defeats the whole point of using the fd as a readiness signal.
func (r Receiver[T]) Recv() (T, error) {
	var zero T
	if _, err := readEventfd(r.q.efd); err != nil {
		return zero, err
	}

	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	if len(r.q.items) == 0 {
		// The counter was signalled by Close with nothing left to drain.
		if r.q.closed {
			return zero, ErrClosed
		}
		return zero, errors.New("mqueue: eventfd signalled with an empty queue")
	}
	v := r.q.items[0]
	r.q.items[0] = zero
	r.q.items = r.q.items[1:]
	return v, nil
}

// Close marks the queue disconnected and wakes a blocked Recv with
// ErrClosed. It is idempotent and safe to call from any sender.
func (r Receiver[T]) Close() error {
	r.q.mu.Lock()
	already := r.q.closed
	r.q.closed = true
	r.q.mu.Unlock()
	if already {
		return nil
	}
	return writeEventfd(r.q.efd, 1)
}

func writeEventfd(fd int, v uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	for {
		_, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func readEventfd(fd int) (uint64, error) {
	buf := make([]byte, 8)
	for {
		_, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(buf), nil
	}
}

func errWrap(op string, err error) error {
	return &opError{op: op, err: err}
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return "mqueue: " + e.op + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }
