package pwire

/*
#cgo pkg-config: libpipewire-0.3
#include "shim.h"
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime/cgo"
	"sync"
)

// Kind mirrors pwireshim_kind; only these three object types are bound.
type Kind int

const (
	KindNode Kind = iota
	KindPort
	KindLink
)

func kindFromC(k C.int) Kind {
	return Kind(k)
}

// EventKind tags which field of Event is meaningful.
type EventKind int

const (
	// EventGlobal announces a new registry global of a tracked Kind,
	// carrying the properties the registry announced with it (nil if
	// none). No proxy is bound yet; the consumer calls Bind to receive
	// later EventInfo updates for it.
	EventGlobal EventKind = iota
	// EventGlobalRemove announces that a previously-seen ID is gone.
	EventGlobalRemove
	// EventInfo carries a node/port/link's property dictionary and, for
	// links, its active state.
	EventInfo
)

// Event is a single registry or info notification forwarded from the
// pipewire thread loop. Consumers receive these in arrival order on one
// channel; Properties is always nil for EventGlobalRemove.
type Event struct {
	Kind       EventKind
	ID         uint32
	ObjectKind Kind
	Properties map[string]string
	// LinkState is only meaningful when ObjectKind is KindLink and Kind is
	// EventInfo; -1 otherwise.
	LinkState int
}

// Connection owns one pipewire thread loop and forwards every registry and
// object-info event it observes onto Events. Close must be called exactly
// once to release the underlying C resources; after Close, no further
// values are sent on Events and the channel is closed.
type Connection struct {
	conn   *C.struct_pwireshim_conn
	handle cgo.Handle
	events chan Event

	mu     sync.Mutex
	// pending buffers property key/value pairs for an object whose info
	// callback is mid-flight; goDictItem appends to it and goObjectInfo
	// flushes it into an Event. Keyed by object ID since info callbacks
	// for distinct proxies can interleave on the single pipewire thread
	// loop in principle, even though in practice libpipewire serializes
	// them.
	pending map[uint32]map[string]string
}

// Connect opens a connection to the running audio server and starts
// listening for registry globals. The returned Connection's Events channel
// begins receiving events immediately; callers should start draining it
// before calling Bind for any global they discover.
func Connect() (*Connection, error) {
	c := &Connection{
		events:  make(chan Event, 64),
		pending: make(map[uint32]map[string]string),
	}
	c.handle = cgo.NewHandle(c)

	var cErr *C.char
	conn := C.pwireshim_connect(C.pwireshim_handle(c.handle), &cErr)
	if conn == nil {
		c.handle.Delete()
		msg := "connect failed"
		if cErr != nil {
			msg = C.GoString(cErr)
		}
		return nil, fmt.Errorf("pwire: %s", msg)
	}
	c.conn = conn
	return c, nil
}

// Events returns the channel of registry/info notifications.
func (c *Connection) Events() <-chan Event {
	return c.events
}

// Bind binds a proxy for the given global ID and kind, subscribing to its
// info updates. Returns an error if the server rejects the bind.
func (c *Connection) Bind(id uint32, kind Kind) error {
	rc := C.pwireshim_bind(c.conn, C.uint32_t(id), C.enum_pwireshim_kind(kind))
	if rc != 0 {
		return fmt.Errorf("pwire: bind of id %d failed", id)
	}
	return nil
}

// Unbind releases a previously bound proxy. A no-op if id was never bound.
func (c *Connection) Unbind(id uint32) {
	C.pwireshim_unbind(c.conn, C.uint32_t(id))
}

// Close terminates the thread loop, tears down the connection, and closes
// Events. A second call does nothing and returns an error.
func (c *Connection) Close() error {
	if c.conn == nil {
		return errors.New("pwire: connection already closed")
	}
	C.pwireshim_terminate(c.conn)
	C.pwireshim_destroy(c.conn)
	c.conn = nil
	c.handle.Delete()
	close(c.events)
	return nil
}

func (c *Connection) bufferDictItem(id uint32, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.pending[id]
	if !ok {
		m = make(map[string]string)
		c.pending[id] = m
	}
	m[key] = value
}

func (c *Connection) takePending(id uint32) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.pending[id]
	delete(c.pending, id)
	return m
}

// send delivers ev to Events. It blocks if the channel's buffer is full,
// which in turn stalls the pipewire thread loop's callback dispatch — the
// consumer (the audio worker) is expected to keep draining Events promptly
// rather than this package dropping events to avoid that backpressure.
func (c *Connection) send(ev Event) {
	c.events <- ev
}
