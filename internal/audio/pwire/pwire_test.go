package pwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These tests exercise the Go-side bookkeeping (pending dict buffering,
// event channel draining) without a real libpipewire connection; the
// connect/bind/unbind C calls are exercised only by running the daemon
// against an actual audio server.

func newTestConnection() *Connection {
	return &Connection{
		events:  make(chan Event, 64),
		pending: make(map[uint32]map[string]string),
	}
}

func TestBufferDictItem_AccumulatesUnderOneID(t *testing.T) {
	c := newTestConnection()
	c.bufferDictItem(5, "media.class", "Audio/Sink")
	c.bufferDictItem(5, "node.description", "Built-in Audio")
	c.bufferDictItem(7, "media.class", "Audio/Source")

	got := c.takePending(5)
	assert.Equal(t, map[string]string{
		"media.class":      "Audio/Sink",
		"node.description": "Built-in Audio",
	}, got)

	other := c.takePending(7)
	assert.Equal(t, map[string]string{"media.class": "Audio/Source"}, other)
}

func TestTakePending_ClearsAfterRead(t *testing.T) {
	c := newTestConnection()
	c.bufferDictItem(1, "k", "v")
	_ = c.takePending(1)
	assert.Nil(t, c.takePending(1))
}

func TestTakePending_UnknownIDReturnsNil(t *testing.T) {
	c := newTestConnection()
	assert.Nil(t, c.takePending(99))
}

func TestSend_DeliversToEventsChannel(t *testing.T) {
	c := newTestConnection()
	c.send(Event{Kind: EventGlobal, ID: 3, ObjectKind: KindNode, LinkState: -1})

	select {
	case ev := <-c.events:
		assert.Equal(t, uint32(3), ev.ID)
		assert.Equal(t, KindNode, ev.ObjectKind)
	default:
		t.Fatal("expected a buffered event")
	}
}
