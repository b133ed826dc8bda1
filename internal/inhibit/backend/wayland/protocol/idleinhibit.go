package protocol

import "github.com/rajveermalviya/go-wayland/wayland/client"

// IdleInhibitManager is the zwp_idle_inhibit_manager_v1 global: a factory
// for per-surface inhibitor objects.
type IdleInhibitManager struct {
	client.BaseProxy
}

func NewIdleInhibitManager(ctx *client.Context) *IdleInhibitManager {
	m := &IdleInhibitManager{}
	ctx.Register(m)
	return m
}

// CreateInhibitor is opcode 1: while the returned object lives, the
// compositor must not let the session become idle as long as surface is
// visible. Matches the "existence, not a boolean" contract wlroots uses
// for this protocol.
func (m *IdleInhibitManager) CreateInhibitor(surface *client.Surface) (*IdleInhibitor, error) {
	inh := NewIdleInhibitor(m.Context())
	const opcode = 1
	err := m.Context().SendRequest(m, opcode, inh, surface)
	return inh, err
}

// Destroy is opcode 0.
func (m *IdleInhibitManager) Destroy() error {
	const opcode = 0
	return m.Context().SendRequest(m, opcode)
}

// IdleInhibitor is the zwp_idle_inhibitor_v1 object. It has no events and
// exactly one request: destroying it releases the inhibition.
type IdleInhibitor struct {
	client.BaseProxy
}

func NewIdleInhibitor(ctx *client.Context) *IdleInhibitor {
	inh := &IdleInhibitor{}
	ctx.Register(inh)
	return inh
}

// Destroy is opcode 0.
func (inh *IdleInhibitor) Destroy() error {
	const opcode = 0
	return inh.Context().SendRequest(inh, opcode)
}
