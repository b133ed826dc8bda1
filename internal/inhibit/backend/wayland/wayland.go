// Package wayland implements the compositor idle-inhibit backend: it binds
// wl_compositor, wl_shm, zwlr_layer_shell_v1 and zwp_idle_inhibit_manager_v1,
// creates one background layer-surface per output with a 1x1 ARGB buffer,
// and creates or destroys a zwp_idle_inhibitor_v1 on each surface to
// assert or release inhibition.
package wayland

import (
	"fmt"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"github.com/rs/zerolog"

	"github.com/rafaelrc7/idle-inhibitd/internal/inhibit/backend/wayland/protocol"
)

const surfaceNamespace = "idle-inhibitd"

// outputSurface is the set of objects tied to one compositor output: a
// background layer-surface plus, while inhibiting, its idle-inhibitor.
type outputSurface struct {
	output       *client.Output
	surface      *client.Surface
	layerSurface *protocol.LayerSurface
	configured   bool
	inhibitor    *protocol.IdleInhibitor
}

// Backend is the compositor idle-inhibit backend. It implements both
// backend.Backend and backend.EventSource.
type Backend struct {
	display    *client.Display
	ctx        *client.Context
	registry   *client.Registry
	compositor *client.Compositor
	shm        *client.Shm
	layerShell *protocol.LayerShell
	idleMgr    *protocol.IdleInhibitManager
	buffer     *client.Buffer

	surfaces  map[uint32]*outputSurface
	inhibited bool
	log       zerolog.Logger
}

// Connect dials the compositor named by WAYLAND_DISPLAY (or the default
// socket if unset), binds every global this backend needs, and creates a
// background surface for every output already announced. Surfaces for
// outputs announced later are created as their globals arrive.
func Connect(log zerolog.Logger) (*Backend, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("wayland: connect: %w", err)
	}

	b := &Backend{
		display:  display,
		ctx:      display.Context(),
		surfaces: make(map[uint32]*outputSurface),
		log:      log.With().Str("component", "inhibit.wayland").Logger(),
	}

	registry, err := display.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("wayland: get_registry: %w", err)
	}
	b.registry = registry
	registry.SetGlobalHandler(b.handleGlobal)
	registry.SetGlobalRemoveHandler(b.handleGlobalRemove)

	// Round-trip so every currently-existing global is announced before
	// we check that the four we need were all bound.
	if err := b.roundtrip(); err != nil {
		return nil, fmt.Errorf("wayland: initial roundtrip: %w", err)
	}
	if err := b.roundtrip(); err != nil {
		return nil, fmt.Errorf("wayland: initial roundtrip: %w", err)
	}

	if b.compositor == nil || b.shm == nil || b.layerShell == nil || b.idleMgr == nil {
		return nil, fmt.Errorf("wayland: compositor is missing one of wl_compositor, wl_shm, %s, %s",
			"zwlr_layer_shell_v1", "zwp_idle_inhibit_manager_v1")
	}

	buf, err := createBuffer(b.shm)
	if err != nil {
		return nil, fmt.Errorf("wayland: create 1x1 buffer: %w", err)
	}
	b.buffer = buf

	for id, s := range b.surfaces {
		if err := b.attachSurface(s); err != nil {
			b.log.Warn().Uint32("output", id).Err(err).Msg("wayland: failed to attach initial surface")
		}
	}

	return b, nil
}

func (b *Backend) roundtrip() error {
	callback, err := b.display.Sync()
	if err != nil {
		return err
	}
	defer callback.Destroy()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	for !done {
		if err := b.ctx.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) handleGlobal(e client.RegistryGlobalEvent) {
	switch e.Interface {
	case "wl_compositor":
		b.compositor = client.NewCompositor(b.ctx)
		_ = b.registry.Bind(e.Name, e.Interface, 4, b.compositor)
	case "wl_shm":
		b.shm = client.NewShm(b.ctx)
		_ = b.registry.Bind(e.Name, e.Interface, 1, b.shm)
	case "zwlr_layer_shell_v1":
		b.layerShell = protocol.NewLayerShell(b.ctx)
		_ = b.registry.Bind(e.Name, e.Interface, 1, b.layerShell)
	case "zwp_idle_inhibit_manager_v1":
		b.idleMgr = protocol.NewIdleInhibitManager(b.ctx)
		_ = b.registry.Bind(e.Name, e.Interface, 1, b.idleMgr)
	case "wl_output":
		output := client.NewOutput(b.ctx)
		_ = b.registry.Bind(e.Name, e.Interface, 1, output)
		s := &outputSurface{output: output}
		b.surfaces[e.Name] = s
		// The other globals may not be bound yet on the very first
		// roundtrip; Connect attaches every still-unattached surface
		// once they are. Hot-plugged outputs arrive after Connect, so
		// attach immediately in that case.
		if b.compositor != nil && b.layerShell != nil && b.buffer != nil {
			if err := b.attachSurface(s); err != nil {
				b.log.Warn().Uint32("output", e.Name).Err(err).Msg("wayland: failed to attach hot-plugged surface")
			}
		}
	}
}

func (b *Backend) handleGlobalRemove(e client.RegistryGlobalRemoveEvent) {
	s, ok := b.surfaces[e.Name]
	if !ok {
		return
	}
	delete(b.surfaces, e.Name)
	b.destroySurface(s)
}

// attachSurface creates the wl_surface and layer_surface for s, waits for
// the configure/ack handshake, then attaches the shared 1x1 buffer.
func (b *Backend) attachSurface(s *outputSurface) error {
	surface, err := b.compositor.CreateSurface()
	if err != nil {
		return fmt.Errorf("create_surface: %w", err)
	}
	s.surface = surface

	layerSurface, err := b.layerShell.GetLayerSurface(surface, s.output, protocol.LayerBackground, surfaceNamespace)
	if err != nil {
		return fmt.Errorf("get_layer_surface: %w", err)
	}
	s.layerSurface = layerSurface

	if err := layerSurface.SetAnchor(protocol.AnchorAll); err != nil {
		return fmt.Errorf("set_anchor: %w", err)
	}
	if err := layerSurface.SetSize(1, 1); err != nil {
		return fmt.Errorf("set_size: %w", err)
	}

	layerSurface.SetConfigureHandler(func(ev protocol.LayerSurfaceConfigureEvent) {
		_ = layerSurface.AckConfigure(ev.Serial)
		s.configured = true
	})
	layerSurface.SetClosedHandler(func() {
		s.configured = false
	})

	if err := surface.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for !s.configured {
		if err := b.ctx.Dispatch(); err != nil {
			return fmt.Errorf("dispatch while waiting for configure: %w", err)
		}
	}

	if err := surface.Attach(b.buffer, 0, 0); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	return surface.Commit()
}

// destroySurface releases every object tied to s, including its
// idle-inhibitor if one was still asserted.
func (b *Backend) destroySurface(s *outputSurface) {
	if s.inhibitor != nil {
		_ = s.inhibitor.Destroy()
		s.inhibitor = nil
	}
	if s.layerSurface != nil {
		_ = s.layerSurface.Destroy()
	}
	if s.surface != nil {
		_ = s.surface.Destroy()
	}
}

// Inhibit creates an idle-inhibitor on every configured surface that
// doesn't already have one.
func (b *Backend) Inhibit() error {
	if b.inhibited {
		return nil
	}
	for id, s := range b.surfaces {
		if s.inhibitor != nil || !s.configured {
			continue
		}
		inh, err := b.idleMgr.CreateInhibitor(s.surface)
		if err != nil {
			return fmt.Errorf("wayland: create_inhibitor for output %d: %w", id, err)
		}
		s.inhibitor = inh
	}
	b.inhibited = true
	b.log.Info().Msg("idle inhibitor ENABLED")
	return nil
}

// Uninhibit destroys every surface's idle-inhibitor, if any.
func (b *Backend) Uninhibit() error {
	if !b.inhibited {
		return nil
	}
	for _, s := range b.surfaces {
		if s.inhibitor == nil {
			continue
		}
		if err := s.inhibitor.Destroy(); err != nil {
			return fmt.Errorf("wayland: destroy inhibitor: %w", err)
		}
		s.inhibitor = nil
	}
	b.inhibited = false
	b.log.Info().Msg("idle inhibitor DISABLED")
	return nil
}

// Close releases every surface and closes the compositor connection.
func (b *Backend) Close() error {
	err := b.Uninhibit()
	for _, s := range b.surfaces {
		b.destroySurface(s)
	}
	if cerr := b.ctx.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("wayland: close connection: %w", cerr)
	}
	return err
}

// PrepareRead flushes queued outbound requests so a subsequent poll of
// ConnectionFD reflects whether the compositor has sent anything new.
func (b *Backend) PrepareRead() error {
	return b.ctx.Flush()
}

// ConnectionFD returns the compositor connection's underlying fd.
func (b *Backend) ConnectionFD() int {
	return int(b.ctx.Fd())
}

// DispatchPending reads and processes whatever became available once
// ConnectionFD was reported readable.
func (b *Backend) DispatchPending() error {
	return b.ctx.Dispatch()
}

func createBuffer(shm *client.Shm) (*client.Buffer, error) {
	const width, height = 1, 1
	const stride = width * 4
	const poolSize = stride * height

	f, err := os.CreateTemp("", "idle-inhibitd-shm-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := f.Write(make([]byte, poolSize)); err != nil {
		return nil, fmt.Errorf("write backing memory: %w", err)
	}

	pool, err := shm.CreatePool(f.Fd(), poolSize)
	if err != nil {
		return nil, fmt.Errorf("create_pool: %w", err)
	}
	defer pool.Destroy()

	return pool.CreateBuffer(0, width, height, stride, client.ShmFormatArgb8888)
}
