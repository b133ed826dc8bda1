// Package screensaver implements an inhibit backend against the session
// service's org.freedesktop.ScreenSaver interface, used by GNOME, KDE and
// most other freedesktop-compliant desktops.
package screensaver

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	busName    = "org.freedesktop.ScreenSaver"
	objectPath = "/ScreenSaver"
	ifaceName  = "org.freedesktop.ScreenSaver"

	appName       = "idle-inhibitd"
	inhibitReason = "media is being played"
)

// caller is the slice of dbus.BusObject this backend depends on, narrowed
// so the cookie bookkeeping below can be unit-tested against a fake without
// a real session bus.
type caller interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Backend calls Inhibit/UnInhibit on the session bus's screensaver service,
// storing the cookie the service hands back from Inhibit so it can be
// returned on release.
type Backend struct {
	conn   *dbus.Conn
	obj    caller
	log    zerolog.Logger
	cookie *uint32
}

// New opens a session bus connection, runs a startup self-test
// (inhibit-then-uninhibit) to verify the service answers, and returns a
// ready Backend.
func New(log zerolog.Logger) (*Backend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("screensaver: session bus connect: %w", err)
	}

	b := newBackend(conn.Object(busName, dbus.ObjectPath(objectPath)), log)
	b.conn = conn

	if err := b.Inhibit(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("screensaver: startup self-test inhibit: %w", err)
	}
	if err := b.Uninhibit(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("screensaver: startup self-test uninhibit: %w", err)
	}

	b.log.Debug().Msg("screensaver backend self-test passed")
	return b, nil
}

// newBackend builds a Backend around obj without opening a bus connection,
// so tests can supply a fake caller.
func newBackend(obj caller, log zerolog.Logger) *Backend {
	return &Backend{
		obj: obj,
		log: log.With().Str("component", "inhibit.screensaver").Logger(),
	}
}

func (b *Backend) Inhibit() error {
	if b.cookie != nil {
		return nil
	}
	call := b.obj.Call(ifaceName+".Inhibit", 0, appName, inhibitReason)
	if call.Err != nil {
		return fmt.Errorf("screensaver: Inhibit: %w", call.Err)
	}
	var cookie uint32
	if err := call.Store(&cookie); err != nil {
		return fmt.Errorf("screensaver: Inhibit reply: %w", err)
	}
	b.cookie = &cookie
	b.log.Info().Msg("idle inhibitor ENABLED")
	return nil
}

func (b *Backend) Uninhibit() error {
	if b.cookie == nil {
		return nil
	}
	cookie := *b.cookie
	call := b.obj.Call(ifaceName+".UnInhibit", 0, cookie)
	if call.Err != nil {
		return fmt.Errorf("screensaver: UnInhibit: %w", call.Err)
	}
	b.cookie = nil
	b.log.Info().Msg("idle inhibitor DISABLED")
	return nil
}

func (b *Backend) Close() error {
	err := b.Uninhibit()
	if b.conn == nil {
		return err
	}
	if cerr := b.conn.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("screensaver: close session bus: %w", cerr)
	}
	return err
}
