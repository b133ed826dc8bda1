// Package busctl exposes one session-bus object combining a manual-toggle
// method and a pair of read-only properties reflecting the inhibit-state
// machine's current view, both on a single object path.
package busctl

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog"

	"github.com/rafaelrc7/idle-inhibitd/internal/loop"
	"github.com/rafaelrc7/idle-inhibitd/internal/mqueue"
)

const (
	busName   = "com.rafaelrc.IdleInhibitd"
	objPath   = dbus.ObjectPath("/com/rafaelrc/IdleInhibitd")
	ifaceName = "com.rafaelrc.IdleInhibitd"
)

// Server owns the session-bus connection backing the ToggleManual() method
// and the ManualInhibit/EffectiveInhibit properties.
type Server struct {
	conn  *dbus.Conn
	props *prop.Properties
	main  mqueue.Sender[loop.Msg]
	log   zerolog.Logger
}

// New reserves busName on the session bus, exports ToggleManual() and the
// two properties at objPath, and returns the Server. The returned Server's
// properties start at manual=false, effective=false; call SetManualInhibit
// / SetEffectiveInhibit as the state machine emits changes.
func New(main mqueue.Sender[loop.Msg], log zerolog.Logger) (*Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("busctl: connect session bus: %w", err)
	}

	s := &Server{
		conn: conn,
		main: main,
		log:  log.With().Str("component", "busctl").Logger(),
	}

	if err := conn.Export(s, objPath, ifaceName); err != nil {
		conn.Close()
		return nil, fmt.Errorf("busctl: export methods: %w", err)
	}

	propsSpec := map[string]map[string]*prop.Prop{
		ifaceName: {
			"ManualInhibit": {
				Value:    false,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"EffectiveInhibit": {
				Value:    false,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
	props, err := prop.Export(conn, objPath, propsSpec)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("busctl: export properties: %w", err)
	}
	s.props = props

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("busctl: request name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("busctl: name %s already owned", busName)
	}

	return s, nil
}

// ToggleManual is the exported D-Bus method. It only enqueues the toggle
// onto the main queue — the state machine itself lives on the loop's
// goroutine and must not be touched from here.
func (s *Server) ToggleManual() *dbus.Error {
	if err := s.main.Send(loop.Msg{Kind: loop.MsgManualToggle}); err != nil {
		s.log.Warn().Err(err).Msg("busctl: failed to enqueue manual toggle")
		return dbus.MakeFailedError(err)
	}
	return nil
}

// SetManualInhibit updates the ManualInhibit property, emitting a
// PropertiesChanged signal. Call only from the loop's goroutine.
func (s *Server) SetManualInhibit(v bool) {
	if err := s.props.Set(ifaceName, "ManualInhibit", dbus.MakeVariant(v)); err != nil {
		s.log.Warn().Err(err).Msg("busctl: failed to set ManualInhibit property")
	}
}

// SetEffectiveInhibit updates the EffectiveInhibit property, emitting a
// PropertiesChanged signal. Call only from the loop's goroutine.
func (s *Server) SetEffectiveInhibit(v bool) {
	if err := s.props.Set(ifaceName, "EffectiveInhibit", dbus.MakeVariant(v)); err != nil {
		s.log.Warn().Err(err).Msg("busctl: failed to set EffectiveInhibit property")
	}
}

// Close releases the bus name and closes the connection.
func (s *Server) Close() error {
	_, _ = s.conn.ReleaseName(busName)
	return s.conn.Close()
}
