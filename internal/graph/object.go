// Package graph models the audio server's object graph: nodes, ports and
// links, kept incrementally in sync with server events, plus the reachability
// query that decides whether a sink currently has a live producer attached.
package graph

// ID is the audio server's object identifier. It is only stable while the
// object is live; the server never reuses the ID of a live object.
type ID uint32

// Direction is a port's data-flow direction.
type Direction int

const (
	// DirectionUnknown marks a port whose direction hasn't been reported yet.
	DirectionUnknown Direction = iota
	DirectionInput
	DirectionOutput
)

// NodeData holds a node's optional string attributes. All fields are
// optional; a zero value for a pointer field means "not reported", not
// "empty string".
type NodeData struct {
	Name          *string
	AppName       *string
	Description   *string
	Nick          *string
	MediaClass    *string
	MediaRole     *string
	MediaSoftware *string
}

// DisplayName returns the first defined of description, nick, name — the
// Helvum-compatible order.
func (d NodeData) DisplayName() string {
	switch {
	case d.Description != nil:
		return *d.Description
	case d.Nick != nil:
		return *d.Nick
	case d.Name != nil:
		return *d.Name
	default:
		return ""
	}
}

// IsEmpty reports whether no field carries a value, used to reject no-op
// updates before they touch the graph.
func (d NodeData) IsEmpty() bool {
	return d.Name == nil && d.AppName == nil && d.Description == nil &&
		d.Nick == nil && d.MediaClass == nil && d.MediaRole == nil && d.MediaSoftware == nil
}

// merge overlays non-nil fields of patch onto base, returning the result.
// Fields left nil in patch retain base's value — update events carry only
// the fields that changed, never a full snapshot.
func (d NodeData) merge(patch NodeData) NodeData {
	out := d
	if patch.Name != nil {
		out.Name = patch.Name
	}
	if patch.AppName != nil {
		out.AppName = patch.AppName
	}
	if patch.Description != nil {
		out.Description = patch.Description
	}
	if patch.Nick != nil {
		out.Nick = patch.Nick
	}
	if patch.MediaClass != nil {
		out.MediaClass = patch.MediaClass
	}
	if patch.MediaRole != nil {
		out.MediaRole = patch.MediaRole
	}
	if patch.MediaSoftware != nil {
		out.MediaSoftware = patch.MediaSoftware
	}
	return out
}

// equal reports whether two NodeData values carry the same field values.
func (d NodeData) equal(o NodeData) bool {
	return strPtrEqual(d.Name, o.Name) &&
		strPtrEqual(d.AppName, o.AppName) &&
		strPtrEqual(d.Description, o.Description) &&
		strPtrEqual(d.Nick, o.Nick) &&
		strPtrEqual(d.MediaClass, o.MediaClass) &&
		strPtrEqual(d.MediaRole, o.MediaRole) &&
		strPtrEqual(d.MediaSoftware, o.MediaSoftware)
}

// PortData holds a port's optional attributes.
type PortData struct {
	Name      *string
	NodeID    *ID
	Direction *Direction
	IsTerminal *bool
}

func (d PortData) IsEmpty() bool {
	return d.Name == nil && d.NodeID == nil && d.Direction == nil && d.IsTerminal == nil
}

func (d PortData) merge(patch PortData) PortData {
	out := d
	if patch.Name != nil {
		out.Name = patch.Name
	}
	if patch.NodeID != nil {
		out.NodeID = patch.NodeID
	}
	if patch.Direction != nil {
		out.Direction = patch.Direction
	}
	if patch.IsTerminal != nil {
		out.IsTerminal = patch.IsTerminal
	}
	return out
}

func (d PortData) equal(o PortData) bool {
	if !idPtrEqual(d.NodeID, o.NodeID) {
		return false
	}
	if (d.Direction == nil) != (o.Direction == nil) {
		return false
	}
	if d.Direction != nil && *d.Direction != *o.Direction {
		return false
	}
	if (d.IsTerminal == nil) != (o.IsTerminal == nil) {
		return false
	}
	if d.IsTerminal != nil && *d.IsTerminal != *o.IsTerminal {
		return false
	}
	return strPtrEqual(d.Name, o.Name)
}

// LinkData holds a link's optional attributes. Active reflects the
// underlying link state reported by the audio server; a link lacking this
// field is never counted as a live path by the reachability query.
type LinkData struct {
	InputPort  *ID
	OutputPort *ID
	Active     *bool
}

func (d LinkData) IsEmpty() bool {
	return d.InputPort == nil && d.OutputPort == nil && d.Active == nil
}

func (d LinkData) merge(patch LinkData) LinkData {
	out := d
	if patch.InputPort != nil {
		out.InputPort = patch.InputPort
	}
	if patch.OutputPort != nil {
		out.OutputPort = patch.OutputPort
	}
	if patch.Active != nil {
		out.Active = patch.Active
	}
	return out
}

func (d LinkData) equal(o LinkData) bool {
	if !idPtrEqual(d.InputPort, o.InputPort) || !idPtrEqual(d.OutputPort, o.OutputPort) {
		return false
	}
	if (d.Active == nil) != (o.Active == nil) {
		return false
	}
	return d.Active == nil || *d.Active == *o.Active
}

// Kind tags which variant an Object or Update carries.
type Kind int

const (
	KindNode Kind = iota
	KindPort
	KindLink
)

// Object is the tagged variant stored in the graph's primary map. Exactly one
// of the Node/Port/Link fields is meaningful, selected by Kind.
type Object struct {
	Kind Kind
	Node NodeData
	Port PortData
	Link LinkData
}

// Update carries a partial payload for an existing object of the given Kind.
type Update struct {
	Kind Kind
	Node NodeData
	Port PortData
	Link LinkData
}

// IsEmpty reports whether the update carries no field values at all.
func (u Update) IsEmpty() bool {
	switch u.Kind {
	case KindNode:
		return u.Node.IsEmpty()
	case KindPort:
		return u.Port.IsEmpty()
	case KindLink:
		return u.Link.IsEmpty()
	default:
		return true
	}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func idPtrEqual(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
