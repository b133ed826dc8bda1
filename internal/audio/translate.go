package audio

import (
	"strconv"

	"github.com/rafaelrc7/idle-inhibitd/internal/audio/pwire"
	"github.com/rafaelrc7/idle-inhibitd/internal/graph"
)

// Well-known PipeWire property keys this daemon reads. Names match the
// server's own PW_KEY_* constants.
const (
	keyNodeName        = "node.name"
	keyNodeDescription = "node.description"
	keyNodeNick        = "node.nick"
	keyApplicationName = "application.name"
	keyMediaClass      = "media.class"
	keyMediaRole       = "media.role"
	keyMediaSoftware   = "media.software"

	keyPortName      = "port.name"
	keyPortNodeID    = "node.id"
	keyPortDirection = "port.direction"
	keyPortTerminal  = "port.terminal"

	keyLinkInputPort  = "link.input.port"
	keyLinkOutputPort = "link.output.port"
)

// pwLinkStateActive is pw_link_state's PW_LINK_STATE_ACTIVE value.
const pwLinkStateActive = 4

func graphKind(k pwire.Kind) graph.Kind {
	switch k {
	case pwire.KindNode:
		return graph.KindNode
	case pwire.KindPort:
		return graph.KindPort
	case pwire.KindLink:
		return graph.KindLink
	default:
		return graph.KindNode
	}
}

func strVal(props map[string]string, key string) *string {
	v, ok := props[key]
	if !ok {
		return nil
	}
	return &v
}

func boolVal(props map[string]string, key string) *bool {
	v, ok := props[key]
	if !ok {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}

func idVal(props map[string]string, key string) *graph.ID {
	v, ok := props[key]
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil
	}
	id := graph.ID(n)
	return &id
}

func directionVal(props map[string]string, key string) *graph.Direction {
	v, ok := props[key]
	if !ok {
		return nil
	}
	var d graph.Direction
	switch v {
	case "in":
		d = graph.DirectionInput
	case "out":
		d = graph.DirectionOutput
	default:
		return nil
	}
	return &d
}

func nodeData(props map[string]string) graph.NodeData {
	return graph.NodeData{
		Name:          strVal(props, keyNodeName),
		AppName:       strVal(props, keyApplicationName),
		Description:   strVal(props, keyNodeDescription),
		Nick:          strVal(props, keyNodeNick),
		MediaClass:    strVal(props, keyMediaClass),
		MediaRole:     strVal(props, keyMediaRole),
		MediaSoftware: strVal(props, keyMediaSoftware),
	}
}

func portData(props map[string]string) graph.PortData {
	return graph.PortData{
		Name:       strVal(props, keyPortName),
		NodeID:     idVal(props, keyPortNodeID),
		Direction:  directionVal(props, keyPortDirection),
		IsTerminal: boolVal(props, keyPortTerminal),
	}
}

// linkData builds a LinkData from a link's properties and its pw_link_state,
// -1 when the event carries no state (registry announce, before the info
// listener has reported one).
func linkData(props map[string]string, linkState int) graph.LinkData {
	d := graph.LinkData{
		InputPort:  idVal(props, keyLinkInputPort),
		OutputPort: idVal(props, keyLinkOutputPort),
	}
	if linkState != -1 {
		active := linkState == pwLinkStateActive
		d.Active = &active
	}
	return d
}

func toObject(kind graph.Kind, props map[string]string, linkState int) graph.Object {
	switch kind {
	case graph.KindNode:
		return graph.Object{Kind: graph.KindNode, Node: nodeData(props)}
	case graph.KindPort:
		return graph.Object{Kind: graph.KindPort, Port: portData(props)}
	case graph.KindLink:
		return graph.Object{Kind: graph.KindLink, Link: linkData(props, linkState)}
	default:
		return graph.Object{}
	}
}

func toUpdate(kind graph.Kind, props map[string]string, linkState int) graph.Update {
	switch kind {
	case graph.KindNode:
		return graph.Update{Kind: graph.KindNode, Node: nodeData(props)}
	case graph.KindPort:
		return graph.Update{Kind: graph.KindPort, Port: portData(props)}
	case graph.KindLink:
		return graph.Update{Kind: graph.KindLink, Link: linkData(props, linkState)}
	default:
		return graph.Update{}
	}
}
