package graph

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
)

func strp(s string) *string { return &s }
func idp(id ID) *ID          { return &id }
func dirp(d Direction) *Direction { return &d }
func boolp(b bool) *bool     { return &b }

func sinkClass() *string { return strp("Audio/Sink") }

func newTestGraph(t *testing.T, whitelist []filter.SinkFilter, blacklist []filter.NodeFilter) *Graph {
	t.Helper()
	return New(whitelist, blacklist, zerolog.Nop())
}

// buildChain wires: producer(output port) --link--> sink(input port), with
// the given link active flag, and returns the IDs involved.
func buildChain(g *Graph, linkActive *bool) (sinkID, producerID, sinkPort, producerPort, linkID ID) {
	sinkID, producerID, sinkPort, producerPort, linkID = 1, 2, 3, 4, 5

	g.Insert(sinkID, Object{Kind: KindNode, Node: NodeData{
		Name:       strp("alsa_output.sink"),
		MediaClass: sinkClass(),
	}})
	g.Insert(producerID, Object{Kind: KindNode, Node: NodeData{
		Name:       strp("firefox"),
		AppName:    strp("Firefox"),
		MediaClass: strp("Stream/Output/Audio"),
	}})
	g.Insert(sinkPort, Object{Kind: KindPort, Port: PortData{
		NodeID:    idp(sinkID),
		Direction: dirp(DirectionInput),
	}})
	g.Insert(producerPort, Object{Kind: KindPort, Port: PortData{
		NodeID:    idp(producerID),
		Direction: dirp(DirectionOutput),
	}})
	g.Insert(linkID, Object{Kind: KindLink, Link: LinkData{
		InputPort:  idp(sinkPort),
		OutputPort: idp(producerPort),
		Active:     linkActive,
	}})
	return
}

func TestActiveSinks_ActiveLinkFromProducerLeaf(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	sinkID, _, _, _, _ := buildChain(g, boolp(true))

	active := g.ActiveSinks()
	require.Len(t, active, 1)
	assert.Equal(t, sinkID, active[0])
}

func TestActiveSinks_InactiveLinkExcludesSink(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	buildChain(g, boolp(false))

	assert.Empty(t, g.ActiveSinks())
}

func TestActiveSinks_LinkMissingActiveFieldIsNotCounted(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	buildChain(g, nil)

	assert.Empty(t, g.ActiveSinks())
}

func TestActiveSinks_BlacklistedProducerBreaksPath(t *testing.T) {
	nf, err := filter.NewNodeFilter(filter.NodeFilterSpec{AppName: "^Firefox$"})
	require.NoError(t, err)

	g := newTestGraph(t, nil, []filter.NodeFilter{nf})
	buildChain(g, boolp(true))

	assert.Empty(t, g.ActiveSinks(), "blacklisted producer node must not count as a live path")
}

func TestActiveSinks_SinkWhitelistRestrictsMembership(t *testing.T) {
	sf, err := filter.NewSinkFilter("^Built-in")
	require.NoError(t, err)

	g := newTestGraph(t, []filter.SinkFilter{sf}, nil)
	buildChain(g, boolp(true)) // sink is named "alsa_output.sink", doesn't match whitelist

	assert.Empty(t, g.Sinks(), "node classifying as Sink but failing the whitelist must not be tracked")
	assert.Empty(t, g.ActiveSinks())
}

func TestActiveSinks_CycleGuardTerminates(t *testing.T) {
	g := newTestGraph(t, nil, nil)

	const (
		nodeA ID = 1
		nodeB ID = 2
		portA ID = 3
		portB ID = 4
		linkA ID = 5
		linkB ID = 6
	)

	g.Insert(nodeA, Object{Kind: KindNode, Node: NodeData{Name: strp("a"), MediaClass: sinkClass()}})
	g.Insert(nodeB, Object{Kind: KindNode, Node: NodeData{Name: strp("b"), MediaClass: strp("Stream/Output/Audio")}})
	g.Insert(portA, Object{Kind: KindPort, Port: PortData{NodeID: idp(nodeA), Direction: dirp(DirectionInput)}})
	g.Insert(portB, Object{Kind: KindPort, Port: PortData{NodeID: idp(nodeB), Direction: dirp(DirectionInput)}})

	// Two links that point at each other's node through each other's port,
	// forming a cycle with no producer leaf anywhere.
	g.Insert(linkA, Object{Kind: KindLink, Link: LinkData{
		InputPort: idp(portA), OutputPort: idp(portB), Active: boolp(true),
	}})
	g.Insert(linkB, Object{Kind: KindLink, Link: LinkData{
		InputPort: idp(portB), OutputPort: idp(portA), Active: boolp(true),
	}})

	done := make(chan []ID, 1)
	go func() { done <- g.ActiveSinks() }()

	select {
	case active := <-done:
		assert.Empty(t, active, "a pure cycle with no producer leaf must never be active")
	case <-time.After(2 * time.Second):
		t.Fatal("ActiveSinks did not terminate on a cyclic graph")
	}
}

func TestUpdate_MovesSinkIndexWhenMediaClassChanges(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	const node ID = 1
	g.Insert(node, Object{Kind: KindNode, Node: NodeData{Name: strp("x"), MediaClass: strp("Stream/Output/Audio")}})
	assert.Empty(t, g.Sinks())

	changed := g.Update(node, Update{Kind: KindNode, Node: NodeData{MediaClass: sinkClass()}})
	assert.True(t, changed)
	assert.Equal(t, []ID{node}, g.Sinks())
}

func TestUpdate_NoOpReturnsFalse(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	const node ID = 1
	g.Insert(node, Object{Kind: KindNode, Node: NodeData{Name: strp("x")}})

	assert.False(t, g.Update(node, Update{Kind: KindNode, Node: NodeData{Name: strp("x")}}))
	assert.False(t, g.Update(node, Update{Kind: KindNode}))
}

func TestUpdate_UnknownIDReturnsFalse(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	assert.False(t, g.Update(99, Update{Kind: KindNode, Node: NodeData{Name: strp("x")}}))
}

func TestRemove_ClearsAllIndexes(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	sinkID, producerID, sinkPort, producerPort, linkID := buildChain(g, boolp(true))

	g.Remove(linkID)
	assert.Empty(t, g.ActiveSinks(), "sink must go inactive once its only link is removed")

	g.Remove(sinkPort)
	g.Remove(producerPort)
	g.Remove(producerID)
	g.Remove(sinkID)

	_, ok := g.Get(sinkID)
	assert.False(t, ok)

	// Removing an already-absent ID is silent.
	assert.NotPanics(t, func() { g.Remove(sinkID) })
}

func TestRemove_UnknownIDIsSilent(t *testing.T) {
	g := newTestGraph(t, nil, nil)
	assert.NotPanics(t, func() { g.Remove(42) })
}
