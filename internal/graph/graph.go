package graph

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph/filter"
)

// Graph is an incremental model of the audio server's node/port/link
// objects, plus the secondary indexes and sink set needed to answer a live
// reachability query without rescanning the whole object set. It is owned
// by a single goroutine (the audio worker) and carries no internal locking.
type Graph struct {
	objects map[ID]Object

	sinks map[ID]struct{}

	linksByInputPort  map[ID]map[ID]struct{}
	linksByOutputPort map[ID]map[ID]struct{}
	nodeInputPorts    map[ID]map[ID]struct{}
	nodeOutputPorts   map[ID]map[ID]struct{}

	sinkWhitelist []filter.SinkFilter
	nodeBlacklist []filter.NodeFilter

	log        zerolog.Logger
	warnLimiter *rate.Limiter
}

// New builds an empty graph with the given filters. The owning goroutine
// can replace them later through SetFilters.
func New(sinkWhitelist []filter.SinkFilter, nodeBlacklist []filter.NodeFilter, log zerolog.Logger) *Graph {
	return &Graph{
		objects:           make(map[ID]Object),
		sinks:             make(map[ID]struct{}),
		linksByInputPort:  make(map[ID]map[ID]struct{}),
		linksByOutputPort: make(map[ID]map[ID]struct{}),
		nodeInputPorts:    make(map[ID]map[ID]struct{}),
		nodeOutputPorts:   make(map[ID]map[ID]struct{}),
		sinkWhitelist:     sinkWhitelist,
		nodeBlacklist:     nodeBlacklist,
		log:               log,
		// one limiter shared by every traversal anomaly kind: at most one
		// warning every 2s in total, so a flapping client can't flood the log.
		warnLimiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

func attrsOf(n NodeData) filter.NodeAttrs {
	return filter.NodeAttrs{
		Name:             n.DisplayName(),
		HasName:          n.Description != nil || n.Nick != nil || n.Name != nil,
		AppName:          derefStr(n.AppName),
		HasAppName:       n.AppName != nil,
		MediaClass:       derefStr(n.MediaClass),
		HasMediaClass:    n.MediaClass != nil,
		MediaRole:        derefStr(n.MediaRole),
		HasMediaRole:     n.MediaRole != nil,
		MediaSoftware:    derefStr(n.MediaSoftware),
		HasMediaSoftware: n.MediaSoftware != nil,
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isSinkClass(n NodeData) bool {
	return n.MediaClass != nil && contains(*n.MediaClass, "Sink")
}

func contains(s, substr string) bool {
	return indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

// classifiesAsSink applies the sink rule: media_class contains
// "Sink" AND (no whitelist configured, or any whitelist filter matches).
func (g *Graph) classifiesAsSink(n NodeData) bool {
	if !isSinkClass(n) {
		return false
	}
	if len(g.sinkWhitelist) == 0 {
		return true
	}
	return filter.MatchesAnySink(g.sinkWhitelist, attrsOf(n))
}

func setAdd(m map[ID]map[ID]struct{}, key, val ID) {
	s, ok := m[key]
	if !ok {
		s = make(map[ID]struct{})
		m[key] = s
	}
	s[val] = struct{}{}
}

func setRemove(m map[ID]map[ID]struct{}, key, val ID) {
	s, ok := m[key]
	if !ok {
		return
	}
	delete(s, val)
	if len(s) == 0 {
		delete(m, key)
	}
}

// Insert adds a new object to the graph and updates every secondary index it
// participates in. Behaviour is undefined if id is already present — the
// audio server never reuses the ID of a live object; callers
// must route re-announced IDs through Update/Remove instead.
func (g *Graph) Insert(id ID, obj Object) {
	switch obj.Kind {
	case KindNode:
		g.log.Debug().Uint32("id", uint32(id)).Str("name", obj.Node.DisplayName()).Msg("graph: insert node")
		if g.classifiesAsSink(obj.Node) {
			g.sinks[id] = struct{}{}
		}
	case KindPort:
		g.log.Debug().Uint32("id", uint32(id)).Msg("graph: insert port")
		if obj.Port.NodeID != nil && obj.Port.Direction != nil {
			g.indexPort(id, *obj.Port.NodeID, *obj.Port.Direction, true)
		}
	case KindLink:
		g.log.Debug().Uint32("id", uint32(id)).Msg("graph: insert link")
		if obj.Link.OutputPort != nil {
			setAdd(g.linksByOutputPort, *obj.Link.OutputPort, id)
		}
		if obj.Link.InputPort != nil {
			setAdd(g.linksByInputPort, *obj.Link.InputPort, id)
		}
	}
	g.objects[id] = obj
}

func (g *Graph) indexPort(portID, nodeID ID, dir Direction, add bool) {
	switch dir {
	case DirectionInput:
		if add {
			setAdd(g.nodeInputPorts, nodeID, portID)
		} else {
			setRemove(g.nodeInputPorts, nodeID, portID)
		}
	case DirectionOutput:
		if add {
			setAdd(g.nodeOutputPorts, nodeID, portID)
		} else {
			setRemove(g.nodeOutputPorts, nodeID, portID)
		}
	}
}

// Update merges non-empty fields of u into the existing object of matching
// kind. It reports false ("no change") when the object is absent, the kind
// doesn't match, all supplied fields are empty, or the merge is a no-op.
// Index-affecting fields are moved atomically before the field is updated.
func (g *Graph) Update(id ID, u Update) bool {
	obj, ok := g.objects[id]
	if !ok {
		g.log.Warn().Uint32("id", uint32(id)).Msg("graph: update of unknown object")
		return false
	}
	if obj.Kind != u.Kind {
		g.log.Warn().Uint32("id", uint32(id)).Msg("graph: update kind mismatch")
		return false
	}
	if u.IsEmpty() {
		return false
	}

	switch u.Kind {
	case KindNode:
		if obj.Node.equal(obj.Node.merge(u.Node)) {
			return false
		}
		g.updateNodeIndex(id, obj.Node, u.Node)
		obj.Node = obj.Node.merge(u.Node)
	case KindPort:
		merged := obj.Port.merge(u.Port)
		if obj.Port.equal(merged) {
			return false
		}
		g.updatePortIndex(id, obj.Port, merged)
		obj.Port = merged
	case KindLink:
		merged := obj.Link.merge(u.Link)
		if obj.Link.equal(merged) {
			return false
		}
		g.updateLinkIndex(id, obj.Link, merged)
		obj.Link = merged
	}

	g.objects[id] = obj
	return true
}

func (g *Graph) updateNodeIndex(id ID, old, patch NodeData) {
	if patch.MediaClass == nil {
		return
	}
	wasSink := isSinkClass(old)
	if wasSink {
		delete(g.sinks, id)
	}
	merged := old.merge(patch)
	if g.classifiesAsSink(merged) {
		g.sinks[id] = struct{}{}
	}
}

func (g *Graph) updatePortIndex(id ID, old, merged PortData) {
	oldHasLoc := old.NodeID != nil && old.Direction != nil
	newHasLoc := merged.NodeID != nil && merged.Direction != nil
	if oldHasLoc == newHasLoc {
		if !newHasLoc {
			return
		}
		if *old.NodeID == *merged.NodeID && *old.Direction == *merged.Direction {
			return
		}
	}
	if oldHasLoc {
		g.indexPort(id, *old.NodeID, *old.Direction, false)
	}
	if newHasLoc {
		g.indexPort(id, *merged.NodeID, *merged.Direction, true)
	}
}

func (g *Graph) updateLinkIndex(id ID, old, merged LinkData) {
	if !idPtrEqual(old.OutputPort, merged.OutputPort) {
		if old.OutputPort != nil {
			setRemove(g.linksByOutputPort, *old.OutputPort, id)
		}
		if merged.OutputPort != nil {
			setAdd(g.linksByOutputPort, *merged.OutputPort, id)
		}
	}
	if !idPtrEqual(old.InputPort, merged.InputPort) {
		if old.InputPort != nil {
			setRemove(g.linksByInputPort, *old.InputPort, id)
		}
		if merged.InputPort != nil {
			setAdd(g.linksByInputPort, *merged.InputPort, id)
		}
	}
}

// Remove deletes id from the primary map and every index entry it
// participates in. Silent on a missing ID.
func (g *Graph) Remove(id ID) {
	obj, ok := g.objects[id]
	if !ok {
		return
	}
	delete(g.objects, id)

	switch obj.Kind {
	case KindNode:
		delete(g.sinks, id)
	case KindPort:
		if obj.Port.NodeID != nil && obj.Port.Direction != nil {
			g.indexPort(id, *obj.Port.NodeID, *obj.Port.Direction, false)
		}
	case KindLink:
		if obj.Link.OutputPort != nil {
			setRemove(g.linksByOutputPort, *obj.Link.OutputPort, id)
		}
		if obj.Link.InputPort != nil {
			setRemove(g.linksByInputPort, *obj.Link.InputPort, id)
		}
	}
	g.log.Debug().Uint32("id", uint32(id)).Msg("graph: removed object")
}

// Get returns the object stored at id, if any.
func (g *Graph) Get(id ID) (Object, bool) {
	obj, ok := g.objects[id]
	return obj, ok
}

// SetFilters replaces the sink whitelist and node blacklist in place. Only
// the goroutine that owns this Graph may call it; a live config reload must
// hand the new lists through that goroutine's own message queue rather than
// call this from the watcher's goroutine directly.
func (g *Graph) SetFilters(sinkWhitelist []filter.SinkFilter, nodeBlacklist []filter.NodeFilter) {
	g.sinkWhitelist = sinkWhitelist
	g.nodeBlacklist = nodeBlacklist
}

// Counts returns the number of currently tracked objects per kind, for
// diagnostics/metrics reporting.
func (g *Graph) Counts() map[Kind]int {
	counts := map[Kind]int{KindNode: 0, KindPort: 0, KindLink: 0}
	for _, obj := range g.objects {
		counts[obj.Kind]++
	}
	return counts
}

// Sinks returns the set of node IDs currently classified as sinks.
func (g *Graph) Sinks() []ID {
	out := make([]ID, 0, len(g.sinks))
	for id := range g.sinks {
		out = append(out, id)
	}
	return out
}

// ActiveSinks returns the subset of Sinks() that are effectively producing
// audio: a sink is active iff there is a path of active links, through
// non-blacklisted nodes, ending at a node with no input ports (a "producer
// leaf").
func (g *Graph) ActiveSinks() []ID {
	if len(g.sinks) == 0 {
		g.log.Warn().Msg("graph: active_sinks() called with no sinks registered")
	}

	active := make([]ID, 0, len(g.sinks))
	for sink := range g.sinks {
		visited := make(map[ID]struct{}, 8)
		if g.nodeActive(sink, visited) {
			active = append(active, sink)
		}
	}
	return active
}

// nodeActive implements the recursive active(n, V) predicate.
// The visited set guards against cycles: every sink traversal starts fresh,
// and a node reached by multiple paths within one traversal is visited at
// most once.
func (g *Graph) nodeActive(id ID, visited map[ID]struct{}) bool {
	visited[id] = struct{}{}

	obj, ok := g.objects[id]
	if !ok {
		if g.warnLimiter.Allow() {
			g.log.Warn().Uint32("id", uint32(id)).Msg("graph: traversal hit missing node")
		}
		return false
	}
	if obj.Kind != KindNode {
		if g.warnLimiter.Allow() {
			g.log.Warn().Uint32("id", uint32(id)).Msg("graph: traversal expected node, got different kind")
		}
		return false
	}
	if filter.MatchesAnyNode(g.nodeBlacklist, attrsOf(obj.Node)) {
		return false
	}

	inputs := g.nodeInputPorts[id]
	if len(inputs) == 0 {
		// No input ports at all (no index entry) and an explicit empty set
		// are treated identically: both mean "producer leaf".
		return true
	}

	for port := range inputs {
		links := g.linksByInputPort[port]
		for link := range links {
			linkObj, ok := g.objects[link]
			if !ok || linkObj.Kind != KindLink {
				continue
			}
			if linkObj.Link.Active == nil || !*linkObj.Link.Active {
				continue
			}
			if linkObj.Link.OutputPort == nil {
				if g.warnLimiter.Allow() {
					g.log.Warn().Uint32("link", uint32(link)).Msg("graph: active link missing output_port")
				}
				continue
			}

			upstreamPort, ok := g.objects[*linkObj.Link.OutputPort]
			if !ok || upstreamPort.Kind != KindPort || upstreamPort.Port.NodeID == nil {
				if g.warnLimiter.Allow() {
					g.log.Warn().Uint32("port", uint32(*linkObj.Link.OutputPort)).Msg("graph: traversal hit missing or incomplete upstream port")
				}
				continue
			}

			upstreamNode := *upstreamPort.Port.NodeID
			if _, seen := visited[upstreamNode]; seen {
				continue
			}
			if g.nodeActive(upstreamNode, visited) {
				return true
			}
		}
	}

	return false
}
