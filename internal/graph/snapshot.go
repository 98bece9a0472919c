package graph

import "jitcore/internal/stamp"

// NodeRecord is one node's gob-encodable mirror: its id-stable identity,
// edges and kind-specific payload, exactly as stored in the arena
// (including tombstoned records, so a decoded graph reuses the same ids
// a pass running against the pre-encode graph would have seen).
type NodeRecord struct {
	ID         ID
	Kind       Kind
	Deleted    bool
	Stamp      stamp.Wire
	Inputs     []ID
	Successors []ID
	Payload    PayloadWire
}

// Snapshot is the exported, gob-encodable mirror of a whole Graph
// (spec.md §12 "binary graph encode/decode"): internal/graphio only
// ever sees this type, never the package-private Node/NodeData
// representation, so this package is the only place that needs to know
// how to tear a Node apart and put it back together.
type Snapshot struct {
	Start       ID
	NameSeq     int
	Nodes       []NodeRecord // index 0 is always the placeholder; id i at Nodes[i]
	Assumptions []Assumption
}

// Snapshot exports g into its gob-encodable mirror.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		Start:       g.start,
		NameSeq:     g.nameSeq,
		Nodes:       make([]NodeRecord, len(g.nodes)),
		Assumptions: g.Assumptions(),
	}
	for id := ID(1); int(id) < len(g.nodes); id++ {
		n := g.nodes[id]
		s.Nodes[id] = NodeRecord{
			ID:         id,
			Kind:       n.kind,
			Deleted:    n.deleted,
			Stamp:      n.stamp.ToWire(),
			Inputs:     append([]ID(nil), n.inputs...),
			Successors: append([]ID(nil), n.successors...),
			Payload:    exportPayload(n),
		}
	}
	return s
}

// FromSnapshot reconstructs a Graph from its exported mirror, preserving
// every node's original id (including tombstoned ones, so free-list
// reuse after decode continues from the same high-water mark). resolve
// maps an object stamp or FieldRef's recorded type name back onto a
// live TypeRef (spec.md §6); pass nil when the caller does not need
// object-typed stamps to survive the round trip intact.
func FromSnapshot(s *Snapshot, resolve func(name string) (stamp.TypeRef, bool)) *Graph {
	g := &Graph{
		nodes:            make([]*Node, len(s.Nodes)),
		usages:           make(map[ID][]usageEdge),
		valueNumberTable: make(map[string]ID),
		start:            s.Start,
		nameSeq:          s.NameSeq,
		assumptions:      append([]Assumption(nil), s.Assumptions...),
	}
	for id := ID(1); int(id) < len(s.Nodes); id++ {
		rec := s.Nodes[id]
		n := &Node{
			id:      rec.ID,
			kind:    rec.Kind,
			graph:   g,
			deleted: rec.Deleted,
			stamp:   stamp.FromWire(rec.Stamp, resolve),
			data:    importPayload(rec.Kind, rec.Payload, resolve),
		}
		if !rec.Deleted {
			n.inputs = append([]ID(nil), rec.Inputs...)
			n.successors = append([]ID(nil), rec.Successors...)
		}
		g.nodes[id] = n
		if rec.Deleted {
			g.free = append(g.free, id)
		}
	}
	for id := ID(1); int(id) < len(g.nodes); id++ {
		n := g.nodes[id]
		if n.deleted {
			continue
		}
		g.recordUsages(n)
		if IsValueNumberable(n.kind) {
			g.valueNumberTable[valueNumberKey(n.kind, n.data, n.inputs)] = n.id
		}
	}
	return g
}
