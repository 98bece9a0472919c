// Package schedule fixes floating graph nodes into CFG blocks and
// orders each block's instruction list (spec.md §4.4).
package schedule

import (
	"fmt"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// Strategy selects where, within a node's legal range, it is placed.
type Strategy int

const (
	// Earliest places every floating node at the topologically earliest
	// block dominated by all its inputs.
	Earliest Strategy = iota
	// LatestOutOfLoops places a node as late as legality allows, then
	// hoists it back up out of any loop it would otherwise sit inside,
	// as long as doing so stays within the node's legal range.
	LatestOutOfLoops
)

// MemoryMode controls how floating reads are positioned relative to
// aliasing writes.
type MemoryMode int

const (
	// MemoryNone anchors a floating read to its own legal range only;
	// it is never sunk past a write for improved locality.
	MemoryNone MemoryMode = iota
	// MemoryOptimal additionally sinks a floating read past any write
	// in its memory chain that cannot alias it, as long as no aliasing
	// write dominates the chosen block.
	MemoryOptimal
)

// Result is the output of Schedule: a block assignment for every
// floating node, and a final per-block instruction order.
type Result struct {
	blockOf map[graph.ID]*cfg.Block
	order   map[int][]graph.ID
}

// BlockOf returns the block a (floating or fixed) node was placed in.
func (r *Result) BlockOf(id graph.ID) *cfg.Block { return r.blockOf[id] }

// Order returns the final, ordered instruction list of block b.
func (r *Result) Order(b *cfg.Block) []graph.ID {
	return append([]graph.ID(nil), r.order[b.ID()]...)
}

// Schedule computes legal ranges for every floating node in g, places
// each one according to strategy and memMode, and orders every block's
// final instruction list (spec.md §4.4).
func Schedule(g *graph.Graph, c *cfg.CFG, strategy Strategy, memMode MemoryMode) (*Result, error) {
	s := &scheduler{g: g, c: c, earliestMemo: map[graph.ID]*cfg.Block{}, latestMemo: map[graph.ID]*cfg.Block{}}

	r := &Result{blockOf: map[graph.ID]*cfg.Block{}, order: map[int][]graph.ID{}}
	for _, b := range c.Blocks() {
		for _, id := range b.Nodes() {
			r.blockOf[id] = b
		}
	}

	floating := floatingNodes(g)
	for _, id := range floating {
		eb, err := s.earliest(id)
		if err != nil {
			return nil, err
		}
		var target *cfg.Block
		switch strategy {
		case Earliest:
			target = eb
		case LatestOutOfLoops:
			lb, err := s.latest(id)
			if err != nil {
				return nil, err
			}
			target = hoistOutOfLoops(lb, eb)
		default:
			return nil, fmt.Errorf("schedule: unknown strategy %d", strategy)
		}
		if memMode == MemoryOptimal && isMemoryRead(g, id) {
			target = sinkPastNonAliasingWrites(g, c, id, eb, target)
		}
		r.blockOf[id] = target
	}

	for _, b := range c.Blocks() {
		assigned := floatingInBlock(floating, r, b)
		r.order[b.ID()] = orderBlock(g, b, assigned)
	}
	return r, nil
}

// floatingNodes returns every live non-fixed, schedulable node (i.e.
// everything IsFixed does not already place into a block). FrameState
// and Parameter/VirtualInstance nodes are excluded: frame states never
// constrain or receive a schedule position (spec.md §4.4 edge-case
// policy), and VirtualInstance markers are never scheduled at all
// (spec.md §4.6 — they exist only until escape analysis resolves them).
func floatingNodes(g *graph.Graph) []graph.ID {
	var out []graph.ID
	for _, id := range g.AllLive() {
		n := g.Node(id)
		if graph.IsFixed(n.Kind()) {
			continue
		}
		switch n.Kind() {
		case graph.KindFrameState, graph.KindVirtualInstance, graph.KindParameter, graph.KindStart:
			continue
		}
		out = append(out, id)
	}
	return out
}

func isMemoryRead(g *graph.Graph, id graph.ID) bool {
	return g.Node(id).Kind() == graph.KindFloatingRead
}
