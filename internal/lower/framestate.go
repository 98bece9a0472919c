package lower

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// FrameStateResult maps every FixedGuard/Guard this pass covered to the
// frame state that reaches it, for LowerGuards to deoptimize against.
type FrameStateResult struct {
	States map[graph.ID]graph.ID
}

// AssignFrameStates walks the CFG in RPO order, tracking the most
// recent frame state reaching each point of each block (seeded from
// its immediate dominator's exit state, since a block's idom is always
// processed first in RPO) and recording it against every live guard
// that has none of its own. Invoke and Deoptimize nodes already carry
// an explicit frame-state edge (spec.md §3) and so reset the tracked
// state to their own; guards carry none, which is exactly the gap this
// pass exists to fill.
//
// A guard reached before any frame state is known along its path (an
// entry block with no Invoke/Deoptimize ahead of it) is left out of
// States entirely; LowerGuards treats that as "cannot be deoptimized
// precisely" and skips lowering it, the conservative choice.
func AssignFrameStates(g *graph.Graph, c *cfg.CFG) *FrameStateResult {
	res := &FrameStateResult{States: map[graph.ID]graph.ID{}}
	exitState := map[int]graph.ID{}

	for _, b := range c.Blocks() {
		current := graph.ID(0)
		if idom := b.Idom(); idom != nil {
			current = exitState[idom.ID()]
		}

		for _, id := range b.Nodes() {
			n := g.Node(id)
			if n == nil || n.Deleted() {
				continue
			}
			switch n.Kind() {
			case graph.KindInvoke:
				if _, _, _, fs, ok := g.InvokeOperands(id); ok {
					current = fs
				}
			case graph.KindDeoptimize:
				ins := g.Inputs(id)
				if len(ins) == 1 {
					current = ins[0]
				}
			case graph.KindFixedGuard, graph.KindGuard:
				if current != 0 {
					res.States[id] = current
				}
			}
		}
		exitState[b.ID()] = current
	}
	return res
}

// clearOrphanedFrameStates deletes every live FrameState node that has
// no usage when it is visited, in ascending id order, and returns how
// many it deleted. LowerGuards only adds frame-state consumers (each
// Deoptimize it creates takes one), so what is deleted here was already
// unused. Each FrameState is checked once: an outer FrameState left
// unused by deleting an inner one is deleted too only when its id is
// higher than the inner one's; otherwise it stays.
func clearOrphanedFrameStates(g *graph.Graph) int {
	cleared := 0
	for _, id := range g.Iterate(graph.KindFrameState) {
		n := g.Node(id)
		if n == nil || n.Deleted() {
			continue
		}
		if len(g.Usages(id)) == 0 {
			_ = g.SafeDelete(id)
			cleared++
		}
	}
	return cleared
}
