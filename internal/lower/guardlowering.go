package lower

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// GuardLoweringResult reports how many FixedGuard nodes were lowered
// and how many were skipped for lack of a reaching frame state.
type GuardLoweringResult struct {
	Lowered int
	Skipped int
}

// predecessorOf returns the node immediately before id in nodes (a
// block's node snapshot), or 0 if id is first or absent. Duplicated
// from the same idiom as internal/inline/splice.go and
// internal/canon/condelim.go rather than shared across packages.
func predecessorOf(nodes []graph.ID, id graph.ID) graph.ID {
	for i, n := range nodes {
		if n == id && i > 0 {
			return nodes[i-1]
		}
	}
	return 0
}

// LowerGuards converts every live FixedGuard with an assigned reaching
// frame state (per fs.States) into explicit control flow: an If testing
// the guard's condition, with the branch matching the guard's expected
// polarity continuing to the guard's original successor and the other
// branch leading to a fresh Deoptimize using the reaching frame state
// (spec.md §4.8, and the AddFixedGuard doc comment's own description
// of this phase). Only KindFixedGuard is in scope, consistent with
// internal/canon/condelim.go's conditional-elimination scoping to the
// same kind — the floating KindGuard form is anchored rather than
// control-attached and is scheduled, not lowered, by this pass.
//
// A guard with no entry in fs.States (no frame state reaches it) is
// left in place and counted as Skipped: lowering it would deoptimize
// to an unknown interpreter state, which is unsound.
func LowerGuards(g *graph.Graph, c *cfg.CFG, fs *FrameStateResult) *GuardLoweringResult {
	res := &GuardLoweringResult{}

	for _, id := range g.Iterate(graph.KindFixedGuard) {
		n := g.Node(id)
		if n == nil || n.Deleted() {
			continue
		}
		frameState, ok := fs.States[id]
		if !ok {
			res.Skipped++
			continue
		}
		if lowerOneGuard(g, c, id, frameState) {
			res.Lowered++
		} else {
			res.Skipped++
		}
	}
	return res
}

func lowerOneGuard(g *graph.Graph, c *cfg.CFG, id, frameState graph.ID) bool {
	condition, negated, _, ok := g.FixedGuardInfo(id)
	if !ok {
		return false
	}
	b := c.BlockOf(id)
	if b == nil {
		return false
	}
	succs := g.Node(id).Successors()
	if len(succs) != 1 {
		return false
	}
	continuation := succs[0]

	pred := predecessorOf(b.Nodes(), id)
	if pred == 0 {
		return false
	}

	ifNode := g.AddIf(condition)
	deopt := g.AddDeoptimize(frameState)

	// AddIf's successor convention is [trueBranch, falseBranch]; a
	// non-negated guard continues on true and deoptimizes on false, a
	// negated guard is the mirror image.
	branches := []graph.ID{continuation, deopt}
	if negated {
		branches = []graph.ID{deopt, continuation}
	}
	if err := g.SetSuccessors(ifNode, branches); err != nil {
		return false
	}
	if err := g.ReplaceAtPredecessor(pred, id, ifNode); err != nil {
		return false
	}
	_ = g.SafeDelete(id)
	return true
}
