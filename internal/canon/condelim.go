package canon

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// fact records a proven polarity for a condition value: true means the
// condition is known to evaluate true on every path reaching the
// block where the fact is in scope, false means known false.
type fact struct {
	condition graph.ID
	value     bool
}

// EliminateConditions removes FixedGuard nodes whose condition is
// already proven by an enclosing If branch or an earlier guard on the
// same dominator-tree path (spec.md §4.5, dominator-stamp conditional
// elimination). It is scoped to KindFixedGuard only: a floating Guard
// has not yet been scheduled to a block at canonicalization time, so
// there is no dominator position to hang a fact-lookup on until the
// scheduler (internal/schedule) has run; proving floating guards is
// left to a post-scheduling pass, noted as an open item in DESIGN.md.
//
// Returns the number of guards removed.
func EliminateConditions(g *graph.Graph, c *cfg.CFG) int {
	e := &eliminator{g: g, c: c, known: map[graph.ID]bool{}}
	removed := 0
	e.walk(c.Entry(), &removed)
	return removed
}

type eliminator struct {
	g     *graph.Graph
	c     *cfg.CFG
	known map[graph.ID]bool // condition id -> proven polarity
}

// walk recurses over the dominator tree in preorder, since a fact
// proven in a block holds for every block it dominates.
func (e *eliminator) walk(b *cfg.Block, removed *int) {
	var undo []graph.ID
	defer func() {
		for _, cond := range undo {
			delete(e.known, cond)
		}
	}()

	for _, id := range b.Nodes() {
		n := e.g.Node(id)
		if n == nil || n.Deleted() {
			continue
		}
		if n.Kind() != graph.KindFixedGuard {
			continue
		}
		cond, negated, _, ok := e.g.FixedGuardInfo(id)
		if !ok {
			continue
		}
		wantTrue := !negated
		if known, proven := e.known[cond]; proven {
			if known == wantTrue {
				e.remove(id, b)
				*removed++
				continue
			}
			// known == !wantTrue means this guard always deopts; that
			// rewrite (splicing in an unconditional Deoptimize) belongs
			// to guard lowering, not conditional elimination, so it is
			// left in place here.
			continue
		}
		e.known[cond] = wantTrue
		undo = append(undo, cond)
	}

	for _, child := range e.children(b) {
		if ifCond, branchTrue, ok := e.branchFact(b, child); ok {
			if _, already := e.known[ifCond]; !already {
				e.known[ifCond] = branchTrue
				e.walk(child, removed)
				delete(e.known, ifCond)
				continue
			}
		}
		e.walk(child, removed)
	}
}

// children returns the blocks whose immediate dominator is b.
func (e *eliminator) children(b *cfg.Block) []*cfg.Block {
	var out []*cfg.Block
	for _, cand := range e.c.Blocks() {
		if cand.Idom() == b && cand != b {
			out = append(out, cand)
		}
	}
	return out
}

// branchFact reports whether child is the direct true/false CFG
// successor of an If terminating block b, and which polarity that
// implies for the If's condition.
func (e *eliminator) branchFact(b, child *cfg.Block) (graph.ID, bool, bool) {
	nodes := b.Nodes()
	if len(nodes) == 0 {
		return 0, false, false
	}
	last := nodes[len(nodes)-1]
	n := e.g.Node(last)
	if n == nil || n.Kind() != graph.KindIf {
		return 0, false, false
	}
	cond, ok := e.g.IfCondition(last)
	if !ok {
		return 0, false, false
	}
	succs := n.Successors()
	for i, s := range succs {
		target := e.c.BlockOf(s)
		if target == child {
			return cond, i == 0, true
		}
	}
	return 0, false, false
}

// remove splices a proven-redundant FixedGuard out of b's fixed chain,
// rewiring its unique control predecessor directly to its successor.
func (e *eliminator) remove(id graph.ID, b *cfg.Block) {
	n := e.g.Node(id)
	succs := n.Successors()
	if len(succs) != 1 {
		return
	}
	next := succs[0]
	pred := e.predecessorOf(id, b)
	if pred == 0 {
		return
	}
	if err := e.g.ReplaceAtPredecessor(pred, id, next); err != nil {
		return
	}
	_ = e.g.SafeDelete(id)
}

// predecessorOf finds id's control predecessor within b's fixed chain,
// falling back to 0 (none found) if id opens the block.
func (e *eliminator) predecessorOf(id graph.ID, b *cfg.Block) graph.ID {
	nodes := b.Nodes()
	for i, n := range nodes {
		if n == id && i > 0 {
			return nodes[i-1]
		}
	}
	return 0
}
