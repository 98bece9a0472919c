// Package canon implements the canonicalizer's fixpoint local-rewrite
// pass and the dominator-stamp conditional elimination pass (spec.md
// §4.5).
package canon

import "jitcore/internal/graph"

// Rewrite is one local, monotone rewrite rule: given a live node id, it
// may mutate the graph (replace usages, delete the node) and reports
// whether it did. Rewrites must never widen a node's stamp (spec.md
// §4.5: "rewrites must be monotone"). Modeled after the teacher's
// OptimizationPass interface (internal/ir/optimizations.go), narrowed
// to operate node-at-a-time rather than whole-program since the graph
// has no single top-level Program value to re-walk.
type Rewrite interface {
	Name() string
	Description() string
	TryRewrite(g *graph.Graph, id graph.ID) bool
}

// Canonicalizer runs a fixed sequence of Rewrites to a work-list
// fixpoint (spec.md §4.5): a dirty queue seeded with every live node;
// whenever a rewrite fires on a node, its inputs and usages are
// re-queued since a new algebraic opportunity may now apply to them.
type Canonicalizer struct {
	rewrites []Rewrite
}

// NewCanonicalizer builds the default pipeline: constant folding and
// algebraic identities first (cheapest, most locally applicable),
// common-subexpression elimination next, dead-code elimination last so
// it sees the fully-folded graph. Mirrors the default-pipeline
// construction in the teacher's NewOptimizationPipeline.
func NewCanonicalizer() *Canonicalizer {
	c := &Canonicalizer{}
	c.AddRewrite(&ConstantFolding{})
	c.AddRewrite(&IdentitySimplification{})
	c.AddRewrite(&CommonSubexpressionElimination{})
	c.AddRewrite(&DeadCodeElimination{})
	return c
}

// AddRewrite appends a rewrite rule to the pipeline.
func (c *Canonicalizer) AddRewrite(r Rewrite) { c.rewrites = append(c.rewrites, r) }

// Run drives the work-list to fixpoint, returning the number of
// rewrites that fired.
func (c *Canonicalizer) Run(g *graph.Graph) int {
	queue := g.AllLive()
	queued := make(map[graph.ID]bool, len(queue))
	for _, id := range queue {
		queued[id] = true
	}
	fired := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		n := g.Node(id)
		if n == nil || n.Deleted() {
			continue
		}
		for _, r := range c.rewrites {
			if !r.TryRewrite(g, id) {
				continue
			}
			fired++
			for _, neighbor := range neighborsOf(g, id) {
				if !queued[neighbor] {
					queue = append(queue, neighbor)
					queued[neighbor] = true
				}
			}
			// id itself may have been deleted by the rewrite; don't
			// keep applying further rules to a tombstoned node.
			if g.Node(id) == nil || g.Node(id).Deleted() {
				break
			}
		}
	}
	return fired
}

// neighborsOf returns id's live inputs and usages, the set of nodes a
// rewrite at id could newly unlock.
func neighborsOf(g *graph.Graph, id graph.ID) []graph.ID {
	var out []graph.ID
	out = append(out, g.Inputs(id)...)
	out = append(out, g.Usages(id)...)
	return out
}
