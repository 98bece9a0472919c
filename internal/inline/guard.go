package inline

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
	"jitcore/internal/oracle"
	"jitcore/internal/stamp"
)

// insertFixedBefore splices newNode into the control chain immediately
// before before, reusing before's predecessor edge. Grounded on the
// same fixed-chain splice idiom as internal/canon/condelim.go, but
// inserting rather than removing a node.
func insertFixedBefore(g *graph.Graph, c *cfg.CFG, before, newNode graph.ID) error {
	b := c.BlockOf(before)
	if b == nil {
		return nil
	}
	pred := predecessorOf(b.Nodes(), before)
	if pred == 0 {
		return nil
	}
	if err := g.ReplaceAtPredecessor(pred, before, newNode); err != nil {
		return err
	}
	return g.SetSuccessors(newNode, []graph.ID{before})
}

// emitMonomorphicGuard splices a type-check guard in front of invoke:
// load receiver's hub, compare it against the hub oracle records for
// want, and fail with DeoptTypeCheckedInliningViolated if they differ.
// Returns a Pi-refined receiver id anchored to the guard, which callers
// should pass to spliceCallee in place of the raw receiver so that the
// callee body observes the narrowed (guard-proven) type.
func emitMonomorphicGuard(g *graph.Graph, c *cfg.CFG, invoke, receiver graph.ID, want stamp.TypeRef, o oracle.Oracle) graph.ID {
	hub := g.AddLoadHub(receiver)
	wantHubValue := o.ObjectHub(want)
	wantHub := g.AddConstant(wantHubValue, stamp.IntConstant(64, false, wantHubValue))
	eq, err := g.AddCompare(graph.CmpEQ, hub, wantHub)
	if err != nil {
		return receiver
	}
	guard := g.AddFixedGuard(eq, false, graph.DeoptTypeCheckedInliningViolated)
	if err := insertFixedBefore(g, c, invoke, guard); err != nil {
		return receiver
	}
	return g.AddPi(receiver, guard, stamp.ObjectExact(want))
}
