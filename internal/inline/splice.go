package inline

import (
	"fmt"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// predecessorOf returns the node immediately before id in nodes (a
// block's node snapshot), or 0 if id is first or absent. Grounded on
// the same backward-walk idiom used by internal/canon/condelim.go and
// internal/escape for splicing fixed nodes out of a control chain;
// here it locates the splice point instead of a deletion point.
func predecessorOf(nodes []graph.ID, id graph.ID) graph.ID {
	for i, n := range nodes {
		if n == id && i > 0 {
			return nodes[i-1]
		}
	}
	return 0
}

// usedAsMemoryOperand reports whether any live consumer of id
// references it as a memory-chain operand rather than (or in addition
// to) a plain value. The inliner only has a blanket value-rewrite
// (graph.ReplaceAtUsages) available, not a per-consumer, per-slot one,
// so a call site whose result also threads the memory chain is left
// alone rather than risk misrouting a memory consumer to a pure value
// — see the scope decision in DESIGN.md.
func usedAsMemoryOperand(g *graph.Graph, id graph.ID) bool {
	for _, u := range g.Usages(id) {
		n := g.Node(u)
		if n == nil {
			continue
		}
		switch n.Kind() {
		case graph.KindLoadField:
			if _, mem, ok := g.LoadFieldOperands(u); ok && mem == id {
				return true
			}
		case graph.KindStoreField:
			if _, _, mem, ok := g.StoreFieldOperands(u); ok && mem == id {
				return true
			}
		case graph.KindMonitorEnter, graph.KindMonitorExit:
			if _, mem, ok := g.MonitorOperands(u); ok && mem == id {
				return true
			}
		case graph.KindInvoke:
			if _, _, mem, _, ok := g.InvokeOperands(u); ok && mem == id {
				return true
			}
		case graph.KindNewInstance:
			if mem, ok := g.NewInstanceMemory(u); ok && mem == id {
				return true
			}
		case graph.KindReturn:
			ins := g.Inputs(u)
			if len(ins) == 2 && ins[1] == id {
				return true
			}
		}
	}
	return false
}

// substituteInvoke replaces invoke with a plugin-built, value-producing
// replacement already live in g: invoke's value usages take replacement
// directly and invoke is spliced out of the control chain. memory is
// accepted to match the shape of the invoke it replaces; callers are
// expected to have already confirmed via usedAsMemoryOperand that no
// consumer needs it threaded separately from replacement.
func substituteInvoke(g *graph.Graph, c *cfg.CFG, invoke, replacement, memory graph.ID) {
	_ = memory
	b := c.BlockOf(invoke)
	if b == nil {
		return
	}
	succs := g.Node(invoke).Successors()
	if len(succs) != 1 {
		return
	}
	pred := predecessorOf(b.Nodes(), invoke)
	if pred == 0 {
		return
	}
	g.ReplaceAtUsages(invoke, replacement)
	if err := g.ReplaceAtPredecessor(pred, invoke, succs[0]); err != nil {
		return
	}
	_ = g.SafeDelete(invoke)
}

// spliceCallee inlines callee's single-return, memory-transparent body
// in place of invoke. Returns the caller-graph ids of any Invoke nodes
// copied in from callee, so Run can track their inlining depth.
//
// Scope decision (see DESIGN.md): callee must have exactly one live
// Return and must not itself perform a StoreField/MonitorEnter/
// MonitorExit/NewInstance/CommitAllocation — the general partial-
// return, arbitrary-side-effect splice (unifying multiple returns at a
// synthesized merge+phi, and correctly re-threading a memory chain that
// the callee itself advances) is a materially larger undertaking left
// for later extension. A nested Invoke inside callee is allowed: it is
// copied in like any other fixed node and becomes a fresh candidate for
// a later inline pass, which is how the iterative fixpoint reaches
// multi-level call chains.
func spliceCallee(g *graph.Graph, c *cfg.CFG, invoke graph.ID, callee *graph.Graph, receiver graph.ID, args []graph.ID, memory graph.ID, static bool) ([]graph.ID, error) {
	b := c.BlockOf(invoke)
	if b == nil {
		return nil, fmt.Errorf("inline: invoke %d has no block", invoke)
	}
	invokeNode := g.Node(invoke)
	succs := invokeNode.Successors()
	if len(succs) != 1 {
		return nil, fmt.Errorf("inline: invoke %d does not have exactly one successor", invoke)
	}
	cont := succs[0]
	pred := predecessorOf(b.Nodes(), invoke)
	if pred == 0 {
		return nil, fmt.Errorf("inline: invoke %d has no predecessor", invoke)
	}

	returns := liveNodesOf(callee, graph.KindReturn)
	if len(returns) != 1 {
		return nil, fmt.Errorf("inline: callee has %d returns, want 1", len(returns))
	}
	ret := returns[0]
	retInputs := callee.Inputs(ret)
	if len(retInputs) != 2 {
		return nil, fmt.Errorf("inline: malformed Return %d", ret)
	}
	origValue, origMemory := retInputs[0], retInputs[1]

	paramValues := args
	if !static {
		paramValues = append([]graph.ID{receiver}, args...)
	}

	remap := map[graph.ID]graph.ID{
		callee.Start(): memory,
		ret:             cont, // successor translation only; never a data target
	}
	for _, p := range liveNodesOf(callee, graph.KindParameter) {
		idx, ok := callee.ParameterIndex(p)
		if !ok || idx < 0 || idx >= len(paramValues) {
			return nil, fmt.Errorf("inline: parameter %d out of range", p)
		}
		remap[p] = paramValues[idx]
	}

	// Phase A: copy every other live node, translating inputs through
	// remap. Ascending id order is safe for inputs (an input's id is
	// always allocated before its user), unlike successors, which may
	// target a later-allocated node — hence the separate phase B.
	var newInvokes []graph.ID
	order := liveNodeOrder(callee)
	for _, id := range order {
		if id == callee.Start() || id == ret {
			continue
		}
		if _, isParam := remap[id]; isParam {
			continue
		}
		n := callee.Node(id)
		copiedInputs := make([]graph.ID, len(n.Inputs()))
		for i, in := range n.Inputs() {
			copiedInputs[i] = remap[in]
		}
		newID, err := g.Add(n.Kind(), n.Data(), n.Stamp(), copiedInputs, nil)
		if err != nil {
			return nil, fmt.Errorf("inline: copying node %d: %w", id, err)
		}
		remap[id] = newID
		if n.Kind() == graph.KindInvoke {
			newInvokes = append(newInvokes, newID)
		}
	}

	// Phase B: translate successors now that every target is in remap.
	for _, id := range order {
		if id == callee.Start() || id == ret {
			continue
		}
		if !graph.IsFixed(callee.Node(id).Kind()) {
			continue
		}
		newID, ok := remap[id]
		if !ok {
			continue
		}
		origSuccs := callee.Node(id).Successors()
		newSuccs := make([]graph.ID, len(origSuccs))
		for i, s := range origSuccs {
			newSuccs[i] = remap[s]
		}
		if err := g.SetSuccessors(newID, newSuccs); err != nil {
			return nil, fmt.Errorf("inline: wiring successors of copied node %d: %w", id, err)
		}
	}

	entrySuccs := callee.Node(callee.Start()).Successors()
	if len(entrySuccs) != 1 {
		return nil, fmt.Errorf("inline: callee start has %d successors, want 1", len(entrySuccs))
	}
	entry := remap[entrySuccs[0]]

	valueNew, memoryNew := remap[origValue], remap[origMemory]
	_ = memoryNew // no memory consumer of invoke survives the usedAsMemoryOperand gate

	if err := g.ReplaceAtPredecessor(pred, invoke, entry); err != nil {
		return nil, err
	}
	g.ReplaceAtUsages(invoke, valueNew)
	_ = g.SafeDelete(invoke)

	return newInvokes, nil
}

func liveNodesOf(g *graph.Graph, k graph.Kind) []graph.ID {
	var out []graph.ID
	for _, id := range g.Iterate(k) {
		if n := g.Node(id); n != nil && !n.Deleted() {
			out = append(out, id)
		}
	}
	return out
}

// liveNodeOrder returns every live node id in the callee graph, in
// ascending allocation order, excluding Start.
func liveNodeOrder(g *graph.Graph) []graph.ID {
	var out []graph.ID
	for id := graph.ID(1); int(id) < g.NumNodes(); id++ {
		n := g.Node(id)
		if n == nil || n.Deleted() || id == g.Start() {
			continue
		}
		out = append(out, id)
	}
	return out
}
