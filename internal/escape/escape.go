// Package escape implements partial escape analysis and scalar
// replacement (spec.md §4.6): a non-escaping allocation's field state
// is tracked directly instead of materialized, and field reads/writes
// against it are replaced by reads/writes of that tracked state.
package escape

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// Result reports which candidate allocations were virtualized away.
type Result struct {
	Virtualized map[graph.ID]bool
}

// Run scans every live NewInstance node and virtualizes the ones whose
// entire lifetime — every load, store and monitor operation against
// them — stays inside the single basic block that allocates them.
//
// Scope decision: this first implementation virtualizes only
// single-block candidates. The general partial-escape case — a
// virtual object's state surviving across a CFG merge, unified
// field-wise with phis per spec.md §4.6's "states from each
// predecessor are unified" rule — needs a full dataflow pass over the
// dominator tree and is left for a later extension; it is the one
// piece of §4.6 not yet built (see DESIGN.md). The common
// constructor-then-accessor shape (spec.md §8 scenario 3) is
// straight-line and is fully handled by this scope.
func Run(g *graph.Graph, c *cfg.CFG) *Result {
	res := &Result{Virtualized: map[graph.ID]bool{}}
	for _, alloc := range g.Iterate(graph.KindNewInstance) {
		if n := g.Node(alloc); n == nil || n.Deleted() {
			continue
		}
		tryVirtualize(g, c, alloc, res)
	}
	return res
}

func tryVirtualize(g *graph.Graph, c *cfg.CFG, alloc graph.ID, res *Result) {
	b := c.BlockOf(alloc)
	if b == nil {
		return
	}
	if !everyUsageIsLocalObjectUse(g, c, alloc, b) {
		return
	}

	nodes := b.Nodes()
	pos := indexOf(nodes, alloc)
	if pos < 0 {
		return
	}

	fields := map[int]graph.ID{}
	var replacements []replacement
	var toRemove []graph.ID

	for _, id := range nodes[pos+1:] {
		n := g.Node(id)
		if n == nil || n.Deleted() {
			continue
		}
		switch n.Kind() {
		case graph.KindLoadField:
			object, _, _ := g.LoadFieldOperands(id)
			if object != alloc {
				continue
			}
			loc, _ := g.LocationIDOf(id)
			v, ok := fields[loc]
			if !ok {
				// A read with no preceding write in this block cannot be
				// resolved without a declared zero-value per field type;
				// bail out of virtualizing this allocation entirely
				// rather than guess a default.
				return
			}
			replacements = append(replacements, replacement{old: id, new: v})
			toRemove = append(toRemove, id)
		case graph.KindStoreField:
			object, value, _, ok := g.StoreFieldOperands(id)
			if !ok || object != alloc {
				continue
			}
			loc, _ := g.LocationIDOf(id)
			fields[loc] = value
			toRemove = append(toRemove, id)
		case graph.KindMonitorEnter, graph.KindMonitorExit:
			object, _, _ := g.MonitorOperands(id)
			if object != alloc {
				continue
			}
			toRemove = append(toRemove, id)
		}
	}

	for _, r := range replacements {
		g.ReplaceAtUsages(r.old, r.new)
	}
	for _, id := range toRemove {
		removeFixed(g, nodes, id)
	}
	removeFixed(g, nodes, alloc)
	res.Virtualized[alloc] = true
}

type replacement struct{ old, new graph.ID }

// everyUsageIsLocalObjectUse reports whether every data-edge usage of
// alloc is a LoadField/StoreField/MonitorEnter/MonitorExit referencing
// it as the operated-on object (never as a stored value or any other
// operand), and lies in the same block as the allocation itself. Any
// other usage (an invoke argument, a return value, a frame-state
// observation, or a use in a different block) escapes.
func everyUsageIsLocalObjectUse(g *graph.Graph, c *cfg.CFG, alloc graph.ID, b *cfg.Block) bool {
	for _, u := range g.Usages(alloc) {
		if c.BlockOf(u) != b {
			return false
		}
		n := g.Node(u)
		switch n.Kind() {
		case graph.KindLoadField:
			object, _, ok := g.LoadFieldOperands(u)
			if !ok || object != alloc {
				return false
			}
		case graph.KindStoreField:
			object, value, _, ok := g.StoreFieldOperands(u)
			if !ok || object != alloc || value == alloc {
				return false
			}
		case graph.KindMonitorEnter, graph.KindMonitorExit:
			object, _, ok := g.MonitorOperands(u)
			if !ok || object != alloc {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// memoryInputOf returns the memory-chain predecessor id feeds forward
// through, for the kinds this package ever splices out.
func memoryInputOf(g *graph.Graph, id graph.ID) (graph.ID, bool) {
	n := g.Node(id)
	if n == nil {
		return 0, false
	}
	switch n.Kind() {
	case graph.KindNewInstance:
		return g.NewInstanceMemory(id)
	case graph.KindLoadField:
		_, mem, ok := g.LoadFieldOperands(id)
		return mem, ok
	case graph.KindStoreField:
		_, _, mem, ok := g.StoreFieldOperands(id)
		return mem, ok
	case graph.KindMonitorEnter, graph.KindMonitorExit:
		_, mem, ok := g.MonitorOperands(id)
		return mem, ok
	default:
		return 0, false
	}
}

func indexOf(nodes []graph.ID, id graph.ID) int {
	for i, n := range nodes {
		if n == id {
			return i
		}
	}
	return -1
}

// removeFixed splices a fixed node out of its control chain, rewiring
// its nearest still-live predecessor (within nodes, the block's
// original node snapshot) directly to its successor, then tombstones
// it. Predecessor lookup walks the original snapshot backward skipping
// already-removed entries, which is safe precisely because earlier
// removals in the same pass already redirected that predecessor's
// successor edge forward past them.
func removeFixed(g *graph.Graph, nodes []graph.ID, id graph.ID) {
	n := g.Node(id)
	if n == nil || n.Deleted() {
		return
	}
	// Any remaining data/memory-chain consumer of id (e.g. a later
	// store threading through this one's memory output) is rerouted to
	// id's own memory input before deletion, so the chain stays linked
	// around the removed node.
	if mem, ok := memoryInputOf(g, id); ok {
		g.ReplaceAtUsages(id, mem)
	}
	succs := n.Successors()
	if len(succs) != 1 {
		return
	}
	next := succs[0]

	pos := indexOf(nodes, id)
	if pos <= 0 {
		return
	}
	var pred graph.ID
	for i := pos - 1; i >= 0; i-- {
		if pn := g.Node(nodes[i]); pn != nil && !pn.Deleted() {
			pred = nodes[i]
			break
		}
	}
	if pred == 0 {
		return
	}
	if err := g.ReplaceAtPredecessor(pred, id, next); err != nil {
		return
	}
	_ = g.SafeDelete(id)
}
