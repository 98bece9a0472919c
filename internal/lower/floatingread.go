// Package lower implements the pre-LIR lowering phases (spec.md §4.8):
// the floating-read phase, frame-state assignment, and guard lowering,
// run in that declared order.
package lower

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// memoryState tracks, per field location id, the node whose value is
// the current memory state for that location at a point in the graph.
type memoryState map[int]graph.ID

// FloatingReadResult reports how many fixed reads were converted and
// which memory-state phis were synthesized at CFG merges.
type FloatingReadResult struct {
	Converted int
	Phis      []graph.ID
}

// FloatingReadPhase turns every live fixed LoadField into a floating
// FloatingRead anchored to the memory state reaching it: the most
// recent write to the same field-location identity along its
// dominator-tree path, synthesizing a per-location MemoryPhi
// (spec.md §4.8 "one phi per distinct memory location identity") at
// any merge where predecessors disagree. A MonitorEnter/MonitorExit
// conservatively invalidates every tracked location, since this model
// has no points-to information to scope a lock's effect to one field.
//
// A location with no recorded write reaching a given read — either no
// in-block write yet, or predecessor memory states that don't all
// agree or aren't all known — falls back to the read's own original
// explicit memory input: always correct, just less precise than a
// freshly synthesized phi.
func FloatingReadPhase(g *graph.Graph, c *cfg.CFG) *FloatingReadResult {
	res := &FloatingReadResult{}
	exitState := map[int]memoryState{}

	for _, b := range c.Blocks() {
		state := entryState(g, b, exitState, res)
		nodes := b.Nodes()

		for _, id := range nodes {
			n := g.Node(id)
			if n == nil || n.Deleted() {
				continue
			}
			switch n.Kind() {
			case graph.KindLoadField:
				convertLoad(g, nodes, id, state, res)
			case graph.KindStoreField:
				if loc, ok := g.LocationIDOf(id); ok {
					state[loc] = id
				}
			case graph.KindMonitorEnter, graph.KindMonitorExit:
				for loc := range state {
					delete(state, loc)
				}
			}
		}
		exitState[b.ID()] = state
	}
	return res
}

func convertLoad(g *graph.Graph, nodes []graph.ID, id graph.ID, state memoryState, res *FloatingReadResult) {
	object, memory, ok := g.LoadFieldOperands(id)
	if !ok {
		return
	}
	field, ok := g.FieldOf(id)
	if !ok {
		return
	}
	loc, _ := g.LocationIDOf(id)

	cur, known := state[loc]
	if !known {
		cur = memory
	}
	fr := g.AddFloatingRead(object, cur, 0, field, g.Node(id).Stamp())
	g.ReplaceAtUsages(id, fr)
	removeFixed(g, nodes, id)
	res.Converted++
}

// entryState computes b's incoming memory state: a straight-through
// copy of its sole predecessor's exit state, or — at a merge — the
// per-location values every predecessor agrees on, with a MemoryPhi
// synthesized for any location every predecessor has a (disagreeing)
// recorded value for.
func entryState(g *graph.Graph, b *cfg.Block, exitState map[int]memoryState, res *FloatingReadResult) memoryState {
	preds := b.Predecessors()
	if len(preds) == 0 {
		return memoryState{}
	}
	if len(preds) == 1 {
		out := memoryState{}
		for loc, v := range exitState[preds[0].ID()] {
			out[loc] = v
		}
		return out
	}

	locs := map[int]bool{}
	for _, p := range preds {
		for loc := range exitState[p.ID()] {
			locs[loc] = true
		}
	}

	merged := memoryState{}
	merge := b.Start()
	for loc := range locs {
		values := make([]graph.ID, 0, len(preds))
		complete := true
		for _, p := range preds {
			v, ok := exitState[p.ID()][loc]
			if !ok {
				complete = false
				break
			}
			values = append(values, v)
		}
		if !complete {
			continue // no phi; reads of this location fall back to their own memory input
		}
		agree := true
		for i := 1; i < len(values); i++ {
			if values[i] != values[0] {
				agree = false
				break
			}
		}
		if agree {
			merged[loc] = values[0]
			continue
		}
		phi, err := g.AddMemoryPhi(merge, values, loc)
		if err != nil {
			continue
		}
		merged[loc] = phi
		res.Phis = append(res.Phis, phi)
	}
	return merged
}
