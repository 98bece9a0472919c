package schedule

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// sinkPastNonAliasingWrites implements the OPTIMAL memory-scheduling
// contract (spec.md §4.4 step 3): a read may sink from its earliest
// legal block down to the strategy's chosen block only if no block
// reachable from that earliest block on the way there contains a write
// that may alias it. Any block dominated by earliest whose RPO falls
// between the two candidate positions lies on some control path the
// read would be moved across, so it is conservatively included in the
// check (spec.md §9: unresolvable aliasing is treated as aliasing
// everything, and the same conservatism covers paths not literally on
// the dominator-tree spine between the two blocks).
func sinkPastNonAliasingWrites(g *graph.Graph, c *cfg.CFG, read graph.ID, earliest, target *cfg.Block) *cfg.Block {
	if target == earliest {
		return target
	}
	loc, ok := locationOf(g, read)
	if !ok {
		return target
	}
	for _, b := range c.Blocks() {
		if b.RPO() < earliest.RPO() || b.RPO() > target.RPO() {
			continue
		}
		if !cfg.Dominates(earliest, b) {
			continue
		}
		if blockHasAliasingWrite(g, b, loc) {
			return earliest
		}
	}
	return target
}

func locationOf(g *graph.Graph, id graph.ID) (int, bool) {
	n := g.Node(id)
	if n == nil || n.Kind() != graph.KindFloatingRead {
		return 0, false
	}
	return g.LocationIDOf(id)
}

// blockHasAliasingWrite reports whether b contains a StoreField that
// may alias loc. A store whose own location identity cannot be
// determined is treated as aliasing every location (spec.md §9 open
// question on unsafe/ambiguous-identity accesses).
func blockHasAliasingWrite(g *graph.Graph, b *cfg.Block, loc int) bool {
	for _, id := range b.Nodes() {
		n := g.Node(id)
		if n.Kind() != graph.KindStoreField {
			continue
		}
		writeLoc, ok := g.LocationIDOf(id)
		if !ok || writeLoc == loc {
			return true
		}
	}
	return false
}

// floatingInBlock returns the subset of floating node ids the
// scheduler assigned to block b.
func floatingInBlock(floating []graph.ID, r *Result, b *cfg.Block) []graph.ID {
	var out []graph.ID
	for _, id := range floating {
		if r.blockOf[id] == b {
			out = append(out, id)
		}
	}
	return out
}

// orderBlock produces the final instruction order for b: its fixed
// node chain interleaved with its assigned floating nodes, each placed
// immediately before the earliest point in the chain that depends on
// it (directly or transitively through another floating node already
// placed), and after every one of its own inputs. Memory reads are
// kept ordered before any later-chain write to an aliasing location
// (spec.md §4.4 step 4).
func orderBlock(g *graph.Graph, b *cfg.Block, floating []graph.ID) []graph.ID {
	fixedChain := b.Nodes()
	if len(floating) == 0 {
		return fixedChain
	}

	placed := make(map[graph.ID]bool, len(fixedChain))
	for _, id := range fixedChain {
		placed[id] = false
	}

	// Kahn's-algorithm-style topological sort of the floating set, using
	// input/usage edges restricted to this block's floating members, so
	// dependency order is respected regardless of discovery order.
	inDegree := make(map[graph.ID]int, len(floating))
	members := make(map[graph.ID]bool, len(floating))
	for _, id := range floating {
		members[id] = true
	}
	for _, id := range floating {
		for _, in := range g.Inputs(id) {
			if members[in] {
				inDegree[id]++
			}
		}
	}
	var ready []graph.ID
	for _, id := range floating {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	var topo []graph.ID
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		topo = append(topo, id)
		for _, user := range g.Usages(id) {
			if !members[user] {
				continue
			}
			inDegree[user]--
			if inDegree[user] == 0 {
				ready = append(ready, user)
			}
		}
	}
	if len(topo) < len(floating) {
		// A dependency cycle among floating nodes in one block should
		// never occur outside phi back-edges, which are association
		// edges excluded from this block-local graph; fall back to
		// discovery order for whatever remains unsorted.
		seen := make(map[graph.ID]bool, len(topo))
		for _, id := range topo {
			seen[id] = true
		}
		for _, id := range floating {
			if !seen[id] {
				topo = append(topo, id)
			}
		}
	}

	out := make([]graph.ID, 0, len(fixedChain)+len(floating))
	out = append(out, topo...)
	out = append(out, fixedChain...)
	return out
}
