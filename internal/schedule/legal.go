package schedule

import (
	"fmt"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

type scheduler struct {
	g            *graph.Graph
	c            *cfg.CFG
	earliestMemo map[graph.ID]*cfg.Block
	latestMemo   map[graph.ID]*cfg.Block
}

// earliest computes the topologically earliest block dominated by
// every one of id's input producers (spec.md §4.4 step 1/2): the
// deepest (highest-RPO) block among the inputs' own earliest blocks,
// since the dominator tree guarantees that block is itself dominated
// by all the others on the path. Fixed nodes, parameters and the start
// node anchor directly to their already-known block; frame-state
// inputs are skipped entirely since they must never constrain
// scheduling (spec.md §4.4 edge-case policy).
func (s *scheduler) earliest(id graph.ID) (*cfg.Block, error) {
	if b, ok := s.earliestMemo[id]; ok {
		return b, nil
	}
	n := s.g.Node(id)
	if n == nil {
		return nil, fmt.Errorf("schedule: earliest of missing node %d", id)
	}
	if graph.IsFixed(n.Kind()) {
		b := s.c.BlockOf(id)
		if b == nil {
			return nil, fmt.Errorf("schedule: fixed node %d has no CFG block", id)
		}
		s.earliestMemo[id] = b
		return b, nil
	}
	if n.Kind() == graph.KindParameter || n.Kind() == graph.KindStart {
		b := s.c.Entry()
		s.earliestMemo[id] = b
		return b, nil
	}

	best := s.c.Entry()
	for _, in := range s.g.Inputs(id) {
		if s.g.Node(in).Kind() == graph.KindFrameState {
			continue
		}
		ib, err := s.earliest(in)
		if err != nil {
			return nil, err
		}
		if ib.RPO() > best.RPO() {
			best = ib
		}
	}
	s.earliestMemo[id] = best
	return best, nil
}

// latest computes the latest legal block for id: the nearest common
// dominator of every block that requires id's value (spec.md §4.4 step
// 2). A phi's value input is required at the predecessor block of the
// corresponding forward end, not at the merge itself (spec.md §4.4
// edge-case policy); a floating usage recurses into its own latest
// block rather than its eventual chosen position, since that usage's
// legal range already accounts for all of *its* constraints.
func (s *scheduler) latest(id graph.ID) (*cfg.Block, error) {
	if b, ok := s.latestMemo[id]; ok {
		return b, nil
	}
	n := s.g.Node(id)
	if graph.IsFixed(n.Kind()) {
		b := s.c.BlockOf(id)
		s.latestMemo[id] = b
		return b, nil
	}

	var useBlocks []*cfg.Block
	for _, u := range s.g.Usages(id) {
		un := s.g.Node(u)
		if un.Kind() == graph.KindFrameState {
			continue
		}
		if un.Kind() == graph.KindPhi {
			merge, values := s.g.PhiMerge(u)
			for i, v := range values {
				if v != id {
					continue
				}
				predBlock, err := s.predecessorOfEnd(merge, i)
				if err != nil {
					return nil, err
				}
				useBlocks = append(useBlocks, predBlock)
			}
			continue
		}
		var ub *cfg.Block
		var err error
		if graph.IsFixed(un.Kind()) {
			ub = s.c.BlockOf(u)
		} else {
			ub, err = s.latest(u)
			if err != nil {
				return nil, err
			}
		}
		if ub != nil {
			useBlocks = append(useBlocks, ub)
		}
	}

	if len(useBlocks) == 0 {
		// Dead or only frame-state-referenced: fall back to its earliest
		// legal position.
		eb, err := s.earliest(id)
		if err != nil {
			return nil, err
		}
		s.latestMemo[id] = eb
		return eb, nil
	}

	result := useBlocks[0]
	for _, ub := range useBlocks[1:] {
		result = commonDominator(result, ub)
	}
	s.latestMemo[id] = result
	return result, nil
}

// predecessorOfEnd finds the CFG block that contains merge's i-th
// forward end, i.e. the predecessor block that End terminates.
func (s *scheduler) predecessorOfEnd(merge graph.ID, i int) (*cfg.Block, error) {
	ends := s.g.Inputs(merge)
	if i >= len(ends) {
		return nil, fmt.Errorf("schedule: phi value index %d out of range for merge %d", i, merge)
	}
	endBlock := s.c.BlockOf(ends[i])
	if endBlock == nil {
		return nil, fmt.Errorf("schedule: end %d of merge %d has no CFG block", ends[i], merge)
	}
	return endBlock, nil
}

// commonDominator walks both fingers up their idom chain until they
// meet, using RPO as the topological order (same technique as
// cfg.intersect, just exposed for cross-package reuse's sake through
// the dominator-tree contract rather than package-private state).
func commonDominator(a, b *cfg.Block) *cfg.Block {
	for a != b {
		for a.RPO() > b.RPO() {
			if a.Idom() == nil {
				return a
			}
			a = a.Idom()
		}
		for b.RPO() > a.RPO() {
			if b.Idom() == nil {
				return b
			}
			b = b.Idom()
		}
	}
	return a
}

// hoistOutOfLoops walks from latest up its idom chain toward earliest,
// stopping at the shallowest-loop-depth block it can legally reach
// (spec.md §4.4: "hoists out of loops when safe").
func hoistOutOfLoops(latest, earliest *cfg.Block) *cfg.Block {
	best := latest
	cur := latest
	for cur != earliest {
		if cur.Idom() == nil || cur.Idom().RPO() < earliest.RPO() {
			break
		}
		cur = cur.Idom()
		if cur.LoopDepth() < best.LoopDepth() {
			best = cur
		}
	}
	return best
}
