// Package verify implements the post-pass verifiers of spec.md §8 that
// serve as the test oracle for its universal invariants: a
// VerifyUsageWithEquals-style graph verifier and a CFG verifier,
// grounded on the teacher's internal/semantic "check the AST, don't
// trust it" pattern but re-targeted from an AST to the node graph.
package verify

import (
	"fmt"

	"jitcore/internal/graph"
)

// Violation is one verifier finding, identifying the offending node
// and a human-readable reason.
type Violation struct {
	Node    graph.ID
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("node %d: %s", v.Node, v.Message)
}

// GraphResult collects every violation VerifyGraph found.
type GraphResult struct {
	Violations []*Violation
}

// OK reports whether no violation was found.
func (r *GraphResult) OK() bool { return len(r.Violations) == 0 }

func (r *GraphResult) add(node graph.ID, format string, args ...interface{}) {
	r.Violations = append(r.Violations, &Violation{Node: node, Message: fmt.Sprintf(format, args...)})
}

// VerifyGraph checks the graph-level invariants of spec.md §8:
//   - every input of a live node is itself live and graph-resident
//     (the teacher's VerifyUsageWithEquals check, re-targeted from AST
//     symbol usages to graph data edges)
//   - every phi's input count matches its merge's end count
//   - no cycle exists outside a phi's back-edge (a phi closing a
//     loop-carried dependency is legal; any other cycle is not)
func VerifyGraph(g *graph.Graph) *GraphResult {
	res := &GraphResult{}
	live := g.AllLive()
	liveSet := make(map[graph.ID]bool, len(live))
	for _, id := range live {
		liveSet[id] = true
	}

	for _, id := range live {
		for _, in := range g.Inputs(id) {
			if !liveSet[in] {
				res.add(id, "input %d is not live", in)
			}
		}
		if n := g.Node(id); n != nil && n.Kind() == graph.KindPhi {
			merge, values := g.PhiMerge(id)
			if want := g.MergeEndCount(merge); len(values) != want {
				res.add(id, "phi has %d values but merge %d has %d ends", len(values), merge, want)
			}
		}
	}

	detectCycles(g, live, res)
	return res
}

// detectCycles walks the data-dependency edges of every live node,
// refusing to traverse through a Phi's inputs: a Phi is precisely the
// node that may legally close a loop-carried cycle, so cutting the
// walk there means any cycle detected elsewhere is a genuine
// violation.
func detectCycles(g *graph.Graph, live []graph.ID, res *GraphResult) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[graph.ID]int, len(live))

	var visit func(id graph.ID)
	visit = func(id graph.ID) {
		if color[id] == black {
			return
		}
		if color[id] == gray {
			res.add(id, "cycle detected outside any phi back-edge")
			return
		}
		color[id] = gray
		n := g.Node(id)
		if n != nil && !n.Deleted() && n.Kind() != graph.KindPhi {
			for _, in := range g.Inputs(id) {
				visit(in)
			}
		}
		color[id] = black
	}

	for _, id := range live {
		if color[id] == white {
			visit(id)
		}
	}
}
