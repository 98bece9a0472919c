package graph

import (
	"fmt"

	"jitcore/internal/stamp"
)

// Node is the single concrete record backing every graph vertex. Extra
// carries kind-specific data (constant payload, invoked method ref,
// field ref, …) behind the NodeData interface; generic graph machinery
// never needs to know its shape.
type Node struct {
	id      ID
	kind    Kind
	graph   *Graph
	deleted bool

	// inputs is the flattened, ordered list of input edges, following
	// the slot order from Descriptor(kind). List-valued slots occupy a
	// contiguous run; listLens records the length of the list slot of
	// each descriptor index so the flattened slice can be sliced back
	// into named/positional segments.
	inputs   []ID
	listLens map[int]int // slot index -> length, only for List slots actually in use

	// successors holds control-edge targets, always live fixed nodes
	// (a block-start node where the edge ends a block).
	successors []ID

	stamp stamp.Stamp
	data  NodeData
}

// NodeData is implemented by kind-specific payload types (see kinds.go).
// It exists purely as a typed marker; passes type-assert to the concrete
// payload they expect for a given Kind.
type NodeData interface {
	isNodeData()
}

func (n *Node) ID() ID           { return n.id }
func (n *Node) Kind() Kind       { return n.kind }
func (n *Node) Deleted() bool    { return n.deleted }
func (n *Node) Stamp() stamp.Stamp { return n.stamp }
func (n *Node) Data() NodeData   { return n.data }
func (n *Node) Successors() []ID { return append([]ID(nil), n.successors...) }

// Inputs returns a defensive copy of the node's flattened input list.
// Use Graph.Inputs for a non-copying snapshot when that's safe.
func (n *Node) Inputs() []ID { return append([]ID(nil), n.inputs...) }

// usageEdge records one (user, slot) pair referencing a value.
type usageEdge struct {
	user ID
	slot int
}

// Graph owns an arena of nodes, recycled ids, the unique Start node, a
// monotonically increasing name counter for synthetic values, and
// optional assumption records validated when the generated code is
// installed (spec.md §3 "Graph").
type Graph struct {
	nodes     []*Node // index 0 unused; id i lives at nodes[i]
	free      []ID
	start     ID
	nameSeq   int
	usages    map[ID][]usageEdge
	assumptions []Assumption

	valueNumberTable map[string]ID
}

// Assumption is a class-hierarchy or call-target identity fact the
// generated code depends on; validated at install time by the host
// (spec.md §3 "Graph" lifecycle, §5 "Assumption records").
type Assumption struct {
	Kind        string // e.g. "unique-subtype", "unique-implementor"
	Description string
}

// New creates an empty graph with its Start node already allocated.
func New() *Graph {
	g := &Graph{
		nodes:            []*Node{nil},
		usages:           make(map[ID][]usageEdge),
		valueNumberTable: make(map[string]ID),
	}
	start := g.allocate(KindStart, nil, stamp.Void())
	g.start = start.id
	return g
}

// Start returns the graph's unique entry node id.
func (g *Graph) Start() ID { return g.start }

// NextName returns a fresh, graph-unique integer for naming synthetic
// SSA values (e.g. printer temporaries); it never collides with a node
// id because it is drawn from a separate counter (spec.md §3 "Graph").
func (g *Graph) NextName() int {
	g.nameSeq++
	return g.nameSeq
}

// AddAssumption records a fact the installed code depends on.
func (g *Graph) AddAssumption(a Assumption) { g.assumptions = append(g.assumptions, a) }

// Assumptions returns the recorded assumptions.
func (g *Graph) Assumptions() []Assumption { return append([]Assumption(nil), g.assumptions...) }

func (g *Graph) allocate(k Kind, data NodeData, st stamp.Stamp) *Node {
	var id ID
	n := &Node{kind: k, graph: g, data: data, stamp: st}
	if len(g.free) > 0 {
		id = g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		n.id = id
		g.nodes[id] = n
	} else {
		id = ID(len(g.nodes))
		n.id = id
		g.nodes = append(g.nodes, n)
	}
	return n
}

// Node dereferences an id into its record. Deleted nodes remain
// dereferenceable (so stale snapshot iterators can check Deleted()) but
// must not be traversed further by well-behaved passes.
func (g *Graph) Node(id ID) *Node {
	if int(id) <= 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NumNodes returns the arena's high-water id count (including
// tombstoned slots); it is an upper bound on live node count, suited to
// sizing dense per-node arrays.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Add creates a new node of kind k with the given inputs and successors,
// validating slot count/shape against Descriptor(k). Value-numberable
// kinds (constants, pure binary/compare/unary ops, LoadHub) are
// deduplicated: an identical existing live node is returned instead of a
// new one (spec.md §4.2 "add").
func (g *Graph) Add(k Kind, data NodeData, st stamp.Stamp, inputs []ID, successors []ID) (ID, error) {
	if err := validateSlots(k, inputs); err != nil {
		return 0, err
	}
	if IsValueNumberable(k) {
		key := valueNumberKey(k, data, inputs)
		if existing, ok := g.valueNumberTable[key]; ok {
			if en := g.Node(existing); en != nil && !en.deleted {
				return existing, nil
			}
		}
		n := g.allocate(k, data, st)
		n.inputs = append([]ID(nil), inputs...)
		n.successors = append([]ID(nil), successors...)
		g.recordUsages(n)
		g.valueNumberTable[key] = n.id
		return n.id, nil
	}
	n := g.allocate(k, data, st)
	n.inputs = append([]ID(nil), inputs...)
	n.successors = append([]ID(nil), successors...)
	g.recordUsages(n)
	return n.id, nil
}

func validateSlots(k Kind, inputs []ID) error {
	desc := Descriptor(k)
	minRequired := 0
	hasList := false
	for _, d := range desc {
		if d.Cardinality == Single {
			minRequired++
		} else {
			hasList = true
		}
	}
	if !hasList && len(inputs) != minRequired {
		return fmt.Errorf("graph: kind %s expects %d inputs, got %d", k, minRequired, len(inputs))
	}
	if hasList && len(inputs) < minRequired {
		return fmt.Errorf("graph: kind %s expects at least %d inputs, got %d", k, minRequired, len(inputs))
	}
	return nil
}

func (g *Graph) recordUsages(n *Node) {
	for slot, in := range n.inputs {
		if in == 0 {
			continue
		}
		g.usages[in] = append(g.usages[in], usageEdge{user: n.id, slot: slot})
	}
}

func valueNumberKey(k Kind, data NodeData, inputs []ID) string {
	return fmt.Sprintf("%d|%v|%v", k, data, inputs)
}

// Usages returns a snapshot of node ids that reference id as an input,
// deduplicated. Mutating the graph after taking this snapshot does not
// retroactively change it (spec.md §4.2 "usages" — snapshot semantics).
func (g *Graph) Usages(id ID) []ID {
	edges := g.usages[id]
	seen := make(map[ID]bool, len(edges))
	var out []ID
	for _, e := range edges {
		if seen[e.user] {
			continue
		}
		if n := g.Node(e.user); n == nil || n.deleted {
			continue
		}
		seen[e.user] = true
		out = append(out, e.user)
	}
	return out
}

// Inputs returns a snapshot of id's live input node ids (zero entries —
// meaning "no edge in this slot" — are omitted).
func (g *Graph) Inputs(id ID) []ID {
	n := g.Node(id)
	if n == nil {
		return nil
	}
	var out []ID
	for _, in := range n.inputs {
		if in != 0 {
			out = append(out, in)
		}
	}
	return out
}

// SetInput rewires slot i of node id to point at newInput, updating
// usage bookkeeping on both the old and new target (spec.md §4.2
// "setInput").
func (g *Graph) SetInput(id ID, slot int, newInput ID) error {
	n := g.Node(id)
	if n == nil || n.deleted {
		return fmt.Errorf("graph: SetInput on missing/deleted node %d", id)
	}
	if slot < 0 || slot >= len(n.inputs) {
		return fmt.Errorf("graph: SetInput slot %d out of range for node %d", slot, id)
	}
	old := n.inputs[slot]
	if old == newInput {
		return nil
	}
	n.inputs[slot] = newInput
	g.removeUsage(old, id, slot)
	if newInput != 0 {
		g.usages[newInput] = append(g.usages[newInput], usageEdge{user: id, slot: slot})
	}
	return nil
}

func (g *Graph) removeUsage(target, user ID, slot int) {
	edges := g.usages[target]
	for i, e := range edges {
		if e.user == user && e.slot == slot {
			g.usages[target] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// ReplaceAtUsages rewires every live user of old to reference new
// instead, leaving old with no remaining usages (spec.md §4.2
// "replaceAtUsages").
func (g *Graph) ReplaceAtUsages(old, new ID) {
	for _, edge := range append([]usageEdge(nil), g.usages[old]...) {
		if n := g.Node(edge.user); n == nil || n.deleted {
			continue
		}
		g.SetInput(edge.user, edge.slot, new)
	}
}

// ReplaceAtPredecessor rewires the control-successor edge of pred that
// currently points at old to instead point at new (spec.md §4.2
// "replaceAtPredecessor").
func (g *Graph) ReplaceAtPredecessor(pred, old, new ID) error {
	n := g.Node(pred)
	if n == nil || n.deleted {
		return fmt.Errorf("graph: ReplaceAtPredecessor on missing/deleted node %d", pred)
	}
	for i, s := range n.successors {
		if s == old {
			n.successors[i] = new
			return nil
		}
	}
	return fmt.Errorf("graph: %d has no successor edge to %d", pred, old)
}

// SafeDelete tombstones id. It fails if id still has live usages, per
// spec.md §4.2: "fail if deleting a node still in use".
func (g *Graph) SafeDelete(id ID) error {
	n := g.Node(id)
	if n == nil || n.deleted {
		return nil
	}
	if len(g.Usages(id)) > 0 {
		return fmt.Errorf("graph: cannot delete node %d: still in use", id)
	}
	for slot, in := range n.inputs {
		if in != 0 {
			g.removeUsage(in, id, slot)
		}
	}
	n.deleted = true
	n.inputs = nil
	n.successors = nil
	g.free = append(g.free, id)
	return nil
}

// SetSuccessors replaces the control-successor list of a fixed node.
// Every successor must itself be a live fixed node (spec.md §3
// invariant): a straight-line chain edge targets an ordinary fixed
// node (e.g. a FixedGuard or LoadField continuing the same block),
// while a block-terminating edge targets a block-start node (Start,
// Begin or Merge) — internal/cfg's block discovery is what tells the
// two apart, not this constructor.
func (g *Graph) SetSuccessors(id ID, succs []ID) error {
	n := g.Node(id)
	if n == nil || n.deleted {
		return fmt.Errorf("graph: SetSuccessors on missing/deleted node %d", id)
	}
	for _, s := range succs {
		sn := g.Node(s)
		if sn == nil || sn.deleted || !IsFixed(sn.kind) {
			return fmt.Errorf("graph: successor %d of %d is not a live fixed node", s, id)
		}
	}
	n.successors = append([]ID(nil), succs...)
	return nil
}

// Iterate returns a snapshot slice of live node ids of the given kind,
// in ascending id order. As documented in spec.md §4.2, mutation during
// iteration over the *returned slice* is safe since it is already a
// snapshot; callers iterating the graph live (not via this helper) must
// snapshot explicitly.
func (g *Graph) Iterate(k Kind) []ID {
	var out []ID
	for id := ID(1); int(id) < len(g.nodes); id++ {
		n := g.nodes[id]
		if n != nil && !n.deleted && n.kind == k {
			out = append(out, id)
		}
	}
	return out
}

// AllLive returns a snapshot of every live node id in ascending order.
func (g *Graph) AllLive() []ID {
	var out []ID
	for id := ID(1); int(id) < len(g.nodes); id++ {
		if n := g.nodes[id]; n != nil && !n.deleted {
			out = append(out, id)
		}
	}
	return out
}
