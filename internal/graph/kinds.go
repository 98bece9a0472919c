package graph

// This file declares the NodeData payload types carried by kind-specific
// nodes, and small constructor helpers that validate + compute an
// initial stamp for each kind (spec.md §3 "Node" attributes).

import "jitcore/internal/stamp"

// BinaryOp enumerates the arithmetic/logic operators a Binary node can
// carry.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

// CompareOp enumerates comparison predicates.
type CompareOp int

const (
	CmpEQ CompareOp = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

// DeoptReason enumerates why a guard, if triggered at runtime, would
// force deoptimization. TypeCheckedInliningViolated is the reason
// attached to the monomorphic-inline type guard (spec.md §4.7, scenario 4).
type DeoptReason int

const (
	DeoptNone DeoptReason = iota
	DeoptNullCheck
	DeoptTypeCheckedInliningViolated
	DeoptClassCastException
	DeoptUnreachedCode
	DeoptBoundsCheck
)

func (r DeoptReason) String() string {
	switch r {
	case DeoptNullCheck:
		return "NullCheckException"
	case DeoptTypeCheckedInliningViolated:
		return "TypeCheckedInliningViolated"
	case DeoptClassCastException:
		return "ClassCastException"
	case DeoptUnreachedCode:
		return "UnreachedCode"
	case DeoptBoundsCheck:
		return "BoundsCheckException"
	default:
		return "None"
	}
}

type constantData struct {
	Value interface{}
}

func (constantData) isNodeData() {}

type binaryData struct {
	Op BinaryOp
}

func (binaryData) isNodeData() {}

type compareData struct {
	Op CompareOp
}

func (compareData) isNodeData() {}

type unaryData struct {
	Negate bool
}

func (unaryData) isNodeData() {}

// FieldRef identifies a field for LoadField/StoreField nodes.
type FieldRef struct {
	Holder string
	Name   string
	Type   stamp.TypeRef
}

type fieldData struct {
	Field        FieldRef
	LocationID   int // memory-location identity for floating-read scheduling
}

func (fieldData) isNodeData() {}

// MethodRef identifies an invocation target.
type MethodRef struct {
	Holder string
	Name   string
	Sig    string
}

type invokeData struct {
	Method MethodRef
	Static bool
}

func (invokeData) isNodeData() {}

type guardData struct {
	Reason  DeoptReason
	Negated bool // guard fires on condition == false rather than == true
}

func (guardData) isNodeData() {}

type ifData struct{}

func (ifData) isNodeData() {}

type beginData struct {
	isLoopHeader bool
}

func (beginData) isNodeData() {}

type mergeData struct {
	isLoopHeader bool
}

func (mergeData) isNodeData() {}

type phiData struct{}

func (phiData) isNodeData() {}

type memoryPhiData struct {
	LocationID int
}

func (memoryPhiData) isNodeData() {}

type loadHubData struct{}

func (loadHubData) isNodeData() {}

type newInstanceData struct {
	Type stamp.TypeRef
}

func (newInstanceData) isNodeData() {}

type virtualInstanceData struct {
	Type   stamp.TypeRef
	Fields []FieldRef
}

func (virtualInstanceData) isNodeData() {}

type commitAllocationData struct {
	Type   stamp.TypeRef
	Fields []FieldRef
}

func (commitAllocationData) isNodeData() {}

type parameterData struct {
	Index int
}

func (parameterData) isNodeData() {}

type frameStateData struct {
	BCI      int
	MethodID string
}

func (frameStateData) isNodeData() {}

type proxyData struct {
	LoopExitDepth int
}

func (proxyData) isNodeData() {}

// ---- Constructors ----

// AddConstant creates (or returns the deduplicated) constant node for a
// literal value, with its narrowest stamp.
func (g *Graph) AddConstant(value interface{}, st stamp.Stamp) ID {
	id, _ := g.Add(KindConstant, constantData{Value: value}, st, nil, nil)
	return id
}

// ConstantValue returns the literal payload of a constant node, or nil
// if id is not a live Constant.
func (g *Graph) ConstantValue(id ID) (interface{}, bool) {
	n := g.Node(id)
	if n == nil || n.deleted || n.kind != KindConstant {
		return nil, false
	}
	return n.data.(constantData).Value, true
}

// AddBinary creates a Binary node; its stamp is inferred from its
// operand stamps via InferStamp.
func (g *Graph) AddBinary(op BinaryOp, left, right ID) (ID, error) {
	id, err := g.Add(KindBinary, binaryData{Op: op}, stamp.Stamp{}, []ID{left, right}, nil)
	if err != nil {
		return 0, err
	}
	g.InferStamp(id)
	return id, nil
}

func (g *Graph) BinaryOp(id ID) (BinaryOp, bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindBinary {
		return 0, false
	}
	return n.data.(binaryData).Op, true
}

// AddCompare creates a Compare node producing a 1-bit integer stamp.
func (g *Graph) AddCompare(op CompareOp, left, right ID) (ID, error) {
	id, err := g.Add(KindCompare, compareData{Op: op}, stamp.IntTop(1, false), []ID{left, right}, nil)
	return id, err
}

func (g *Graph) CompareOp(id ID) (CompareOp, bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindCompare {
		return 0, false
	}
	return n.data.(compareData).Op, true
}

// AddParameter creates a method-parameter value node.
func (g *Graph) AddParameter(index int, st stamp.Stamp) ID {
	id, _ := g.Add(KindParameter, parameterData{Index: index}, st, nil, nil)
	return id
}

// ParameterIndex returns a Parameter node's declared index (instance
// methods conventionally place the receiver at index 0).
func (g *Graph) ParameterIndex(id ID) (int, bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindParameter {
		return 0, false
	}
	return n.data.(parameterData).Index, true
}

// AddBegin creates a fixed Begin node marking block entry.
func (g *Graph) AddBegin(isLoopHeader bool) ID {
	id, _ := g.Add(KindBegin, beginData{isLoopHeader: isLoopHeader}, stamp.Void(), nil, nil)
	return id
}

// IsLoopHeaderBegin reports whether a Begin node marks a loop header.
func (g *Graph) IsLoopHeaderBegin(id ID) bool {
	n := g.Node(id)
	if n == nil || n.kind != KindBegin {
		return false
	}
	return n.data.(beginData).isLoopHeader
}

// AddEnd creates a fixed End node: the forward exit of a block into a
// merge. It carries no data of its own; it exists only to give each
// incoming control path to a Merge a distinct identity that a Phi's
// values can align with positionally (spec.md §3 invariant).
func (g *Graph) AddEnd() ID {
	id, _ := g.Add(KindEnd, nil, stamp.Void(), nil, nil)
	return id
}

// AddMerge creates a fixed Merge node with the given End predecessors as
// its successor-facing control input list. Per spec.md §3, a Phi's
// input count must equal its Merge's forward-end count, with inputs
// aligned positionally with ends.
func (g *Graph) AddMerge(ends []ID) ID {
	id, _ := g.Add(KindMerge, mergeData{}, stamp.Void(), ends, nil)
	return id
}

// MergeEndCount returns the number of forward ends feeding a merge.
func (g *Graph) MergeEndCount(merge ID) int {
	return len(g.Inputs(merge))
}

// AddPhi creates a Phi at merge with one value per end, in the same
// order as the merge's ends.
func (g *Graph) AddPhi(merge ID, values []ID, st stamp.Stamp) (ID, error) {
	if n := len(values); n != g.MergeEndCount(merge) {
		return 0, phiArityError(merge, n, g.MergeEndCount(merge))
	}
	inputs := append([]ID{merge}, values...)
	return g.Add(KindPhi, phiData{}, st, inputs, nil)
}

// PhiMerge returns the merge a phi belongs to, and its per-end values.
func (g *Graph) PhiMerge(phi ID) (merge ID, values []ID) {
	n := g.Node(phi)
	if n == nil || n.kind != KindPhi {
		return 0, nil
	}
	return n.inputs[0], append([]ID(nil), n.inputs[1:]...)
}

// IfCondition returns the tested condition of an If node.
func (g *Graph) IfCondition(id ID) (ID, bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindIf {
		return 0, false
	}
	return n.inputs[0], true
}

// AddIf creates a fixed If node testing condition. By convention the
// successor set via SetSuccessors is [trueBranch, falseBranch].
func (g *Graph) AddIf(condition ID) ID {
	id, _ := g.Add(KindIf, ifData{}, stamp.Void(), []ID{condition}, nil)
	return id
}

// AddGuard creates a floating Guard node: fails (and deoptimizes) unless
// condition matches the expected polarity, anchored so it cannot be
// scheduled above the node identified by anchor (0 for none).
func (g *Graph) AddGuard(condition ID, negated bool, reason DeoptReason, anchor ID) ID {
	id, _ := g.Add(KindGuard, guardData{Reason: reason, Negated: negated}, stamp.Void(), []ID{condition, anchor}, nil)
	return id
}

func (g *Graph) GuardReason(id ID) (DeoptReason, bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindGuard {
		return DeoptNone, false
	}
	return n.data.(guardData).Reason, true
}

// AddFixedGuard creates a fixed guard: control-attached, lowered to an
// explicit if+deopt by the guard-lowering phase (spec.md §4.8).
func (g *Graph) AddFixedGuard(condition ID, negated bool, reason DeoptReason) ID {
	id, _ := g.Add(KindFixedGuard, guardData{Reason: reason, Negated: negated}, stamp.Void(), []ID{condition}, nil)
	return id
}

// FixedGuardInfo returns the condition input, negation polarity and
// deopt reason of a FixedGuard node.
func (g *Graph) FixedGuardInfo(id ID) (condition ID, negated bool, reason DeoptReason, ok bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindFixedGuard {
		return 0, false, DeoptNone, false
	}
	d := n.data.(guardData)
	return n.inputs[0], d.Negated, d.Reason, true
}

// AddPi creates a Pi node refining value's stamp under guard.
func (g *Graph) AddPi(value, guard ID, refined stamp.Stamp) ID {
	id, _ := g.Add(KindPi, nil, refined, []ID{value, guard}, nil)
	return id
}

// AddLoadField creates a fixed LoadField node.
func (g *Graph) AddLoadField(object, memory ID, field FieldRef, st stamp.Stamp) ID {
	id, _ := g.Add(KindLoadField, fieldData{Field: field, LocationID: locationID(field)}, st, []ID{object, memory, 0}, nil)
	return id
}

// AddStoreField creates a fixed StoreField node.
func (g *Graph) AddStoreField(object, value, memory ID, field FieldRef) ID {
	id, _ := g.Add(KindStoreField, fieldData{Field: field, LocationID: locationID(field)}, stamp.Void(), []ID{object, value, memory, 0}, nil)
	return id
}

// LoadFieldOperands returns the object and memory operands of a
// LoadField node.
func (g *Graph) LoadFieldOperands(id ID) (object, memory ID, ok bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindLoadField {
		return 0, 0, false
	}
	return n.inputs[0], n.inputs[1], true
}

// StoreFieldOperands returns the object, value and memory operands of
// a StoreField node.
func (g *Graph) StoreFieldOperands(id ID) (object, value, memory ID, ok bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindStoreField {
		return 0, 0, 0, false
	}
	return n.inputs[0], n.inputs[1], n.inputs[2], true
}

// FieldOf returns the field descriptor of a LoadField/StoreField node.
func (g *Graph) FieldOf(id ID) (FieldRef, bool) {
	n := g.Node(id)
	if n == nil {
		return FieldRef{}, false
	}
	fd, ok := n.data.(fieldData)
	return fd.Field, ok
}

// LocationIDOf returns the memory-location identity of a LoadField,
// StoreField or FloatingRead node, used by the memory scheduler to
// decide whether a read may alias a write (spec.md §4.4 step 3).
func (g *Graph) LocationIDOf(id ID) (int, bool) {
	n := g.Node(id)
	if n == nil {
		return 0, false
	}
	fd, ok := n.data.(fieldData)
	if !ok {
		return 0, false
	}
	return fd.LocationID, true
}

// locationID derives a stable memory-location identity from a field ref
// for the floating-read phase (spec.md §4.8): distinct fields of the
// same declared shape alias only when their (Holder, Name) match.
func locationID(f FieldRef) int {
	h := 0
	for _, c := range f.Holder + "." + f.Name {
		h = h*31 + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// AddFloatingRead creates a floating memory read anchored to a guard (0
// if none) and a memory-state input, to be placed by the scheduler.
func (g *Graph) AddFloatingRead(object, memory, guard ID, field FieldRef, st stamp.Stamp) ID {
	id, _ := g.Add(KindFloatingRead, fieldData{Field: field, LocationID: locationID(field)}, st, []ID{object, memory, guard}, nil)
	return id
}

// AddMemoryPhi creates a per-location memory-state phi at merge.
func (g *Graph) AddMemoryPhi(merge ID, values []ID, locationID int) (ID, error) {
	if n := len(values); n != g.MergeEndCount(merge) {
		return 0, phiArityError(merge, n, g.MergeEndCount(merge))
	}
	inputs := append([]ID{merge}, values...)
	return g.Add(KindMemoryPhi, memoryPhiData{LocationID: locationID}, stamp.Void(), inputs, nil)
}

// AddInvoke creates a fixed Invoke node.
func (g *Graph) AddInvoke(method MethodRef, static bool, receiver ID, args []ID, memory, framestate ID, st stamp.Stamp) ID {
	inputs := append([]ID{receiver}, args...)
	inputs = append(inputs, memory, framestate)
	id, _ := g.Add(KindInvoke, invokeData{Method: method, Static: static}, st, inputs, nil)
	return id
}

// InvokeMethod returns the invoked method ref.
func (g *Graph) InvokeMethod(id ID) (MethodRef, bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindInvoke {
		return MethodRef{}, false
	}
	return n.data.(invokeData).Method, true
}

// InvokeStatic reports whether an Invoke node is a static call (no
// receiver, no virtual dispatch to devirtualize).
func (g *Graph) InvokeStatic(id ID) bool {
	n := g.Node(id)
	if n == nil || n.kind != KindInvoke {
		return false
	}
	return n.data.(invokeData).Static
}

// InvokeOperands returns the receiver (0 for a static call), the
// argument list, and the memory/frame-state operands of an Invoke node.
func (g *Graph) InvokeOperands(id ID) (receiver ID, args []ID, memory, framestate ID, ok bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindInvoke || len(n.inputs) < 3 {
		return 0, nil, 0, 0, false
	}
	ins := n.inputs
	receiver = ins[0]
	args = append([]ID(nil), ins[1:len(ins)-2]...)
	memory = ins[len(ins)-2]
	framestate = ins[len(ins)-1]
	return receiver, args, memory, framestate, true
}

// AddLoadHub creates a floating LoadHub node (the constant identity used
// by type guards, spec.md §6 "objectHub").
func (g *Graph) AddLoadHub(object ID) ID {
	id, _ := g.Add(KindLoadHub, loadHubData{}, stamp.RawPointer(), []ID{object}, nil)
	return id
}

// AddReturn creates a fixed Return node.
func (g *Graph) AddReturn(value, memory ID) ID {
	id, _ := g.Add(KindReturn, nil, stamp.Void(), []ID{value, memory}, nil)
	return id
}

// AddNewInstance creates a fixed allocation node for a concrete type.
func (g *Graph) AddNewInstance(t stamp.TypeRef, memory ID) ID {
	id, _ := g.Add(KindNewInstance, newInstanceData{Type: t}, stamp.ObjectExact(t), []ID{memory}, nil)
	return id
}

// AddVirtualInstance creates the (memory-less) marker node standing in
// for an allocation while escape analysis keeps it virtual (spec.md
// §4.6). It is never scheduled or emitted; it exists only so other
// nodes can reference "the object identity" before/if it materializes.
func (g *Graph) AddVirtualInstance(t stamp.TypeRef, fields []FieldRef) ID {
	id, _ := g.Add(KindVirtualInstance, virtualInstanceData{Type: t, Fields: fields}, stamp.ObjectExact(t), nil, nil)
	return id
}

// AddCommitAllocation creates the materialization node recording final
// field values in declaration order (spec.md §4.6 invariant).
func (g *Graph) AddCommitAllocation(t stamp.TypeRef, fields []FieldRef, values []ID) ID {
	id, _ := g.Add(KindCommitAllocation, commitAllocationData{Type: t, Fields: fields}, stamp.ObjectExact(t), values, nil)
	return id
}

// AddFrameState creates a frame-state snapshot node referencing only
// currently-live value nodes (spec.md §3 invariant).
func (g *Graph) AddFrameState(bci int, methodID string, values []ID, outer ID) ID {
	inputs := append(append([]ID(nil), values...), outer)
	id, _ := g.Add(KindFrameState, frameStateData{BCI: bci, MethodID: methodID}, stamp.Void(), inputs, nil)
	return id
}

// AddProxy wraps value with a loop-exit proxy at the given nesting
// depth, used when a guard/value must cross one or more loop exits
// (spec.md §4.5 "wrapped in a proxy per exit traversed").
func (g *Graph) AddProxy(value ID, exitDepth int) ID {
	id, _ := g.Add(KindProxy, proxyData{LoopExitDepth: exitDepth}, g.Node(value).stamp, []ID{value}, nil)
	return id
}

// UnaryNegates reports whether id is a Unary node that negates its
// operand; it is false for a plain copy and for any other kind.
func (g *Graph) UnaryNegates(id ID) bool {
	n := g.Node(id)
	if n == nil || n.kind != KindUnary {
		return false
	}
	return n.data.(unaryData).Negate
}

// AddUnary creates a Unary node: a negation when negate is set,
// otherwise a copy of value.
func (g *Graph) AddUnary(negate bool, value ID, st stamp.Stamp) ID {
	id, _ := g.Add(KindUnary, unaryData{Negate: negate}, st, []ID{value}, nil)
	return id
}

// AddMonitorEnter creates a fixed lock-acquire node.
func (g *Graph) AddMonitorEnter(object, memory ID) ID {
	id, _ := g.Add(KindMonitorEnter, nil, stamp.Void(), []ID{object, memory}, nil)
	return id
}

// AddMonitorExit creates a fixed lock-release node.
func (g *Graph) AddMonitorExit(object, memory ID) ID {
	id, _ := g.Add(KindMonitorExit, nil, stamp.Void(), []ID{object, memory}, nil)
	return id
}

// MonitorOperands returns the object and memory operands of a
// MonitorEnter/MonitorExit node.
func (g *Graph) MonitorOperands(id ID) (object, memory ID, ok bool) {
	n := g.Node(id)
	if n == nil || (n.kind != KindMonitorEnter && n.kind != KindMonitorExit) {
		return 0, 0, false
	}
	return n.inputs[0], n.inputs[1], true
}

// NewInstanceMemory returns the memory operand of a NewInstance node.
func (g *Graph) NewInstanceMemory(id ID) (memory ID, ok bool) {
	n := g.Node(id)
	if n == nil || n.kind != KindNewInstance {
		return 0, false
	}
	return n.inputs[0], true
}

// AddDeoptimize creates a fixed, unconditional transfer to the
// interpreter using the given frame state.
func (g *Graph) AddDeoptimize(framestate ID) ID {
	id, _ := g.Add(KindDeoptimize, nil, stamp.Void(), []ID{framestate}, nil)
	return id
}

// AddUnreachable creates a fixed node marking dead control flow.
func (g *Graph) AddUnreachable() ID {
	id, _ := g.Add(KindUnreachable, nil, stamp.Void(), nil, nil)
	return id
}

type arityError struct {
	merge ID
	got   int
	want  int
}

func (e *arityError) Error() string {
	return "graph: phi for merge " + itoa(int(e.merge)) + " got " + itoa(e.got) + " values, want " + itoa(e.want)
}

func phiArityError(merge ID, got, want int) error {
	return &arityError{merge: merge, got: got, want: want}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
