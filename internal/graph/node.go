// Package graph implements the sea-of-nodes intermediate representation:
// a typed DAG of nodes connected by data, memory, guard, association and
// control edges, in SSA form. Control flow, data flow, memory state and
// guard dependencies are all first-class edges on equal footing
// (spec.md §3 "Node").
//
// Per the re-architecture note in spec.md §9, node "classes" are not a
// Go type hierarchy: every node is one concrete Node record tagged by
// Kind, and each Kind declares a fixed edge descriptor (slot name, edge
// kind, cardinality) that passes consult instead of relying on
// reflection. The graph owns an arena of such records indexed by dense
// integer id; inputs and usages are ids, not pointers, giving O(1)
// equality and cheap snapshotting (spec.md §9 "cyclic object graphs").
package graph

import "fmt"

// ID identifies a node within its owning Graph. The zero value is never
// a valid live node id; IDs start at 1.
type ID int

// Kind tags which variant a node is.
type Kind int

const (
	KindInvalid Kind = iota

	// Control-only fixed nodes.
	KindStart
	KindBegin
	KindEnd
	KindIf
	KindMerge
	KindReturn
	KindUnreachable
	KindDeoptimize

	// Value-producing fixed nodes.
	KindInvoke
	KindGuard
	KindFixedGuard
	KindLoadField
	KindStoreField
	KindMonitorEnter
	KindMonitorExit
	KindCommitAllocation
	KindLoadHub
	KindNewInstance

	// Floating value nodes.
	KindConstant
	KindPhi
	KindBinary
	KindUnary
	KindCompare
	KindPi
	KindFloatingRead
	KindMemoryPhi
	KindProxy
	KindParameter
	KindVirtualInstance
	KindFrameState
)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var kindNames = map[Kind]string{
	KindInvalid:          "Invalid",
	KindStart:            "Start",
	KindBegin:            "Begin",
	KindEnd:              "End",
	KindIf:               "If",
	KindMerge:            "Merge",
	KindReturn:           "Return",
	KindUnreachable:      "Unreachable",
	KindDeoptimize:       "Deoptimize",
	KindInvoke:           "Invoke",
	KindGuard:            "Guard",
	KindFixedGuard:       "FixedGuard",
	KindLoadField:        "LoadField",
	KindStoreField:       "StoreField",
	KindMonitorEnter:     "MonitorEnter",
	KindMonitorExit:      "MonitorExit",
	KindCommitAllocation: "CommitAllocation",
	KindLoadHub:          "LoadHub",
	KindNewInstance:      "NewInstance",
	KindConstant:         "Constant",
	KindPhi:              "Phi",
	KindBinary:           "Binary",
	KindUnary:            "Unary",
	KindCompare:          "Compare",
	KindPi:               "Pi",
	KindFloatingRead:     "FloatingRead",
	KindMemoryPhi:        "MemoryPhi",
	KindProxy:            "Proxy",
	KindParameter:        "Parameter",
	KindVirtualInstance:  "VirtualInstance",
	KindFrameState:       "FrameState",
}

// EdgeKind classifies an input edge. Successor edges (control) are kept
// in a separate list and are always EdgeControl by construction.
type EdgeKind int

const (
	EdgeData EdgeKind = iota
	EdgeMemory
	EdgeGuard
	EdgeAssociation
	EdgeControl
)

// Cardinality says whether an input slot holds exactly one edge or a
// variable-length list (e.g. a phi's per-end values, or a merge's
// forward ends).
type Cardinality int

const (
	Single Cardinality = iota
	List
)

// SlotDescriptor documents one declared edge slot of a Kind: its name
// (for printing/debugging), its edge classification, and whether it is
// singular or list-valued. Passes that need to walk edges generically
// (replaceAtUsages, safeDelete, snapshot iteration) consult Descriptor
// instead of switching on concrete Go types.
type SlotDescriptor struct {
	Name        string
	Edge        EdgeKind
	Cardinality Cardinality
}

// Descriptor returns the fixed input-slot shape for a Kind. List slots
// are always last in a kind's descriptor list by convention (phi/merge
// inputs append as ends are added).
func Descriptor(k Kind) []SlotDescriptor {
	if d, ok := descriptors[k]; ok {
		return d
	}
	return nil
}

var descriptors = map[Kind][]SlotDescriptor{
	KindStart:            {},
	KindBegin:            {},
	KindEnd:              {},
	KindIf:               {{"condition", EdgeData, Single}},
	KindMerge:            {{"ends", EdgeControl, List}},
	KindReturn:           {{"value", EdgeData, Single}, {"memory", EdgeMemory, Single}},
	KindUnreachable:      {},
	KindDeoptimize:       {{"framestate", EdgeAssociation, Single}},
	KindInvoke:           {{"receiver", EdgeData, Single}, {"args", EdgeData, List}, {"memory", EdgeMemory, Single}, {"framestate", EdgeAssociation, Single}},
	KindGuard:            {{"condition", EdgeData, Single}, {"anchor", EdgeGuard, Single}},
	KindFixedGuard:       {{"condition", EdgeData, Single}},
	KindLoadField:        {{"object", EdgeData, Single}, {"memory", EdgeMemory, Single}, {"guard", EdgeGuard, Single}},
	KindStoreField:       {{"object", EdgeData, Single}, {"value", EdgeData, Single}, {"memory", EdgeMemory, Single}, {"guard", EdgeGuard, Single}},
	KindMonitorEnter:     {{"object", EdgeData, Single}, {"memory", EdgeMemory, Single}},
	KindMonitorExit:      {{"object", EdgeData, Single}, {"memory", EdgeMemory, Single}},
	KindCommitAllocation: {{"values", EdgeData, List}},
	KindLoadHub:          {{"object", EdgeData, Single}},
	KindNewInstance:      {{"memory", EdgeMemory, Single}},
	KindConstant:         {},
	KindPhi:              {{"merge", EdgeAssociation, Single}, {"values", EdgeData, List}},
	KindBinary:           {{"left", EdgeData, Single}, {"right", EdgeData, Single}},
	KindUnary:            {{"value", EdgeData, Single}},
	KindCompare:          {{"left", EdgeData, Single}, {"right", EdgeData, Single}},
	KindPi:               {{"value", EdgeData, Single}, {"guard", EdgeGuard, Single}},
	KindFloatingRead:     {{"object", EdgeData, Single}, {"memory", EdgeMemory, Single}, {"guard", EdgeGuard, Single}},
	KindMemoryPhi:        {{"merge", EdgeAssociation, Single}, {"values", EdgeMemory, List}},
	KindProxy:            {{"value", EdgeData, Single}},
	KindParameter:        {},
	KindVirtualInstance:  {},
	KindFrameState:       {{"values", EdgeAssociation, List}, {"outer", EdgeAssociation, Single}},
}

// IsFixed reports whether nodes of this kind are control-attached
// ("fixed") as opposed to floating (schedulable anywhere legal).
func IsFixed(k Kind) bool {
	switch k {
	case KindStart, KindBegin, KindEnd, KindIf, KindMerge, KindReturn, KindUnreachable,
		KindDeoptimize, KindInvoke, KindGuard, KindFixedGuard, KindLoadField, KindStoreField,
		KindMonitorEnter, KindMonitorExit, KindCommitAllocation, KindNewInstance:
		return true
	default:
		return false
	}
}

// IsBlockStart reports whether a node of this kind may begin a basic
// block, i.e. is a legal target for a block-terminating control edge.
// A straight-line chain edge may target any fixed node (see
// Graph.SetSuccessors). Start, Begin and Merge all qualify —
// a loop header is simply a Merge flagged isLoopHeader, not a distinct
// kind, mirroring how the re-architected node set collapses class
// hierarchies into tagged data (spec.md §9).
func IsBlockStart(k Kind) bool {
	switch k {
	case KindStart, KindBegin, KindMerge:
		return true
	default:
		return false
	}
}

// IsValueNumberable reports whether nodes of this kind are deduplicated
// by Graph.Add when structurally identical (spec.md §4.2 "add").
func IsValueNumberable(k Kind) bool {
	switch k {
	case KindConstant, KindBinary, KindCompare, KindUnary, KindLoadHub:
		return true
	default:
		return false
	}
}
