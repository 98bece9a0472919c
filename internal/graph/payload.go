package graph

import "jitcore/internal/stamp"

// FieldRefWire is FieldRef's gob-encodable mirror: Type's TypeRef
// identity is recorded by name only, the same trade-off stamp.Wire
// makes for the same reason (spec.md §6 — concrete TypeRefs are the
// oracle's to hand out, not this package's to encode).
type FieldRefWire struct {
	Holder   string
	Name     string
	TypeName string
}

func exportFieldRef(f FieldRef) FieldRefWire {
	name := ""
	if f.Type != nil {
		name = f.Type.Name()
	}
	return FieldRefWire{Holder: f.Holder, Name: f.Name, TypeName: name}
}

func importFieldRef(w FieldRefWire, resolve func(string) (stamp.TypeRef, bool)) FieldRef {
	var t stamp.TypeRef
	if w.TypeName != "" && resolve != nil {
		if rt, ok := resolve(w.TypeName); ok {
			t = rt
		}
	}
	return FieldRef{Holder: w.Holder, Name: w.Name, Type: t}
}

// PayloadWire is the gob-encodable mirror of every kind-specific
// NodeData payload; which fields are meaningful for a given record is
// determined entirely by its Kind, mirroring how NodeData's concrete
// type already is (spec.md §3 "Node" — kind-specific data behind one
// typed marker interface).
type PayloadWire struct {
	Value          interface{}
	BinaryOp       BinaryOp
	CompareOp      CompareOp
	Negate         bool
	Field          FieldRefWire
	LocationID     int
	Method         MethodRef
	Static         bool
	Reason         DeoptReason
	Negated        bool
	IsLoopHeader   bool
	TypeRef        stamp.Wire
	Fields         []FieldRefWire
	Index          int
	BCI            int
	MethodID       string
	LoopExitDepth  int
}

// exportPayload converts n's concrete, package-private NodeData into
// its gob-encodable mirror. Kinds with no payload (If, Phi, LoadHub,
// End, Start, ...) export a zero PayloadWire.
func exportPayload(n *Node) PayloadWire {
	switch d := n.data.(type) {
	case constantData:
		return PayloadWire{Value: d.Value}
	case binaryData:
		return PayloadWire{BinaryOp: d.Op}
	case compareData:
		return PayloadWire{CompareOp: d.Op}
	case unaryData:
		return PayloadWire{Negate: d.Negate}
	case fieldData:
		return PayloadWire{Field: exportFieldRef(d.Field), LocationID: d.LocationID}
	case invokeData:
		return PayloadWire{Method: d.Method, Static: d.Static}
	case guardData:
		return PayloadWire{Reason: d.Reason, Negated: d.Negated}
	case beginData:
		return PayloadWire{IsLoopHeader: d.isLoopHeader}
	case mergeData:
		return PayloadWire{IsLoopHeader: d.isLoopHeader}
	case memoryPhiData:
		return PayloadWire{LocationID: d.LocationID}
	case newInstanceData:
		return PayloadWire{TypeRef: d.Type.ToWire()}
	case virtualInstanceData:
		return PayloadWire{TypeRef: d.Type.ToWire(), Fields: exportFieldRefs(d.Fields)}
	case commitAllocationData:
		return PayloadWire{TypeRef: d.Type.ToWire(), Fields: exportFieldRefs(d.Fields)}
	case parameterData:
		return PayloadWire{Index: d.Index}
	case frameStateData:
		return PayloadWire{BCI: d.BCI, MethodID: d.MethodID}
	case proxyData:
		return PayloadWire{LoopExitDepth: d.LoopExitDepth}
	default:
		return PayloadWire{}
	}
}

func exportFieldRefs(fs []FieldRef) []FieldRefWire {
	out := make([]FieldRefWire, len(fs))
	for i, f := range fs {
		out[i] = exportFieldRef(f)
	}
	return out
}

func importFieldRefs(ws []FieldRefWire, resolve func(string) (stamp.TypeRef, bool)) []FieldRef {
	out := make([]FieldRef, len(ws))
	for i, w := range ws {
		out[i] = importFieldRef(w, resolve)
	}
	return out
}

// importPayload reconstructs the kind-specific NodeData a record's Kind
// expects from its wire form; the reverse of exportPayload.
func importPayload(k Kind, w PayloadWire, resolve func(string) (stamp.TypeRef, bool)) NodeData {
	switch k {
	case KindConstant:
		return constantData{Value: w.Value}
	case KindBinary:
		return binaryData{Op: w.BinaryOp}
	case KindCompare:
		return compareData{Op: w.CompareOp}
	case KindUnary:
		return unaryData{Negate: w.Negate}
	case KindLoadField, KindStoreField, KindFloatingRead:
		return fieldData{Field: importFieldRef(w.Field, resolve), LocationID: w.LocationID}
	case KindInvoke:
		return invokeData{Method: w.Method, Static: w.Static}
	case KindFixedGuard, KindGuard:
		return guardData{Reason: w.Reason, Negated: w.Negated}
	case KindBegin:
		return beginData{isLoopHeader: w.IsLoopHeader}
	case KindMerge:
		return mergeData{isLoopHeader: w.IsLoopHeader}
	case KindIf:
		return ifData{}
	case KindPhi:
		return phiData{}
	case KindMemoryPhi:
		return memoryPhiData{LocationID: w.LocationID}
	case KindLoadHub:
		return loadHubData{}
	case KindNewInstance:
		return newInstanceData{Type: stamp.FromWire(w.TypeRef, resolve)}
	case KindVirtualInstance:
		return virtualInstanceData{Type: stamp.FromWire(w.TypeRef, resolve), Fields: importFieldRefs(w.Fields, resolve)}
	case KindCommitAllocation:
		return commitAllocationData{Type: stamp.FromWire(w.TypeRef, resolve), Fields: importFieldRefs(w.Fields, resolve)}
	case KindParameter:
		return parameterData{Index: w.Index}
	case KindFrameState:
		return frameStateData{BCI: w.BCI, MethodID: w.MethodID}
	case KindProxy:
		return proxyData{LoopExitDepth: w.LoopExitDepth}
	default:
		return nil
	}
}
