package stamp

// Wire is the exported, gob-encodable mirror of a Stamp, used by
// internal/graphio for binary graph serialization. An object stamp's
// type identity is recorded as its Name() string alone — stamp has no
// business owning a wire format for TypeRef implementations it never
// constructs itself (those belong to the oracle, spec.md §6) — so
// FromWire takes a resolver to map the name back onto a live TypeRef.
type Wire struct {
	Kind                   Kind
	Bits                   int
	Signed                 bool
	Lower, Upper           int64
	DownMask, UpMask       uint64
	FloatBits              int
	NonNaN                 bool
	FloatLower, FloatUpper float64
	ObjTypeName            string
	ExactType              bool
	NonNull                bool
	AlwaysNull             bool
}

// ToWire exports s into its gob-encodable mirror.
func (s Stamp) ToWire() Wire {
	name := ""
	if s.objType != nil {
		name = s.objType.Name()
	}
	return Wire{
		Kind:        s.kind,
		Bits:        s.bits,
		Signed:      s.signed,
		Lower:       s.lower,
		Upper:       s.upper,
		DownMask:    s.downMask,
		UpMask:      s.upMask,
		FloatBits:   s.floatBits,
		NonNaN:      s.nonNaN,
		FloatLower:  s.floatLower,
		FloatUpper:  s.floatUpper,
		ObjTypeName: name,
		ExactType:   s.exactType,
		NonNull:     s.nonNull,
		AlwaysNull:  s.alwaysNull,
	}
}

// FromWire reconstructs a Stamp from its wire form. resolve maps an
// object stamp's recorded type name back to a live TypeRef; a nil
// resolve, or one that returns ok=false, degrades the stamp to an
// untyped object stamp rather than failing the decode.
func FromWire(w Wire, resolve func(name string) (TypeRef, bool)) Stamp {
	var t TypeRef
	if w.ObjTypeName != "" && resolve != nil {
		if rt, ok := resolve(w.ObjTypeName); ok {
			t = rt
		}
	}
	return Stamp{
		kind:       w.Kind,
		bits:       w.Bits,
		signed:     w.Signed,
		lower:      w.Lower,
		upper:      w.Upper,
		downMask:   w.DownMask,
		upMask:     w.UpMask,
		floatBits:  w.FloatBits,
		nonNaN:     w.NonNaN,
		floatLower: w.FloatLower,
		floatUpper: w.FloatUpper,
		objType:    t,
		exactType:  w.ExactType,
		nonNull:    w.NonNull,
		alwaysNull: w.AlwaysNull,
	}
}
