package stamp

// Unrestricted returns the lattice top for s's own kind: the least
// specific stamp that still carries s's shape (bit width / signedness /
// float width). Object/Void/RawPointer have a single unrestricted form.
func (s Stamp) Unrestricted() Stamp {
	switch s.kind {
	case KindInteger:
		return IntTop(s.bits, s.signed)
	case KindFloat:
		return FloatTop(s.floatBits)
	case KindObject:
		return ObjectTop(nil)
	case KindVoid:
		return Void()
	case KindRawPointer:
		return RawPointer()
	default:
		return Illegal(s.kind)
	}
}

// Empty returns the lattice bottom (uninhabited stamp) for s's kind.
func (s Stamp) Empty() Stamp { return Illegal(s.kind) }

// Meet computes the least upper bound of s and other: the narrowest
// stamp describing "a value that could be either s or other". Meet is
// commutative, associative and idempotent (spec.md §4.1).
func (s Stamp) Meet(other Stamp) Stamp {
	if s.IsIllegal() {
		return other
	}
	if other.IsIllegal() {
		return s
	}
	if !s.IsCompatible(other) {
		return Illegal(s.kind)
	}
	switch s.kind {
	case KindInteger:
		return meetInt(s, other)
	case KindFloat:
		return meetFloat(s, other)
	case KindObject:
		return meetObject(s, other)
	default:
		return s
	}
}

// Join computes the greatest lower bound of s and other: the stamp
// assuming both hold simultaneously. A contradiction yields Illegal.
func (s Stamp) Join(other Stamp) Stamp {
	return s.join(other, false)
}

// ImproveWith behaves like Join except for object stamps of unrelated
// types: Join drops the type there, while ImproveWith keeps s's own
// (left-hand) type (see joinObject). In both modes such a result is
// still marked always-null unless both types are interfaces.
func (s Stamp) ImproveWith(other Stamp) Stamp {
	return s.join(other, true)
}

func (s Stamp) join(other Stamp, improve bool) Stamp {
	if s.IsIllegal() {
		return s
	}
	if other.IsIllegal() {
		return other
	}
	if !s.IsCompatible(other) {
		return Illegal(s.kind)
	}
	switch s.kind {
	case KindInteger:
		return joinInt(s, other)
	case KindFloat:
		return joinFloat(s, other)
	case KindObject:
		return joinObject(s, other, improve)
	default:
		return s
	}
}

func meetInt(a, b Stamp) Stamp {
	lo := minI64(a.lower, b.lower)
	hi := maxI64(a.upper, b.upper)
	s := IntRange(a.bits, a.signed, lo, hi)
	// Known bits of a meet must hold for both a and b; meet can only
	// widen or preserve precision, never invent new known bits.
	s.downMask = a.downMask & b.downMask
	s.upMask = a.upMask & b.upMask
	return s
}

func joinInt(a, b Stamp) Stamp {
	lo := maxI64(a.lower, b.lower)
	hi := minI64(a.upper, b.upper)
	if lo > hi {
		return Illegal(KindInteger)
	}
	s := IntRange(a.bits, a.signed, lo, hi)
	s.downMask = (a.downMask | b.downMask) & fullMask(a.bits)
	s.upMask = (a.upMask | b.upMask) & fullMask(a.bits)
	// A bit cannot be both known-zero and known-one; such a conflict
	// means the join is actually empty.
	if s.downMask&s.upMask != 0 {
		return Illegal(KindInteger)
	}
	return s
}

func meetFloat(a, b Stamp) Stamp {
	return Stamp{
		kind: KindFloat, floatBits: a.floatBits,
		nonNaN:     a.nonNaN && b.nonNaN,
		floatLower: minF64(a.floatLower, b.floatLower),
		floatUpper: maxF64(a.floatUpper, b.floatUpper),
	}
}

func joinFloat(a, b Stamp) Stamp {
	lo := maxF64(a.floatLower, b.floatLower)
	hi := minF64(a.floatUpper, b.floatUpper)
	if lo > hi {
		return Illegal(KindFloat)
	}
	return Stamp{
		kind: KindFloat, floatBits: a.floatBits,
		nonNaN: a.nonNaN || b.nonNaN, floatLower: lo, floatUpper: hi,
	}
}

// meetObject implements the object-stamp meet rules of spec.md §3.
func meetObject(a, b Stamp) Stamp {
	// Rule 2: alwaysNull absorbs to the other side's type, losing
	// exactness and non-nullness.
	if a.alwaysNull != b.alwaysNull {
		other := a
		if a.alwaysNull {
			other = b
		}
		return Stamp{kind: KindObject, objType: other.objType, nonNull: false, alwaysNull: false, exactType: false}
	}
	// Rule 3: least common ancestor; exactType only if both exact and
	// both already equal that ancestor.
	lca := leastCommonAncestor(a.objType, b.objType)
	exact := a.exactType && b.exactType && sameType(a.objType, lca) && sameType(b.objType, lca)
	return Stamp{
		kind: KindObject, objType: lca,
		exactType:  exact,
		nonNull:    a.nonNull && b.nonNull,
		alwaysNull: false,
	}
}

// joinObject implements the object-stamp join rules of spec.md §3.
func joinObject(a, b Stamp, improve bool) Stamp {
	result := Stamp{kind: KindObject}
	// aNonNull/bNonNull start as each operand's own flag, but the side
	// whose exactness rule 3/4 finds impossible (it claimed to be
	// exactly the more general type, yet the other operand is a
	// strictly more specific one) has its non-null claim voided along
	// with it — that operand cannot exist at all, so it cannot
	// contribute "definitely non-null" to the result either.
	aNonNull, bNonNull := a.nonNull, b.nonNull
	switch {
	case sameType(a.objType, b.objType):
		result.objType = a.objType
		result.exactType = a.exactType || b.exactType
	case a.objType != nil && b.objType != nil && a.objType.AssignableFrom(b.objType):
		// b <: a: b is more specific.
		result.objType = b.objType
		if a.exactType {
			result.alwaysNull = true
			aNonNull = false
		}
		result.exactType = b.exactType
	case a.objType != nil && b.objType != nil && b.objType.AssignableFrom(a.objType):
		// a <: b: a is more specific.
		result.objType = a.objType
		if b.exactType {
			result.alwaysNull = true
			bNonNull = false
		}
		result.exactType = a.exactType
	default:
		if improve {
			result.objType = a.objType
		} else {
			result.objType = nil
		}
		bothInterface := a.objType != nil && b.objType != nil && a.objType.IsInterface() && b.objType.IsInterface()
		if !bothInterface {
			result.alwaysNull = true
		}
	}
	result.alwaysNull = result.alwaysNull || (a.alwaysNull || b.alwaysNull)
	result.nonNull = aNonNull || bNonNull
	result.exactType = result.exactType || (a.exactType || b.exactType)

	// Normalization (rule 6): a value cannot be both always-null and
	// known non-null; exactType is meaningless on a non-concrete type.
	if result.alwaysNull && result.nonNull {
		return Illegal(KindObject)
	}
	if result.exactType && result.objType != nil && !result.objType.IsConcrete() {
		return Illegal(KindObject)
	}
	return result
}

func sameType(a, b TypeRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name()
}

func leastCommonAncestor(a, b TypeRef) TypeRef {
	if a == nil || b == nil {
		return nil
	}
	if sameType(a, b) {
		return a
	}
	return a.LeastCommonAncestor(b)
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
func minF64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func maxF64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
