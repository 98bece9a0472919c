// Package stamp implements the abstract value lattice used to type every
// value-producing node in the graph IR. A Stamp summarizes what a node
// could compute; passes narrow stamps as they learn more and use meet/join
// to combine information flowing along control and data edges.
package stamp

import "math"

// Kind tags the lattice variant a Stamp belongs to. meet/join are only
// ever applied within a kind; mixing kinds yields an Illegal stamp of the
// caller-expected kind rather than panicking (spec.md §4.1 failure mode).
type Kind int

const (
	KindIllegal Kind = iota
	KindInteger
	KindFloat
	KindObject
	KindVoid
	KindRawPointer
)

// Stamp is an immutable abstract value. All constructors and combinators
// return new values; nothing mutates a Stamp in place, so structural
// sharing across passes is always safe.
type Stamp struct {
	kind Kind

	// Integer
	bits           int
	signed         bool
	lower, upper   int64
	downMask       uint64 // bits guaranteed zero
	upMask         uint64 // bits guaranteed one

	// Float
	floatBits    int
	nonNaN       bool
	floatLower   float64
	floatUpper   float64

	// Object
	objType    TypeRef
	exactType  bool
	nonNull    bool
	alwaysNull bool
}

// TypeRef is the minimal handle a stamp needs onto the runtime's notion of
// a class/type; the oracle (internal/oracle) supplies the real
// implementation. A nil TypeRef means "unknown/no declared type".
type TypeRef interface {
	// Name returns a stable, human-readable type name for printing.
	Name() string
	// AssignableFrom reports whether a value of type other can be
	// assigned to a variable of this type (other <: this).
	AssignableFrom(other TypeRef) bool
	// IsInterface reports whether this type is an interface/abstract type.
	IsInterface() bool
	// IsConcrete reports whether this type can have direct instances
	// (i.e. exactType is a meaningful claim about it).
	IsConcrete() bool
	// LeastCommonAncestor returns the most specific common supertype of
	// this and other, or nil if the two share only the universal root.
	LeastCommonAncestor(other TypeRef) TypeRef
}

// Kind returns the lattice variant of s.
func (s Stamp) Kind() Kind { return s.kind }

// Illegal returns the uninhabited stamp of kind k: no value can have this
// stamp. It is the lattice bottom for every kind except the one returned
// by Unrestricted, and absorbs in meet/join per spec.md §3.
func Illegal(k Kind) Stamp { return Stamp{kind: KindIllegal, bits: illegalWidth(k)} }

func illegalWidth(k Kind) int {
	switch k {
	case KindInteger:
		return 64
	case KindFloat:
		return 64
	default:
		return 0
	}
}

// IsIllegal reports whether s is the uninhabited stamp.
func (s Stamp) IsIllegal() bool { return s.kind == KindIllegal }

// Void is the stamp of a value-less computation (e.g. a store's result).
func Void() Stamp { return Stamp{kind: KindVoid} }

// RawPointer is the stamp of an untyped machine address.
func RawPointer() Stamp { return Stamp{kind: KindRawPointer} }

// ---- Integer stamps ----

// IntTop returns the unrestricted integer stamp of the given bit width:
// every bit pattern representable in that width is possible.
func IntTop(bits int, signed bool) Stamp {
	lo, hi := intBounds(bits, signed)
	return Stamp{kind: KindInteger, bits: bits, signed: signed, lower: lo, upper: hi}
}

func intBounds(bits int, signed bool) (int64, int64) {
	if !signed {
		if bits >= 64 {
			return 0, math.MaxInt64
		}
		return 0, int64(1)<<uint(bits) - 1
	}
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	return -(int64(1) << uint(bits-1)), int64(1)<<uint(bits-1) - 1
}

func fullMask(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<uint(bits) - 1
}

// IntConstant returns the narrowest integer stamp containing exactly k.
func IntConstant(bits int, signed bool, k int64) Stamp {
	u := uint64(k) & fullMask(bits)
	return Stamp{
		kind: KindInteger, bits: bits, signed: signed,
		lower: k, upper: k,
		downMask: ^u & fullMask(bits),
		upMask:   u,
	}
}

// IntRange builds an integer stamp with explicit bounds; masks are
// recomputed conservatively from the bounds (sign-bit aware) rather than
// carried over, matching the "coherent after meet/join" contract in
// spec.md §4.1.
func IntRange(bits int, signed bool, lo, hi int64) Stamp {
	s := Stamp{kind: KindInteger, bits: bits, signed: signed, lower: lo, upper: hi}
	s.downMask, s.upMask = maskFromRange(bits, lo, hi)
	return s
}

// maskFromRange derives conservative known-zero/known-one masks from a
// bound pair: a bit is known-zero if it is zero in every value in range,
// known-one if it is one in every value in range. A cheap, sound
// approximation walks from the most-significant differing bit down.
func maskFromRange(bits int, lo, hi int64) (down, up uint64) {
	full := fullMask(bits)
	ulo, uhi := uint64(lo)&full, uint64(hi)&full
	if ulo > uhi {
		return 0, 0 // wrapped/unordered range: no bits known
	}
	diff := ulo ^ uhi
	if diff == 0 {
		return (^ulo) & full, ulo
	}
	// All bits above the highest differing bit are common to lo and hi.
	highBit := 63 - leadingZeros64(diff)
	commonMask := ^((uint64(1) << uint(highBit+1)) - 1) & full
	common := ulo & commonMask
	return (^common) & commonMask, common & commonMask
}

func leadingZeros64(x uint64) int {
	n := 0
	for i := 63; i >= 0; i-- {
		if x&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

func (s Stamp) Bits() int        { return s.bits }
func (s Stamp) Signed() bool     { return s.signed }
func (s Stamp) Lower() int64     { return s.lower }
func (s Stamp) Upper() int64     { return s.upper }
func (s Stamp) DownMask() uint64 { return s.downMask }
func (s Stamp) UpMask() uint64   { return s.upMask }

// ---- Float stamps ----

func FloatTop(bits int) Stamp {
	return Stamp{kind: KindFloat, floatBits: bits, nonNaN: false, floatLower: math.Inf(-1), floatUpper: math.Inf(1)}
}

func FloatConstant(bits int, v float64) Stamp {
	return Stamp{kind: KindFloat, floatBits: bits, nonNaN: !isNaN(v), floatLower: v, floatUpper: v}
}

func isNaN(v float64) bool { return v != v }

func (s Stamp) FloatBits() int      { return s.floatBits }
func (s Stamp) NonNaN() bool        { return s.nonNaN }
func (s Stamp) FloatLower() float64 { return s.floatLower }
func (s Stamp) FloatUpper() float64 { return s.floatUpper }

// ---- Object/pointer stamps ----

// ObjectTop returns the stamp describing "any object of type t, possibly
// null, not known exact". A nil t means "any object whatsoever".
func ObjectTop(t TypeRef) Stamp {
	return Stamp{kind: KindObject, objType: t}
}

// ObjectExact returns the stamp of a non-null value whose runtime type is
// known to be exactly t (no subclass possible).
func ObjectExact(t TypeRef) Stamp {
	return Stamp{kind: KindObject, objType: t, exactType: true, nonNull: true}
}

// ObjectAlwaysNull returns the stamp of the null reference, typed as t
// (t may be nil if untyped).
func ObjectAlwaysNull(t TypeRef) Stamp {
	return Stamp{kind: KindObject, objType: t, alwaysNull: true}
}

func (s Stamp) Type() TypeRef    { return s.objType }
func (s Stamp) ExactType() bool  { return s.exactType }
func (s Stamp) NonNull() bool    { return s.nonNull }
func (s Stamp) AlwaysNull() bool { return s.alwaysNull }

// WithNonNull returns a copy of s with the nonNull flag forced to true;
// used by guard/pi-node stamp refinement. Only meaningful for KindObject.
func (s Stamp) WithNonNull() Stamp {
	if s.kind != KindObject {
		return s
	}
	c := s
	c.nonNull = true
	c.alwaysNull = false
	return c
}

// IsCompatible reports whether s and other share a kind and shape,
// i.e. meet/join between them is well defined.
func (s Stamp) IsCompatible(other Stamp) bool {
	if s.kind != other.kind {
		return false
	}
	switch s.kind {
	case KindInteger:
		return s.bits == other.bits && s.signed == other.signed
	case KindFloat:
		return s.floatBits == other.floatBits
	default:
		return true
	}
}
