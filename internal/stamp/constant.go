package stamp

// ConstantOracle resolves a literal's narrowest stamp. The real
// implementation lives behind internal/oracle; stamp only needs the
// narrow slice of behavior described in spec.md §6's lookupConstant.
type ConstantOracle interface {
	// ObjectLiteralType returns the exact runtime type of a non-integer,
	// non-float constant value (e.g. a boxed object, a string).
	ObjectLiteralType(k interface{}) TypeRef
}

// Constant returns the narrowest stamp for a literal value k, satisfying
// spec.md §4.1: Constant(k).Join(s) is non-empty iff s could contain k.
func Constant(k interface{}, oracle ConstantOracle) Stamp {
	switch v := k.(type) {
	case int64:
		return IntConstant(64, true, v)
	case int32:
		return IntConstant(32, true, int64(v))
	case int16:
		return IntConstant(16, true, int64(v))
	case int8:
		return IntConstant(8, true, int64(v))
	case bool:
		if v {
			return IntConstant(1, false, 1)
		}
		return IntConstant(1, false, 0)
	case float64:
		return FloatConstant(64, v)
	case float32:
		return FloatConstant(32, float64(v))
	case nil:
		return ObjectAlwaysNull(nil)
	default:
		var t TypeRef
		if oracle != nil {
			t = oracle.ObjectLiteralType(k)
		}
		return ObjectExact(t)
	}
}
