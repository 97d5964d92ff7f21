package types

// Compatible implements C99 6.2.7's compatibility relation: reflexive
// and symmetric, recursive over derived types. Qualifiers are compared
// after stripping, for call sites (composite-type formation, parameter
// matching) that intentionally look through them; call sites that care
// about qualifier mismatches (assignment constraints) compare Qual
// themselves before calling Compatible.
func Compatible(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Void, Bool, Char, SChar, UChar, Short, UShort, Int, UInt,
		Long, ULong, LongLong, ULongLong,
		Float, Double, LongDouble,
		FloatComplex, DoubleComplex, LongDoubleComplex,
		FloatImaginary, DoubleImaginary, LongDoubleImaginary:
		return true
	case Enum:
		return a.Tag == b.Tag
	case Pointer:
		return Compatible(a.Of, b.Of)
	case Array:
		if a.Len != nil && b.Len != nil && *a.Len != *b.Len {
			return false
		}
		return Compatible(a.Of, b.Of)
	case Struct, Union:
		return a.Tag == b.Tag
	case Function:
		return functionCompatible(a, b)
	case Label:
		return true
	}
	return false
}

func functionCompatible(a, b *Type) bool {
	if !Compatible(a.Of, b.Of) {
		return false
	}
	// A parameterless declaration ("int f();") is compatible with any
	// parameter list, per C99 6.7.5.3p15.
	if len(a.Params) == 0 || len(b.Params) == 0 {
		return true
	}
	if a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		pa, pb := a.Params[i], b.Params[i]
		if pa == Ellipsis || pb == Ellipsis {
			if pa != pb {
				return false
			}
			continue
		}
		if !Compatible(pa.Unqualified(), pb.Unqualified()) {
			return false
		}
	}
	return true
}

// Composite forms the composite type of two compatible types per C99
// 6.2.7p3: the refinement that resolves unspecified sub-parts, such as
// an array's unspecified length. Callers must ensure Compatible(a, b)
// first; Composite does not itself validate compatibility beyond what
// it needs to merge.
func Composite(a, b *Type) *Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch a.Kind {
	case Array:
		of := Composite(a.Of, b.Of)
		switch {
		case a.Len != nil:
			return ArrayOf(of, a.Len)
		case b.Len != nil:
			return ArrayOf(of, b.Len)
		default:
			return ArrayOf(of, nil)
		}
	case Pointer:
		return PointerTo(Composite(a.Of, b.Of), a.Qual)
	case Function:
		of := Composite(a.Of, b.Of)
		switch {
		case len(a.Params) == 0:
			return &Type{Kind: Function, Of: of, Params: b.Params, Variadic: b.Variadic}
		case len(b.Params) == 0:
			return &Type{Kind: Function, Of: of, Params: a.Params, Variadic: a.Variadic}
		default:
			params := make([]*Type, len(a.Params))
			for i := range params {
				if a.Params[i] == Ellipsis {
					params[i] = Ellipsis
					continue
				}
				params[i] = Composite(a.Params[i], b.Params[i])
			}
			return &Type{Kind: Function, Of: of, Params: params, Variadic: a.Variadic}
		}
	default:
		return a
	}
}
