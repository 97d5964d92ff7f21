package types

// IntegerPromotion implements C99 6.3.1.1p2: an operand whose rank is
// less than int is converted to int if int can represent all values
// of its original type, otherwise to unsigned int. Bit-fields and enum
// types promote the same way; this repo always represents an enum's
// underlying type as int, so an enum operand promotes to int directly.
func IntegerPromotion(t *Type) *Type {
	if t == nil || !t.IsInteger() {
		return t
	}
	switch t.Kind {
	case Bool, Char, SChar, UChar, Short, UShort, Enum:
		return Basic(Int)
	default:
		return t.Unqualified()
	}
}

// DefaultArgumentPromotion implements C99 6.5.2.2p6: applied to an
// argument matched against an ellipsis or against no prototype at all.
// Integer operands undergo integer promotion; float is widened to
// double.
func DefaultArgumentPromotion(t *Type) *Type {
	if t == nil {
		return t
	}
	if t.Kind == Float {
		return Basic(Double)
	}
	if t.IsInteger() {
		return IntegerPromotion(t)
	}
	return t.Unqualified()
}

// UsualArithmeticConversions implements C99 6.3.1.8: the conversions
// applied to the operands of most binary arithmetic operators, which
// determine the expression's common type. Both inputs are assumed
// already arithmetic; the result is the common type both operands
// convert to.
func UsualArithmeticConversions(a, b *Type) *Type {
	switch {
	case a.Kind == LongDoubleComplex || b.Kind == LongDoubleComplex:
		return Basic(LongDoubleComplex)
	case a.Kind == DoubleComplex || b.Kind == DoubleComplex:
		return Basic(DoubleComplex)
	case a.Kind == FloatComplex || b.Kind == FloatComplex:
		return Basic(FloatComplex)
	}

	if a.IsRealFloating() || b.IsRealFloating() {
		switch {
		case a.Kind == LongDouble || b.Kind == LongDouble:
			return Basic(LongDouble)
		case a.Kind == Double || b.Kind == Double:
			return Basic(Double)
		default:
			return Basic(Float)
		}
	}

	// Both integer: promote first, then apply the same-sign/differing-
	// sign/differing-rank rules of 6.3.1.8p1.
	pa, pb := IntegerPromotion(a), IntegerPromotion(b)
	if pa.Kind == pb.Kind {
		return pa
	}
	ra, rb := rank(pa.Kind), rank(pb.Kind)
	sa, sb := pa.IsSigned(), pb.IsSigned()

	if sa == sb {
		if ra >= rb {
			return pa
		}
		return pb
	}

	unsigned, signed := pb, pa
	ur, sr := rb, ra
	if sa == false {
		unsigned, signed = pa, pb
		ur, sr = ra, rb
	}
	if ur >= sr {
		return unsigned
	}
	if typeRepresentable(signed, unsigned) {
		return signed
	}
	return correspondingUnsigned(signed)
}

// typeRepresentable reports whether every value of the unsigned
// operand's type fits in the signed operand's type, per 6.3.1.8p1's
// "the type with signed integer type can represent all of the values
// of the type with unsigned integer type" clause.
func typeRepresentable(signed, unsigned *Type) bool {
	return rank(signed.Kind) > rank(unsigned.Kind)
}

// correspondingUnsigned returns the unsigned type of the same rank as
// a signed integer type.
func correspondingUnsigned(t *Type) *Type {
	switch t.Kind {
	case Int:
		return Basic(UInt)
	case Long:
		return Basic(ULong)
	case LongLong:
		return Basic(ULongLong)
	default:
		return Basic(UInt)
	}
}
