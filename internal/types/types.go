// Package types is the canonical representation of C types: the
// predicates, composition, and conversion rules of C99 §6.2.5–6.3.1.
//
// A Kind/Base tagged struct with a Size/Alignment pair consulting a
// struct-definition table is generalized here from a handful of base
// types to the full C99 arithmetic-type lattice plus
// struct/union/enum/function/label.
package types

import "fmt"

// Kind is the class tag of a type.
type Kind int

const (
	Invalid Kind = iota
	Void
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
	FloatComplex
	DoubleComplex
	LongDoubleComplex
	FloatImaginary
	DoubleImaginary
	LongDoubleImaginary
	Enum
	Pointer
	Array
	Struct
	Union
	Function
	Label
	Error
)

// Qualifier is a bitmask of C99 type qualifiers.
type Qualifier uint8

const (
	QualNone     Qualifier = 0
	QualConst    Qualifier = 1 << 0
	QualRestrict Qualifier = 1 << 1
	QualVolatile Qualifier = 1 << 2
)

// FuncSpec is a bitmask of function specifiers.
type FuncSpec uint8

const (
	FuncSpecNone   FuncSpec = 0
	FuncSpecInline FuncSpec = 1 << 0
)

// Member is one named field of a struct or union type.
type Member struct {
	Name     string
	Type     *Type
	BitWidth int // -1 if not a bit-field
	Offset   int64
}

// EnumConst is one enumerator of an enumerated type.
type EnumConst struct {
	Name  string
	Value int64
}

// LengthExpr is an opaque reference to the AST node that produced a
// variable array length, kept only for VLA length re-evaluation and
// diagnostics; the core pipeline never evaluates it (VLAs with runtime
// extents are out of scope). Typed `any` here so this leaf package has
// no dependency on internal/ast.
type LengthExpr any

// Ellipsis is the sentinel entered into Function.Params to mark the
// position of a trailing "...".
var Ellipsis = &Type{Kind: Invalid}

// Type is a C type: a class tag, qualifiers, and (for derived types) a
// reference to the type it derives from. A constructed type is either
// basic or derives from exactly one type; struct/union/enum types
// close cycles through tag-name lookup in the symbol table rather than
// through a direct Of reference.
type Type struct {
	Kind     Kind
	Qual     Qualifier
	FuncSpec FuncSpec

	Of *Type // pointee (Pointer), element (Array), base (none else)

	// Array
	Len     *int64 // nil => unspecified size
	LenExpr LengthExpr

	// Struct/Union/Enum
	Tag        string
	Members    []Member
	EnumConsts []EnumConst
	HasFlexArr bool // last member is a flexible array member

	// Function
	Params   []*Type // Ellipsis sentinel may appear as the final entry
	Variadic bool
	Defined  bool // struct/union/enum body seen, or function has a definition

	// Computed lazily by LayoutMembers and cached here.
	structSize  int64
	structAlign int64
}

// Basic constructs an unqualified type of the given arithmetic/void/
// bool kind with no derivation.
func Basic(k Kind) *Type { return &Type{Kind: k} }

// PointerTo constructs a pointer type with the given qualifiers on the
// pointer itself (not the pointee).
func PointerTo(of *Type, q Qualifier) *Type {
	return &Type{Kind: Pointer, Of: of, Qual: q}
}

// ArrayOf constructs an array type. length == nil means unspecified
// size ("incomplete array type" per C99 6.2.5p22).
func ArrayOf(of *Type, length *int64) *Type {
	return &Type{Kind: Array, Of: of, Len: length}
}

// Unqualified returns t with its top-level qualifiers stripped.
func (t *Type) Unqualified() *Type {
	if t == nil || t.Qual == QualNone {
		return t
	}
	cp := *t
	cp.Qual = QualNone
	return &cp
}

// Qualified returns t with q added to its top-level qualifiers.
func (t *Type) Qualified(q Qualifier) *Type {
	cp := *t
	cp.Qual |= q
	return &cp
}

func (q Qualifier) String() string {
	s := ""
	if q&QualConst != 0 {
		s += "const "
	}
	if q&QualRestrict != 0 {
		s += "restrict "
	}
	if q&QualVolatile != 0 {
		s += "volatile "
	}
	return s
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	q := t.Qual.String()
	switch t.Kind {
	case Void:
		return q + "void"
	case Bool:
		return q + "_Bool"
	case Char:
		return q + "char"
	case SChar:
		return q + "signed char"
	case UChar:
		return q + "unsigned char"
	case Short:
		return q + "short"
	case UShort:
		return q + "unsigned short"
	case Int:
		return q + "int"
	case UInt:
		return q + "unsigned int"
	case Long:
		return q + "long"
	case ULong:
		return q + "unsigned long"
	case LongLong:
		return q + "long long"
	case ULongLong:
		return q + "unsigned long long"
	case Float:
		return q + "float"
	case Double:
		return q + "double"
	case LongDouble:
		return q + "long double"
	case Enum:
		return q + "enum " + t.Tag
	case Pointer:
		return q + "pointer to " + t.Of.String()
	case Array:
		if t.Len != nil {
			return fmt.Sprintf("array[%d] of %s", *t.Len, t.Of.String())
		}
		return "array[] of " + t.Of.String()
	case Struct:
		return q + "struct " + t.Tag
	case Union:
		return q + "union " + t.Tag
	case Function:
		return "function returning " + t.Of.String()
	case Label:
		return "label"
	default:
		return "<invalid type>"
	}
}
