// Package token defines the token representation that the syntactic
// analyzer consumes: a null-terminated forward-linked list of tokens
// carrying type, row, column, and a variant payload. The
// preprocessor/lexer that produces this list is an external
// collaborator (out of scope); this package only represents its
// output and provides the Scanner (Peek/Next/Mark/Reset) on which the
// parser builds its check/optional/expected helpers.
//
// Token keeps a one-token-lookahead Peek/Next contract, generalized
// from a handful of flat string-tagged categories to the full C99
// token-kind/variant-payload set.
package token

import "fmt"

// Kind is a token's lexical class.
type Kind int

const (
	Invalid Kind = iota
	Keyword
	Ident
	IntConst
	FloatConst
	CharConst
	StringConst
	PunctKind
	EOF
)

func (k Kind) String() string {
	switch k {
	case Keyword:
		return "keyword"
	case Ident:
		return "identifier"
	case IntConst:
		return "integer-constant"
	case FloatConst:
		return "floating-constant"
	case CharConst:
		return "character-constant"
	case StringConst:
		return "string-literal"
	case PunctKind:
		return "punctuator"
	case EOF:
		return "eof"
	default:
		return "invalid"
	}
}

// KeywordID enumerates the C99 keyword set this subset recognizes.
type KeywordID int

const (
	KwNone KeywordID = iota
	KwAuto
	KwBreak
	KwCase
	KwChar
	KwConst
	KwContinue
	KwDefault
	KwDo
	KwDouble
	KwElse
	KwEnum
	KwExtern
	KwFloat
	KwFor
	KwGoto
	KwIf
	KwInline
	KwInt
	KwLong
	KwRegister
	KwRestrict
	KwReturn
	KwShort
	KwSigned
	KwSizeof
	KwStatic
	KwStruct
	KwSwitch
	KwTypedef
	KwUnion
	KwUnsigned
	KwVoid
	KwVolatile
	KwWhile
	KwBool
	KwComplex
	KwImaginary
)

// Punct enumerates the C99 punctuator set this subset recognizes.
type Punct int

const (
	PNone Punct = iota
	PLBracket
	PRBracket
	PLParen
	PRParen
	PLBrace
	PRBrace
	PDot
	PArrow
	PIncr
	PDecr
	PAmp
	PStar
	PPlus
	PMinus
	PTilde
	PBang
	PSlash
	PPercent
	PShl
	PShr
	PLt
	PGt
	PLe
	PGe
	PEq
	PNe
	PCaret
	PPipe
	PAmpAmp
	PPipePipe
	PQuestion
	PColon
	PSemi
	PEllipsis
	PAssign
	PMulAssign
	PDivAssign
	PModAssign
	PAddAssign
	PSubAssign
	PShlAssign
	PShrAssign
	PAndAssign
	PXorAssign
	POrAssign
	PComma
	PHash
	PHashHash
)

// Pos is a source position.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col) }

// Token is one lexical token, forward-linked into the sequence the
// parser consumes. Exactly one of the payload fields is meaningful,
// selected by Kind.
type Token struct {
	Kind Kind
	Pos  Pos

	Keyword KeywordID
	Ident   string

	// IntType/FloatType tag the C arithmetic type class a numeric
	// literal carries, fixed by its suffix and magnitude (C99
	// 6.4.4.1/6.4.4.2). Kept as a small string (e.g. "int", "unsigned
	// long") rather than a *types.Type so this leaf package has no
	// dependency on the type system. The parser does not read it: the
	// typing pass types an integer literal from its value alone.
	IntVal  uint64
	IntType string

	FloatVal  float64
	FloatType string // "float", "double", or "long double"

	CharVal rune
	Wide    bool // L'x' / L"x"

	StrVal []byte

	Punct Punct

	Next *Token // nil at the list's terminating EOF token
}

func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Keyword:
		return fmt.Sprintf("%s: keyword #%d", t.Pos, t.Keyword)
	case Ident:
		return fmt.Sprintf("%s: identifier %q", t.Pos, t.Ident)
	case IntConst:
		return fmt.Sprintf("%s: int-const %d (%s)", t.Pos, t.IntVal, t.IntType)
	case FloatConst:
		return fmt.Sprintf("%s: float-const %g (%s)", t.Pos, t.FloatVal, t.FloatType)
	case CharConst:
		return fmt.Sprintf("%s: char-const %q", t.Pos, t.CharVal)
	case StringConst:
		return fmt.Sprintf("%s: string-literal %q", t.Pos, string(t.StrVal))
	case PunctKind:
		return fmt.Sprintf("%s: punct #%d", t.Pos, t.Punct)
	case EOF:
		return fmt.Sprintf("%s: eof", t.Pos)
	default:
		return fmt.Sprintf("%s: invalid", t.Pos)
	}
}

// IsKeyword reports whether t is the given keyword.
func (t *Token) IsKeyword(kw KeywordID) bool { return t != nil && t.Kind == Keyword && t.Keyword == kw }

// IsPunct reports whether t is the given punctuator.
func (t *Token) IsPunct(p Punct) bool { return t != nil && t.Kind == PunctKind && t.Punct == p }
