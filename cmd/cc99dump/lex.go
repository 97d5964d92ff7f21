package main

// lex is a small hand-written scanner that turns a .c source file into
// the token.Token list internal/token documents as its consumed input.
// The core pipeline treats lexing as an external collaborator (spec.md
// §1's lexer Non-goal); this file exists only so the dump harness can
// be pointed at a real source file instead of a hand-built token
// fixture, in the same peek/advance/bufio.Reader style as the
// teacher's own per-stage lexer main.

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gmofishsauce/cc99/internal/token"
)

var keywords = map[string]token.KeywordID{
	"auto": token.KwAuto, "break": token.KwBreak, "case": token.KwCase,
	"char": token.KwChar, "const": token.KwConst, "continue": token.KwContinue,
	"default": token.KwDefault, "do": token.KwDo, "double": token.KwDouble,
	"else": token.KwElse, "enum": token.KwEnum, "extern": token.KwExtern,
	"float": token.KwFloat, "for": token.KwFor, "goto": token.KwGoto,
	"if": token.KwIf, "inline": token.KwInline, "int": token.KwInt,
	"long": token.KwLong, "register": token.KwRegister, "restrict": token.KwRestrict,
	"return": token.KwReturn, "short": token.KwShort, "signed": token.KwSigned,
	"sizeof": token.KwSizeof, "static": token.KwStatic, "struct": token.KwStruct,
	"switch": token.KwSwitch, "typedef": token.KwTypedef, "union": token.KwUnion,
	"unsigned": token.KwUnsigned, "void": token.KwVoid, "volatile": token.KwVolatile,
	"while": token.KwWhile, "_Bool": token.KwBool, "_Complex": token.KwComplex,
	"_Imaginary": token.KwImaginary,
}

// puncts is tried longest-match-first; entries of equal length keep
// their relative declaration order, so multi-char forms are listed
// before any single-char prefix they share.
var puncts = []struct {
	text string
	id   token.Punct
}{
	{"...", token.PEllipsis},
	{"<<=", token.PShlAssign}, {">>=", token.PShrAssign},
	{"->", token.PArrow}, {"++", token.PIncr}, {"--", token.PDecr},
	{"<<", token.PShl}, {">>", token.PShr}, {"<=", token.PLe}, {">=", token.PGe},
	{"==", token.PEq}, {"!=", token.PNe}, {"&&", token.PAmpAmp}, {"||", token.PPipePipe},
	{"*=", token.PMulAssign}, {"/=", token.PDivAssign}, {"%=", token.PModAssign},
	{"+=", token.PAddAssign}, {"-=", token.PSubAssign},
	{"&=", token.PAndAssign}, {"^=", token.PXorAssign}, {"|=", token.POrAssign},
	{"##", token.PHashHash},
	{"[", token.PLBracket}, {"]", token.PRBracket},
	{"(", token.PLParen}, {")", token.PRParen},
	{"{", token.PLBrace}, {"}", token.PRBrace},
	{".", token.PDot}, {"&", token.PAmp}, {"*", token.PStar}, {"+", token.PPlus},
	{"-", token.PMinus}, {"~", token.PTilde}, {"!", token.PBang}, {"/", token.PSlash},
	{"%", token.PPercent}, {"<", token.PLt}, {">", token.PGt}, {"^", token.PCaret},
	{"|", token.PPipe}, {"?", token.PQuestion}, {":", token.PColon}, {";", token.PSemi},
	{"=", token.PAssign}, {",", token.PComma}, {"#", token.PHash},
}

type lexer struct {
	r    *bufio.Reader
	file string
	line int
	col  int
}

func newLexer(r io.Reader, file string) *lexer {
	return &lexer{r: bufio.NewReader(r), file: file, line: 1, col: 1}
}

func (l *lexer) peekByte() byte {
	b, err := l.r.Peek(1)
	if err != nil {
		return 0
	}
	return b[0]
}

func (l *lexer) peekAt(n int) byte {
	b, err := l.r.Peek(n + 1)
	if err != nil || len(b) <= n {
		return 0
	}
	return b[n]
}

func (l *lexer) advance() byte {
	ch, err := l.r.ReadByte()
	if err != nil {
		return 0
	}
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *lexer) pos() token.Pos { return token.Pos{File: l.file, Line: l.line, Col: l.col} }

func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
func isDigit(ch byte) bool    { return ch >= '0' && ch <= '9' }
func isHexDigit(ch byte) bool { return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') }

func (l *lexer) skipTrivia() {
	for {
		ch := l.peekByte()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.peekByte() != '\n' && l.peekByte() != 0 {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for !(l.peekByte() == '*' && l.peekAt(1) == '/') && l.peekByte() != 0 {
				l.advance()
			}
			if l.peekByte() != 0 {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) scanIdent() string {
	var b strings.Builder
	for isLetter(l.peekByte()) || isDigit(l.peekByte()) {
		b.WriteByte(l.advance())
	}
	return b.String()
}

func (l *lexer) scanNumber() (intVal uint64, floatVal float64, isFloat bool, intType, floatType string) {
	var b strings.Builder
	base := 10
	if l.peekByte() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		base = 16
		b.WriteByte(l.advance())
		b.WriteByte(l.advance())
		for isHexDigit(l.peekByte()) {
			b.WriteByte(l.advance())
		}
	} else {
		for isDigit(l.peekByte()) {
			b.WriteByte(l.advance())
		}
		if l.peekByte() == '.' || l.peekByte() == 'e' || l.peekByte() == 'E' {
			isFloat = true
			if l.peekByte() == '.' {
				b.WriteByte(l.advance())
				for isDigit(l.peekByte()) {
					b.WriteByte(l.advance())
				}
			}
			if l.peekByte() == 'e' || l.peekByte() == 'E' {
				b.WriteByte(l.advance())
				if l.peekByte() == '+' || l.peekByte() == '-' {
					b.WriteByte(l.advance())
				}
				for isDigit(l.peekByte()) {
					b.WriteByte(l.advance())
				}
			}
		}
	}
	if isFloat {
		floatType = "double"
		if l.peekByte() == 'f' || l.peekByte() == 'F' {
			l.advance()
			floatType = "float"
		} else if l.peekByte() == 'l' || l.peekByte() == 'L' {
			l.advance()
			floatType = "long double"
		}
		fmt.Sscanf(b.String(), "%g", &floatVal)
		return 0, floatVal, true, "", floatType
	}
	unsigned, long := false, 0
	for {
		switch l.peekByte() {
		case 'u', 'U':
			unsigned = true
			l.advance()
			continue
		case 'l', 'L':
			long++
			l.advance()
			continue
		}
		break
	}
	v, _ := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(b.String(), "0x"), "0X"), base, 64)
	switch {
	case unsigned && long > 0:
		intType = "unsigned long"
	case long > 0:
		intType = "long"
	case unsigned:
		intType = "unsigned int"
	default:
		intType = "int"
	}
	return v, 0, false, intType, ""
}

func (l *lexer) scanEscape() rune {
	l.advance() // backslash
	ch := l.advance()
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case 'a':
		return '\a'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	case 'v':
		return '\v'
	case '\\', '\'', '"':
		return rune(ch)
	case 'x':
		var v rune
		for isHexDigit(l.peekByte()) {
			d := l.advance()
			v = v*16 + hexDigitVal(d)
		}
		return v
	default:
		return rune(ch)
	}
}

func hexDigitVal(ch byte) rune {
	switch {
	case ch >= '0' && ch <= '9':
		return rune(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return rune(ch-'a') + 10
	default:
		return rune(ch-'A') + 10
	}
}

func (l *lexer) scanChar() rune {
	l.advance() // opening '
	var v rune
	if l.peekByte() == '\\' {
		v = l.scanEscape()
	} else {
		v = rune(l.advance())
	}
	if l.peekByte() == '\'' {
		l.advance()
	}
	return v
}

func (l *lexer) scanString() []byte {
	l.advance() // opening "
	var b []byte
	for l.peekByte() != '"' && l.peekByte() != 0 {
		if l.peekByte() == '\\' {
			b = append(b, byte(l.scanEscape()))
		} else {
			b = append(b, l.advance())
		}
	}
	if l.peekByte() == '"' {
		l.advance()
	}
	return b
}

// Lex reads every token out of r and returns the head of the forward-
// linked list internal/token.Scanner expects, terminated by an EOF
// token.
func Lex(r io.Reader, file string) *token.Token {
	l := newLexer(r, file)
	head := &token.Token{}
	tail := head
	push := func(t *token.Token) {
		tail.Next = t
		tail = t
	}

	for {
		l.skipTrivia()
		pos := l.pos()
		ch := l.peekByte()
		if ch == 0 {
			push(&token.Token{Kind: token.EOF, Pos: pos})
			break
		}
		switch {
		case isLetter(ch):
			name := l.scanIdent()
			if kw, ok := keywords[name]; ok {
				push(&token.Token{Kind: token.Keyword, Pos: pos, Keyword: kw})
			} else {
				push(&token.Token{Kind: token.Ident, Pos: pos, Ident: name})
			}
		case isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))):
			iv, fv, isFloat, itype, ftype := l.scanNumber()
			if isFloat {
				push(&token.Token{Kind: token.FloatConst, Pos: pos, FloatVal: fv, FloatType: ftype})
			} else {
				push(&token.Token{Kind: token.IntConst, Pos: pos, IntVal: iv, IntType: itype})
			}
		case ch == '\'':
			push(&token.Token{Kind: token.CharConst, Pos: pos, CharVal: l.scanChar()})
		case ch == '"':
			push(&token.Token{Kind: token.StringConst, Pos: pos, StrVal: l.scanString()})
		default:
			matched := false
			for _, p := range puncts {
				if l.hasPrefix(p.text) {
					for range p.text {
						l.advance()
					}
					push(&token.Token{Kind: token.PunctKind, Pos: pos, Punct: p.id})
					matched = true
					break
				}
			}
			if !matched {
				l.advance() // skip an unrecognized byte rather than hang
			}
		}
	}
	return head.Next
}

func (l *lexer) hasPrefix(s string) bool {
	for i := 0; i < len(s); i++ {
		if l.peekAt(i) != s[i] {
			return false
		}
	}
	return true
}
