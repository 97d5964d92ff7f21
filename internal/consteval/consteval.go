// Package consteval is the constant-expression evaluator: a pure
// function over AST handles that never mutates the tree and stores no
// result on the node, so repeat evaluations of the same handle agree.
//
// Three dialects share one recursive walk, distinguished by which
// leaf kinds and casts are admissible: Integer, Arithmetic (integer
// plus floating), and Address (for static-duration initializer
// relocations). The evaluator carries a struct-holding-Errors shape,
// generalized from a single untyped int64 constant domain to a tagged
// Value carrying a C type alongside its bits, so a caller can tell a
// successful result (plus its type) from a diagnostic.
package consteval

import (
	"fmt"

	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/types"
)

// Dialect selects which leaf/cast forms an evaluation admits.
type Dialect int

const (
	Integer Dialect = iota
	Arithmetic
	Address
)

// Value is the evaluator's tagged result: either a concrete constant
// (Int/Float populated per Type's class) or, for the Address dialect,
// a symbol plus byte offset. Ok is false when evaluation failed; in
// that case Diag carries the reason.
type Value struct {
	Type  *types.Type
	Int   int64
	Float float64

	// Sym/Offset are populated only by the Address dialect: the
	// statically-addressed lvalue and the compile-time byte offset
	// applied to it.
	Sym    *symtab.Symbol
	Offset int64

	Ok   bool
	Diag diag.Diagnostic
}

func fail(pos diag.Pos, format string, args ...any) Value {
	return Value{Diag: diag.Diagnostic{Severity: diag.Error, Pos: pos, Message: fmt.Sprintf(format, args...)}}
}

// Evaluated reports whether v represents a successful evaluation: a
// diagnostic-free result rather than one carrying a recorded error.
func (v Value) Evaluated() bool { return v.Ok }

// Evaluator evaluates constant expressions against one arena and
// symbol table. It is referentially transparent: calling Eval twice
// on the same handle returns equal values, since Eval stores nothing
// on the node or elsewhere between calls.
type Evaluator struct {
	Arena   *ast.Arena
	Symbols *symtab.Table
	Dialect Dialect
}

// New creates an Evaluator for the given dialect.
func New(arena *ast.Arena, symbols *symtab.Table, dialect Dialect) *Evaluator {
	return &Evaluator{Arena: arena, Symbols: symbols, Dialect: dialect}
}

// Eval evaluates the expression at h.
func (e *Evaluator) Eval(h ast.Handle) Value {
	n := e.Arena.Get(h)
	if n == nil {
		return fail(diag.Pos{}, "invalid expression")
	}
	pos := diag.Pos{File: n.Pos.File, Line: n.Pos.Line, Col: n.Pos.Col}

	switch n.Kind {
	case ast.IntLiteral:
		return Value{Ok: true, Type: types.Basic(types.Int), Int: int64(n.IntVal)}
	case ast.CharLiteral:
		return Value{Ok: true, Type: types.Basic(types.Char), Int: int64(n.CharVal)}
	case ast.FloatLiteral:
		if e.Dialect == Integer {
			return fail(pos, "floating constant not valid in an integer constant expression")
		}
		return Value{Ok: true, Type: types.Basic(types.Double), Float: n.FloatVal}
	case ast.IdentExpr:
		return e.evalIdent(n, pos)
	case ast.UnaryExpr:
		return e.evalUnary(n, pos)
	case ast.BinaryExpr:
		return e.evalBinary(n, pos)
	case ast.ConditionalExpr:
		return e.evalConditional(n)
	case ast.CastExpr:
		return e.evalCast(n, pos)
	case ast.SizeofTypeExpr:
		return e.evalSizeof(n.Type, pos)
	case ast.SizeofExprExpr:
		operand := e.Arena.Get(n.A)
		return e.evalSizeof(operand.Type, pos)
	case ast.IndexExpr, ast.MemberExpr:
		if e.Dialect == Address {
			return e.evalAddressCompound(n, pos)
		}
		return fail(pos, "not a constant expression")
	default:
		return fail(pos, "not a constant expression")
	}
}

func (e *Evaluator) evalIdent(n *ast.Node, pos diag.Pos) Value {
	if n.Sym == nil {
		return fail(pos, "use of undeclared identifier '%s'", n.Name)
	}
	// Enumeration constants carry their value pre-evaluated onto the
	// symbol; anything else (an ordinary variable) is a constant
	// expression only in Address dialect, and only as a static-duration
	// lvalue base (a file-scope array decaying to its address, or the
	// operand of unary &).
	if n.Sym.IsEnumConst {
		return Value{Ok: true, Type: types.Basic(types.Int), Int: n.Sym.EnumVal}
	}
	if e.Dialect == Address && n.Sym.Duration == symtab.Static {
		return Value{Ok: true, Type: n.Sym.Type, Sym: n.Sym}
	}
	return fail(pos, "'%s' is not a constant expression", n.Name)
}

func (e *Evaluator) evalSizeof(t *types.Type, pos diag.Pos) Value {
	sz := t.Size()
	if sz < 0 {
		return fail(pos, "sizeof applied to an incomplete type")
	}
	return Value{Ok: true, Type: types.Basic(types.ULong), Int: sz}
}

func (e *Evaluator) evalUnary(n *ast.Node, pos diag.Pos) Value {
	if n.UOp == ast.UnAddr && e.Dialect == Address {
		return e.evalAddressOf(n.A, pos)
	}
	v := e.Eval(n.A)
	if !v.Ok {
		return v
	}
	switch n.UOp {
	case ast.UnPlus:
		return v
	case ast.UnMinus:
		if v.Type.IsRealFloating() {
			v.Float = -v.Float
		} else {
			v.Int = -v.Int
		}
		return v
	case ast.UnBitNot:
		v.Int = ^v.Int
		return v
	case ast.UnLNot:
		r := Value{Ok: true, Type: types.Basic(types.Int)}
		if isZero(v) {
			r.Int = 1
		}
		return r
	default:
		return fail(pos, "operator not valid in a constant expression")
	}
}

func (e *Evaluator) evalAddressOf(operand ast.Handle, pos diag.Pos) Value {
	n := e.Arena.Get(operand)
	switch n.Kind {
	case ast.IdentExpr:
		if n.Sym == nil || n.Sym.Duration != symtab.Static {
			return fail(pos, "address of a non-static-duration object is not a constant expression")
		}
		return Value{Ok: true, Type: types.PointerTo(n.Sym.Type, types.QualNone), Sym: n.Sym}
	case ast.IndexExpr, ast.MemberExpr:
		return e.evalAddressCompound(n, pos)
	case ast.UnaryExpr:
		if n.UOp == ast.UnDeref {
			return e.Eval(n.A)
		}
	}
	return fail(pos, "operand of unary & is not a static-duration lvalue")
}

func (e *Evaluator) evalAddressCompound(n *ast.Node, pos diag.Pos) Value {
	switch n.Kind {
	case ast.IndexExpr:
		base := e.evalAddressOf(n.A, pos)
		if !base.Ok {
			base = e.Eval(n.A)
		}
		idx := e.Eval(n.B)
		if !base.Ok || !idx.Ok {
			return fail(pos, "array index is not a constant expression")
		}
		elemSize := base.Type.Of.Size()
		base.Offset += idx.Int * elemSize
		base.Type = base.Type.Of
		return base
	case ast.MemberExpr:
		base := e.evalAddressOf(n.A, pos)
		if !base.Ok {
			return base
		}
		for _, m := range base.Type.Members {
			if m.Name == n.Name {
				base.Offset += m.Offset
				base.Type = m.Type
				return base
			}
		}
		return fail(pos, "no member named '%s'", n.Name)
	}
	return fail(pos, "not a constant expression")
}

func isZero(v Value) bool {
	if v.Type != nil && v.Type.IsRealFloating() {
		return v.Float == 0
	}
	return v.Int == 0
}

func (e *Evaluator) evalBinary(n *ast.Node, pos diag.Pos) Value {
	// Short-circuit && and || before evaluating or even constraint-
	// checking the other operand, preserving this even for an
	// unreachable operand that would otherwise fail constraints.
	if n.Op == ast.OpLAnd {
		l := e.Eval(n.A)
		if !l.Ok {
			return l
		}
		if isZero(l) {
			return Value{Ok: true, Type: types.Basic(types.Int), Int: 0}
		}
		r := e.Eval(n.B)
		if !r.Ok {
			return r
		}
		result := Value{Ok: true, Type: types.Basic(types.Int)}
		if !isZero(r) {
			result.Int = 1
		}
		return result
	}
	if n.Op == ast.OpLOr {
		l := e.Eval(n.A)
		if !l.Ok {
			return l
		}
		if !isZero(l) {
			return Value{Ok: true, Type: types.Basic(types.Int), Int: 1}
		}
		r := e.Eval(n.B)
		if !r.Ok {
			return r
		}
		result := Value{Ok: true, Type: types.Basic(types.Int)}
		if !isZero(r) {
			result.Int = 1
		}
		return result
	}

	l := e.Eval(n.A)
	if !l.Ok {
		return l
	}
	r := e.Eval(n.B)
	if !r.Ok {
		return r
	}
	if e.Dialect == Arithmetic && (l.Type.IsRealFloating() || r.Type.IsRealFloating()) {
		return evalFloatBinary(n.Op, l, r, pos)
	}
	return evalIntBinary(n.Op, l, r, pos)
}

func evalIntBinary(op ast.BinOp, l, r Value, pos diag.Pos) Value {
	res := Value{Ok: true, Type: types.UsualArithmeticConversions(l.Type, r.Type)}
	a, b := l.Int, r.Int
	switch op {
	case ast.OpAdd:
		res.Int = a + b
	case ast.OpSub:
		res.Int = a - b
	case ast.OpMul:
		res.Int = a * b
	case ast.OpDiv:
		if b == 0 {
			return fail(pos, "division by zero in a constant expression")
		}
		res.Int = a / b
	case ast.OpMod:
		if b == 0 {
			return fail(pos, "division by zero in a constant expression")
		}
		res.Int = a % b
	case ast.OpBitAnd:
		res.Int = a & b
	case ast.OpBitOr:
		res.Int = a | b
	case ast.OpBitXor:
		res.Int = a ^ b
	case ast.OpShl:
		res.Int = a << uint(b)
	case ast.OpShr:
		res.Int = a >> uint(b)
	case ast.OpEq:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(a == b)
	case ast.OpNe:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(a != b)
	case ast.OpLt:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(a < b)
	case ast.OpGt:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(a > b)
	case ast.OpLe:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(a <= b)
	case ast.OpGe:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(a >= b)
	default:
		return fail(pos, "operator not valid in a constant expression")
	}
	return res
}

func evalFloatBinary(op ast.BinOp, l, r Value, pos diag.Pos) Value {
	res := Value{Ok: true, Type: types.UsualArithmeticConversions(l.Type, r.Type)}
	af, bf := asFloat(l), asFloat(r)
	switch op {
	case ast.OpAdd:
		res.Float = af + bf
	case ast.OpSub:
		res.Float = af - bf
	case ast.OpMul:
		res.Float = af * bf
	case ast.OpDiv:
		res.Float = af / bf
	case ast.OpEq:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(af == bf)
	case ast.OpNe:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(af != bf)
	case ast.OpLt:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(af < bf)
	case ast.OpGt:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(af > bf)
	case ast.OpLe:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(af <= bf)
	case ast.OpGe:
		res.Type = types.Basic(types.Int)
		res.Int = boolInt(af >= bf)
	default:
		return fail(pos, "operator not valid for floating operands in a constant expression")
	}
	return res
}

func asFloat(v Value) float64 {
	if v.Type.IsRealFloating() {
		return v.Float
	}
	return float64(v.Int)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (e *Evaluator) evalConditional(n *ast.Node) Value {
	cond := e.Eval(n.A)
	if !cond.Ok {
		return cond
	}
	if isZero(cond) {
		return e.Eval(n.C)
	}
	return e.Eval(n.B)
}

// evalCast implements "Convert-in-place operations reinterpret the
// stored bits under the destination class using integer promotions /
// floating conversions / integer<->floating truncation exactly as the
// target CPU would at run time" .
func (e *Evaluator) evalCast(n *ast.Node, pos diag.Pos) Value {
	if n.Type.Kind == types.Pointer {
		if e.Dialect != Address {
			return fail(pos, "pointer cast not valid in this constant-expression dialect")
		}
		v := e.Eval(n.A)
		if !v.Ok {
			return v
		}
		v.Type = n.Type
		return v
	}
	v := e.Eval(n.A)
	if !v.Ok {
		return v
	}
	return convert(v, n.Type)
}

func convert(v Value, to *types.Type) Value {
	out := Value{Ok: true, Type: to}
	switch {
	case to.IsRealFloating():
		if v.Type.IsRealFloating() {
			out.Float = v.Float
		} else {
			out.Float = float64(v.Int)
		}
	case to.IsInteger():
		var bits int64
		if v.Type.IsRealFloating() {
			bits = int64(v.Float)
		} else {
			bits = v.Int
		}
		out.Int = truncate(bits, to)
	default:
		out = v
		out.Type = to
	}
	return out
}

// truncate reinterprets bits under to's width/signedness, matching
// two's-complement truncation/sign-extension on x86-64.
func truncate(bits int64, to *types.Type) int64 {
	width := to.Size() * 8
	if width <= 0 || width >= 64 {
		return bits
	}
	mask := int64(1)<<uint(width) - 1
	v := bits & mask
	if to.IsSigned() && v&(int64(1)<<uint(width-1)) != 0 {
		v -= int64(1) << uint(width)
	}
	return v
}
