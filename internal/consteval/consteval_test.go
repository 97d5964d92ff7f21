package consteval

import (
	"testing"

	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
	"github.com/gmofishsauce/cc99/internal/types"
)

func intLit(arena *ast.Arena, v uint64) ast.Handle {
	h := arena.New(ast.IntLiteral, token.Pos{})
	n := arena.Get(h)
	n.IntVal = v
	n.Type = types.Basic(types.Int)
	return h
}

func binary(arena *ast.Arena, op ast.BinOp, a, b ast.Handle) ast.Handle {
	h := arena.New(ast.BinaryExpr, token.Pos{})
	n := arena.Get(h)
	n.Op, n.A, n.B = op, a, b
	return h
}

func unary(arena *ast.Arena, op ast.UnOp, a ast.Handle) ast.Handle {
	h := arena.New(ast.UnaryExpr, token.Pos{})
	n := arena.Get(h)
	n.UOp, n.A = op, a
	return h
}

func TestEvalIntegerArithmetic(t *testing.T) {
	arena := ast.NewArena()
	e := New(arena, symtab.New(), Integer)

	// (2 + 3) * 4 == 20
	expr := binary(arena, ast.OpMul, binary(arena, ast.OpAdd, intLit(arena, 2), intLit(arena, 3)), intLit(arena, 4))

	v := e.Eval(expr)
	if !v.Ok {
		t.Fatalf("Eval() failed: %+v", v.Diag)
	}
	if v.Int != 20 {
		t.Errorf("Eval((2+3)*4) = %d, want 20", v.Int)
	}
}

func TestEvalUnaryMinusAndLogicalNot(t *testing.T) {
	arena := ast.NewArena()
	e := New(arena, symtab.New(), Integer)

	neg := e.Eval(unary(arena, ast.UnMinus, intLit(arena, 7)))
	if !neg.Ok || neg.Int != -7 {
		t.Errorf("Eval(-7) = %+v, want Int -7", neg)
	}

	not := e.Eval(unary(arena, ast.UnLNot, intLit(arena, 0)))
	if !not.Ok || not.Int != 1 {
		t.Errorf("Eval(!0) = %+v, want Int 1", not)
	}
	notNonzero := e.Eval(unary(arena, ast.UnLNot, intLit(arena, 5)))
	if !notNonzero.Ok || notNonzero.Int != 0 {
		t.Errorf("Eval(!5) = %+v, want Int 0", notNonzero)
	}
}

func TestEvalFloatingConstantRejectedInIntegerDialect(t *testing.T) {
	arena := ast.NewArena()
	e := New(arena, symtab.New(), Integer)

	h := arena.New(ast.FloatLiteral, token.Pos{})
	arena.Get(h).FloatVal = 1.5

	v := e.Eval(h)
	if v.Ok {
		t.Fatal("a floating constant should be rejected in the Integer dialect")
	}
}

func TestEvalFloatingConstantAcceptedInArithmeticDialect(t *testing.T) {
	arena := ast.NewArena()
	e := New(arena, symtab.New(), Arithmetic)

	h := arena.New(ast.FloatLiteral, token.Pos{})
	arena.Get(h).FloatVal = 1.5

	v := e.Eval(h)
	if !v.Ok || v.Float != 1.5 {
		t.Errorf("Eval(1.5) in Arithmetic dialect = %+v, want Float 1.5", v)
	}
}

func TestEvalUndeclaredIdentifierFails(t *testing.T) {
	arena := ast.NewArena()
	e := New(arena, symtab.New(), Integer)

	h := arena.New(ast.IdentExpr, token.Pos{})
	arena.Get(h).Name = "nope"

	v := e.Eval(h)
	if v.Ok {
		t.Fatal("evaluating an identifier with no resolved symbol should fail")
	}
	if v.Diag.Message == "" {
		t.Error("a failed Eval() should carry a diagnostic message")
	}
}
