package sema

import (
	"strings"
	"testing"

	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
	"github.com/gmofishsauce/cc99/internal/types"
)

// buildTree gives each test a fresh arena, symbol table, and
// diagnostic bag, standing in for the parser output Run normally
// consumes: these tests build the tree by hand the way the typing and
// constraint passes actually see it, post-parse.
func buildTree() (*ast.Arena, *symtab.Table, *diag.Bag) {
	return ast.NewArena(), symtab.New(), &diag.Bag{}
}

func intType() *types.Type { return types.Basic(types.Int) }

// newFunc allocates a FuncDecl node named name with an empty body,
// returning its handle and the body CompoundStmt's handle for callers
// to append statements to.
func newFunc(arena *ast.Arena, name string) (ast.Handle, ast.Handle) {
	fh := arena.New(ast.FuncDecl, token.Pos{})
	fn := arena.Get(fh)
	fn.Name = name
	fn.Type = intType()
	body := arena.New(ast.CompoundStmt, token.Pos{})
	arena.SetParent(body, fh)
	fn.A = body
	return fh, body
}

func addVarDecl(arena *ast.Arena, body ast.Handle, name string) ast.Handle {
	n := arena.New(ast.VarDecl, token.Pos{})
	decl := arena.Get(n)
	decl.Name = name
	decl.Type = intType()
	arena.SetParent(n, body)
	b := arena.Get(body)
	b.Children = append(b.Children, n)
	return n
}

func addIdentExpr(arena *ast.Arena, name string) ast.Handle {
	n := arena.New(ast.IdentExpr, token.Pos{})
	arena.Get(n).Name = name
	return n
}

func TestRunAssignsAutomaticFrameLayout(t *testing.T) {
	arena, syms, bag := buildTree()
	fh, body := newFunc(arena, "f")
	addVarDecl(arena, body, "x")
	addVarDecl(arena, body, "y")

	ret := arena.New(ast.ReturnStmt, token.Pos{})
	sum := arena.New(ast.BinaryExpr, token.Pos{})
	sn := arena.Get(sum)
	sn.Op = ast.OpAdd
	sn.A = addIdentExpr(arena, "x")
	sn.B = addIdentExpr(arena, "y")
	arena.Get(ret).A = sum
	arena.Get(body).Children = append(arena.Get(body).Children, ret)

	tu := arena.New(ast.TranslationUnit, token.Pos{})
	arena.Get(tu).Children = []ast.Handle{fh}

	frameSizes := Run(tu, arena, syms, bag)

	if bag.HasErrors() {
		t.Fatalf("Run() reported unexpected errors: %+v", bag.All())
	}
	if got, want := frameSizes["f"], int64(8); got != want {
		t.Errorf("frameSizes[\"f\"] = %d, want %d", got, want)
	}
	if got := arena.Get(sum).Type; got == nil || got.Kind != types.Int {
		t.Errorf("x + y type = %v, want int", got)
	}
}

func TestRunReportsUseOfUndeclaredIdentifier(t *testing.T) {
	arena, syms, bag := buildTree()
	fh, body := newFunc(arena, "f")
	ret := arena.New(ast.ReturnStmt, token.Pos{})
	arena.Get(ret).A = addIdentExpr(arena, "nope")
	arena.Get(body).Children = append(arena.Get(body).Children, ret)

	tu := arena.New(ast.TranslationUnit, token.Pos{})
	arena.Get(tu).Children = []ast.Handle{fh}

	Run(tu, arena, syms, bag)

	if !bag.HasErrors() {
		t.Fatal("Run() did not report the undeclared identifier")
	}
}

func TestAnalyzeDetectsUndeclaredLabelGoto(t *testing.T) {
	arena, syms, bag := buildTree()
	fh, body := newFunc(arena, "f")
	gt := arena.New(ast.GotoStmt, token.Pos{})
	arena.Get(gt).Name = "missing"
	arena.Get(body).Children = append(arena.Get(body).Children, gt)

	tu := arena.New(ast.TranslationUnit, token.Pos{})
	arena.Get(tu).Children = []ast.Handle{fh}

	Run(tu, arena, syms, bag)

	found := false
	for _, d := range bag.All() {
		if d.Severity == diag.Error {
			found = true
		}
	}
	if !found {
		t.Fatal("Run() did not report the goto to an undeclared label")
	}
}

func TestAnalyzeDetectsDuplicateCaseValues(t *testing.T) {
	arena, syms, bag := buildTree()
	fh, body := newFunc(arena, "f")

	tag := arena.New(ast.IntLiteral, token.Pos{})
	arena.Get(tag).IntVal = 0
	arena.Get(tag).Type = intType()

	swBody := arena.New(ast.CompoundStmt, token.Pos{})

	mkCase := func(v uint64) ast.Handle {
		c := arena.New(ast.CaseStmt, token.Pos{})
		cv := arena.New(ast.IntLiteral, token.Pos{})
		arena.Get(cv).IntVal = v
		arena.Get(cv).Type = intType()
		arena.SetParent(cv, c)
		cn := arena.Get(c)
		cn.A = cv
		stmt := arena.New(ast.NullStmt, token.Pos{})
		arena.SetParent(stmt, c)
		cn.B = stmt
		arena.SetParent(c, swBody)
		return c
	}
	case1 := mkCase(1)
	case1Dup := mkCase(1)
	arena.Get(swBody).Children = []ast.Handle{case1, case1Dup}

	sw := arena.New(ast.SwitchStmt, token.Pos{})
	swn := arena.Get(sw)
	swn.A = tag
	swn.B = swBody
	arena.SetParent(tag, sw)
	arena.SetParent(swBody, sw)
	arena.SetParent(sw, body)
	arena.Get(body).Children = append(arena.Get(body).Children, sw)

	tu := arena.New(ast.TranslationUnit, token.Pos{})
	arena.Get(tu).Children = []ast.Handle{fh}

	Run(tu, arena, syms, bag)

	found := false
	for _, d := range bag.All() {
		if d.Severity == diag.Error && strings.Contains(d.Message, "duplicate") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Run() did not report the duplicate case value, diagnostics: %+v", bag.All())
	}
}

func TestCheckFileScopeStorageRejectsAutoAndRegister(t *testing.T) {
	arena, syms, bag := buildTree()

	autoDecl := arena.New(ast.VarDecl, token.Pos{})
	an := arena.Get(autoDecl)
	an.Name, an.Type, an.StorageClass = "a", intType(), ast.SCAuto

	tu := arena.New(ast.TranslationUnit, token.Pos{})
	arena.Get(tu).Children = []ast.Handle{autoDecl}

	Run(tu, arena, syms, bag)

	if !bag.HasErrors() {
		t.Fatal("Run() did not reject a file-scope 'auto' declaration")
	}
}
