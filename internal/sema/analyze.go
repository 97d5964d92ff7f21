package sema

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/consteval"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/types"
)

// analyzer is the constraints pass: it walks the fully typed tree
// checking the placement and uniqueness rules that only make sense
// once every declarator carries a type and every identifier a
// resolved symbol.
type analyzer struct {
	arena *ast.Arena
	syms  *symtab.Table
	bag   *diag.Bag
}

// Analyze runs the constraints pass over tu, reporting every violation
// it finds to bag. It never mutates the tree.
func Analyze(tu ast.Handle, arena *ast.Arena, syms *symtab.Table, bag *diag.Bag) {
	a := &analyzer{arena: arena, syms: syms, bag: bag}
	n := arena.Get(tu)
	for _, ext := range n.Children {
		a.checkExternalDecl(ext)
	}
}

func (a *analyzer) checkExternalDecl(h ast.Handle) {
	n := a.arena.Get(h)
	switch n.Kind {
	case ast.VarDecl:
		a.checkFileScopeStorage(n)
		a.checkInitializerSize(n)
	case ast.FuncDecl:
		a.checkInlineMain(n)
		a.checkLabels(h)
		a.walkStmtExprs(n.A)
	}
}

// checkFileScopeStorage diagnoses the two storage classes C99 6.7.1p2
// forbids on a file-scope declaration: auto and register.
func (a *analyzer) checkFileScopeStorage(n *ast.Node) {
	switch n.StorageClass {
	case ast.SCAuto, ast.SCRegister:
		a.bag.Add(diag.Error, posOf(n), "file-scope declaration of '%s' may not be '%s'", n.Name, storageClassName(n.StorageClass))
	}
}

func storageClassName(sc ast.StorageClass) string {
	switch sc {
	case ast.SCTypedef:
		return "typedef"
	case ast.SCExtern:
		return "extern"
	case ast.SCStatic:
		return "static"
	case ast.SCAuto:
		return "auto"
	case ast.SCRegister:
		return "register"
	default:
		return "none"
	}
}

// checkInlineMain diagnoses 'inline' on main, disallowed by C99
// 6.7.4p6 ("The function specifier may appear more than once; ...
// but main shall not be declared inline" as profiled for hosted
// implementations referencing 6.7.4p6's intent).
func (a *analyzer) checkInlineMain(n *ast.Node) {
	if n.Name == "main" && n.Type != nil && n.Type.FuncSpec != 0 {
		a.bag.Add(diag.Error, posOf(n), "'main' may not be declared 'inline'")
	}
}

// checkLabels collects every label defined in one function body and
// diagnoses every goto whose target is not among them, per C99
// 6.8.6.1p1's requirement that a goto's identifier name a label
// statement somewhere in the enclosing function.
func (a *analyzer) checkLabels(fn ast.Handle) {
	labels := map[string]bool{}
	a.collectLabels(fn, labels)
	a.checkGotos(fn, labels)
}

func (a *analyzer) collectLabels(h ast.Handle, labels map[string]bool) {
	n := a.arena.Get(h)
	if n == nil {
		return
	}
	if n.Kind == ast.LabelStmt {
		labels[n.Name] = true
	}
	a.forEachChild(n, func(c ast.Handle) { a.collectLabels(c, labels) })
}

func (a *analyzer) checkGotos(h ast.Handle, labels map[string]bool) {
	n := a.arena.Get(h)
	if n == nil {
		return
	}
	if n.Kind == ast.GotoStmt && !labels[n.Name] {
		a.bag.Add(diag.Error, posOf(n), "use of undeclared label '%s'", n.Name)
	}
	a.forEachChild(n, func(c ast.Handle) { a.checkGotos(c, labels) })
}

// forEachChild visits every statement/expression handle a node holds,
// via its fixed A/B/C/D slots plus its Children slice. Declarations
// (VarDecl's initializer) are included since labels and gotos may
// appear nested inside a for-loop's init-declaration in principle;
// VarDecl initializers themselves hold no statements so this is a
// harmless no-op for them either way.
func (a *analyzer) forEachChild(n *ast.Node, visit func(ast.Handle)) {
	if n == nil {
		return
	}
	for _, h := range []ast.Handle{n.A, n.B, n.C, n.D} {
		if h != ast.NoHandle {
			visit(h)
		}
	}
	for _, h := range n.Children {
		visit(h)
	}
}

// walkStmtExprs descends one function body checking every statement's
// embedded expressions for the lvalue, case-placement, and duplicate-
// case-value constraints, and descends into nested declarations'
// initializers for the same lvalue/size checks file-scope objects get.
func (a *analyzer) walkStmtExprs(h ast.Handle) {
	n := a.arena.Get(h)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.AssignExpr, ast.CompoundAssignExpr:
		a.checkModifiableLvalue(n.A)
	case ast.PreIncrDecrExpr, ast.PostIncrDecrExpr:
		a.checkModifiableLvalue(n.A)
	case ast.CaseStmt:
		a.checkCasePlacement(h, n)
	case ast.DefaultStmt:
		a.checkCasePlacement(h, n)
	case ast.SwitchStmt:
		a.checkDuplicateCases(h)
	case ast.VarDecl:
		a.checkInitializerSize(n)
	}
	a.forEachChild(n, a.walkStmtExprs)
}

// checkModifiableLvalue diagnoses an assignment/increment target that
// is not a modifiable lvalue per C99 6.3.2.1p1/6.5.16p2: not an
// lvalue-capable expression at all, const-qualified, an array, or an
// incomplete type.
func (a *analyzer) checkModifiableLvalue(h ast.Handle) {
	n := a.arena.Get(h)
	if n == nil {
		return
	}
	if !a.arena.IsLvalueExpr(h) {
		a.bag.Add(diag.Error, posOf(n), "expression is not assignable")
		return
	}
	t := n.Type
	if t == nil {
		return
	}
	switch {
	case t.Qual&types.QualConst != 0:
		a.bag.Add(diag.Error, posOf(n), "cannot assign to variable with const-qualified type '%s'", t.String())
	case t.Kind == types.Array:
		a.bag.Add(diag.Error, posOf(n), "array type '%s' is not assignable", t.String())
	case !t.IsComplete():
		a.bag.Add(diag.Error, posOf(n), "incomplete type '%s' is not assignable", t.String())
	}
}

// checkCasePlacement diagnoses a case or default label occurring
// outside any enclosing switch statement, per C99 6.8.4.2p1.
func (a *analyzer) checkCasePlacement(h ast.Handle, n *ast.Node) {
	if a.arena.EnclosingSwitch(h) == ast.NoHandle {
		kw := "default"
		if n.Kind == ast.CaseStmt {
			kw = "case"
		}
		a.bag.Add(diag.Error, posOf(n), "'%s' statement not in switch statement", kw)
	}
}

// checkDuplicateCases diagnoses two case labels of the same switch
// evaluating to the same constant, per C99 6.8.4.2p3. default is
// exempt from the uniqueness check (there can be only one by
// construction of this grammar, and it carries no value to compare).
func (a *analyzer) checkDuplicateCases(sw ast.Handle) {
	n := a.arena.Get(sw)
	seen := map[int64]bool{}
	var walk func(ast.Handle)
	walk = func(h ast.Handle) {
		cn := a.arena.Get(h)
		if cn == nil {
			return
		}
		if cn.Kind == ast.SwitchStmt && h != sw {
			return // nested switch owns its own case-value namespace
		}
		if cn.Kind == ast.CaseStmt {
			v := consteval.New(a.arena, a.syms, consteval.Integer).Eval(cn.A)
			if !v.Ok {
				a.bag.Add(diag.Error, posOf(cn), "case value is not a constant expression")
			} else if seen[v.Int] {
				a.bag.Add(diag.Error, posOf(cn), "duplicate case value '%d'", v.Int)
			} else {
				seen[v.Int] = true
			}
		}
		a.forEachChild(cn, walk)
	}
	walk(n.B)
}

// checkInitializerSize diagnoses a brace initializer naming more
// elements than its array has room for, per C99 6.7.8p2. An array of
// unspecified length takes its length from the initializer instead
// (6.7.8p22) and is never over-provisioned.
func (a *analyzer) checkInitializerSize(n *ast.Node) {
	if n.A == ast.NoHandle || n.Type == nil || n.Type.Kind != types.Array {
		return
	}
	a.checkArrayInitializerSize(n)
}

func (a *analyzer) checkArrayInitializerSize(n *ast.Node) {
	if n.Type.Len == nil {
		return
	}
	init := a.arena.Get(n.A)
	if init.Kind != ast.InitializerList {
		return
	}
	if int64(len(init.Children)) > *n.Type.Len {
		a.bag.Add(diag.Error, posOf(init), "excess elements in array initializer for '%s'", n.Name)
	}
}
