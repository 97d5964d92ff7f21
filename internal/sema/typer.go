package sema

import (
	"math"

	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/consteval"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/types"
)

// typer carries the state one translation unit's typing pass needs:
// the arena and bag every pass shares, the symbol table being
// populated, and the running stack-frame layout of whichever function
// is currently being typed.
type typer struct {
	arena *ast.Arena
	syms  *symtab.Table
	bag   *diag.Bag

	curOffset   int64
	frameSizes  map[string]int64
}

func newTyper(arena *ast.Arena, syms *symtab.Table, bag *diag.Bag) *typer {
	return &typer{arena: arena, syms: syms, bag: bag, frameSizes: map[string]int64{}}
}

func (t *typer) typeTranslationUnit(tu ast.Handle) {
	n := t.arena.Get(tu)
	for _, ext := range n.Children {
		t.typeExternalDecl(ext)
	}
}

func (t *typer) typeExternalDecl(h ast.Handle) {
	n := t.arena.Get(h)
	switch n.Kind {
	case ast.FuncDecl:
		t.typeFunction(h, n)
	case ast.VarDecl:
		t.typeVarDecl(h, n)
	}
}

// declare inserts sym into the current scope, reporting a conflicting-
// types diagnostic when a prior declaration in the same scope and
// namespace used an incompatible type. This is the one constraint
// check this pass makes itself rather than deferring to Analyze: only
// the typing pass still has the live scope stack a prior declaration
// in the same block was visible in.
func (t *typer) declare(sym *symtab.Symbol, posNode *ast.Node) {
	prior := t.syms.Declare(sym)
	if prior != nil && !types.Compatible(prior.Type, sym.Type) {
		t.bag.Add(diag.Error, posOf(posNode), "conflicting types for '%s'", sym.Name)
	}
}

func (t *typer) typeFunction(h ast.Handle, n *ast.Node) {
	sym := &symtab.Symbol{Name: n.Name, NS: symtab.Ordinary(), Type: n.Type, Decl: n, Linkage: symtab.External}
	if n.StorageClass == ast.SCStatic {
		sym.Linkage = symtab.Internal
	}
	t.declare(sym, n)
	n.Sym = sym

	t.curOffset = 0
	t.syms.PushScope()
	for _, ph := range n.Children {
		pn := t.arena.Get(ph)
		psym := &symtab.Symbol{Name: pn.Name, NS: symtab.Ordinary(), Type: pn.Type, Decl: pn, Duration: symtab.Automatic}
		if pn.Name != "" {
			t.declare(psym, pn)
		}
		t.assignFrameSlot(psym)
		pn.Sym = psym
	}
	t.typeStmt(n.A)
	t.syms.PopScope()
	t.frameSizes[n.Name] = -t.curOffset
}

// typeStmt types the expressions embedded in one statement and
// recurses into its substatements, opening/closing a symbol-table
// scope for every compound statement and for-loop header.
func (t *typer) typeStmt(h ast.Handle) {
	n := t.arena.Get(h)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.CompoundStmt:
		t.syms.PushScope()
		for _, item := range n.Children {
			t.typeBlockItem(item)
		}
		t.syms.PopScope()
	case ast.IfStmt:
		t.typeExpr(n.A)
		t.typeStmt(n.B)
		if n.C != ast.NoHandle {
			t.typeStmt(n.C)
		}
	case ast.WhileStmt:
		t.typeExpr(n.A)
		t.typeStmt(n.B)
	case ast.DoWhileStmt:
		t.typeStmt(n.A)
		t.typeExpr(n.B)
	case ast.ForStmt:
		t.syms.PushScope()
		if n.A != ast.NoHandle {
			t.typeBlockItem(n.A)
		}
		if n.B != ast.NoHandle {
			t.typeExpr(n.B)
		}
		if n.D != ast.NoHandle {
			t.typeExpr(n.D)
		}
		t.typeStmt(n.C)
		t.syms.PopScope()
	case ast.SwitchStmt:
		t.typeExpr(n.A)
		t.typeStmt(n.B)
	case ast.CaseStmt:
		t.typeExpr(n.A)
		t.typeStmt(n.B)
	case ast.DefaultStmt:
		t.typeStmt(n.A)
	case ast.ReturnStmt:
		if n.A != ast.NoHandle {
			t.typeExpr(n.A)
		}
	case ast.ExprStmt:
		if n.A != ast.NoHandle {
			t.typeExpr(n.A)
		}
	case ast.VarDecl, ast.TypedefDecl:
		t.typeBlockItem(h)
	}
}

func (t *typer) typeBlockItem(h ast.Handle) {
	n := t.arena.Get(h)
	if n == nil {
		return
	}
	if n.Kind == ast.VarDecl {
		t.typeVarDecl(h, n)
		return
	}
	if n.Kind == ast.TypedefDecl {
		return // already fully typed by the parser
	}
	t.typeStmt(h)
}

func (t *typer) typeVarDecl(h ast.Handle, n *ast.Node) {
	t.completeArrayFromInit(n)
	sym := &symtab.Symbol{Name: n.Name, NS: symtab.Ordinary(), Type: n.Type, Decl: n}
	switch {
	case n.StorageClass == ast.SCExtern:
		sym = t.syms.DeclareExternAlias(sym)
	case n.StorageClass == ast.SCStatic:
		sym.Duration = symtab.Static
		if t.syms.AtFileScope() {
			sym.Linkage = symtab.Internal
		}
		t.nameStatic(sym)
		t.declare(sym, n)
	case t.syms.AtFileScope():
		sym.Linkage = symtab.External
		sym.Duration = symtab.Static
		t.declare(sym, n)
	default:
		sym.Duration = symtab.Automatic
		t.declare(sym, n)
		t.assignFrameSlot(sym)
	}
	n.Sym = sym

	if n.A == ast.NoHandle {
		return
	}
	if t.arena.Get(n.A).Kind == ast.InitializerList {
		t.typeInitializerList(n.A, n.Type)
	} else {
		t.typeExpr(n.A)
	}
	if sym.Duration == symtab.Static {
		t.materializeStaticInit(sym, n.A, n.Type)
	}
}

// completeArrayFromInit fills in an unspecified array length from the
// declaration's initializer, per C99 6.7.8p22: a brace list supplies
// one element per initializer, a string literal supplies its length
// plus the terminating NUL.
func (t *typer) completeArrayFromInit(n *ast.Node) {
	if n.Type == nil || n.Type.Kind != types.Array || n.Type.Len != nil || n.A == ast.NoHandle {
		return
	}
	init := t.arena.Get(n.A)
	var length int64
	switch init.Kind {
	case ast.InitializerList:
		length = int64(len(init.Children))
	case ast.StringLiteral:
		length = int64(len(init.StrVal)) + 1
	default:
		return
	}
	n.Type = types.ArrayOf(n.Type.Of, &length)
}

// nameStatic assigns a disambiguated assembly name to a static-
// duration symbol without external linkage: a block-scope `static`
// local is otherwise indistinguishable, at the assembly level, from
// a same-named local in a sibling function.
func (t *typer) nameStatic(sym *symtab.Symbol) {
	sym.Disambiguator = t.syms.NextDisambiguator()
	sym.AsmName = disambiguatedName(sym.Name, sym.Disambiguator)
}

func disambiguatedName(name string, n int) string {
	return name + "." + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (t *typer) assignFrameSlot(sym *symtab.Symbol) {
	sz := sym.Type.Size()
	al := sym.Type.Alignment()
	if sz <= 0 {
		sz = 8
	}
	if al <= 0 {
		al = 8
	}
	magnitude := -t.curOffset + sz
	magnitude = alignUp(magnitude, al)
	t.curOffset = -magnitude
	sym.FrameOffset = t.curOffset
}

func alignUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}

func (t *typer) typeInitializerList(h ast.Handle, target *types.Type) {
	n := t.arena.Get(h)
	for i, elem := range n.Children {
		et := elementType(target, i)
		if t.arena.Get(elem).Kind == ast.InitializerList {
			t.typeInitializerList(elem, et)
		} else {
			t.typeExpr(elem)
		}
	}
}

func elementType(aggregate *types.Type, index int) *types.Type {
	if aggregate == nil {
		return nil
	}
	if aggregate.Kind == types.Array {
		return aggregate.Of
	}
	if aggregate.Kind == types.Struct && index < len(aggregate.Members) {
		return aggregate.Members[index].Type
	}
	return aggregate
}

// materializeStaticInit folds a static-duration object's initializer
// into its byte image (and relocation list, for address-valued
// initializers) via internal/consteval's Address dialect, the same
// authority the case-label and array-length constant checks use.
// Non-constant initializers are left unfilled and are not diagnosed.
func (t *typer) materializeStaticInit(sym *symtab.Symbol, h ast.Handle, target *types.Type) {
	n := t.arena.Get(h)
	if n.Kind == ast.StringLiteral && target != nil && target.Kind == types.Array {
		sym.Init = append([]byte{}, n.StrVal...)
		sym.Init = append(sym.Init, 0)
		return
	}
	if n.Kind == ast.InitializerList {
		for i, elem := range n.Children {
			et := elementType(target, i)
			if et == nil || et.Size() <= 0 {
				continue
			}
			offset := int64(i) * et.Size()
			if target.Kind == types.Struct && i < len(target.Members) {
				offset = target.Members[i].Offset
			}
			t.writeScalarInit(sym, elem, et, offset)
		}
		return
	}
	if target == nil || target.Size() <= 0 {
		return
	}
	t.writeScalarInit(sym, h, target, 0)
}

func (t *typer) writeScalarInit(sym *symtab.Symbol, h ast.Handle, target *types.Type, offset int64) {
	ev := consteval.New(t.arena, t.syms, consteval.Address)
	v := ev.Eval(h)
	if !v.Ok {
		return
	}
	sz := target.Size()
	for int64(len(sym.Init)) < offset+sz {
		sym.Init = append(sym.Init, 0)
	}
	if v.Sym != nil {
		sym.Relocs = append(sym.Relocs, symtab.Reloc{Offset: offset, Target: v.Sym, Addend: v.Offset})
		return
	}
	bits := v.Int
	if target.IsRealFloating() {
		if sz == 4 {
			bits = int64(math.Float32bits(float32(v.Float)))
		} else {
			bits = int64(math.Float64bits(v.Float))
		}
	}
	for i := int64(0); i < sz; i++ {
		sym.Init[offset+i] = byte(bits >> (8 * uint(i)))
	}
}

// typeExpr attaches a type to h and every expression it contains,
// returning the type it assigned.
func (t *typer) typeExpr(h ast.Handle) *types.Type {
	n := t.arena.Get(h)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.IntLiteral:
		n.Type = intLiteralType(n.IntVal)
	case ast.FloatLiteral:
		n.Type = types.Basic(types.Double)
	case ast.CharLiteral:
		n.Type = types.Basic(types.Char)
	case ast.StringLiteral:
		length := int64(len(n.StrVal)) + 1
		n.Type = types.ArrayOf(types.Basic(types.Char), &length)
	case ast.IdentExpr:
		t.typeIdent(n)
	case ast.BinaryExpr:
		t.typeBinary(n)
	case ast.UnaryExpr:
		t.typeUnary(n)
	case ast.PreIncrDecrExpr, ast.PostIncrDecrExpr:
		n.Type = t.typeExpr(n.A)
	case ast.AssignExpr:
		t.typeExpr(n.A)
		t.typeExpr(n.B)
		n.Type = t.arena.Get(n.A).Type
	case ast.CompoundAssignExpr:
		t.typeExpr(n.A)
		t.typeExpr(n.B)
		n.Type = t.arena.Get(n.A).Type
	case ast.ConditionalExpr:
		t.typeConditional(n)
	case ast.CastExpr:
		t.typeExpr(n.A) // n.Type is already the cast's target type
	case ast.CallExpr:
		t.typeCall(n)
	case ast.IndexExpr:
		t.typeIndex(n)
	case ast.MemberExpr:
		t.typeMember(n)
	case ast.CommaExpr:
		t.typeExpr(n.A)
		n.Type = t.typeExpr(n.B)
	case ast.SizeofExprExpr:
		operandType := t.typeExpr(n.A)
		t.foldSizeof(n, operandType)
	case ast.SizeofTypeExpr:
		t.foldSizeof(n, n.Type)
	case ast.CompoundLiteralExpr:
		t.typeInitializerList(n.A, n.Type)
	}
	return n.Type
}

func intLiteralType(v uint64) *types.Type {
	switch {
	case v <= math.MaxInt32:
		return types.Basic(types.Int)
	case v <= math.MaxInt64:
		return types.Basic(types.Long)
	default:
		return types.Basic(types.ULong)
	}
}

func (t *typer) typeIdent(n *ast.Node) {
	sym := t.syms.Lookup(n.Name, symtab.Ordinary())
	if sym == nil {
		t.bag.Add(diag.Error, posOf(n), "use of undeclared identifier '%s'", n.Name)
		n.Type = types.Basic(types.Error)
		return
	}
	n.Sym = sym
	n.Type = sym.Type
}

// foldSizeof reduces a sizeof expression to the integer-constant
// expression it always is in this subset (no variable-length
// arrays): the size is computed once, here, and the node is rewritten
// in place into the IntLiteral it is equivalent to, so every later
// pass (constant folding for array lengths, AIR lowering) sees a
// plain literal rather than special-casing two more expression kinds.
func (t *typer) foldSizeof(n *ast.Node, operandType *types.Type) {
	if operandType == nil || !operandType.IsComplete() {
		t.bag.Add(diag.Error, posOf(n), "invalid application of 'sizeof' to an incomplete type")
		n.Type = types.Basic(types.ULong)
		return
	}
	sz := operandType.Size()
	n.Kind = ast.IntLiteral
	n.IntVal = uint64(sz)
	n.Type = types.Basic(types.ULong)
}

func decay(ty *types.Type) *types.Type {
	if ty == nil {
		return ty
	}
	switch ty.Kind {
	case types.Array:
		return types.PointerTo(ty.Of, types.QualNone)
	case types.Function:
		return types.PointerTo(ty, types.QualNone)
	}
	return ty
}

func (t *typer) typeBinary(n *ast.Node) {
	lt := t.typeExpr(n.A)
	rt := t.typeExpr(n.B)
	switch n.Op {
	case ast.OpLAnd, ast.OpLOr, ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		n.Type = types.Basic(types.Int)
	case ast.OpAdd, ast.OpSub:
		n.Type = pointerArithType(n.Op, lt, rt)
	default:
		n.Type = types.UsualArithmeticConversions(decay(lt), decay(rt))
	}
}

func pointerArithType(op ast.BinOp, lt, rt *types.Type) *types.Type {
	ld, rd := decay(lt), decay(rt)
	switch {
	case ld.IsPointer() && rd.IsInteger():
		return ld
	case op == ast.OpAdd && ld.IsInteger() && rd.IsPointer():
		return rd
	case op == ast.OpSub && ld.IsPointer() && rd.IsPointer():
		return types.Basic(types.Long)
	default:
		return types.UsualArithmeticConversions(ld, rd)
	}
}

func (t *typer) typeUnary(n *ast.Node) {
	switch n.UOp {
	case ast.UnAddr:
		at := t.typeExpr(n.A) // no decay: address-of suppresses array/function decay
		n.Type = types.PointerTo(at, types.QualNone)
	case ast.UnDeref:
		at := decay(t.typeExpr(n.A))
		if at != nil && at.IsPointer() {
			n.Type = at.Of
		} else {
			t.bag.Add(diag.Error, posOf(n), "indirection requires a pointer operand")
			n.Type = types.Basic(types.Error)
		}
	case ast.UnLNot:
		t.typeExpr(n.A)
		n.Type = types.Basic(types.Int)
	default: // UnPlus, UnMinus, UnBitNot
		at := t.typeExpr(n.A)
		if at != nil && at.IsRealFloating() {
			n.Type = at
		} else {
			n.Type = types.IntegerPromotion(decay(at))
		}
	}
}

func (t *typer) typeConditional(n *ast.Node) {
	t.typeExpr(n.A)
	bt := t.typeExpr(n.B)
	ct := t.typeExpr(n.C)
	switch {
	case bt.IsArithmetic() && ct.IsArithmetic():
		n.Type = types.UsualArithmeticConversions(bt, ct)
	case bt.IsPointer() && ct.IsPointer():
		n.Type = types.Composite(bt, ct)
	case bt.IsPointer() && t.isNullConstant(n.C):
		n.Type = bt
	case ct.IsPointer() && t.isNullConstant(n.B):
		n.Type = ct
	default:
		n.Type = bt
	}
}

func (t *typer) isNullConstant(h ast.Handle) bool {
	n := t.arena.Get(h)
	if n == nil || n.Type == nil || !n.Type.IsNullPointerConstantType() {
		return false
	}
	v := consteval.New(t.arena, t.syms, consteval.Integer).Eval(h)
	return v.Ok && v.Int == 0
}

func (t *typer) typeCall(n *ast.Node) {
	ct := decay(t.typeExpr(n.A))
	for _, a := range n.Children {
		t.typeExpr(a)
	}
	if ct != nil && ct.IsPointer() && ct.Of != nil && ct.Of.IsFunction() {
		ct = ct.Of
	}
	if ct != nil && ct.IsFunction() {
		n.Type = ct.Of
		return
	}
	t.bag.Add(diag.Error, posOf(n), "called object is not a function")
	n.Type = types.Basic(types.Error)
}

func (t *typer) typeIndex(n *ast.Node) {
	at := decay(t.typeExpr(n.A))
	t.typeExpr(n.B)
	if at != nil && at.IsPointer() {
		n.Type = at.Of
		return
	}
	t.bag.Add(diag.Error, posOf(n), "subscripted value is not an array or pointer")
	n.Type = types.Basic(types.Error)
}

func (t *typer) typeMember(n *ast.Node) {
	ot := t.typeExpr(n.A)
	target := ot
	if n.IsArrow {
		if ot == nil || !ot.IsPointer() {
			t.bag.Add(diag.Error, posOf(n), "member reference type is not a pointer")
			n.Type = types.Basic(types.Error)
			return
		}
		target = ot.Of
	}
	if target == nil || (target.Kind != types.Struct && target.Kind != types.Union) {
		t.bag.Add(diag.Error, posOf(n), "member reference base type is not a struct or union")
		n.Type = types.Basic(types.Error)
		return
	}
	for i := range target.Members {
		m := &target.Members[i]
		if m.Name == n.Name {
			n.Type = m.Type
			return
		}
	}
	t.bag.Add(diag.Error, posOf(n), "no member named '%s' in '%s'", n.Name, target.String())
	n.Type = types.Basic(types.Error)
}
