package air

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/types"
)

// Builder lowers one typed AST, routine by routine, following the
// expression-lowering rules for each AST node kind.
type Builder struct {
	arena   *ast.Arena
	symbols *symtab.Table
	fn      *Func

	// breakLabel and continueLabel map a loop or switch statement's
	// handle to the label its break/continue lowering jumps to, so an
	// enclosed break/continue can find it up the parent chain. Case
	// labels live in their own map: a break's parent chain passes
	// through the CaseStmt that owns it, and only loop/switch exits are
	// legal break targets.
	breakLabel    map[ast.Handle]string
	continueLabel map[ast.Handle]string
	caseLabels    map[ast.Handle]string
	labelSeq      int

	// strings interns every string literal lowered anywhere in the
	// translation unit, so the assembly writer can emit each one once
	// in .rodata. interned maps literal bytes to their label.
	strings  []StringConstant
	interned map[string]string
}

// NewBuilder creates a Builder over one translation unit's arena and
// symbol table.
func NewBuilder(arena *ast.Arena, symbols *symtab.Table) *Builder {
	return &Builder{
		arena:         arena,
		symbols:       symbols,
		breakLabel:    make(map[ast.Handle]string),
		continueLabel: make(map[ast.Handle]string),
		caseLabels:    make(map[ast.Handle]string),
		interned:      make(map[string]string),
	}
}

// StringConstants returns every string literal interned while lowering
// this translation unit, in first-use order.
func (b *Builder) StringConstants() []StringConstant { return b.strings }

// internString returns the .rodata label for a string literal's bytes,
// creating it on first use.
func (b *Builder) internString(bytes []byte) string {
	if l, ok := b.interned[string(bytes)]; ok {
		return l
	}
	l := ".Lstr" + itoa(len(b.strings))
	b.interned[string(bytes)] = l
	b.strings = append(b.strings, StringConstant{Label: l, Bytes: append([]byte{}, bytes...)})
	return l
}

func (b *Builder) freshLabel(prefix string) string {
	b.labelSeq++
	return prefixLabel(prefix, b.labelSeq)
}

func prefixLabel(prefix string, n int) string {
	return prefix + itoa(n)
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

// BuildFunction lowers one FuncDecl node into a Func.
func (b *Builder) BuildFunction(h ast.Handle) *Func {
	n := b.arena.Get(h)
	b.fn = NewFunc(n.Name)
	for _, param := range b.paramSymbols(n) {
		b.fn.Append(Instruction{Op: OpDeclare, Type: param.Type, Operands: []Operand{Sym(param)}})
		b.fn.NumParams++
	}
	b.lowerStmt(n.A)
	return b.fn
}

// paramSymbols returns the symbols the semantic analyzer attached to
// a function's parameter declarations. The analyzer stores them on
// FuncDecl.Children (one ParamDecl node per parameter, each carrying
// its resolved Sym) during typing.
func (b *Builder) paramSymbols(funcDecl *ast.Node) []*symtab.Symbol {
	params := make([]*symtab.Symbol, 0, len(funcDecl.Children))
	for _, ph := range funcDecl.Children {
		if n := b.arena.Get(ph); n != nil && n.Sym != nil {
			params = append(params, n.Sym)
		}
	}
	return params
}

func (b *Builder) emit(op Op, t *types.Type, operands ...Operand) InstrHandle {
	return b.fn.Append(Instruction{Op: op, Type: t, Operands: operands})
}

// attachAIRHead records, on the AST node, the first instruction its
// lowering produced: the node's attached IR head.
func (b *Builder) attachAIRHead(n *ast.Node, prevTail InstrHandle) {
	if n.AIRHead != nil {
		return
	}
	first := b.fn.Head()
	if prevTail != NoInstr {
		first = b.fn.Get(prevTail).Next
	}
	if first != NoInstr {
		n.AIRHead = first
	}
}

// lowerStmt lowers one statement, per the control-structure
// rules.
func (b *Builder) lowerStmt(h ast.Handle) {
	n := b.arena.Get(h)
	if n == nil {
		return
	}
	defer b.attachAIRHead(n, b.fn.Tail())
	switch n.Kind {
	case ast.CompoundStmt:
		for _, item := range n.Children {
			b.lowerStmt(item)
		}
	case ast.ExprStmt:
		if n.A != ast.NoHandle {
			b.lowerExpr(n.A)
		}
	case ast.VarDecl:
		sym := n.Sym
		b.emit(OpDeclare, n.Type, Sym(sym))
		if n.A != ast.NoHandle {
			b.lowerInitializer(sym, n.A)
		}
	case ast.IfStmt:
		b.lowerIf(n)
	case ast.WhileStmt:
		b.lowerWhile(h, n)
	case ast.DoWhileStmt:
		b.lowerDoWhile(h, n)
	case ast.ForStmt:
		b.lowerFor(h, n)
	case ast.SwitchStmt:
		b.lowerSwitch(h, n)
	case ast.CaseStmt:
		b.emit(OpLabel, nil, LabelOperand(b.caseLabel(h)))
		b.lowerStmt(n.B)
	case ast.DefaultStmt:
		b.emit(OpLabel, nil, LabelOperand(b.caseLabel(h)))
		b.lowerStmt(n.A)
	case ast.BreakStmt:
		target := b.enclosingBreakTarget(h)
		b.emit(OpJmp, nil, LabelOperand(target))
	case ast.ContinueStmt:
		target := b.enclosingContinueTarget(h)
		b.emit(OpJmp, nil, LabelOperand(target))
	case ast.ReturnStmt:
		if n.A != ast.NoHandle {
			reg := b.lowerExpr(n.A)
			b.emit(OpReturn, b.arena.Get(n.A).Type, Reg(reg))
		} else {
			b.emit(OpReturn, nil)
		}
	case ast.GotoStmt:
		b.emit(OpJmp, nil, LabelOperand(userLabel(n.Name)))
	case ast.LabelStmt:
		b.emit(OpLabel, nil, LabelOperand(userLabel(n.Name)))
	case ast.NullStmt:
		b.emit(OpNop, nil)
	}
}

func userLabel(name string) string { return "L_" + name }

func (b *Builder) caseLabel(h ast.Handle) string {
	if l, ok := b.caseLabels[h]; ok {
		return l
	}
	l := b.freshLabel(".Lcase")
	b.caseLabels[h] = l
	return l
}

func (b *Builder) enclosingBreakTarget(h ast.Handle) string {
	for cur := b.arena.Parent(h); cur != ast.NoHandle; cur = b.arena.Parent(cur) {
		if l, ok := b.breakLabel[cur]; ok {
			return l
		}
	}
	return ".Lunresolved"
}

func (b *Builder) enclosingContinueTarget(h ast.Handle) string {
	for cur := b.arena.Parent(h); cur != ast.NoHandle; cur = b.arena.Parent(cur) {
		if l, ok := b.continueLabel[cur]; ok {
			return l
		}
	}
	return ".Lunresolved"
}

func (b *Builder) lowerIf(n *ast.Node) {
	elseLabel := b.freshLabel(".Lelse")
	endLabel := b.freshLabel(".Lendif")
	cond := b.lowerExpr(n.A)
	if n.C != ast.NoHandle {
		b.emit(OpJz, nil, Reg(cond), LabelOperand(elseLabel))
		b.lowerStmt(n.B)
		b.emit(OpJmp, nil, LabelOperand(endLabel))
		b.emit(OpLabel, nil, LabelOperand(elseLabel))
		b.lowerStmt(n.C)
		b.emit(OpLabel, nil, LabelOperand(endLabel))
	} else {
		b.emit(OpJz, nil, Reg(cond), LabelOperand(endLabel))
		b.lowerStmt(n.B)
		b.emit(OpLabel, nil, LabelOperand(endLabel))
	}
}

// lowerWhile implements the "`while` omits the init" form
// of the canonical for-loop lowering.
func (b *Builder) lowerWhile(h ast.Handle, n *ast.Node) {
	condLabel := b.freshLabel(".Lwhilecond")
	bodyLabel := b.freshLabel(".Lwhilebody")
	endLabel := b.freshLabel(".Lwhileend")
	b.breakLabel[h] = endLabel
	b.continueLabel[h] = condLabel

	b.emit(OpJmp, nil, LabelOperand(condLabel))
	b.emit(OpLabel, nil, LabelOperand(bodyLabel))
	b.lowerStmt(n.B)
	b.emit(OpLabel, nil, LabelOperand(condLabel))
	cond := b.lowerExpr(n.A)
	b.emit(OpJnz, nil, Reg(cond), LabelOperand(bodyLabel))
	b.emit(OpLabel, nil, LabelOperand(endLabel))
}

// lowerDoWhile implements "`do … while` reorders": body runs once
// unconditionally before the test.
func (b *Builder) lowerDoWhile(h ast.Handle, n *ast.Node) {
	bodyLabel := b.freshLabel(".Ldobody")
	condLabel := b.freshLabel(".Ldocond")
	endLabel := b.freshLabel(".Ldoend")
	b.breakLabel[h] = endLabel
	b.continueLabel[h] = condLabel

	b.emit(OpLabel, nil, LabelOperand(bodyLabel))
	b.lowerStmt(n.A)
	b.emit(OpLabel, nil, LabelOperand(condLabel))
	cond := b.lowerExpr(n.B)
	b.emit(OpJnz, nil, Reg(cond), LabelOperand(bodyLabel))
	b.emit(OpLabel, nil, LabelOperand(endLabel))
}

// lowerFor implements the canonical form: "init; jmp cond;
// body_label: body; post; cond_label: cond; jnz body_label".
func (b *Builder) lowerFor(h ast.Handle, n *ast.Node) {
	bodyLabel := b.freshLabel(".Lforbody")
	condLabel := b.freshLabel(".Lforcond")
	postLabel := b.freshLabel(".Lforpost")
	endLabel := b.freshLabel(".Lforend")
	b.breakLabel[h] = endLabel
	b.continueLabel[h] = postLabel

	if n.A != ast.NoHandle {
		init := b.arena.Get(n.A)
		if init.Kind == ast.VarDecl {
			b.lowerStmt(n.A)
		} else {
			b.lowerExpr(n.A)
		}
	}
	b.emit(OpJmp, nil, LabelOperand(condLabel))
	b.emit(OpLabel, nil, LabelOperand(bodyLabel))
	b.lowerStmt(n.C)
	b.emit(OpLabel, nil, LabelOperand(postLabel))
	if n.D != ast.NoHandle {
		b.lowerExpr(n.D)
	}
	b.emit(OpLabel, nil, LabelOperand(condLabel))
	if n.B != ast.NoHandle {
		cond := b.lowerExpr(n.B)
		b.emit(OpJnz, nil, Reg(cond), LabelOperand(bodyLabel))
	} else {
		b.emit(OpJmp, nil, LabelOperand(bodyLabel))
	}
	b.emit(OpLabel, nil, LabelOperand(endLabel))
}

func (b *Builder) lowerSwitch(h ast.Handle, n *ast.Node) {
	endLabel := b.freshLabel(".Lswitchend")
	b.breakLabel[h] = endLabel
	tag := b.lowerExpr(n.A)

	// Dispatch compares the tag against each case value in source
	// order, jumping to the pre-assigned case label on a match; this
	// matches original_source's linear dispatch rather than a jump
	// table, since case values in this subset are not required to be
	// dense.
	var cases []ast.Handle
	var defaultCase ast.Handle
	collectCases(b.arena, n.B, &cases, &defaultCase)
	for _, c := range cases {
		cn := b.arena.Get(c)
		val := b.lowerExpr(cn.A)
		eq := b.fn.NewVReg()
		b.emit(OpCmpEq, types.Basic(types.Int), Reg(eq), Reg(tag), Reg(val))
		b.emit(OpJnz, nil, Reg(eq), LabelOperand(b.caseLabel(c)))
	}
	if defaultCase != ast.NoHandle {
		b.emit(OpJmp, nil, LabelOperand(b.caseLabel(defaultCase)))
	} else {
		b.emit(OpJmp, nil, LabelOperand(endLabel))
	}
	b.lowerStmt(n.B)
	b.emit(OpLabel, nil, LabelOperand(endLabel))
}

// collectCases walks a switch body looking for CaseStmt/DefaultStmt
// nodes reachable without descending into a nested switch.
func collectCases(arena *ast.Arena, h ast.Handle, cases *[]ast.Handle, def *ast.Handle) {
	n := arena.Get(h)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.SwitchStmt:
		return
	case ast.CaseStmt:
		*cases = append(*cases, h)
		collectCases(arena, n.B, cases, def)
		return
	case ast.DefaultStmt:
		*def = h
		collectCases(arena, n.A, cases, def)
		return
	}
	for _, c := range n.Children {
		collectCases(arena, c, cases, def)
	}
	for _, c := range []ast.Handle{n.A, n.B, n.C, n.D} {
		if c != ast.NoHandle {
			collectCases(arena, c, cases, def)
		}
	}
}

// lowerInitializer lowers a declaration's initializer for an
// automatic-duration object into a sequence of store-address
// instructions; static-duration objects instead populate the symbol's
// byte image during the semantic analyzer's constant folding and are
// not handled here.
func (b *Builder) lowerInitializer(sym *symtab.Symbol, h ast.Handle) {
	n := b.arena.Get(h)
	if n.Kind == ast.StringLiteral && sym.Type != nil && sym.Type.Kind == types.Array {
		// char s[] = "..." fills the local array byte by byte, including
		// the terminating NUL.
		charType := sym.Type.Of
		addr := b.fn.NewVReg()
		b.emit(OpLoadAddr, types.PointerTo(charType, types.QualNone), Reg(addr), Sym(sym))
		for i := 0; i <= len(n.StrVal); i++ {
			var c byte
			if i < len(n.StrVal) {
				c = n.StrVal[i]
			}
			b.emit(OpStoreAddr, charType, Indirect(addr, int64(i)), IntConst(int64(c)))
		}
		return
	}
	if n.Kind == ast.InitializerList {
		for i, elem := range n.Children {
			elemType := elementType(sym.Type, i)
			val := b.lowerExpr(elem)
			addr := b.fn.NewVReg()
			b.emit(OpLoadAddr, types.PointerTo(elemType, types.QualNone), Reg(addr), Sym(sym))
			b.emit(OpStoreAddr, elemType, Indirect(addr, initOffset(sym.Type, i, elemType)), Reg(val))
		}
		return
	}
	val := b.lowerExpr(h)
	addr := b.fn.NewVReg()
	b.emit(OpLoadAddr, types.PointerTo(sym.Type, types.QualNone), Reg(addr), Sym(sym))
	b.emit(OpStoreAddr, sym.Type, Indirect(addr, 0), Reg(val))
}

func elementType(aggregate *types.Type, index int) *types.Type {
	if aggregate.Kind == types.Array {
		return aggregate.Of
	}
	if aggregate.Kind == types.Struct && index < len(aggregate.Members) {
		return aggregate.Members[index].Type
	}
	return aggregate
}

// initOffset is the byte offset of the i-th initializer's target
// sub-object: index times element size for arrays, the laid-out member
// offset for structs (members vary in size and alignment padding).
func initOffset(aggregate *types.Type, index int, elemType *types.Type) int64 {
	if aggregate.Kind == types.Struct && index < len(aggregate.Members) {
		return aggregate.Members[index].Offset
	}
	return int64(index) * elemType.Size()
}
