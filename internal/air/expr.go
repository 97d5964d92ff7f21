package air

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/types"
)

var binOpMap = map[ast.BinOp]Op{
	ast.OpAdd:    OpAdd,
	ast.OpSub:    OpSub,
	ast.OpMul:    OpMul,
	ast.OpDiv:    OpDiv,
	ast.OpMod:    OpMod,
	ast.OpBitAnd: OpBitAnd,
	ast.OpBitOr:  OpBitOr,
	ast.OpBitXor: OpBitXor,
	ast.OpShl:    OpShl,
	ast.OpShr:    OpShr,
	ast.OpEq:     OpCmpEq,
	ast.OpNe:     OpCmpNe,
	ast.OpLt:     OpCmpLt,
	ast.OpGt:     OpCmpGt,
	ast.OpLe:     OpCmpLe,
	ast.OpGe:     OpCmpGe,
}

// lowerExpr lowers an expression to a virtual register holding its
// rvalue.
func (b *Builder) lowerExpr(h ast.Handle) VReg {
	n := b.arena.Get(h)
	defer b.attachAIRHead(n, b.fn.Tail())
	switch n.Kind {
	case ast.IntLiteral:
		r := b.fn.NewVReg()
		b.emit(OpAssign, n.Type, Reg(r), IntConst(int64(n.IntVal)))
		return r
	case ast.FloatLiteral:
		r := b.fn.NewVReg()
		b.emit(OpAssign, n.Type, Reg(r), FloatConst(n.FloatVal))
		return r
	case ast.CharLiteral:
		r := b.fn.NewVReg()
		b.emit(OpAssign, n.Type, Reg(r), IntConst(int64(n.CharVal)))
		return r
	case ast.StringLiteral:
		r := b.fn.NewVReg()
		label := b.internString(n.StrVal)
		b.emit(OpLoadAddr, n.Type, Reg(r), Operand{Kind: OperandIndirectSymbol, Label: label})
		return r
	case ast.IdentExpr:
		return b.lowerIdent(h, n)
	case ast.BinaryExpr:
		return b.lowerBinary(n)
	case ast.UnaryExpr:
		return b.lowerUnary(h, n)
	case ast.PreIncrDecrExpr, ast.PostIncrDecrExpr:
		return b.lowerIncrDecr(n)
	case ast.AssignExpr:
		return b.lowerAssign(n)
	case ast.CompoundAssignExpr:
		return b.lowerCompoundAssign(n)
	case ast.ConditionalExpr:
		return b.lowerConditionalExpr(n)
	case ast.CastExpr:
		return b.lowerCast(n)
	case ast.CallExpr:
		return b.lowerCall(n)
	case ast.IndexExpr:
		return b.lowerLoadFromAddr(h, n, b.lowerIndexAddr(n))
	case ast.MemberExpr:
		return b.lowerLoadFromAddr(h, n, b.lowerMemberAddr(n))
	case ast.CommaExpr:
		b.lowerExpr(n.A)
		return b.lowerExpr(n.B)
	case ast.SizeofTypeExpr, ast.SizeofExprExpr:
		// Folded to a constant by the semantic analyzer's constant-
		// expression pass; if it reaches the builder unfolded, materialize
		// the already-attached type's size.
		r := b.fn.NewVReg()
		sz := int64(0)
		if n.Type != nil {
			sz = n.Type.Size()
		}
		b.emit(OpAssign, types.Basic(types.ULong), Reg(r), IntConst(sz))
		return r
	default:
		r := b.fn.NewVReg()
		b.emit(OpNop, n.Type, Reg(r))
		return r
	}
}

// lowerIdent implements the identifier-lowering rule:
// "Identifiers designating objects lower to either `load` (rvalue
// context) or `load-addr` (lvalue context)."
func (b *Builder) lowerIdent(h ast.Handle, n *ast.Node) VReg {
	r := b.fn.NewVReg()
	if n.Sym != nil && n.Sym.IsEnumConst {
		// An enumeration constant designates no object; it is its value.
		b.emit(OpAssign, n.Type, Reg(r), IntConst(n.Sym.EnumVal))
		return r
	}
	if b.arena.IsLvalueContext(h) {
		b.emit(OpLoadAddr, types.PointerTo(n.Type, types.QualNone), Reg(r), Sym(n.Sym))
	} else {
		b.emit(OpLoad, n.Type, Reg(r), Sym(n.Sym))
	}
	return r
}

// lowerBinary implements "Binary operators lower to the matching AIR
// opcode. Equality/relational opcodes are typed by their operand
// type, not their result."
func (b *Builder) lowerBinary(n *ast.Node) VReg {
	if n.Op == ast.OpLAnd || n.Op == ast.OpLOr {
		return b.lowerShortCircuit(n)
	}
	l := b.lowerExpr(n.A)
	r := b.lowerExpr(n.B)
	op := binOpMap[n.Op]
	opType := b.arena.Get(n.A).Type
	dest := b.fn.NewVReg()
	b.emit(op, opType, Reg(dest), Reg(l), Reg(r))
	return dest
}

// lowerShortCircuit lowers && and || to branches rather than
// unconditional dyadic evaluation, matching C's observable
// short-circuit semantics (and consteval's mirrored behavior).
func (b *Builder) lowerShortCircuit(n *ast.Node) VReg {
	result := b.fn.NewVReg()
	rhsLabel := b.freshLabel(".Lscrhs")
	endLabel := b.freshLabel(".Lscend")
	l := b.lowerExpr(n.A)
	if n.Op == ast.OpLAnd {
		b.emit(OpJz, nil, Reg(l), LabelOperand(endLabelFalse(endLabel)))
	} else {
		b.emit(OpJnz, nil, Reg(l), LabelOperand(endLabelTrue(endLabel)))
	}
	b.emit(OpJmp, nil, LabelOperand(rhsLabel))
	b.emit(OpLabel, nil, LabelOperand(rhsLabel))
	r := b.lowerExpr(n.B)
	zero := b.fn.NewVReg()
	b.emit(OpAssign, types.Basic(types.Int), Reg(zero), IntConst(0))
	cmp := b.fn.NewVReg()
	b.emit(OpCmpNe, b.arena.Get(n.B).Type, Reg(cmp), Reg(r), Reg(zero))
	b.emit(OpAssign, types.Basic(types.Int), Reg(result), Reg(cmp))
	b.emit(OpJmp, nil, LabelOperand(endLabel))
	b.emit(OpLabel, nil, LabelOperand(endLabelFalse(endLabel)))
	b.emit(OpAssign, types.Basic(types.Int), Reg(result), IntConst(0))
	b.emit(OpJmp, nil, LabelOperand(endLabel))
	b.emit(OpLabel, nil, LabelOperand(endLabelTrue(endLabel)))
	b.emit(OpAssign, types.Basic(types.Int), Reg(result), IntConst(1))
	b.emit(OpLabel, nil, LabelOperand(endLabel))
	return result
}

func endLabelFalse(l string) string { return l + "_f" }
func endLabelTrue(l string) string  { return l + "_t" }

var unOpMap = map[ast.UnOp]Op{
	ast.UnMinus:  OpNeg,
	ast.UnBitNot: OpBitNot,
	ast.UnLNot:   OpLNot,
}

func (b *Builder) lowerUnary(h ast.Handle, n *ast.Node) VReg {
	switch n.UOp {
	case ast.UnAddr:
		return b.lowerAddrOf(n.A)
	case ast.UnDeref:
		ptr := b.lowerExpr(n.A)
		r := b.fn.NewVReg()
		if b.arena.IsLvalueContext(h) {
			b.emit(OpAssign, n.Type, Reg(r), Reg(ptr))
		} else {
			b.emit(OpLoad, n.Type, Reg(r), Indirect(ptr, 0))
		}
		return r
	case ast.UnPlus:
		return b.lowerExpr(n.A)
	default:
		operand := b.lowerExpr(n.A)
		dest := b.fn.NewVReg()
		b.emit(unOpMap[n.UOp], n.Type, Reg(dest), Reg(operand))
		return dest
	}
}

// lowerAddrOf produces the address of an lvalue operand without first
// loading its value, per the {address-of} lvalue-context rule.
func (b *Builder) lowerAddrOf(operand ast.Handle) VReg {
	n := b.arena.Get(operand)
	switch n.Kind {
	case ast.IdentExpr:
		r := b.fn.NewVReg()
		b.emit(OpLoadAddr, types.PointerTo(n.Type, types.QualNone), Reg(r), Sym(n.Sym))
		return r
	case ast.IndexExpr:
		return b.lowerIndexAddr(n)
	case ast.MemberExpr:
		return b.lowerMemberAddr(n)
	case ast.UnaryExpr:
		if n.UOp == ast.UnDeref {
			return b.lowerExpr(n.A)
		}
	}
	return b.lowerExpr(operand)
}

func (b *Builder) lowerIndexAddr(n *ast.Node) VReg {
	arrayAddr := b.lowerAddrOf(n.A)
	idx := b.lowerExpr(n.B)
	elemType := b.arena.Get(n.A).Type.Of
	addr := b.fn.NewVReg()
	b.emit(OpAdd, types.PointerTo(elemType, types.QualNone), Reg(addr), Reg(arrayAddr),
		scaledIndexOperand(idx, elemType.Size()))
	return addr
}

func scaledIndexOperand(idx VReg, scale int64) Operand {
	return Operand{Kind: OperandIndirect, Index: idx, Scale: int(scale)}
}

func (b *Builder) lowerMemberAddr(n *ast.Node) VReg {
	var base VReg
	objType := b.arena.Get(n.A).Type
	if n.IsArrow {
		base = b.lowerExpr(n.A)
	} else {
		base = b.lowerAddrOf(n.A)
	}
	offset := int64(0)
	target := objType
	if n.IsArrow {
		target = target.Of
	}
	for _, m := range target.Members {
		if m.Name == n.Name {
			offset = m.Offset
			break
		}
	}
	addr := b.fn.NewVReg()
	b.emit(OpAdd, types.PointerTo(n.Type, types.QualNone), Reg(addr), Reg(base), IntConst(offset))
	return addr
}

func (b *Builder) lowerLoadFromAddr(h ast.Handle, n *ast.Node, addr VReg) VReg {
	if b.arena.IsLvalueContext(h) {
		return addr
	}
	r := b.fn.NewVReg()
	b.emit(OpLoad, n.Type, Reg(r), Indirect(addr, 0))
	return r
}

func (b *Builder) lowerIncrDecr(n *ast.Node) VReg {
	addr := b.lowerAddrOf(n.A)
	opType := b.arena.Get(n.A).Type
	old := b.fn.NewVReg()
	b.emit(OpLoad, opType, Reg(old), Indirect(addr, 0))
	delta := int64(1)
	if n.UOp == ast.UnPreDecr || n.UOp == ast.UnPostDecr {
		delta = -1
	}
	updated := b.fn.NewVReg()
	b.emit(OpAdd, opType, Reg(updated), Reg(old), IntConst(delta))
	b.emit(OpStoreAddr, opType, Indirect(addr, 0), Reg(updated))
	if n.UOp == ast.UnPreIncr || n.UOp == ast.UnPreDecr {
		return updated
	}
	return old
}

// lowerAssign implements "Assignment lowers right-to-left: first the
// rhs expression, then the lhs address, then a typed cast if
// necessary to the lhs type, then a `store-address`."
func (b *Builder) lowerAssign(n *ast.Node) VReg {
	rhsType := b.arena.Get(n.B).Type
	rhs := b.lowerExpr(n.B)
	lhsAddr := b.lowerAddrOf(n.A)
	lhsType := n.Type
	val := b.coerce(rhs, rhsType, lhsType)
	b.emit(OpStoreAddr, lhsType, Indirect(lhsAddr, 0), Reg(val))
	return val
}

func (b *Builder) lowerCompoundAssign(n *ast.Node) VReg {
	lhsAddr := b.lowerAddrOf(n.A)
	lhsType := n.Type
	old := b.fn.NewVReg()
	b.emit(OpLoad, lhsType, Reg(old), Indirect(lhsAddr, 0))
	rhs := b.lowerExpr(n.B)
	op := binOpMap[n.Op]
	updated := b.fn.NewVReg()
	b.emit(op, lhsType, Reg(updated), Reg(old), Reg(rhs))
	b.emit(OpStoreAddr, lhsType, Indirect(lhsAddr, 0), Reg(updated))
	return updated
}

// coerce inserts the appropriate conversion opcode between two
// arithmetic types, or returns v unchanged when from and to denote
// the same representation.
func (b *Builder) coerce(v VReg, from, to *types.Type) VReg {
	if from == nil || to == nil || types.Compatible(from.Unqualified(), to.Unqualified()) {
		return v
	}
	op, ok := conversionOp(from, to)
	if !ok {
		return v
	}
	r := b.fn.NewVReg()
	h := b.emit(op, to, Reg(r), Reg(v))
	b.fn.Get(h).SrcType = from
	return r
}

func conversionOp(from, to *types.Type) (Op, bool) {
	switch {
	case from.IsInteger() && to.IsInteger():
		if to.Size() > from.Size() {
			if from.IsSigned() {
				return OpSExt, true
			}
			return OpZExt, true
		}
		if to.Size() < from.Size() {
			return OpTrunc, true
		}
		return OpInvalid, false
	case from.IsRealFloating() && to.IsRealFloating():
		if to.Size() > from.Size() {
			return OpS2D, true
		}
		if to.Size() < from.Size() {
			return OpD2S, true
		}
		return OpInvalid, false
	case from.IsInteger() && to.IsRealFloating():
		if from.IsSigned() {
			return OpSI2S, true
		}
		return OpUI2S, true
	case from.IsRealFloating() && to.IsInteger():
		if to.IsSigned() {
			return OpS2SI, true
		}
		return OpS2UI, true
	}
	return OpInvalid, false
}

func (b *Builder) lowerConditionalExpr(n *ast.Node) VReg {
	elseLabel := b.freshLabel(".Lcondelse")
	endLabel := b.freshLabel(".Lcondend")
	result := b.fn.NewVReg()
	cond := b.lowerExpr(n.A)
	b.emit(OpJz, nil, Reg(cond), LabelOperand(elseLabel))
	then := b.lowerExpr(n.B)
	b.emit(OpAssign, n.Type, Reg(result), Reg(then))
	b.emit(OpJmp, nil, LabelOperand(endLabel))
	b.emit(OpLabel, nil, LabelOperand(elseLabel))
	els := b.lowerExpr(n.C)
	b.emit(OpAssign, n.Type, Reg(result), Reg(els))
	b.emit(OpLabel, nil, LabelOperand(endLabel))
	return result
}

func (b *Builder) lowerCast(n *ast.Node) VReg {
	from := b.arena.Get(n.A).Type
	v := b.lowerExpr(n.A)
	return b.coerce(v, from, n.Type)
}

// lowerCall implements the call-lowering rule: arguments in
// reverse order, then the callee, then `func-call` with operand 0 the
// result register, operand 1 the callee, operands 2..n the argument
// registers; prototyped parameters get coerced, variadic positions get
// default argument promotions.
func (b *Builder) lowerCall(n *ast.Node) VReg {
	calleeType := b.arena.Get(n.A).Type
	var protoParams []*types.Type
	variadic := true
	if calleeType != nil && calleeType.Kind == types.Function {
		protoParams = calleeType.Params
		variadic = calleeType.Variadic
		if len(protoParams) == 0 {
			variadic = true
		}
	}

	argRegs := make([]VReg, len(n.Children))
	argTypes := make([]*types.Type, len(n.Children))
	for i := len(n.Children) - 1; i >= 0; i-- {
		argType := b.arena.Get(n.Children[i]).Type
		v := b.lowerExpr(n.Children[i])
		finalType := argType
		if i < len(protoParams) {
			v = b.coerce(v, argType, protoParams[i])
			finalType = protoParams[i]
		} else if variadic {
			promoted := types.DefaultArgumentPromotion(argType)
			v = b.coerce(v, argType, promoted)
			finalType = promoted
		}
		argRegs[i] = v
		argTypes[i] = finalType
	}

	// A call through a plain function designator becomes a direct call
	// on the symbol; anything else (a function pointer expression) is
	// lowered to a register and called indirectly.
	var calleeOp Operand
	calleeNode := b.arena.Get(n.A)
	if calleeNode.Kind == ast.IdentExpr && calleeNode.Sym != nil &&
		calleeNode.Type != nil && calleeNode.Type.IsFunction() {
		calleeOp = Sym(calleeNode.Sym)
	} else {
		calleeOp = Reg(b.lowerExpr(n.A))
	}

	result := b.fn.NewVReg()
	operands := []Operand{Reg(result), calleeOp}
	for _, a := range argRegs {
		operands = append(operands, Reg(a))
	}
	h := b.emit(OpFuncCall, n.Type, operands...)
	b.fn.Get(h).ArgTypes = argTypes
	return result
}
