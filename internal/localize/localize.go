// Package localize rewrites generic AIR into x86-64-SysV-shaped AIR:
// every instruction afterward has a direct x86-64 encoding, so the
// register allocator and instruction selector never need ABI
// knowledge of their own. Call argument/return classification,
// two-operand arithmetic rewriting, the div/mod RDX:RAX dance,
// shift-into-CL, and the floating-point sign-mask idiom for negation
// are all handled here, operating on an internal/air.Func in place.
package localize

import (
	"math"
	"strconv"

	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/types"
	"github.com/gmofishsauce/cc99/internal/xreg"
)

// IntArgRegs is the SysV integer argument register order.
var IntArgRegs = xreg.IntArgRegs

// SSEArgRegs is the SysV SSE argument register order.
var SSEArgRegs = xreg.SSEArgRegs

const (
	rax  = xreg.RAX
	rcx  = xreg.RCX
	rdx  = xreg.RDX
	xmm0 = xreg.XMM0
)

// sseSignMaskLabel32/sseSignMaskLabel64 name the .rodata constants
// localizeNeg emits on first use.
const sseSignMaskLabel32 = ".Lsignmask32"
const sseSignMaskLabel64 = ".Lsignmask64"

// RodataConstant is one constant the localizer needed to emit a
// localized instruction (e.g. a floating-point negation sign mask).
type RodataConstant struct {
	Label string
	Bytes []byte
	Align int64
}

// Localize rewrites fn in place for the x86-64 SysV target, returning
// any .rodata constants the rewrite introduced. Running it on already-
// localized AIR is a no-op for every instruction already carrying the
// Localized mark, which localizeParams and localizeOne set on each
// instruction they rewrite.
func Localize(fn *air.Func) []RodataConstant {
	l := &localizer{fn: fn, seenMask: map[string]bool{}}
	l.localizeParams()
	var handles []air.InstrHandle
	fn.Walk(func(h air.InstrHandle, _ *air.Instruction) { handles = append(handles, h) })
	for _, h := range handles {
		l.hoistFloatConsts(h)
		l.localizeOne(h)
	}
	return l.rodata
}

type localizer struct {
	fn       *air.Func
	rodata   []RodataConstant
	seenMask map[string]bool
	fcSeq    int
}

// localizeParams stores each incoming argument into its parameter's
// stack slot at routine entry. The builder emits one leading declare
// per parameter, in declaration order, which is exactly the ABI
// classification order: integer/pointer parameters arrive in RDI, RSI,
// RDX, RCX, R8, R9, floating parameters in XMM0-XMM7, and the overflow
// arrives on the caller's stack above the return address.
func (l *localizer) localizeParams() {
	intIdx, sseIdx := 0, 0
	stackOff := int64(16) // above saved RBP and the return address
	var declares []air.InstrHandle
	for h := l.fn.Head(); h != air.NoInstr && len(declares) < l.fn.NumParams; h = l.fn.Get(h).Next {
		if l.fn.Get(h).Op != air.OpDeclare {
			break
		}
		declares = append(declares, h)
	}
	for _, h := range declares {
		instr := l.fn.Get(h)
		if instr.Localized {
			continue
		}
		instr.Localized = true
		symOp := instr.Operands[0]
		t := instr.Type
		switch {
		case t != nil && t.IsRealFloating() && sseIdx < len(SSEArgRegs):
			src := air.Operand{Kind: air.OperandVReg, VReg: SSEArgRegs[sseIdx]}
			sseIdx++
			l.fn.InsertAfter(h, air.Instruction{Op: air.OpStoreAddr, Type: t, Operands: []air.Operand{symOp, src}})
		case (t == nil || !t.IsRealFloating()) && intIdx < len(IntArgRegs):
			src := air.Operand{Kind: air.OperandVReg, VReg: IntArgRegs[intIdx]}
			intIdx++
			l.fn.InsertAfter(h, air.Instruction{Op: air.OpStoreAddr, Type: t, Operands: []air.Operand{symOp, src}})
		default:
			tmp := air.Operand{Kind: air.OperandVReg, VReg: l.fn.NewVReg()}
			next := l.fn.InsertAfter(h, air.Instruction{Op: air.OpLoad, Type: t, Operands: []air.Operand{tmp, air.Indirect(xreg.RBP, stackOff)}})
			l.fn.InsertAfter(next, air.Instruction{Op: air.OpStoreAddr, Type: t, Operands: []air.Operand{symOp, tmp}})
			stackOff += 8
		}
	}
}

// hoistFloatConsts moves floating immediates, which x86-64 cannot
// encode inline, into labeled .rodata constants referenced
// rip-relative.
func (l *localizer) hoistFloatConsts(h air.InstrHandle) {
	instr := l.fn.Get(h)
	for i := range instr.Operands {
		op := &instr.Operands[i]
		if op.Kind != air.OperandFloatConst {
			continue
		}
		size := int64(8)
		if instr.Type != nil && instr.Type.IsRealFloating() {
			size = instr.Type.Size()
		}
		label := ".LFC_" + l.fn.Name + "_" + strconv.Itoa(l.fcSeq)
		l.fcSeq++
		var bytes []byte
		if size == 4 {
			bits := math.Float32bits(float32(op.FloatConst))
			bytes = []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
		} else {
			bits := math.Float64bits(op.FloatConst)
			bytes = make([]byte, 8)
			for j := 0; j < 8; j++ {
				bytes[j] = byte(bits >> (8 * uint(j)))
			}
		}
		l.rodata = append(l.rodata, RodataConstant{Label: label, Bytes: bytes, Align: int64(len(bytes))})
		*op = air.Operand{Kind: air.OperandIndirectSymbol, Label: label}
	}
}

func (l *localizer) localizeOne(h air.InstrHandle) {
	instr := l.fn.Get(h)
	if instr.Localized {
		return
	}
	instr.Localized = true
	switch instr.Op {
	case air.OpFuncCall:
		l.localizeCall(h, instr)
	case air.OpReturn:
		l.localizeReturn(h, instr)
	case air.OpDiv, air.OpMod:
		l.localizeDivMod(h, instr)
	case air.OpShl, air.OpShr:
		l.localizeShift(h, instr)
	case air.OpAdd:
		if len(instr.Operands) == 3 && instr.Operands[2].Kind == air.OperandIndirect && instr.Operands[2].Index != 0 {
			l.localizeScaledIndexAdd(h, instr)
			return
		}
		l.rewriteThreeOperandArith(h, instr)
	case air.OpNeg:
		l.localizeNeg(h, instr)
	case air.OpBitNot:
		l.rewriteTwoOperandUnary(h, instr)
	case air.OpSI2S, air.OpUI2S, air.OpS2SI, air.OpS2UI:
		// Selection emits the cvt* family directly from typed operands
		// (the "route through cvtsi2ss/sd and
		// cvttss/sd2si"); no AIR-level rewrite is required beyond what
		// the builder already attached (source/destination C types).
	case air.OpCmpEq, air.OpCmpNe, air.OpCmpLt, air.OpCmpGt, air.OpCmpLe, air.OpCmpGe:
		// Left in three-operand form: a compare has no direct
		// two-operand x86 encoding (cmp sets flags, it does not write a
		// register), so the instruction selector lowers these directly
		// to cmp + setcc + movzx from the original operand triple.
	default:
		l.rewriteThreeOperandArith(h, instr)
	}
}

// localizeCall implements the argument classification:
// integer args to RDI.. RSI.. etc, SSE args to XMM0.., remaining
// spilled to the stack right-to-left. Struct arguments get no
// classification of their own; no hidden-pointer passing is done.
func (l *localizer) localizeCall(h air.InstrHandle, instr *air.Instruction) {
	// operands: [0]=result [1]=callee [2..]=args
	if len(instr.Operands) < 2 {
		return
	}
	args := instr.Operands[2:]
	intIdx, sseIdx := 0, 0
	var placed []air.Operand
	type stackArg struct {
		op air.Operand
		t  *types.Type
	}
	var stackArgs []stackArg
	for i, a := range args {
		t := argType(instr, i)
		if t != nil && t.IsRealFloating() {
			if sseIdx < len(SSEArgRegs) {
				dest := air.Operand{Kind: air.OperandVReg, VReg: SSEArgRegs[sseIdx]}
				sseIdx++
				l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: t, Operands: []air.Operand{dest, a}})
				placed = append(placed, dest)
				continue
			}
		} else if intIdx < len(IntArgRegs) {
			dest := air.Operand{Kind: air.OperandVReg, VReg: IntArgRegs[intIdx]}
			intIdx++
			l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: t, Operands: []air.Operand{dest, a}})
			placed = append(placed, dest)
			continue
		}
		stackArgs = append(stackArgs, stackArg{a, t})
	}
	// Overflow arguments are pushed right-to-left so the leftmost lands
	// at the lowest address.
	for i := len(stackArgs) - 1; i >= 0; i-- {
		l.fn.InsertBefore(h, air.Instruction{Op: air.OpPush, Type: stackArgs[i].t, Operands: []air.Operand{stackArgs[i].op}})
	}

	// The hardware return register replaces the call's result operand;
	// the virtual result register, if any, receives a move afterward so
	// downstream reads stay valid.
	resultOp := instr.Operands[0]
	retReg := air.Operand{Kind: air.OperandVReg, VReg: rax}
	if instr.Type != nil && instr.Type.IsRealFloating() {
		retReg = air.Operand{Kind: air.OperandVReg, VReg: xmm0}
	}
	if resultOp.Kind == air.OperandVReg && !xreg.IsPhysical(resultOp.VReg) &&
		instr.Type != nil && instr.Type.Kind != types.Void {
		l.fn.InsertAfter(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{resultOp, retReg}})
	}
	instr.Operands = append([]air.Operand{retReg, instr.Operands[1]}, placed...)
}

func argType(instr *air.Instruction, argIndex int) *types.Type {
	if argIndex < len(instr.ArgTypes) {
		return instr.ArgTypes[argIndex]
	}
	return instr.Type
}

// localizeReturn rewrites a generic `return` into the ABI-specific
// return sequence: integer/pointer results move into RAX, floating
// results into XMM0. Aggregates returned by value are outside this
// subset; scalar members travel through pointers instead.
func (l *localizer) localizeReturn(h air.InstrHandle, instr *air.Instruction) {
	if len(instr.Operands) == 0 {
		return
	}
	v := instr.Operands[0]
	dest := air.Operand{Kind: air.OperandVReg, VReg: rax}
	if instr.Type != nil && instr.Type.IsRealFloating() {
		dest = air.Operand{Kind: air.OperandVReg, VReg: xmm0}
	}
	l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{dest, v}})
	instr.Operands = []air.Operand{dest}
}

// localizeDivMod implements "zero/sign-extend dividend into RDX:RAX,
// execute idiv/div, read result from RAX (div) or RDX (mod)."
func (l *localizer) localizeDivMod(h air.InstrHandle, instr *air.Instruction) {
	if len(instr.Operands) != 3 {
		return
	}
	dest, lhs, rhs := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	raxOp := air.Operand{Kind: air.OperandVReg, VReg: rax}
	rdxOp := air.Operand{Kind: air.OperandVReg, VReg: rdx}
	l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{raxOp, lhs}})
	extendOp := air.OpSExt
	if instr.Type != nil && !instr.Type.IsSigned() {
		extendOp = air.OpZExt
	}
	l.fn.InsertBefore(h, air.Instruction{Op: extendOp, Type: instr.Type, SrcType: instr.Type, Operands: []air.Operand{rdxOp, raxOp}})
	result := raxOp
	if instr.Op == air.OpMod {
		result = rdxOp
	}
	instr.Operands = []air.Operand{result, raxOp, rhs}
	after := air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{dest, result}}
	if next := l.fn.Get(h).Next; next != air.NoInstr {
		l.fn.InsertBefore(next, after)
	} else {
		l.fn.Append(after)
	}
}

// localizeScaledIndexAdd turns the builder's address computation
// `r = base + idx*scale` into a single lea when the scale has an x86
// encoding (1, 2, 4, 8), and into an explicit multiply plus add when
// the element size does not.
func (l *localizer) localizeScaledIndexAdd(h air.InstrHandle, instr *air.Instruction) {
	dest, base, scaled := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	switch scaled.Scale {
	case 1, 2, 4, 8:
		instr.Op = air.OpLoadAddr
		instr.Operands = []air.Operand{dest, air.Operand{
			Kind:   air.OperandIndirect,
			Base:   base.VReg,
			Index:  scaled.Index,
			Scale:  scaled.Scale,
			Offset: scaled.Offset,
		}}
	default:
		tmp := air.Operand{Kind: air.OperandVReg, VReg: l.fn.NewVReg()}
		longType := types.Basic(types.Long)
		l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: longType, Localized: true,
			Operands: []air.Operand{tmp, air.Reg(scaled.Index)}})
		l.fn.InsertBefore(h, air.Instruction{Op: air.OpMul, Type: longType, Localized: true,
			Operands: []air.Operand{tmp, tmp, air.IntConst(int64(scaled.Scale))}})
		instr.Operands = []air.Operand{dest, base, tmp}
		l.rewriteThreeOperandArith(h, instr)
	}
}

// localizeShift implements "Shift counts must reside in CL; a move is
// inserted if needed," then applies the same two-operand rewrite as
// ordinary arithmetic (shl/shr have no three-operand x86 form).
func (l *localizer) localizeShift(h air.InstrHandle, instr *air.Instruction) {
	if len(instr.Operands) != 3 {
		return
	}
	count := instr.Operands[2]
	if !(count.Kind == air.OperandVReg && count.VReg == rcx) {
		clOp := air.Operand{Kind: air.OperandVReg, VReg: rcx}
		l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: types.Basic(types.Int), Operands: []air.Operand{clOp, count}})
		instr.Operands[2] = clOp
	}
	l.rewriteThreeOperandArith(h, instr)
}

// localizeNeg implements "Floating negation becomes xorps/xorpd with
// a static sign-bit mask in .rodata"; integer negation is left as a
// direct two-operand rewrite by rewriteTwoOperandUnary.
func (l *localizer) localizeNeg(h air.InstrHandle, instr *air.Instruction) {
	if instr.Type == nil || !instr.Type.IsRealFloating() {
		l.rewriteTwoOperandUnary(h, instr)
		return
	}
	label := sseSignMaskLabel32
	bytes := []byte{0, 0, 0, 0x80}
	if instr.Type.Size() == 8 {
		label = sseSignMaskLabel64
		bytes = []byte{0, 0, 0, 0, 0, 0, 0, 0x80}
	}
	if !l.seenMask[label] {
		l.seenMask[label] = true
		l.rodata = append(l.rodata, RodataConstant{Label: label, Bytes: bytes, Align: int64(len(bytes))})
	}
	dest, src := instr.Operands[0], instr.Operands[1]
	l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{dest, src}})
	instr.Operands = []air.Operand{dest, air.Operand{Kind: air.OperandIndirectSymbol, Label: label}}
}

// rewriteTwoOperandUnary turns `r = op a` into `r := a; op r`, the
// x86 read-modify-write form neg and not require.
func (l *localizer) rewriteTwoOperandUnary(h air.InstrHandle, instr *air.Instruction) {
	if len(instr.Operands) != 2 {
		return
	}
	dest, src := instr.Operands[0], instr.Operands[1]
	l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{dest, src}})
	instr.Operands = []air.Operand{dest}
}

// rewriteThreeOperandArith implements "Three-operand arithmetic
// r = a op b becomes r := a; r op= b (direct variant) where op= is a
// two-operand form; when r aliases b for non-commutative operators, a
// temporary is inserted."
func (l *localizer) rewriteThreeOperandArith(h air.InstrHandle, instr *air.Instruction) {
	if len(instr.Operands) != 3 {
		return
	}
	dest, a, b := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	if aliases(dest, b) && !commutative(instr.Op) {
		tmp := air.Operand{Kind: air.OperandVReg, VReg: l.fn.NewVReg()}
		l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{tmp, a}})
		instr.Operands = []air.Operand{tmp, tmp, b}
		l.fn.InsertAfter(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{dest, tmp}})
		return
	}
	l.fn.InsertBefore(h, air.Instruction{Op: air.OpAssign, Type: instr.Type, Operands: []air.Operand{dest, a}})
	instr.Operands = []air.Operand{dest, dest, b}
}

func aliases(a, b air.Operand) bool {
	return a.Kind == air.OperandVReg && b.Kind == air.OperandVReg && a.VReg == b.VReg
}

func commutative(op air.Op) bool {
	switch op {
	case air.OpAdd, air.OpMul, air.OpBitAnd, air.OpBitOr, air.OpBitXor,
		air.OpCmpEq, air.OpCmpNe:
		return true
	}
	return false
}
