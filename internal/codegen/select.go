package codegen

import (
	"fmt"

	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/xreg"
)

// Routine selects and emits one allocated, localized routine: prologue,
// body, and the unified epilogue. calleeSaved is the set
// internal/regalloc.Allocate reported written; frameSize is the
// running maximum stack offset the caller computed from the routine's
// automatic objects. No variadic register save area is reserved.
func Routine(e *Emitter, fn *air.Func, calleeSaved []air.VReg, frameSize int64, externallyLinked bool) {
	if externallyLinked {
		e.Globl(fn.Name)
	}
	e.Label(fn.Name)
	epilogue := ".LR_" + fn.Name

	e.Instr1("push", xreg.Name64(xreg.RBP))
	e.Instr2("mov", xreg.Name64(xreg.RSP), xreg.Name64(xreg.RBP))
	aligned := alignUp(frameSize, 16)
	if aligned > 0 {
		e.Instr2("sub", fmt.Sprintf("$%d", aligned), xreg.Name64(xreg.RSP))
	}
	for _, r := range calleeSaved {
		e.Instr1("push", xreg.Name64(r))
	}

	s := &selector{e: e, epilogue: epilogue}
	fn.Walk(func(h air.InstrHandle, instr *air.Instruction) {
		s.one(h, instr)
	})

	e.Label(epilogue)
	for i := len(calleeSaved) - 1; i >= 0; i-- {
		e.Instr1("pop", xreg.Name64(calleeSaved[i]))
	}
	e.Instr0("leave")
	e.Instr0("ret")
	e.BlankLine()
}

func alignUp(n, align int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + align - 1) / align * align
}

type selector struct {
	e        *Emitter
	epilogue string
}

func (s *selector) one(h air.InstrHandle, instr *air.Instruction) {
	size := int64(8)
	if instr.Type != nil {
		size = instr.Type.Size()
	}
	suf := xreg.SizeSuffix(size)
	signed := instr.Type == nil || instr.Type.IsSigned()
	fp := instr.Type != nil && instr.Type.IsRealFloating()

	switch instr.Op {
	case air.OpLabel:
		s.e.Label(instr.Operands[0].Label)
	case air.OpJmp:
		s.e.Instr1("jmp", instr.Operands[0].Label)
	case air.OpJz:
		s.e.Instr2("cmp", "$0", s.operand(instr.Operands[0], size))
		s.e.Instr1("je", instr.Operands[1].Label)
	case air.OpJnz:
		s.e.Instr2("cmp", "$0", s.operand(instr.Operands[0], size))
		s.e.Instr1("jne", instr.Operands[1].Label)
	case air.OpAssign:
		s.move(instr.Operands[0], instr.Operands[1], size, fp)
	case air.OpLoad:
		s.e.Instr2("mov"+suf, s.operand(instr.Operands[1], size), s.operand(instr.Operands[0], size))
	case air.OpLoadAddr:
		s.e.Instr2("lea", s.operand(instr.Operands[1], 8), s.operand(instr.Operands[0], 8))
	case air.OpStoreAddr:
		// operands: [0]=destination memory, [1]=value
		if fp {
			s.e.Instr2("mov"+ssefx(size), s.operand(instr.Operands[1], size), s.operand(instr.Operands[0], size))
		} else {
			s.e.Instr2("mov"+suf, s.operand(instr.Operands[1], size), s.operand(instr.Operands[0], size))
		}
	case air.OpAdd:
		s.binArith(instr, fp, suf, "add", "addss", "addsd")
	case air.OpSub:
		s.binArith(instr, fp, suf, "sub", "subss", "subsd")
	case air.OpMul:
		s.binArith(instr, fp, suf, "imul", "mulss", "mulsd")
	case air.OpBitAnd:
		s.binArith(instr, false, suf, "and", "", "")
	case air.OpBitOr:
		s.binArith(instr, false, suf, "or", "", "")
	case air.OpBitXor:
		s.binArith(instr, false, suf, "xor", "", "")
	case air.OpShl:
		s.shiftArith(instr, suf, "shl")
	case air.OpShr:
		if signed {
			s.shiftArith(instr, suf, "sar")
		} else {
			s.shiftArith(instr, suf, "shr")
		}
	case air.OpNeg:
		if fp {
			s.e.Instr2("xorp"+ssefx(size), s.operand(instr.Operands[len(instr.Operands)-1], size), s.operand(instr.Operands[0], size))
		} else {
			s.e.Instr1("neg"+suf, s.operand(instr.Operands[0], size))
		}
	case air.OpBitNot:
		s.e.Instr1("not"+suf, s.operand(instr.Operands[0], size))
	case air.OpLNot:
		s.e.Instr2("cmp", "$0", s.operand(instr.Operands[1], size))
		s.e.Instr1("sete", xreg.NameSized(regOf(instr.Operands[0]), 1))
		s.e.Instr2("movzbl", xreg.NameSized(regOf(instr.Operands[0]), 1), xreg.NameSized(regOf(instr.Operands[0]), 4))
	case air.OpCmpEq, air.OpCmpNe, air.OpCmpLt, air.OpCmpGt, air.OpCmpLe, air.OpCmpGe:
		s.compare(instr, size, signed)
	case air.OpDiv, air.OpMod:
		if signed {
			s.e.Instr1("idiv"+suf, s.operand(instr.Operands[2], size))
		} else {
			s.e.Instr1("div"+suf, s.operand(instr.Operands[2], size))
		}
	case air.OpSExt:
		s.signExtend(instr, size)
	case air.OpZExt:
		s.zeroExtend(instr, size)
	case air.OpTrunc:
		s.e.Instr2("mov"+suf, s.operand(instr.Operands[1], size), s.operand(instr.Operands[0], size))
	case air.OpS2D:
		s.e.Instr2("cvtss2sd", s.operand(instr.Operands[1], 4), s.operand(instr.Operands[0], 8))
	case air.OpD2S:
		s.e.Instr2("cvtsd2ss", s.operand(instr.Operands[1], 8), s.operand(instr.Operands[0], 4))
	case air.OpSI2S:
		s.e.Instr2("cvtsi2"+ssefx(size), s.operand(instr.Operands[1], intConvSize(instr)), s.operand(instr.Operands[0], size))
	case air.OpUI2S:
		// Unsigned sources below 64 bits fit the signed conversion once
		// widened; a genuinely unsigned 64-bit source would need the
		// two-step limit comparison, which this subset's default
		// argument promotions never produce.
		s.e.Instr2("cvtsi2"+ssefx(size), s.operand(instr.Operands[1], 8), s.operand(instr.Operands[0], size))
	case air.OpS2SI:
		s.e.Instr2("cvtt"+ssefx(srcSize(instr))+"2si", s.operand(instr.Operands[1], srcSize(instr)), s.operand(instr.Operands[0], size))
	case air.OpS2UI:
		s.e.Instr2("cvtt"+ssefx(srcSize(instr))+"2si", s.operand(instr.Operands[1], srcSize(instr)), s.operand(instr.Operands[0], size))
	case air.OpPush:
		s.e.Instr1("push", s.operand(instr.Operands[0], 8))
	case air.OpRetain:
		s.e.Instr1("push", s.operand(instr.Operands[0], 8))
	case air.OpRestore:
		s.e.Instr1("pop", s.operand(instr.Operands[0], 8))
	case air.OpFuncCall:
		s.e.Instr1("call", s.calleeName(instr.Operands[1]))
	case air.OpReturn:
		s.e.Instr1("jmp", s.epilogue)
	case air.OpLeave, air.OpNop, air.OpPhi, air.OpSequencePoint, air.OpDeclare:
		// No code: frame layout is computed ahead of selection, phi
		// nodes do not survive past the builder's branch-based
		// lowering, and sequence points exist only for diagnostics.
	default:
		s.e.Comment("unhandled instruction %d", int(instr.Op))
	}
}

func (s *selector) move(dst, src air.Operand, size int64, fp bool) {
	if dst.Kind == air.OperandVReg && src.Kind == air.OperandVReg && dst.VReg == src.VReg {
		return
	}
	if fp {
		s.e.Instr2("mov"+ssefx(size), s.operand(src, size), s.operand(dst, size))
		return
	}
	s.e.Instr2("mov"+xreg.SizeSuffix(size), s.operand(src, size), s.operand(dst, size))
}

func (s *selector) binArith(instr *air.Instruction, fp bool, suf, intOp, sseOpSS, sseOpSD string) {
	// Post-localization two-operand form: operands[0] == operands[1].
	size := int64(8)
	if instr.Type != nil {
		size = instr.Type.Size()
	}
	b := instr.Operands[len(instr.Operands)-1]
	dst := instr.Operands[0]
	if fp {
		op := sseOpSS
		if size == 8 {
			op = sseOpSD
		}
		s.e.Instr2(op, s.operand(b, size), s.operand(dst, size))
		return
	}
	s.e.Instr2(intOp+suf, s.operand(b, size), s.operand(dst, size))
}

func (s *selector) shiftArith(instr *air.Instruction, suf, op string) {
	dst := instr.Operands[0]
	s.e.Instr2(op+suf, xreg.NameSized(xreg.RCX, 1), s.operand(dst, 8))
}

// compare lowers a three-operand comparison directly to cmp + setcc +
// zero-extend: compares have no two-operand arithmetic form (cmp
// writes flags, not a register), so these are never rewritten by
// internal/localize's default two-operand pass. Floating operands
// compare through ucomiss/ucomisd, whose flag results read as
// unsigned comparisons.
func (s *selector) compare(instr *air.Instruction, size int64, signed bool) {
	dst, a, b := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	fp := instr.Type != nil && instr.Type.IsRealFloating()
	if fp {
		s.e.Instr2("ucomi"+ssefx(size), s.operand(b, size), s.operand(a, size))
		signed = false
	} else {
		s.e.Instr2("cmp"+xreg.SizeSuffix(size), s.operand(b, size), s.operand(a, size))
	}
	set := setcc(instr.Op, signed)
	r := regOf(dst)
	s.e.Instr1(set, xreg.NameSized(r, 1))
	s.e.Instr2("movzbl", xreg.NameSized(r, 1), xreg.NameSized(r, 4))
}

func setcc(op air.Op, signed bool) string {
	switch op {
	case air.OpCmpEq:
		return "sete"
	case air.OpCmpNe:
		return "setne"
	case air.OpCmpLt:
		if signed {
			return "setl"
		}
		return "setb"
	case air.OpCmpGt:
		if signed {
			return "setg"
		}
		return "seta"
	case air.OpCmpLe:
		if signed {
			return "setle"
		}
		return "setbe"
	case air.OpCmpGe:
		if signed {
			return "setge"
		}
		return "setae"
	}
	return "sete"
}

func ssefx(size int64) string {
	if size == 8 {
		return "sd"
	}
	return "ss"
}

func srcSize(instr *air.Instruction) int64 {
	// The builder attaches the destination's type to Type and the
	// operand's original type to SrcType; conversions lacking a source
	// type default to 4 bytes (int), the common promotion path.
	if instr.SrcType != nil {
		return instr.SrcType.Size()
	}
	return 4
}

// signExtend widens a value in place. The dividend extension the
// div/mod localization emits (RAX into RDX at equal width) selects the
// dedicated cltd/cqto forms; ordinary widenings use movs with source
// and destination suffixes.
func (s *selector) signExtend(instr *air.Instruction, size int64) {
	src := srcSize(instr)
	dst, from := instr.Operands[0], instr.Operands[1]
	if src >= size &&
		dst.Kind == air.OperandVReg && dst.VReg == xreg.RDX &&
		from.Kind == air.OperandVReg && from.VReg == xreg.RAX {
		if size == 8 {
			s.e.Instr0("cqto")
		} else {
			s.e.Instr0("cltd")
		}
		return
	}
	s.e.Instr2("movs"+xreg.SizeSuffix(src)+xreg.SizeSuffix(size), s.operand(from, src), s.operand(dst, size))
}

// zeroExtend widens a value in place. x86-64 has no movzlq: writing
// the 32-bit subregister already clears the upper half, so the 4-to-8
// case degrades to a plain 32-bit move. The div/mod localization's
// RDX-clearing extension likewise reduces to zeroing RDX.
func (s *selector) zeroExtend(instr *air.Instruction, size int64) {
	src := srcSize(instr)
	dst, from := instr.Operands[0], instr.Operands[1]
	if src >= size &&
		dst.Kind == air.OperandVReg && dst.VReg == xreg.RDX &&
		from.Kind == air.OperandVReg && from.VReg == xreg.RAX {
		s.e.Instr2("xorl", xreg.NameSized(xreg.RDX, 4), xreg.NameSized(xreg.RDX, 4))
		return
	}
	if src == 4 {
		s.e.Instr2("movl", s.operand(from, 4), s.operand(dst, 4))
		return
	}
	s.e.Instr2("movz"+xreg.SizeSuffix(src)+xreg.SizeSuffix(size), s.operand(from, src), s.operand(dst, size))
}

// intConvSize picks the integer-side register width for an int-to-
// float conversion: cvtsi2 accepts 32- or 64-bit sources only.
func intConvSize(instr *air.Instruction) int64 {
	if sz := srcSize(instr); sz == 8 {
		return 8
	}
	return 4
}

func regOf(op air.Operand) air.VReg {
	if op.Kind == air.OperandVReg {
		return op.VReg
	}
	return xreg.RAX
}

// operand formats one AIR operand in AT&T syntax.
func (s *selector) operand(op air.Operand, size int64) string {
	switch op.Kind {
	case air.OperandVReg:
		return xreg.NameSized(op.VReg, size)
	case air.OperandIntConst:
		return fmt.Sprintf("$%d", op.IntConst)
	case air.OperandFloatConst:
		// Floating immediates are not directly encodable on x86; a
		// prior pass is expected to have hoisted them into .rodata and
		// rewritten this operand to an OperandIndirectSymbol. Reaching
		// this branch means that hoist did not happen for some literal
		// path; emit a recognizable placeholder rather than silently
		// miscompiling.
		return fmt.Sprintf("$%v /* unhoisted float constant */", op.FloatConst)
	case air.OperandIndirect:
		base := xreg.Name64(op.Base)
		if op.Index != 0 {
			return fmt.Sprintf("%d(%s,%s,%d)", op.Offset, base, xreg.Name64(op.Index), op.Scale)
		}
		return fmt.Sprintf("%d(%s)", op.Offset, base)
	case air.OperandSymbol:
		return s.symbolRef(op.Sym)
	case air.OperandIndirectSymbol:
		if op.Label != "" {
			return op.Label + "(%rip)"
		}
		return s.symbolRef(op.Sym)
	case air.OperandLabel:
		return op.Label
	case air.OperandTypeLiteral:
		if op.TypeLiteral != nil {
			return fmt.Sprintf("$%d", op.TypeLiteral.Size())
		}
		return "$0"
	}
	return "$0"
}

func (s *selector) symbolName(sym any) string {
	if sym == nil {
		return ""
	}
	if ss, ok := sym.(*symtab.Symbol); ok {
		if ss.AsmName != "" {
			return ss.AsmName
		}
		return ss.Name
	}
	if str, ok := sym.(string); ok {
		return str
	}
	return ""
}

// symbolRef addresses one symbol operand: automatic-duration objects
// live at their frame offset off RBP, static-duration objects at their
// assembly label, rip-relative.
func (s *selector) symbolRef(sym any) string {
	if ss, ok := sym.(*symtab.Symbol); ok && ss.Duration == symtab.Automatic {
		return fmt.Sprintf("%d(%s)", ss.FrameOffset, xreg.Name64(xreg.RBP))
	}
	return s.symbolName(sym) + "(%rip)"
}

func (s *selector) calleeName(op air.Operand) string {
	if op.Kind == air.OperandSymbol {
		return s.symbolName(op.Sym)
	}
	// A computed callee (function pointer) calls through its register.
	return "*" + s.operand(op, 8)
}
