// Package regalloc is a linear-scan register allocator: a single
// forward pass over a localized routine's instruction list that
// replaces virtual registers with physical ones from one of two
// disjoint x86-64 register files (integer and SSE). It carries no
// general spill support; exhausting a register file is a hard
// internal-error failure rather than a silent fallback to the stack.
package regalloc

import (
	"fmt"

	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/xreg"
)

// Integer register file, partitioned by the SysV call-clobber
// contract. Allocate builds its own preference order over these sets;
// see the free-list construction below.
var IntCallerSaved = xreg.IntCallerSaved
var IntCalleeSaved = xreg.IntCalleeSaved

// SSE register file: entirely caller-saved.
var SSERegs = xreg.SSEArgRegs

// IsPhysical reports whether r already names a fixed physical
// register (as opposed to an allocator-assigned virtual one).
func IsPhysical(r air.VReg) bool { return xreg.IsPhysical(r) }

// Error is a fatal internal allocation failure: this allocator has no
// general spill support, so exhausting a register file is reported
// rather than silently handled.
type Error struct {
	Func    string
	Instr   air.InstrHandle
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("internal error: register allocation failed in %s at instruction %d: %s", e.Func, e.Instr, e.Message)
}

// expiry records the last instruction (by arena order) that reads a
// given virtual register, computed in one pre-pass over fn before
// allocation proper begins.
type allocator struct {
	fn *air.Func

	virtToPhys map[air.VReg]air.VReg
	physOwner  map[air.VReg]air.VReg // physical -> virtual currently held
	intFree    []air.VReg
	sseFree    []air.VReg

	expiry map[air.VReg]air.InstrHandle

	usedCallee map[air.VReg]bool
}

// Allocate runs the linear-scan pass over fn's instruction list,
// replacing every virtual register operand with a physical one in
// place via a five-step per-instruction algorithm. Returns the set of
// callee-saved integer registers the routine wrote, for the prologue
// the instruction selector emits.
func Allocate(fn *air.Func) ([]air.VReg, error) {
	a := &allocator{
		fn:         fn,
		virtToPhys: map[air.VReg]air.VReg{},
		physOwner:  map[air.VReg]air.VReg{},
		expiry:     map[air.VReg]air.InstrHandle{},
		usedCallee: map[air.VReg]bool{},
	}
	// Free-list order: RAX, R10 and R11 first, callee-saved in the
	// middle, the six ABI argument registers last. Argument registers
	// are written by the localized call sequences and the div/mod and
	// shift idioms also claim RDX/RCX outright, so handing them to
	// ordinary temporaries invites clobbering; they are used only under
	// pressure.
	a.intFree = []air.VReg{xreg.RAX, xreg.R10, xreg.R11}
	a.intFree = append(a.intFree, IntCalleeSaved...)
	a.intFree = append(a.intFree, xreg.RDI, xreg.RSI, xreg.RDX, xreg.RCX, xreg.R8, xreg.R9)
	a.sseFree = append([]air.VReg{}, SSERegs...)

	a.computeExpiries()

	var allocErr error
	fn.Walk(func(h air.InstrHandle, instr *air.Instruction) {
		if allocErr != nil || isPseudo(instr.Op) {
			return
		}
		if err := a.step(h, instr); err != nil {
			allocErr = err
		}
	})
	if allocErr != nil {
		return nil, allocErr
	}

	var callee []air.VReg
	for _, r := range IntCalleeSaved {
		if a.usedCallee[r] {
			callee = append(callee, r)
		}
	}
	return callee, nil
}

func isPseudo(op air.Op) bool {
	switch op {
	case air.OpSequencePoint, air.OpRetain, air.OpRestore:
		return true
	}
	return false
}

// computeExpiries walks fn once recording, per virtual register
// operand, the handle of the last instruction that reads it.
func (a *allocator) computeExpiries() {
	a.fn.Walk(func(h air.InstrHandle, instr *air.Instruction) {
		for i, op := range instr.Operands {
			if op.Kind != air.OperandVReg || IsPhysical(op.VReg) {
				continue
			}
			// Operand 0 of a result-producing instruction is a write,
			// not a read; every other use is a read.
			if i == 0 && hasResult(instr) {
				continue
			}
			a.expiry[op.VReg] = h
		}
		for _, op := range indirectRegs(instr) {
			if !IsPhysical(op) {
				a.expiry[op] = h
			}
		}
	})
}

func indirectRegs(instr *air.Instruction) []air.VReg {
	var regs []air.VReg
	for _, op := range instr.Operands {
		if op.Kind == air.OperandIndirect {
			if op.Base != 0 {
				regs = append(regs, op.Base)
			}
			if op.Index != 0 {
				regs = append(regs, op.Index)
			}
		}
	}
	return regs
}

func hasResult(instr *air.Instruction) bool {
	switch instr.Op {
	case air.OpJmp, air.OpJz, air.OpJnz, air.OpLabel, air.OpReturn, air.OpPush, air.OpNop:
		return false
	}
	return len(instr.Operands) > 0 && instr.Operands[0].Kind == air.OperandVReg
}

// step applies the five numbered actions of the allocation algorithm
// to one instruction.
func (a *allocator) step(h air.InstrHandle, instr *air.Instruction) error {
	start := 0
	if hasResult(instr) {
		start = 1
	}
	// 1. Replace every non-result virtual-register operand with its
	// currently mapped physical register.
	for i := start; i < len(instr.Operands); i++ {
		op := &instr.Operands[i]
		if op.Kind == air.OperandVReg && !IsPhysical(op.VReg) {
			phys, ok := a.virtToPhys[op.VReg]
			if !ok {
				return &Error{Func: a.fn.Name, Instr: h, Message: "use of unallocated virtual register"}
			}
			op.VReg = phys
		}
		if op.Kind == air.OperandIndirect {
			if op.Base != 0 && !IsPhysical(op.Base) {
				if phys, ok := a.virtToPhys[op.Base]; ok {
					op.Base = phys
				}
			}
			if op.Index != 0 && !IsPhysical(op.Index) {
				if phys, ok := a.virtToPhys[op.Index]; ok {
					op.Index = phys
				}
			}
		}
	}

	// 2. Release mappings whose recorded expiry instruction equals the
	// current instruction.
	for virt, exp := range a.expiry {
		if exp == h {
			if phys, ok := a.virtToPhys[virt]; ok {
				a.release(phys)
				delete(a.virtToPhys, virt)
			}
		}
	}

	// A call clobbers every caller-saved register; any still holding a
	// live value is saved before and restored after the call site.
	if instr.Op == air.OpFuncCall {
		a.protectCallerSaved(h, instr)
	}

	// 3. If the instruction has no result virtual register, continue.
	if !hasResult(instr) {
		return nil
	}
	result := &instr.Operands[0]
	if IsPhysical(result.VReg) {
		return nil
	}

	// A virtual register defined on more than one path (the two arms of
	// a conditional, the outcomes of a short-circuit) keeps its first
	// mapping, so every definition lands in the same physical register.
	if phys, ok := a.virtToPhys[result.VReg]; ok {
		result.VReg = phys
		return nil
	}

	// 4. Compute expiry, reserve an ABI register if the result is
	// consumed as a call argument, else take the first free register.
	phys, err := a.reserve(result.VReg, h, instr)
	if err != nil {
		return err
	}

	// 5. Record the new mapping; overwrite the result operand.
	virt := result.VReg
	a.virtToPhys[virt] = phys
	a.physOwner[phys] = virt
	result.VReg = phys
	for _, c := range IntCalleeSaved {
		if c == phys {
			a.usedCallee[phys] = true
		}
	}
	// A result nothing ever reads (a call used as a statement, an
	// assignment whose value is discarded) releases its register
	// immediately rather than holding it for the rest of the routine.
	if _, read := a.expiry[virt]; !read {
		a.release(phys)
		delete(a.virtToPhys, virt)
	}
	return nil
}

// protectCallerSaved brackets a call with retain/restore pseudo-
// instructions for every caller-saved register holding a value that is
// still read after the call. The instruction selector renders them as
// push/pop pairs.
func (a *allocator) protectCallerSaved(h air.InstrHandle, instr *air.Instruction) {
	var resultReg air.VReg
	argRegs := map[air.VReg]bool{}
	for i, op := range instr.Operands {
		if op.Kind != air.OperandVReg || !IsPhysical(op.VReg) {
			continue
		}
		if i == 0 {
			resultReg = op.VReg
			continue
		}
		argRegs[op.VReg] = true
	}

	// Restoring the ABI result register must wait until the localized
	// copy of the return value into its virtual register has run; that
	// copy, when present, is the instruction immediately after the call.
	resultRestorePoint := h
	if next := a.fn.Get(h).Next; next != air.NoInstr {
		ni := a.fn.Get(next)
		if ni.Op == air.OpAssign && len(ni.Operands) == 2 &&
			ni.Operands[1].Kind == air.OperandVReg && ni.Operands[1].VReg == resultReg {
			resultRestorePoint = next
		}
	}

	var toSave []air.VReg
	for _, phys := range IntCallerSaved {
		virt, live := a.physOwner[phys]
		if !live || argRegs[phys] {
			continue
		}
		if exp, ok := a.expiry[virt]; ok && exp != h {
			toSave = append(toSave, phys)
		}
	}
	for _, phys := range toSave {
		a.fn.InsertBefore(h, air.Instruction{Op: air.OpRetain, Operands: []air.Operand{{Kind: air.OperandVReg, VReg: phys}}})
	}
	for i := len(toSave) - 1; i >= 0; i-- {
		at := h
		if toSave[i] == resultReg {
			at = resultRestorePoint
		}
		a.fn.InsertAfter(at, air.Instruction{Op: air.OpRestore, Operands: []air.Operand{{Kind: air.OperandVReg, VReg: toSave[i]}}})
	}
}

func (a *allocator) release(phys air.VReg) {
	delete(a.physOwner, phys)
	if isSSE(phys) {
		a.sseFree = append(a.sseFree, phys)
	} else {
		a.intFree = append(a.intFree, phys)
	}
}

func isSSE(r air.VReg) bool { return xreg.IsSSE(r) }

func isCompare(op air.Op) bool {
	switch op {
	case air.OpCmpEq, air.OpCmpNe, air.OpCmpLt, air.OpCmpGt, air.OpCmpLe, air.OpCmpGe:
		return true
	}
	return false
}

// reserve picks the physical register for a freshly defined virtual
// register. Float results draw from the SSE file, everything else
// from the integer file; a comparison's result is the int 0/1 it
// produces even when its operands (and thus its attached type) are
// floating.
func (a *allocator) reserve(virt air.VReg, h air.InstrHandle, instr *air.Instruction) (air.VReg, error) {
	wantSSE := instr.Type != nil && instr.Type.IsRealFloating() && !isCompare(instr.Op)
	if wantSSE {
		if len(a.sseFree) == 0 {
			return 0, &Error{Func: a.fn.Name, Instr: h, Message: "no free SSE register and no spill support"}
		}
		r := a.sseFree[0]
		a.sseFree = a.sseFree[1:]
		return r, nil
	}
	if len(a.intFree) == 0 {
		return 0, &Error{Func: a.fn.Name, Instr: h, Message: "no free integer register and no spill support"}
	}
	r := a.intFree[0]
	a.intFree = a.intFree[1:]
	return r, nil
}
