// Package xreg names the fixed x86-64 SysV physical registers shared
// by the target-localization, register-allocation, and instruction-
// selection passes. Representing them as small negative air.VReg
// values lets all three packages store "this operand is already a
// physical register" and "this operand is still an unallocated
// virtual register" in the same field without a wrapper type.
package xreg

import "github.com/gmofishsauce/cc99/internal/air"

const (
	RAX air.VReg = -1 - iota
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	RSP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
)

// IsPhysical reports whether r already names a fixed physical
// register rather than an allocator-assigned virtual one.
func IsPhysical(r air.VReg) bool { return r < 0 }

// IsSSE reports whether r is one of the eight XMM registers.
func IsSSE(r air.VReg) bool { return r <= XMM0 && r >= XMM7 }

// IntArgRegs is the SysV integer argument-passing order.
var IntArgRegs = []air.VReg{RDI, RSI, RDX, RCX, R8, R9}

// SSEArgRegs is the SysV SSE argument-passing order.
var SSEArgRegs = []air.VReg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}

// IntCallerSaved and IntCalleeSaved partition the integer file per
// the SysV ABI's call-clobber contract.
var IntCallerSaved = []air.VReg{RAX, RDI, RSI, RDX, RCX, R8, R9, R10, R11}
var IntCalleeSaved = []air.VReg{RBX, R12, R13, R14, R15}

// Name returns the 64-bit AT&T register name.
func Name64(r air.VReg) string {
	switch r {
	case RAX:
		return "%rax"
	case RBX:
		return "%rbx"
	case RCX:
		return "%rcx"
	case RDX:
		return "%rdx"
	case RSI:
		return "%rsi"
	case RDI:
		return "%rdi"
	case RBP:
		return "%rbp"
	case RSP:
		return "%rsp"
	case R8:
		return "%r8"
	case R9:
		return "%r9"
	case R10:
		return "%r10"
	case R11:
		return "%r11"
	case R12:
		return "%r12"
	case R13:
		return "%r13"
	case R14:
		return "%r14"
	case R15:
		return "%r15"
	case XMM0:
		return "%xmm0"
	case XMM1:
		return "%xmm1"
	case XMM2:
		return "%xmm2"
	case XMM3:
		return "%xmm3"
	case XMM4:
		return "%xmm4"
	case XMM5:
		return "%xmm5"
	case XMM6:
		return "%xmm6"
	case XMM7:
		return "%xmm7"
	}
	return "%<invalid>"
}

// sized32/16/8 give the width-suffixed name for the integer registers
// that have distinct b/w/l encodings. SSE registers are always full
// width regardless of the C operand size (the selector always moves
// 32 or 64 bits into/out of them via movss/movsd).
var name32 = map[air.VReg]string{
	RAX: "%eax", RBX: "%ebx", RCX: "%ecx", RDX: "%edx",
	RSI: "%esi", RDI: "%edi", RBP: "%ebp", RSP: "%esp",
	R8: "%r8d", R9: "%r9d", R10: "%r10d", R11: "%r11d",
	R12: "%r12d", R13: "%r13d", R14: "%r14d", R15: "%r15d",
}
var name16 = map[air.VReg]string{
	RAX: "%ax", RBX: "%bx", RCX: "%cx", RDX: "%dx",
	RSI: "%si", RDI: "%di", RBP: "%bp", RSP: "%sp",
	R8: "%r8w", R9: "%r9w", R10: "%r10w", R11: "%r11w",
	R12: "%r12w", R13: "%r13w", R14: "%r14w", R15: "%r15w",
}
var name8 = map[air.VReg]string{
	RAX: "%al", RBX: "%bl", RCX: "%cl", RDX: "%dl",
	RSI: "%sil", RDI: "%dil", RBP: "%bpl", RSP: "%spl",
	R8: "%r8b", R9: "%r9b", R10: "%r10b", R11: "%r11b",
	R12: "%r12b", R13: "%r13b", R14: "%r14b", R15: "%r15b",
}

// NameSized returns the size-appropriate AT&T name of r for a C
// operand of the given byte width (1, 2, 4, or 8); widths that don't
// match exactly fall back to the 32-bit form.
func NameSized(r air.VReg, size int64) string {
	if IsSSE(r) {
		return Name64(r)
	}
	switch size {
	case 1:
		if n, ok := name8[r]; ok {
			return n
		}
	case 2:
		if n, ok := name16[r]; ok {
			return n
		}
	case 8:
		return Name64(r)
	}
	if n, ok := name32[r]; ok {
		return n
	}
	return Name64(r)
}

// SizeSuffix returns the GAS AT&T size suffix (b/w/l/q) for a C
// operand of the given byte width.
func SizeSuffix(size int64) string {
	switch size {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	case 8:
		return "q"
	}
	return "q"
}
