// Package codegen is the instruction selector and GAS assembly
// writer: it walks an allocated AIR routine and produces AT&T-syntax
// x86-64 text, plus the .data/.rodata sections backing string and
// compound-literal constants.
//
// Emitter is a buffered writer with small Instr0/Instr1/Instr2
// primitives and named directive helpers, generalized from a
// three-operand fixed-width instruction encoding to GAS's AT&T
// source-then-destination syntax with per-operand size suffixes.
package codegen

import (
	"bufio"
	"fmt"
	"io"
)

// Emitter buffers GAS assembly output.
type Emitter struct {
	out        *bufio.Writer
	labelCount int
}

// NewEmitter wraps w for buffered assembly output.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{out: bufio.NewWriter(w)}
}

// NewLabel generates a unique compiler-internal label.
func (e *Emitter) NewLabel(prefix string) string {
	label := fmt.Sprintf(".L%s%d", prefix, e.labelCount)
	e.labelCount++
	return label
}

// Comment emits a GAS comment line.
func (e *Emitter) Comment(format string, args ...interface{}) {
	fmt.Fprintf(e.out, "# %s\n", fmt.Sprintf(format, args...))
}

// BlankLine emits a blank line.
func (e *Emitter) BlankLine() {
	fmt.Fprintln(e.out)
}

// Directive emits an assembler directive, tab-indented like an
// instruction, followed by its arguments.
func (e *Emitter) Directive(dir string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintf(e.out, "\t%s %s\n", dir, fmt.Sprint(args...))
	} else {
		fmt.Fprintf(e.out, "\t%s\n", dir)
	}
}

// Label emits a label definition.
func (e *Emitter) Label(name string) {
	fmt.Fprintf(e.out, "%s:\n", name)
}

// Instr0 emits a zero-operand instruction.
func (e *Emitter) Instr0(op string) {
	fmt.Fprintf(e.out, "\t%s\n", op)
}

// Instr1 emits a one-operand instruction.
func (e *Emitter) Instr1(op string, arg1 string) {
	fmt.Fprintf(e.out, "\t%s %s\n", op, arg1)
}

// Instr2 emits a two-operand instruction in AT&T source, destination
// order.
func (e *Emitter) Instr2(op, src, dst string) {
	fmt.Fprintf(e.out, "\t%s %s, %s\n", op, src, dst)
}

// Text switches to the code section.
func (e *Emitter) Text() { fmt.Fprintln(e.out, "\t.text") }

// DataSection switches to the initialized-data section.
func (e *Emitter) DataSection() { fmt.Fprintln(e.out, "\t.data") }

// Rodata switches to the read-only data section.
func (e *Emitter) Rodata() { fmt.Fprintln(e.out, "\t.section .rodata") }

// Align emits an alignment directive.
func (e *Emitter) Align(n int64) {
	fmt.Fprintf(e.out, "\t.align %d\n", n)
}

// Globl marks name as externally visible.
func (e *Emitter) Globl(name string) {
	fmt.Fprintf(e.out, "\t.globl %s\n", name)
}

// Byte/Long/Quad/QuadSym/Zero/Ascii emit GAS data directives.
func (e *Emitter) Byte(v byte)     { fmt.Fprintf(e.out, "\t.byte %d\n", v) }
func (e *Emitter) Long(v int32)    { fmt.Fprintf(e.out, "\t.long %d\n", uint32(v)) }
func (e *Emitter) Quad(v int64)    { fmt.Fprintf(e.out, "\t.quad %d\n", v) }
func (e *Emitter) QuadSym(s string) { fmt.Fprintf(e.out, "\t.quad %s\n", s) }
func (e *Emitter) Zero(n int64)    { fmt.Fprintf(e.out, "\t.zero %d\n", n) }
func (e *Emitter) Ascii(s string)  { fmt.Fprintf(e.out, "\t.ascii %q\n", s) }

// Flush flushes the underlying buffered writer.
func (e *Emitter) Flush() error { return e.out.Flush() }
