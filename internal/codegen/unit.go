package codegen

import (
	"bytes"
	"fmt"

	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/localize"
	"github.com/gmofishsauce/cc99/internal/regalloc"
	"github.com/gmofishsauce/cc99/internal/symtab"
)

// StaticObject is one file-scope object with static storage duration,
// carrying its initializer image and relocations via Sym's
// Init/Relocs fields.
type StaticObject struct {
	Sym *symtab.Symbol
}

// RoutineInput bundles what Unit needs to localize, allocate, and
// select one function: its AIR and the frame size its caller (the
// symbol table, after assigning FrameOffsets to its automatic
// objects) computed.
type RoutineInput struct {
	Fn               *air.Func
	FrameSize        int64
	ExternallyLinked bool
}

// Unit renders a whole translation unit to GAS assembly text: the
// data/rodata sections for static objects and string/floating
// constants, followed by .text and one routine per function.
func Unit(routines []RoutineInput, statics []StaticObject, strs []air.StringConstant) (string, error) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	var rodata []localize.RodataConstant

	type allocated struct {
		fn     *air.Func
		callee []air.VReg
		size   int64
		extern bool
	}
	results := make([]allocated, 0, len(routines))

	for _, r := range routines {
		rodata = append(rodata, localize.Localize(r.Fn)...)
		callee, err := regalloc.Allocate(r.Fn)
		if err != nil {
			return "", err
		}
		results = append(results, allocated{r.Fn, callee, r.FrameSize, r.ExternallyLinked})
	}

	if len(statics) > 0 {
		e.DataSection()
		for _, st := range statics {
			emitStaticObject(e, st)
		}
		e.BlankLine()
	}

	if len(rodata) > 0 || len(strs) > 0 {
		e.Rodata()
		for _, sc := range strs {
			e.Label(sc.Label)
			e.Ascii(string(sc.Bytes))
			e.Byte(0)
		}
		for _, c := range rodata {
			e.Align(c.Align)
			e.Label(c.Label)
			for _, b := range c.Bytes {
				e.Byte(b)
			}
		}
		e.BlankLine()
	}

	e.Text()
	for _, r := range results {
		Routine(e, r.fn, r.callee, r.size, r.extern)
	}

	if err := e.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func emitStaticObject(e *Emitter, st StaticObject) {
	name := st.Sym.AsmName
	if name == "" {
		name = st.Sym.Name
	}
	if st.Sym.Linkage == symtab.External {
		e.Globl(name)
	}
	e.Align(st.Sym.Type.Alignment())
	e.Label(name)
	relocAt := map[int64]symtab.Reloc{}
	for _, r := range st.Sym.Relocs {
		relocAt[r.Offset] = r
	}
	init := st.Sym.Init
	size := st.Sym.Type.Size()
	if int64(len(init)) < size {
		padded := make([]byte, size)
		copy(padded, init)
		init = padded
	}
	for i := int64(0); i < size; {
		if r, ok := relocAt[i]; ok {
			targetName := "0"
			if r.Target != nil {
				targetName = r.Target.AsmName
				if targetName == "" {
					targetName = r.Target.Name
				}
			}
			if r.Addend != 0 {
				e.Directive(".quad", fmt.Sprintf("%s+%d", targetName, r.Addend))
			} else {
				e.QuadSym(targetName)
			}
			i += 8
			continue
		}
		e.Byte(init[i])
		i++
	}
}
