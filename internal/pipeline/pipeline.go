// Package pipeline wires parse -> type -> analyze -> lower -> localize
// -> allocate -> select into the single fixed stage sequence the
// teacher's ya driver documented as an ordering guarantee, giving it a
// concrete in-process home instead of re-deriving it from cooperating
// binaries and flag parsing.
package pipeline

import (
	"github.com/gmofishsauce/cc99/internal/air"
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/codegen"
	"github.com/gmofishsauce/cc99/internal/config"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/parser"
	"github.com/gmofishsauce/cc99/internal/sema"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
)

// Result is one translation's outcome: the GAS assembly text produced,
// if compilation reached code generation, plus every diagnostic
// collected along the way in source order.
type Result struct {
	Assembly    string
	Diagnostics []diag.Diagnostic
}

// Compile runs one translation unit through every stage in sequence,
// gating on diagnostics after the semantic analyzer: a translation
// unit with a type or constraint error never reaches AIR lowering,
// since the lowering step assumes every node it visits already carries
// a valid type and resolved symbol.
func Compile(head *token.Token, opts config.Options) Result {
	syms := symtab.New()
	p := parser.New(head, syms)
	tu := p.ParseTranslationUnit()
	arena := p.Arena()
	bag := p.Diagnostics()

	frameSizes := sema.Run(tu, arena, syms, bag)

	bag.SortBySource()
	if bag.HasErrors() || tooManyErrors(bag, opts) || (opts.WarningsAsErrors && len(bag.All()) > 0) {
		return Result{Diagnostics: bag.All()}
	}

	builder := air.NewBuilder(arena, syms)
	var routines []codegen.RoutineInput
	root := arena.Get(tu)
	for _, h := range root.Children {
		n := arena.Get(h)
		if n.Kind != ast.FuncDecl {
			continue
		}
		fn := builder.BuildFunction(h)
		routines = append(routines, codegen.RoutineInput{
			Fn:               fn,
			FrameSize:        frameSizes[n.Name],
			ExternallyLinked: n.StorageClass != ast.SCStatic,
		})
	}

	var statics []codegen.StaticObject
	collectStatics(arena, tu, &statics)
	statics = dedupStatics(statics)

	text, err := codegen.Unit(routines, statics, builder.StringConstants())
	if err != nil {
		bag.Add(diag.Error, diag.Pos{}, "code generation failed: %v", err)
		return Result{Diagnostics: bag.All()}
	}
	return Result{Assembly: text, Diagnostics: bag.All()}
}

// dedupStatics keeps one definition per assembly name: a tentative
// file-scope definition ("int i;") and a later initialized one share a
// label, and the initialized one wins.
func dedupStatics(in []codegen.StaticObject) []codegen.StaticObject {
	index := map[string]int{}
	var out []codegen.StaticObject
	for _, st := range in {
		name := st.Sym.AsmName
		if name == "" {
			name = st.Sym.Name
		}
		if i, ok := index[name]; ok {
			if len(st.Sym.Init) > len(out[i].Sym.Init) {
				out[i] = st
			}
			continue
		}
		index[name] = len(out)
		out = append(out, st)
	}
	return out
}

func tooManyErrors(bag *diag.Bag, opts config.Options) bool {
	return opts.MaxErrors > 0 && bag.ErrorCount() > opts.MaxErrors
}

// collectStatics walks the whole tree (file scope and every function
// body) gathering the static-duration objects codegen.Unit must emit
// into .data: file-scope globals and block-scope `static` locals
// alike, distinguished only by the symbol's Duration, not by where in
// the tree they were declared.
func collectStatics(arena *ast.Arena, h ast.Handle, out *[]codegen.StaticObject) {
	n := arena.Get(h)
	if n == nil {
		return
	}
	if n.Kind == ast.VarDecl && n.Sym != nil && n.Sym.Duration == symtab.Static &&
		n.Sym.Type != nil && !n.Sym.Type.IsFunction() &&
		n.StorageClass != ast.SCExtern {
		// Function prototypes and extern references declare objects
		// defined elsewhere; only real definitions emit .data.
		*out = append(*out, codegen.StaticObject{Sym: n.Sym})
	}
	for _, c := range []ast.Handle{n.A, n.B, n.C, n.D} {
		if c != ast.NoHandle {
			collectStatics(arena, c, out)
		}
	}
	for _, c := range n.Children {
		collectStatics(arena, c, out)
	}
}
