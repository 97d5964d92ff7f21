// Package sema is the two-pass semantic analyzer sitting between
// syntactic analysis and AIR lowering.
//
// Type walks the tree the parser built, attaching a *types.Type to
// every expression and declarator, declaring ordinary-namespace
// symbols in the table the parser threaded through but never
// populated, resolving every identifier reference against it, and
// reporting redeclarations whose types conflict with a prior one.
// Analyze then walks the typed tree checking the constraints of C99
// 6.2-6.8 that only make sense once every node carries a type and a
// resolved symbol: misplaced storage classes,
// non-modifiable-lvalue assignment, undefined labels, and case-label
// placement and uniqueness.
//
// Splitting these into two full passes (rather than folding
// constraint checks into the same walk that assigns types) mirrors
// the parser/semantic-analyzer separation the rest of this pipeline
// already draws between syntax and meaning: a type error in one
// statement should never prevent every other declaration in the file
// from still being typed and checked.
package sema

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
)

// Run executes both passes over one translation unit in sequence,
// returning the per-function stack frame size the typing pass
// computed while assigning FrameOffset to every automatic-duration
// object it declared (keyed by function name, for
// internal/pipeline to hand to codegen.RoutineInput).
func Run(tu ast.Handle, arena *ast.Arena, syms *symtab.Table, bag *diag.Bag) map[string]int64 {
	t := newTyper(arena, syms, bag)
	t.typeTranslationUnit(tu)
	Analyze(tu, arena, syms, bag)
	return t.frameSizes
}

func posOf(n *ast.Node) diag.Pos {
	return diag.Pos{File: n.Pos.File, Line: n.Pos.Line, Col: n.Pos.Col}
}
