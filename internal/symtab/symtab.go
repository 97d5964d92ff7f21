// Package symtab is the identifier-to-symbol map: scope and namespace
// disambiguation, linkage, and storage-duration derivation.
//
// A flat global-plus-per-function symbol table keyed by bare name is
// generalized here to C's nested block scopes and four namespaces,
// and to linkage derived from storage class and scope instead of a
// public-name-by-case convention.
package symtab

import "github.com/gmofishsauce/cc99/internal/types"

// NamespaceKind is one of C99's four identifier namespaces (C99
// 6.2.3). Member namespaces are further keyed by the containing
// aggregate's tag so members of distinct structs never collide.
type NamespaceKind int

const (
	NSLabel NamespaceKind = iota
	NSTagStruct
	NSTagUnion
	NSTagEnum
	NSMember // carries Aggregate
	NSOrdinary
)

// Namespace identifies which of the four C namespaces a symbol
// belongs to, carrying the containing aggregate's tag for member
// namespaces ("Member namespaces carry the containing
// aggregate type for disambiguation").
type Namespace struct {
	Kind      NamespaceKind
	Aggregate string // tag name, only meaningful when Kind == NSMember
}

func Ordinary() Namespace                { return Namespace{Kind: NSOrdinary} }
func Label() Namespace                   { return Namespace{Kind: NSLabel} }
func Tag(k NamespaceKind) Namespace       { return Namespace{Kind: k} }
func Member(aggregate string) Namespace  { return Namespace{Kind: NSMember, Aggregate: aggregate} }

// Linkage is a symbol's linkage per C99 6.2.2: the property that
// determines whether two identifier occurrences refer to the same
// object or function.
type Linkage int

const (
	NoLinkage Linkage = iota
	Internal
	External
)

func (l Linkage) String() string {
	switch l {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return "none"
	}
}

// StorageDuration is a symbol's storage duration, per C99 6.2.4.
type StorageDuration int

const (
	NoDuration StorageDuration = iota
	Automatic
	Static
	Allocated // malloc'd storage; tracked only for completeness, never produced by this pipeline
)

func (d StorageDuration) String() string {
	switch d {
	case Automatic:
		return "automatic"
	case Static:
		return "static"
	case Allocated:
		return "allocated"
	default:
		return "none"
	}
}

// Reloc is one relocation entry in a static-duration object's
// initializer image: the byte offset within the image that must be
// patched to hold the address of another symbol, plus addend.
type Reloc struct {
	Offset int64
	Target *Symbol
	Addend int64
}

// Symbol is one declared identifier, "Symbol": the
// declaring AST node (kept opaque here as `any` to avoid an import
// cycle with internal/ast, which itself references symbols), a type,
// a namespace, a disambiguator, storage location, linkage, and
// initializer data.
type Symbol struct {
	Name      string
	NS        Namespace
	Type      *types.Type
	Decl      any // *ast.Node of the (first) declaring occurrence

	Linkage  Linkage
	Duration StorageDuration

	// IsEnumConst marks an enumeration constant; EnumVal is its value,
	// fixed when the enumerator list is processed. An enumeration
	// constant has no linkage and no storage: it exists only as a
	// compile-time int.
	IsEnumConst bool
	EnumVal     int64

	// Disambiguator makes static-duration local symbols and
	// compiler-generated temporaries unique at the assembly level
	// (e.g. two functions each with a local `static int n`).
	Disambiguator int

	// AsmName is the explicit emitted symbol name for a symbol with
	// static duration; empty for automatic-duration symbols, which are
	// addressed through a stack offset instead.
	AsmName string

	// FrameOffset is filled by the semantic analyzer's typing pass for
	// automatic-duration symbols (negative, relative to the frame base).
	FrameOffset int64

	// Init is the byte image of a static-duration object's initializer,
	// and Relocs the positions within it that must be patched to the
	// addresses of other symbols.
	Init   []byte
	Relocs []Reloc

	// next chains same-named symbols across distinct scopes/namespaces
	// sharing the same (name, namespace) key, so a redeclaration in a
	// different scope doesn't clobber an outer one's entry.
	next *Symbol
}

// key identifies one (name, namespace) pair within a scope.
type key struct {
	name string
	ns   Namespace
}

// Scope is one lexical block. Scopes nest via Parent; file scope has
// a nil Parent.
type Scope struct {
	Parent *Scope
	// IsFunctionProto marks the scope introduced by a function
	// declarator's parameter list, which per C99 6.2.1p4 is visible
	// only within that declarator and the function's own body block
	// (the body's block scope is a child that inherits it directly).
	IsFunctionProto bool
	symbols         map[key]*Symbol
}

func newScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, symbols: make(map[key]*Symbol)}
}

// Table is the symbol table for one translation unit: a stack of
// nested scopes rooted at file scope, per the "Symbol table
// lifetime" note that the table outlives individual AST nodes and is
// owned by the translation unit.
type Table struct {
	file    *Scope
	current *Scope
	nextDisambiguator int
}

// New creates a symbol table positioned at file scope.
func New() *Table {
	t := &Table{}
	t.file = newScope(nil)
	t.current = t.file
	return t
}

// FileScope returns the file-scope block.
func (t *Table) FileScope() *Scope { return t.file }

// Current returns the innermost open scope.
func (t *Table) Current() *Scope { return t.current }

// PushScope opens a new block scope nested in the current one.
func (t *Table) PushScope() *Scope {
	t.current = newScope(t.current)
	return t.current
}

// PushFunctionPrototypeScope opens the parameter-list scope of a
// function declarator.
func (t *Table) PushFunctionPrototypeScope() *Scope {
	s := newScope(t.current)
	s.IsFunctionProto = true
	t.current = s
	return s
}

// PopScope closes the current scope and returns to its parent. It is
// a programming error to pop file scope; callers must not do so.
func (t *Table) PopScope() {
	if t.current.Parent != nil {
		t.current = t.current.Parent
	}
}

// AtFileScope reports whether the current scope is file scope.
func (t *Table) AtFileScope() bool { return t.current == t.file }

// Declare inserts a new symbol into the current scope's namespace. It
// never merges linkage; callers that need the block-scope-extern
// merging rule of original_source/src/symbol.c should use
// DeclareExternAlias instead. Declare returns the prior symbol already
// present at (name, ns) in the current scope, or nil.
func (t *Table) Declare(sym *Symbol) (prior *Symbol) {
	k := key{sym.Name, sym.NS}
	prior = t.current.symbols[k]
	if prior != nil {
		sym.next = prior
	}
	t.current.symbols[k] = sym
	return prior
}

// LookupInScope looks up (name, ns) in exactly one scope, without
// walking parents.
func (s *Scope) LookupInScope(name string, ns Namespace) *Symbol {
	return s.symbols[key{name, ns}]
}

// Lookup walks from the current scope outward to file scope, per
// C99 6.2.1's "inner scope hides outer scope" rule, and returns the
// first symbol found in (name, ns).
func (t *Table) Lookup(name string, ns Namespace) *Symbol {
	for s := t.current; s != nil; s = s.Parent {
		if sym := s.symbols[key{name, ns}]; sym != nil {
			return sym
		}
	}
	return nil
}

// LookupFile looks up (name, ns) in file scope only, used to
// implement the block-scope-extern linkage merge.
func (t *Table) LookupFile(name string, ns Namespace) *Symbol {
	return t.file.symbols[key{name, ns}]
}

// NextDisambiguator returns a fresh, monotonically increasing integer
// for assembly-level uniqueness, "a disambiguator
// number (assembly-level uniqueness)".
func (t *Table) NextDisambiguator() int {
	t.nextDisambiguator++
	return t.nextDisambiguator
}

// DeclareExternAlias implements the block-scope extern linkage-merge
// rule: a block-scope `extern` declaration that names an identifier
// already visible with external or internal linkage shares that
// symbol's linkage and storage duration rather than introducing a new
// symbol. If no such prior declaration is visible, sym is declared
// fresh with external linkage (the default for a first `extern`
// declaration, C99 6.2.2p4).
func (t *Table) DeclareExternAlias(sym *Symbol) *Symbol {
	if prior := t.Lookup(sym.Name, sym.NS); prior != nil && prior.Linkage != NoLinkage {
		t.current.symbols[key{sym.Name, sym.NS}] = prior
		return prior
	}
	sym.Linkage = External
	sym.Duration = Static
	t.Declare(sym)
	return sym
}
