// Package parser is the recursive-descent syntactic analyzer: token
// stream to AST. A TokenReader-style scanner is driven through a
// hand-written recursive-descent grammar built around three request
// modes (check/optional/expected), accumulating diagnostics into a
// diag.Bag tagged with production depth rather than a flat list of
// error strings.
package parser

import (
	"github.com/gmofishsauce/cc99/internal/ast"
	"github.com/gmofishsauce/cc99/internal/consteval"
	"github.com/gmofishsauce/cc99/internal/diag"
	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
)

// Parser holds the mutable state of one translation unit's parse.
type Parser struct {
	sc    *token.Scanner
	arena *ast.Arena
	bag   *diag.Bag
	syms  *symtab.Table

	// depth is the current recursive-descent production depth,
	// incremented on entry to every grammar production and restored on
	// exit; expected() diagnostics are tagged with it so the deepest
	// failure can be selected as the best message.
	depth int

	// typedefNames tracks which identifiers currently name a typedef,
	// scoped the same way symtab.Table scopes ordinary identifiers, so
	// the grammar can disambiguate "identifier used as a type" from
	// "identifier used as a value": a typedef name is only recognized
	// while in scope.
	typedefNames *symtab.Table
}

// New creates a Parser over a token list.
func New(head *token.Token, syms *symtab.Table) *Parser {
	return &Parser{
		sc:           token.NewScanner(head),
		arena:        ast.NewArena(),
		bag:          &diag.Bag{},
		syms:         syms,
		typedefNames: symtab.New(),
	}
}

// Arena returns the node arena the parse populated.
func (p *Parser) Arena() *ast.Arena { return p.arena }

// Diagnostics returns the accumulated parse diagnostics.
func (p *Parser) Diagnostics() *diag.Bag { return p.bag }

// enter/leave bracket a grammar production for depth tracking.
func (p *Parser) enter() func() {
	p.depth++
	d := p.depth
	return func() {
		if p.depth == d {
			p.depth--
		}
	}
}

// check peeks at the current token without consuming it: the "check"
// request mode.
func (p *Parser) check(pred func(*token.Token) bool) bool {
	return pred(p.sc.Peek())
}

// optional advances past the current token if pred matches, leaving
// position untouched otherwise: the "optional" request mode.
func (p *Parser) optional(pred func(*token.Token) bool) *token.Token {
	if pred(p.sc.Peek()) {
		return p.sc.Next()
	}
	return nil
}

// expected advances past the current token if pred matches; on a
// miss, it records a diagnostic tagged with the current production
// depth and returns nil without consuming input: the "expected"
// request mode.
func (p *Parser) expected(pred func(*token.Token) bool, what string) *token.Token {
	if pred(p.sc.Peek()) {
		return p.sc.Next()
	}
	t := p.sc.Peek()
	p.bag.AddAt(diag.Error, toDiagPos(posOf(t)), p.depth, "expected %s, found %s", what, describe(t))
	return nil
}

func isPunct(punct token.Punct) func(*token.Token) bool {
	return func(t *token.Token) bool { return t.IsPunct(punct) }
}

func isKeyword(kw token.KeywordID) func(*token.Token) bool {
	return func(t *token.Token) bool { return t.IsKeyword(kw) }
}

func isIdent(t *token.Token) bool { return t.Kind == token.Ident }

func posOf(t *token.Token) token.Pos {
	return t.Pos
}

func toDiagPos(p token.Pos) diag.Pos {
	return diag.Pos{File: p.File, Line: p.Line, Col: p.Col}
}

func describe(t *token.Token) string {
	switch t.Kind {
	case token.Ident:
		return "identifier '" + t.Ident + "'"
	case token.EOF:
		return "end of input"
	default:
		return t.Kind.String()
	}
}

// evalConstInt evaluates an already-parsed expression as an integer
// constant, for the grammar positions that require one before the
// typing pass runs: array bounds, bit-field widths, and enumerator
// values. Identifier leaves are resolved against the symbol table
// first, since the parser builds these subtrees before the semantic
// analyzer attaches symbols; only enumeration constants can actually
// appear in them, and those are declared by the parser itself.
func (p *Parser) evalConstInt(h ast.Handle) (int64, bool) {
	p.resolveConstIdents(h)
	v := consteval.New(p.arena, p.syms, consteval.Integer).Eval(h)
	if !v.Ok {
		p.bag.AddAt(diag.Error, v.Diag.Pos, p.depth, "%s", v.Diag.Message)
		return 0, false
	}
	return v.Int, true
}

func (p *Parser) resolveConstIdents(h ast.Handle) {
	n := p.arena.Get(h)
	if n == nil {
		return
	}
	if n.Kind == ast.IdentExpr && n.Sym == nil {
		n.Sym = p.syms.Lookup(n.Name, symtab.Ordinary())
	}
	for _, c := range []ast.Handle{n.A, n.B, n.C, n.D} {
		if c != ast.NoHandle {
			p.resolveConstIdents(c)
		}
	}
	for _, c := range n.Children {
		p.resolveConstIdents(c)
	}
}

// isTypedefName reports whether ident currently names a typedef,
// consulting a scope stack of typedef names kept in parallel with the
// symbol table.
func (p *Parser) isTypedefName(ident string) bool {
	return p.typedefNames.Lookup(ident, symtab.Ordinary()) != nil
}

// ParseTranslationUnit parses the whole token stream into a
// TranslationUnit AST node whose children are external declarations.
func (p *Parser) ParseTranslationUnit() ast.Handle {
	defer p.enter()()
	tu := p.arena.New(ast.TranslationUnit, posOf(p.sc.Peek()))
	n := p.arena.Get(tu)
	for !p.sc.AtEOF() {
		mark := p.sc.Mark()
		decl := p.parseExternalDeclaration()
		if decl == ast.NoHandle || p.sc.Mark() == mark {
			// Resynchronize on a parse failure that consumed nothing by
			// skipping a token, so later declarations still parse.
			if p.sc.AtEOF() {
				break
			}
			p.sc.Next()
			if decl == ast.NoHandle {
				continue
			}
		}
		p.arena.SetParent(decl, tu)
		n.Children = append(n.Children, decl)
	}
	return tu
}
