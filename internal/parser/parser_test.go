package parser

import (
	"testing"

	"github.com/gmofishsauce/cc99/internal/symtab"
	"github.com/gmofishsauce/cc99/internal/token"
	"github.com/gmofishsauce/cc99/internal/types"
)

// tb chains hand-built tokens into the linked list the parser
// consumes, standing in for the external lexer.
type tb struct{ head, tail *token.Token }

func (b *tb) push(t *token.Token) *tb {
	if b.head == nil {
		b.head = t
	} else {
		b.tail.Next = t
	}
	b.tail = t
	return b
}

func (b *tb) kw(k token.KeywordID) *tb {
	return b.push(&token.Token{Kind: token.Keyword, Keyword: k})
}
func (b *tb) ident(name string) *tb {
	return b.push(&token.Token{Kind: token.Ident, Ident: name})
}
func (b *tb) punct(p token.Punct) *tb {
	return b.push(&token.Token{Kind: token.PunctKind, Punct: p})
}
func (b *tb) intConst(v uint64) *tb {
	return b.push(&token.Token{Kind: token.IntConst, IntVal: v, IntType: "int"})
}
func (b *tb) build() *token.Token {
	return b.push(&token.Token{Kind: token.EOF}).head
}

func TestEnumeratorValuesFollowC99Rules(t *testing.T) {
	// enum { A = 3, B, C = 7, D };
	toks := (&tb{}).kw(token.KwEnum).punct(token.PLBrace).
		ident("A").punct(token.PAssign).intConst(3).punct(token.PComma).
		ident("B").punct(token.PComma).
		ident("C").punct(token.PAssign).intConst(7).punct(token.PComma).
		ident("D").
		punct(token.PRBrace).punct(token.PSemi).build()

	syms := symtab.New()
	p := New(toks, syms)
	p.ParseTranslationUnit()

	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", p.Diagnostics().All())
	}

	want := map[string]int64{"A": 3, "B": 4, "C": 7, "D": 8}
	for name, value := range want {
		sym := syms.Lookup(name, symtab.Ordinary())
		if sym == nil {
			t.Fatalf("enumerator %s was not declared", name)
		}
		if !sym.IsEnumConst {
			t.Errorf("symbol %s is not marked as an enumeration constant", name)
		}
		if sym.EnumVal != value {
			t.Errorf("enumerator %s = %d, want %d", name, sym.EnumVal, value)
		}
		if sym.Type == nil || sym.Type.Kind != types.Int {
			t.Errorf("enumerator %s has type %v, want int", name, sym.Type)
		}
	}
}

func TestEnumeratorUsableInLaterConstantExpression(t *testing.T) {
	// enum { N = 4 }; int xs[N];
	toks := (&tb{}).kw(token.KwEnum).punct(token.PLBrace).
		ident("N").punct(token.PAssign).intConst(4).
		punct(token.PRBrace).punct(token.PSemi).
		kw(token.KwInt).ident("xs").punct(token.PLBracket).ident("N").punct(token.PRBracket).punct(token.PSemi).
		build()

	syms := symtab.New()
	p := New(toks, syms)
	tu := p.ParseTranslationUnit()

	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", p.Diagnostics().All())
	}
	root := p.Arena().Get(tu)
	var arrType *types.Type
	for _, h := range root.Children {
		if n := p.Arena().Get(h); n.Name == "xs" {
			arrType = n.Type
		}
	}
	if arrType == nil || arrType.Kind != types.Array || arrType.Len == nil {
		t.Fatalf("xs type = %v, want a sized array", arrType)
	}
	if *arrType.Len != 4 {
		t.Errorf("xs length = %d, want 4", *arrType.Len)
	}
}

func TestStructBodyInstallsTagWithLaidOutMembers(t *testing.T) {
	// struct point { int x; int y; };
	toks := (&tb{}).kw(token.KwStruct).ident("point").punct(token.PLBrace).
		kw(token.KwInt).ident("x").punct(token.PSemi).
		kw(token.KwInt).ident("y").punct(token.PSemi).
		punct(token.PRBrace).punct(token.PSemi).build()

	syms := symtab.New()
	p := New(toks, syms)
	p.ParseTranslationUnit()

	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", p.Diagnostics().All())
	}
	tag := syms.Lookup("point", symtab.Tag(symtab.NSTagStruct))
	if tag == nil {
		t.Fatal("tag 'point' was not installed in the struct-tag namespace")
	}
	st := tag.Type
	if !st.Defined || len(st.Members) != 2 {
		t.Fatalf("struct point = %+v, want a defined body with 2 members", st)
	}
	if st.Members[0].Offset != 0 || st.Members[1].Offset != 4 {
		t.Errorf("member offsets = %d, %d; want 0, 4", st.Members[0].Offset, st.Members[1].Offset)
	}
	if got, want := st.Size(), int64(8); got != want {
		t.Errorf("struct point size = %d, want %d", got, want)
	}
}

func TestForwardTagReferenceSharesLaterDefinition(t *testing.T) {
	// struct node { struct node *next; };
	toks := (&tb{}).kw(token.KwStruct).ident("node").punct(token.PLBrace).
		kw(token.KwStruct).ident("node").punct(token.PStar).ident("next").punct(token.PSemi).
		punct(token.PRBrace).punct(token.PSemi).build()

	syms := symtab.New()
	p := New(toks, syms)
	p.ParseTranslationUnit()

	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", p.Diagnostics().All())
	}
	tag := syms.Lookup("node", symtab.Tag(symtab.NSTagStruct))
	if tag == nil {
		t.Fatal("tag 'node' was not installed")
	}
	if len(tag.Type.Members) != 1 {
		t.Fatalf("struct node members = %d, want 1", len(tag.Type.Members))
	}
	next := tag.Type.Members[0]
	if next.Type.Kind != types.Pointer || next.Type.Of != tag.Type {
		t.Error("member 'next' should point back at the same struct type the tag names")
	}
}

func TestBitFieldWidthExceedingTypeIsRejected(t *testing.T) {
	// struct flags { int wide : 40; };
	toks := (&tb{}).kw(token.KwStruct).ident("flags").punct(token.PLBrace).
		kw(token.KwInt).ident("wide").punct(token.PColon).intConst(40).punct(token.PSemi).
		punct(token.PRBrace).punct(token.PSemi).build()

	p := New(toks, symtab.New())
	p.ParseTranslationUnit()

	if !p.Diagnostics().HasErrors() {
		t.Fatal("a 40-bit bit-field of int should be diagnosed")
	}
}
