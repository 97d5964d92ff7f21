package pipeline

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/gmofishsauce/cc99/internal/config"
	"github.com/gmofishsauce/cc99/internal/token"
)

// tokenBuilder chains hand-built tokens into the linked list
// internal/token.Scanner expects, standing in for a lexer the core
// pipeline never runs itself (spec.md's lexer Non-goal) the same way
// the parser's own tests feed it pre-built token fixtures.
type tokenBuilder struct{ head, tail *token.Token }

func (b *tokenBuilder) push(t *token.Token) *tokenBuilder {
	if b.head == nil {
		b.head = t
	} else {
		b.tail.Next = t
	}
	b.tail = t
	return b
}

func (b *tokenBuilder) kw(k token.KeywordID) *tokenBuilder {
	return b.push(&token.Token{Kind: token.Keyword, Keyword: k})
}
func (b *tokenBuilder) ident(name string) *tokenBuilder {
	return b.push(&token.Token{Kind: token.Ident, Ident: name})
}
func (b *tokenBuilder) punct(p token.Punct) *tokenBuilder {
	return b.push(&token.Token{Kind: token.PunctKind, Punct: p})
}
func (b *tokenBuilder) intConst(v uint64) *tokenBuilder {
	return b.push(&token.Token{Kind: token.IntConst, IntVal: v, IntType: "int"})
}
func (b *tokenBuilder) build() *token.Token {
	return b.push(&token.Token{Kind: token.EOF}).head
}

// intMain0 builds "int main(void) { return 0; }".
func intMain0() *token.Token {
	b := &tokenBuilder{}
	return b.kw(token.KwInt).ident("main").punct(token.PLParen).kw(token.KwVoid).punct(token.PRParen).
		punct(token.PLBrace).
		kw(token.KwReturn).intConst(0).punct(token.PSemi).
		punct(token.PRBrace).
		build()
}

// intMainGotoNope builds "int main(void) { goto nope; }", whose label
// is never defined.
func intMainGotoNope() *token.Token {
	b := &tokenBuilder{}
	return b.kw(token.KwInt).ident("main").punct(token.PLParen).kw(token.KwVoid).punct(token.PRParen).
		punct(token.PLBrace).
		kw(token.KwGoto).ident("nope").punct(token.PSemi).
		punct(token.PRBrace).
		build()
}

func TestCompileSimpleFunction(t *testing.T) {
	result := Compile(intMain0(), config.Default())

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Message)
	}
	if result.Assembly == "" {
		t.Fatal("Compile() produced no assembly")
	}
	if !strings.Contains(result.Assembly, "main") {
		t.Errorf("Compile() assembly does not mention 'main':\n%s", result.Assembly)
	}
	snaps.MatchSnapshot(t, result.Assembly)
}

// addFunc builds "int f(int a, int b) { return a + b; } int i = 5;".
func addFunc() *token.Token {
	b := &tokenBuilder{}
	return b.kw(token.KwInt).ident("f").punct(token.PLParen).
		kw(token.KwInt).ident("a").punct(token.PComma).
		kw(token.KwInt).ident("b").punct(token.PRParen).
		punct(token.PLBrace).
		kw(token.KwReturn).ident("a").punct(token.PPlus).ident("b").punct(token.PSemi).
		punct(token.PRBrace).
		kw(token.KwInt).ident("i").punct(token.PAssign).intConst(5).punct(token.PSemi).
		build()
}

func TestCompileArgumentsAndStaticData(t *testing.T) {
	result := Compile(addFunc(), config.Default())

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Message)
	}
	asm := result.Assembly
	if asm == "" {
		t.Fatal("Compile() produced no assembly")
	}
	for _, want := range []string{".globl f", "f:", "%edi", "%esi", ".data", ".globl i", "i:", ".byte 5"} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly does not contain %q:\n%s", want, asm)
		}
	}
}

// forLoop builds "int main(void) { for (int i = 0; i < 3; ++i) {} return 0; }".
func forLoop() *token.Token {
	b := &tokenBuilder{}
	return b.kw(token.KwInt).ident("main").punct(token.PLParen).kw(token.KwVoid).punct(token.PRParen).
		punct(token.PLBrace).
		kw(token.KwFor).punct(token.PLParen).
		kw(token.KwInt).ident("i").punct(token.PAssign).intConst(0).punct(token.PSemi).
		ident("i").punct(token.PLt).intConst(3).punct(token.PSemi).
		punct(token.PIncr).ident("i").
		punct(token.PRParen).punct(token.PLBrace).punct(token.PRBrace).
		kw(token.KwReturn).intConst(0).punct(token.PSemi).
		punct(token.PRBrace).
		build()
}

func TestCompileForLoopBranchShape(t *testing.T) {
	result := Compile(forLoop(), config.Default())

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Message)
	}
	asm := result.Assembly
	if asm == "" {
		t.Fatal("Compile() produced no assembly")
	}
	// One unconditional jump into the condition, one conditional branch
	// back to the body.
	for _, want := range []string{"jmp .Lforcond", "jne .Lforbody", ".Lforbody", ".Lforcond"} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly does not contain %q:\n%s", want, asm)
		}
	}
}

// switchBreak builds "int main(void) { switch (0) { default: break; } return 0; }".
func switchBreak() *token.Token {
	b := &tokenBuilder{}
	return b.kw(token.KwInt).ident("main").punct(token.PLParen).kw(token.KwVoid).punct(token.PRParen).
		punct(token.PLBrace).
		kw(token.KwSwitch).punct(token.PLParen).intConst(0).punct(token.PRParen).
		punct(token.PLBrace).
		kw(token.KwDefault).punct(token.PColon).kw(token.KwBreak).punct(token.PSemi).
		punct(token.PRBrace).
		kw(token.KwReturn).intConst(0).punct(token.PSemi).
		punct(token.PRBrace).
		build()
}

func TestCompileBreakInSwitchTargetsSwitchEnd(t *testing.T) {
	result := Compile(switchBreak(), config.Default())

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Message)
	}
	asm := result.Assembly
	if asm == "" {
		t.Fatal("Compile() produced no assembly")
	}
	// The break must jump to the switch's exit, never back to the case
	// label that owns it (which would loop forever).
	if !strings.Contains(asm, "jmp .Lswitchend") {
		t.Errorf("break did not target the switch end:\n%s", asm)
	}
}

func TestCompileUndefinedLabelGoto(t *testing.T) {
	result := Compile(intMainGotoNope(), config.Default())

	if result.Assembly != "" {
		t.Fatalf("Compile() with an undefined label produced assembly:\n%s", result.Assembly)
	}
	if len(result.Diagnostics) == 0 {
		t.Fatal("Compile() with an undefined label produced no diagnostics")
	}
	found := false
	for _, d := range result.Diagnostics {
		if strings.Contains(d.Message, "nope") {
			found = true
		}
	}
	if !found {
		t.Errorf("Compile() diagnostics do not mention the undefined label: %+v", result.Diagnostics)
	}
}
