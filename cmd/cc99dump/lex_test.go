package main

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gmofishsauce/cc99/internal/token"
)

// tokenShape is the subset of a token.Token worth comparing in these
// tests: position and the payload fields a fixture actually exercises.
type tokenShape struct {
	Kind    token.Kind
	Keyword token.KeywordID
	Ident   string
	IntVal  uint64
	IntType string
	Punct   token.Punct
}

func shapesOf(head *token.Token) []tokenShape {
	var got []tokenShape
	for t := head; t != nil; t = t.Next {
		got = append(got, tokenShape{
			Kind: t.Kind, Keyword: t.Keyword, Ident: t.Ident,
			IntVal: t.IntVal, IntType: t.IntType, Punct: t.Punct,
		})
		if t.Kind == token.EOF {
			break
		}
	}
	return got
}

func TestLexSimpleDeclaration(t *testing.T) {
	src := "int x = 5;"
	head := Lex(strings.NewReader(src), "test.c")

	want := []tokenShape{
		{Kind: token.Keyword, Keyword: token.KwInt},
		{Kind: token.Ident, Ident: "x"},
		{Kind: token.PunctKind, Punct: token.PAssign},
		{Kind: token.IntConst, IntVal: 5, IntType: "int"},
		{Kind: token.PunctKind, Punct: token.PSemi},
		{Kind: token.EOF},
	}
	if diff := cmp.Diff(want, shapesOf(head)); diff != "" {
		t.Errorf("Lex(%q) mismatch (-want +got):\n%s", src, diff)
	}
}

func TestLexSkipsComments(t *testing.T) {
	src := "// comment\nint /* inline */ y;"
	head := Lex(strings.NewReader(src), "test.c")

	want := []tokenShape{
		{Kind: token.Keyword, Keyword: token.KwInt},
		{Kind: token.Ident, Ident: "y"},
		{Kind: token.PunctKind, Punct: token.PSemi},
		{Kind: token.EOF},
	}
	if diff := cmp.Diff(want, shapesOf(head)); diff != "" {
		t.Errorf("Lex(%q) mismatch (-want +got):\n%s", src, diff)
	}
}

func TestLexLongestMatchPunctuation(t *testing.T) {
	src := "a <<= b >> c"
	head := Lex(strings.NewReader(src), "test.c")

	want := []tokenShape{
		{Kind: token.Ident, Ident: "a"},
		{Kind: token.PunctKind, Punct: token.PShlAssign},
		{Kind: token.Ident, Ident: "b"},
		{Kind: token.PunctKind, Punct: token.PShr},
		{Kind: token.Ident, Ident: "c"},
		{Kind: token.EOF},
	}
	if diff := cmp.Diff(want, shapesOf(head)); diff != "" {
		t.Errorf("Lex(%q) mismatch (-want +got):\n%s", src, diff)
	}
}

func TestLexHexAndSuffixedIntegers(t *testing.T) {
	src := "0x2A 10UL"
	head := Lex(strings.NewReader(src), "test.c")

	want := []tokenShape{
		{Kind: token.IntConst, IntVal: 42, IntType: "int"},
		{Kind: token.IntConst, IntVal: 10, IntType: "unsigned long"},
		{Kind: token.EOF},
	}
	if diff := cmp.Diff(want, shapesOf(head)); diff != "" {
		t.Errorf("Lex(%q) mismatch (-want +got):\n%s", src, diff)
	}
}
