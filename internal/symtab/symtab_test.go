package symtab

import "testing"

func TestDeclareAndLookupAcrossScopes(t *testing.T) {
	tab := New()
	outer := &Symbol{Name: "x", NS: Ordinary()}
	if prior := tab.Declare(outer); prior != nil {
		t.Fatalf("Declare() at file scope returned unexpected prior symbol: %+v", prior)
	}

	tab.PushScope()
	if got := tab.Lookup("x", Ordinary()); got != outer {
		t.Fatalf("Lookup() from nested scope did not find outer 'x'")
	}

	inner := &Symbol{Name: "x", NS: Ordinary()}
	tab.Declare(inner)
	if got := tab.Lookup("x", Ordinary()); got != inner {
		t.Fatalf("inner declaration of 'x' should shadow the outer one")
	}

	tab.PopScope()
	if got := tab.Lookup("x", Ordinary()); got != outer {
		t.Fatalf("Lookup() after PopScope should see outer 'x' again, got %+v", got)
	}
}

func TestNamespacesDoNotCollide(t *testing.T) {
	tab := New()
	tab.Declare(&Symbol{Name: "point", NS: Ordinary()})
	tab.Declare(&Symbol{Name: "point", NS: Tag(NSTagStruct)})

	if tab.Lookup("point", Ordinary()) == tab.Lookup("point", Tag(NSTagStruct)) {
		t.Fatal("ordinary and struct-tag namespaces should not share an entry for the same name")
	}
}

func TestMemberNamespaceKeyedByAggregate(t *testing.T) {
	tab := New()
	a := &Symbol{Name: "len", NS: Member("vec")}
	b := &Symbol{Name: "len", NS: Member("str")}
	tab.Declare(a)
	tab.Declare(b)

	if got := tab.Lookup("len", Member("vec")); got != a {
		t.Errorf("Lookup(len, Member(vec)) = %+v, want %+v", got, a)
	}
	if got := tab.Lookup("len", Member("str")); got != b {
		t.Errorf("Lookup(len, Member(str)) = %+v, want %+v", got, b)
	}
}

func TestDeclareExternAliasSharesFileScopeSymbol(t *testing.T) {
	tab := New()
	fileSym := &Symbol{Name: "counter", NS: Ordinary(), Linkage: External, Duration: Static}
	tab.Declare(fileSym)

	tab.PushScope()
	blockExtern := &Symbol{Name: "counter", NS: Ordinary()}
	got := tab.DeclareExternAlias(blockExtern)

	if got != fileSym {
		t.Fatalf("DeclareExternAlias() = %+v, want the file-scope symbol %+v", got, fileSym)
	}
	if tab.Lookup("counter", Ordinary()) != fileSym {
		t.Fatal("block-scope extern should resolve lookups to the file-scope symbol")
	}
}

func TestDeclareExternAliasFirstDeclarationGetsExternalLinkage(t *testing.T) {
	tab := New()
	tab.PushScope()
	sym := &Symbol{Name: "g", NS: Ordinary()}
	got := tab.DeclareExternAlias(sym)

	if got.Linkage != External {
		t.Errorf("first extern declaration linkage = %v, want External", got.Linkage)
	}
	if got.Duration != Static {
		t.Errorf("first extern declaration duration = %v, want Static", got.Duration)
	}
}

func TestNextDisambiguatorIsMonotonic(t *testing.T) {
	tab := New()
	a := tab.NextDisambiguator()
	b := tab.NextDisambiguator()
	if b <= a {
		t.Errorf("NextDisambiguator() should be strictly increasing, got %d then %d", a, b)
	}
}

func TestFunctionPrototypeScopeFlag(t *testing.T) {
	tab := New()
	s := tab.PushFunctionPrototypeScope()
	if !s.IsFunctionProto {
		t.Error("PushFunctionPrototypeScope() scope should have IsFunctionProto set")
	}
	if tab.AtFileScope() {
		t.Error("AtFileScope() should be false inside a pushed scope")
	}
	tab.PopScope()
	if !tab.AtFileScope() {
		t.Error("AtFileScope() should be true after popping back to file scope")
	}
}
