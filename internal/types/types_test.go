package types

import "testing"

func i64(v int64) *int64 { return &v }

func TestSizeBasic(t *testing.T) {
	tests := []struct {
		kind Kind
		want int64
	}{
		{Void, 0},
		{Bool, 1},
		{Char, 1},
		{Short, 2},
		{Int, 4},
		{UInt, 4},
		{Long, 8},
		{ULongLong, 8},
		{Float, 4},
		{Double, 8},
		{LongDouble, 16},
		{FloatComplex, 8},
	}
	for _, tt := range tests {
		if got := Basic(tt.kind).Size(); got != tt.want {
			t.Errorf("Basic(%v).Size() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestSizePointerAndArray(t *testing.T) {
	p := PointerTo(Basic(Int), QualNone)
	if got, want := p.Size(), int64(8); got != want {
		t.Errorf("pointer Size() = %d, want %d", got, want)
	}

	arr := ArrayOf(Basic(Int), i64(10))
	if got, want := arr.Size(), int64(40); got != want {
		t.Errorf("int[10] Size() = %d, want %d", got, want)
	}

	incomplete := ArrayOf(Basic(Int), nil)
	if got := incomplete.Size(); got != -1 {
		t.Errorf("incomplete array Size() = %d, want -1", got)
	}
}

func TestLayoutMembersNaturalPadding(t *testing.T) {
	// struct { char c; int i; char c2; } lays out as:
	//   c at 0, i at 4 (aligned up from 1), c2 at 8, total size 12
	// (alignment 4 rounds the struct size up from 9).
	st := &Type{
		Kind:    Struct,
		Defined: true,
		Members: []Member{
			{Name: "c", Type: Basic(Char), BitWidth: -1},
			{Name: "i", Type: Basic(Int), BitWidth: -1},
			{Name: "c2", Type: Basic(Char), BitWidth: -1},
		},
	}
	LayoutMembers(st)

	wantOffsets := map[string]int64{"c": 0, "i": 4, "c2": 8}
	for _, m := range st.Members {
		if got, want := m.Offset, wantOffsets[m.Name]; got != want {
			t.Errorf("member %s offset = %d, want %d", m.Name, got, want)
		}
	}
	if got, want := st.Size(), int64(12); got != want {
		t.Errorf("struct Size() = %d, want %d", got, want)
	}
	if got, want := st.Alignment(), int64(4); got != want {
		t.Errorf("struct Alignment() = %d, want %d", got, want)
	}
}

func TestLayoutMembersUnionSharesOffsetZero(t *testing.T) {
	un := &Type{
		Kind:    Union,
		Defined: true,
		Members: []Member{
			{Name: "i", Type: Basic(Int), BitWidth: -1},
			{Name: "d", Type: Basic(Double), BitWidth: -1},
		},
	}
	LayoutMembers(un)

	for _, m := range un.Members {
		if m.Offset != 0 {
			t.Errorf("union member %s offset = %d, want 0", m.Name, m.Offset)
		}
	}
	if got, want := un.Size(), int64(8); got != want {
		t.Errorf("union Size() = %d, want %d (widest member)", got, want)
	}
}

func TestLayoutMembersBitFieldsPackIntoSharedStorage(t *testing.T) {
	// struct { unsigned a:3; unsigned b:5; unsigned c:30; } — a and b
	// share one 4-byte storage unit (3+5=8 <= 32), c needs a fresh one.
	st := &Type{
		Kind: Struct,
		Members: []Member{
			{Name: "a", Type: Basic(UInt), BitWidth: 3},
			{Name: "b", Type: Basic(UInt), BitWidth: 5},
			{Name: "c", Type: Basic(UInt), BitWidth: 30},
		},
	}
	LayoutMembers(st)

	if st.Members[0].Offset != st.Members[1].Offset {
		t.Errorf("bit-fields a, b should share a storage unit: a=%d b=%d",
			st.Members[0].Offset, st.Members[1].Offset)
	}
	if st.Members[2].Offset == st.Members[0].Offset {
		t.Errorf("bit-field c should not fit in a's storage unit (3+30 > 32)")
	}
}

func TestIsCompletePredicate(t *testing.T) {
	if Basic(Void).IsComplete() {
		t.Error("void should be incomplete")
	}
	if ArrayOf(Basic(Int), nil).IsComplete() {
		t.Error("unspecified-size array should be incomplete")
	}
	if !ArrayOf(Basic(Int), i64(4)).IsComplete() {
		t.Error("sized array should be complete")
	}
	if !Basic(Int).IsComplete() {
		t.Error("int should be complete")
	}
}

func TestIsIntegerIsFloatingIsScalar(t *testing.T) {
	if !Basic(Enum).IsInteger() {
		t.Error("enum should be an integer type per C99 6.2.5p17")
	}
	if Basic(Float).IsInteger() {
		t.Error("float should not be an integer type")
	}
	if !Basic(Double).IsFloating() {
		t.Error("double should be floating")
	}
	if !PointerTo(Basic(Int), QualNone).IsScalar() {
		t.Error("pointer should be scalar")
	}
	if (&Type{Kind: Struct}).IsScalar() {
		t.Error("struct should not be scalar")
	}
}

func TestCompatiblePointersAndArrays(t *testing.T) {
	a := PointerTo(Basic(Int), QualNone)
	b := PointerTo(Basic(Int), QualConst)
	if !Compatible(a, b) {
		t.Error("pointers to the same unqualified pointee should be compatible regardless of top-level qualifiers")
	}

	c := PointerTo(Basic(Double), QualNone)
	if Compatible(a, c) {
		t.Error("pointers to incompatible pointees should not be compatible")
	}

	arr1 := ArrayOf(Basic(Int), i64(5))
	arr2 := ArrayOf(Basic(Int), i64(5))
	arr3 := ArrayOf(Basic(Int), i64(6))
	if !Compatible(arr1, arr2) {
		t.Error("arrays of the same element type and length should be compatible")
	}
	if Compatible(arr1, arr3) {
		t.Error("arrays of differing lengths should not be compatible")
	}
}

func TestCompatibleStructsByTag(t *testing.T) {
	a := &Type{Kind: Struct, Tag: "point"}
	b := &Type{Kind: Struct, Tag: "point"}
	c := &Type{Kind: Struct, Tag: "other"}
	if !Compatible(a, b) {
		t.Error("structs with the same tag should be compatible")
	}
	if Compatible(a, c) {
		t.Error("structs with different tags should not be compatible")
	}
}
