package heap

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/scope-layout/errors"
)

// objectOfType allocates a bare object whose map carries the given tag.
func objectOfType(t *testing.T, h *Heap, typ InstanceType) Value {
	t.Helper()
	m, err := h.NewMap(typ, 16)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := h.AllocateWithMap(16, m)
	if err != nil {
		t.Fatal(err)
	}
	return Ref(addr)
}

func TestIs_RootMapFastPath(t *testing.T) {
	h := newTestHeap(t)
	addr, err := h.Allocate(24, RootScopeInfoMap)
	if err != nil {
		t.Fatal(err)
	}
	v := Ref(addr)
	if !h.Is(v, ClassScopeInfo) {
		t.Error("object with the ScopeInfo root map should be a ScopeInfo")
	}
	if h.Is(v, ClassString) {
		t.Error("ScopeInfo is not a String")
	}
}

func TestIs_RangeBoundaries(t *testing.T) {
	h := newTestHeap(t)

	tests := []struct {
		name  string
		typ   InstanceType
		class Class
		want  bool
	}{
		{"string low edge", InternalizedStringType, ClassName, true},
		{"string high edge", LastStringType, ClassString, true},
		{"symbol is a name", SymbolType, ClassName, true},
		{"symbol is not a string", SymbolType, ClassString, false},
		{"past name range", SymbolType + 1, ClassName, false},
		{"fixed array base low", FixedArrayType, ClassFixedArrayBase, true},
		{"fixed array base high", StringSetType, ClassFixedArrayBase, true},
		{"fixed array base past", StringSetType + 1, ClassFixedArrayBase, false},
		{"foreign map exact tag", ScopeInfoType, ClassScopeInfo, true},
		{"neighbour of exact tag", ScopeInfoType + 1, ClassScopeInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := objectOfType(t, h, tt.typ)
			if got := h.Is(v, tt.class); got != tt.want {
				t.Errorf("Is(%d, %s): got %v, want %v", tt.typ, tt.class, got, tt.want)
			}
		})
	}
}

func TestCast(t *testing.T) {
	h := newTestHeap(t)
	str, err := h.NewString("x")
	if err != nil {
		t.Fatal(err)
	}

	addr, err := h.Cast(str, ClassName)
	if err != nil {
		t.Fatalf("Cast to Name failed: %v", err)
	}
	if addr != str.Address() {
		t.Errorf("address: got %#x, want %#x", addr, str.Address())
	}

	tests := []struct {
		name   string
		v      Value
		class  Class
		actual string
	}{
		{"smi", Smi(7), ClassScopeInfo, "Smi"},
		{"string as scope info", str, ClassScopeInfo, "String"},
		{"hole as string set", h.TheHole(), ClassStringSet, "TheHole"},
		{"null", Ref(0), ClassMap, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Cast(tt.v, tt.class)
			if !stderrors.Is(err, errors.ErrCast) {
				t.Fatalf("expected cast error, got %v", err)
			}
			var e *errors.Error
			stderrors.As(err, &e)
			if e.Actual != tt.actual {
				t.Errorf("actual: got %q, want %q", e.Actual, tt.actual)
			}
			if e.Expected != tt.class.String() {
				t.Errorf("expected: got %q, want %q", e.Expected, tt.class.String())
			}
		})
	}
}

func TestMatches(t *testing.T) {
	h := newTestHeap(t)
	name, _ := h.NewString("n")
	sym, _ := h.NewSymbol("s")
	set, _ := h.NewStringSet(nil)
	mod, _ := h.NewModuleInfo(nil)

	tests := []struct {
		name    string
		variant Variant
		v       Value
		want    bool
	}{
		{"smi in smi", VariantSmi, Smi(3), true},
		{"name in smi", VariantSmi, name, false},
		{"string in name", VariantName, name, true},
		{"symbol in name", VariantName, sym, true},
		{"undefined in name", VariantName, h.Undefined(), false},
		{"undefined in name|undefined", VariantNameOrUndefined, h.Undefined(), true},
		{"hole in name|undefined", VariantNameOrUndefined, h.TheHole(), false},
		{"hole in scopeinfo|hole", VariantScopeInfoOrHole, h.TheHole(), true},
		{"string in scopeinfo|hole", VariantScopeInfoOrHole, name, false},
		{"set in stringset|hole", VariantStringSetOrHole, set, true},
		{"smi in stringset|hole", VariantStringSetOrHole, Smi(0), false},
		{"module info", VariantModuleInfo, mod, true},
		{"fixed array as module info", VariantModuleInfo, h.Root(RootEmptyFixedArray), false},
		{"null", VariantName, Ref(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Matches(tt.variant, tt.v); got != tt.want {
				t.Errorf("Matches(%s, %s): got %v, want %v", tt.variant.Name, h.Describe(tt.v), got, tt.want)
			}
		})
	}

	if VariantSmi.HoldsReferences() {
		t.Error("Smi variant holds no references")
	}
	if !VariantScopeInfoOrHole.HoldsReferences() {
		t.Error("ScopeInfo|TheHole holds references")
	}
}

func TestDescribe(t *testing.T) {
	h := newTestHeap(t)
	str, _ := h.NewString("abc")
	sym, _ := h.NewSymbol("tag")
	anon, _ := h.NewSymbol("")

	tests := []struct {
		v    Value
		want string
	}{
		{Smi(-5), "-5"},
		{str, `"abc"`},
		{sym, "Symbol(tag)"},
		{anon, "Symbol()"},
		{h.Undefined(), "undefined"},
		{h.TheHole(), "the_hole"},
	}
	for _, tt := range tests {
		if got := h.Describe(tt.v); got != tt.want {
			t.Errorf("Describe: got %q, want %q", got, tt.want)
		}
	}
}
