package heap

import "testing"

func TestSmi_RoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, 42, -42, MaxSmi, MinSmi}
	for _, v := range tests {
		s := Smi(v)
		if !s.IsSmi() || s.IsHeapObject() {
			t.Errorf("Smi(%d) not tagged as Smi", v)
		}
		if got := s.SmiValue(); got != v {
			t.Errorf("Smi(%d): got %d", v, got)
		}
	}
}

func TestSmiFromInt_Range(t *testing.T) {
	tests := []struct {
		v  int
		ok bool
	}{
		{0, true},
		{MaxSmi, true},
		{MinSmi, true},
		{MaxSmi + 1, false},
		{MinSmi - 1, false},
	}
	for _, tt := range tests {
		if _, ok := SmiFromInt(tt.v); ok != tt.ok {
			t.Errorf("SmiFromInt(%d): got %v, want %v", tt.v, ok, tt.ok)
		}
	}
}

func TestRef(t *testing.T) {
	v := Ref(0x120)
	if !v.IsHeapObject() {
		t.Fatal("Ref not tagged as object")
	}
	if v.Address() != 0x120 {
		t.Errorf("address: got %#x, want 0x120", v.Address())
	}
	if uint32(v) != 0x121 {
		t.Errorf("raw: got %#x, want 0x121", uint32(v))
	}
	if v.String() != "@0x120" {
		t.Errorf("String: got %q", v.String())
	}
	if Smi(-3).String() != "Smi(-3)" {
		t.Errorf("String: got %q", Smi(-3).String())
	}
}

func TestClassTable_RootMaps(t *testing.T) {
	for c := Class(0); c < numClasses; c++ {
		info := c.Info()
		if info.RootMap != NoRoot && !info.Range.IsExact() {
			t.Errorf("%s: root map on a range of %d tags", info.Name, info.Range.End-info.Range.Start+1)
		}
	}
	if !Exact(MapType).IsExact() {
		t.Error("Exact range not exact")
	}
	if ClassName.Info().Range.IsExact() {
		t.Error("Name range reported exact")
	}
}

func TestTypeRange_Contains(t *testing.T) {
	tests := []struct {
		name string
		r    TypeRange
		t    InstanceType
		want bool
	}{
		{"below start", TypeRange{96, 100}, 95, false},
		{"start", TypeRange{96, 100}, 96, true},
		{"inside", TypeRange{96, 100}, 97, true},
		{"end", TypeRange{96, 100}, 100, true},
		{"past end", TypeRange{96, 100}, 101, false},
		{"name low", TypeRange{0, 8}, 0, true},
		{"name high", TypeRange{0, 8}, 8, true},
		{"name past", TypeRange{0, 8}, 9, false},
		{"exact hit", Exact(ScopeInfoType), ScopeInfoType, true},
		{"exact neighbour", Exact(ScopeInfoType), ScopeInfoType + 1, false},
		{"exact below", Exact(ScopeInfoType), ScopeInfoType - 1, false},
		{"max tag", TypeRange{10, 20}, 0xFFFF, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%d): got %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		t    InstanceType
		want Class
		ok   bool
	}{
		{InternalizedStringType, ClassString, true},
		{LastStringType, ClassString, true},
		{SymbolType, ClassSymbol, true},
		{OddballType, ClassOddball, true},
		{FixedArrayType, ClassFixedArray, true},
		{ModuleInfoType, ClassModuleInfo, true},
		{98, ClassFixedArrayBase, true},
		{StringSetType, ClassStringSet, true},
		{ScopeInfoType, ClassScopeInfo, true},
		{MapType, ClassMap, true},
		{50, 0, false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.t)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Classify(%d): got (%s, %v), want (%s, %v)", tt.t, got, ok, tt.want, tt.ok)
		}
	}
}
