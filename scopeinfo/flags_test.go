package scopeinfo

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/scope-layout/errors"
)

func expectUnreachable(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); !errors.IsUnreachable(r) {
			t.Errorf("expected unreachable panic, got %v", r)
		}
	}()
	fn()
}

func mustEncodeFlags(t *testing.T, f Flags) uint32 {
	t.Helper()
	w, err := EncodeFlags(f)
	if err != nil {
		t.Fatalf("EncodeFlags failed: %v", err)
	}
	return w
}

func TestFlagsLayout(t *testing.T) {
	if err := FlagsLayout.Validate(); err != nil {
		t.Fatalf("flags layout invalid: %v", err)
	}
	if got := FlagsLayout.Used(); got != 1<<30-1 {
		t.Errorf("used bits: got %#x, want %#x", got, uint32(1<<30-1))
	}
	if err := PropertiesLayout.Validate(); err != nil {
		t.Fatalf("properties layout invalid: %v", err)
	}
}

func TestEncodeFlags_BitPositions(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  uint32
	}{
		{"scope type", Flags{ScopeType: WithScope}, 7},
		{"sloppy eval", Flags{SloppyEvalCanCall: true}, 1 << 4},
		{"language mode", Flags{LanguageMode: Strict}, 1 << 5},
		{"declaration scope", Flags{DeclarationScope: true}, 1 << 6},
		{"receiver variable", Flags{ReceiverVariable: AllocUnused}, 3 << 7},
		{"class brand", Flags{HasClassBrand: true}, 1 << 9},
		{"saved class variable", Flags{HasSavedClassVariableIndex: true}, 1 << 10},
		{"new target", Flags{HasNewTarget: true}, 1 << 11},
		{"function variable", Flags{FunctionVariable: AllocContext}, 2 << 12},
		{"inferred name", Flags{HasInferredFunctionName: true}, 1 << 14},
		{"asm module", Flags{IsAsmModule: true}, 1 << 15},
		{"simple parameters", Flags{HasSimpleParameters: true}, 1 << 16},
		{"function kind", Flags{FunctionKind: 31}, 31 << 17},
		{"outer scope info", Flags{HasOuterScopeInfo: true}, 1 << 22},
		{"debug evaluate", Flags{IsDebugEvaluateScope: true}, 1 << 23},
		{"force context", Flags{ForceContextAllocation: true}, 1 << 24},
		{"private name lookup", Flags{PrivateNameLookupSkipsOuterClass: true}, 1 << 25},
		{"context extension", Flags{HasContextExtensionSlot: true}, 1 << 26},
		{"repl mode", Flags{IsReplModeScope: true}, 1 << 27},
		{"locals block list", Flags{HasLocalsBlockList: true}, 1 << 28},
		{"empty", Flags{IsEmpty: true}, 1 << 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mustEncodeFlags(t, tt.flags)
			if w != tt.want {
				t.Errorf("encode: got %#x, want %#x", w, tt.want)
			}
			if got := DecodeFlags(w); got != tt.flags {
				t.Errorf("decode: got %+v, want %+v", got, tt.flags)
			}
		})
	}
}

func TestFlags_RoundTripEveryValue(t *testing.T) {
	for st := ClassScope; st < numScopeTypes; st++ {
		for rv := AllocNone; rv <= AllocUnused; rv++ {
			for fv := AllocNone; fv <= AllocUnused; fv++ {
				for fk := FunctionKind(0); fk < 32; fk += 7 {
					f := Flags{
						ScopeType:        st,
						ReceiverVariable: rv,
						FunctionVariable: fv,
						FunctionKind:     fk,
						LanguageMode:     Strict,
						IsEmpty:          true,
					}
					if got := DecodeFlags(mustEncodeFlags(t, f)); got != f {
						t.Fatalf("round trip: got %+v, want %+v", got, f)
					}
				}
			}
		}
	}
}

func TestFlags_DisjointFields(t *testing.T) {
	all := Flags{
		ScopeType: BlockScope, SloppyEvalCanCall: true, LanguageMode: Strict, DeclarationScope: true,
		ReceiverVariable: AllocContext, HasClassBrand: true, HasSavedClassVariableIndex: true,
		HasNewTarget: true, FunctionVariable: AllocStack, HasInferredFunctionName: true,
		IsAsmModule: true, HasSimpleParameters: true, FunctionKind: 21, HasOuterScopeInfo: true,
		IsDebugEvaluateScope: true, ForceContextAllocation: true, PrivateNameLookupSkipsOuterClass: true,
		HasContextExtensionSlot: true, IsReplModeScope: true, HasLocalsBlockList: true, IsEmpty: true,
	}
	w := mustEncodeFlags(t, all)

	changed := all
	changed.FunctionKind = 0
	changed.ScopeType = EvalScope
	changed.HasOuterScopeInfo = false
	got := DecodeFlags(mustEncodeFlags(t, changed))

	want := all
	want.FunctionKind = 0
	want.ScopeType = EvalScope
	want.HasOuterScopeInfo = false
	if got != want {
		t.Errorf("neighbouring fields disturbed: got %+v, want %+v", got, want)
	}
	if DecodeFlags(w) != all {
		t.Error("full round trip failed")
	}
}

func TestEncodeFlags_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		kind  errors.Kind
	}{
		{"scope type outside set", Flags{ScopeType: 9}, errors.KindInvalidEnum},
		{"scope type past width", Flags{ScopeType: 16}, errors.KindInvalidEnum},
		{"language mode", Flags{LanguageMode: 2}, errors.KindInvalidEnum},
		{"receiver width", Flags{ReceiverVariable: 4}, errors.KindOverflow},
		{"function kind width", Flags{FunctionKind: 32}, errors.KindOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeFlags(tt.flags)
			if !stderrors.Is(err, &errors.Error{Kind: tt.kind}) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestDecodeFlags_Fatal(t *testing.T) {
	t.Run("scope type 9", func(t *testing.T) {
		expectUnreachable(t, func() { DecodeScopeType(9) })
	})
	t.Run("scope type 15 in full word", func(t *testing.T) {
		expectUnreachable(t, func() { DecodeFlags(15 | 1<<22) })
	})
	t.Run("unknown bit", func(t *testing.T) {
		expectUnreachable(t, func() { DecodeFlags(1 << 30) })
	})
}

func TestFlags_Derived(t *testing.T) {
	tests := []struct {
		alloc    VariableAllocationInfo
		receiver bool
		function bool
	}{
		{AllocNone, false, false},
		{AllocStack, true, true},
		{AllocContext, true, true},
		{AllocUnused, false, true},
	}
	for _, tt := range tests {
		f := Flags{ReceiverVariable: tt.alloc, FunctionVariable: tt.alloc}
		if f.HasReceiver() != tt.receiver {
			t.Errorf("%s HasReceiver: got %v, want %v", tt.alloc, f.HasReceiver(), tt.receiver)
		}
		if f.HasFunctionName() != tt.function {
			t.Errorf("%s HasFunctionName: got %v, want %v", tt.alloc, f.HasFunctionName(), tt.function)
		}
	}
}

func TestParseEnums(t *testing.T) {
	for st := ClassScope; st < numScopeTypes; st++ {
		got, err := ParseScopeType(st.String())
		if err != nil || got != st {
			t.Errorf("ParseScopeType(%q): got (%v, %v)", st.String(), got, err)
		}
	}
	if _, err := ParseScopeType("lambda"); err == nil {
		t.Error("expected error for unknown scope type")
	}
	if got, err := ParseAllocation("context"); err != nil || got != AllocContext {
		t.Errorf("ParseAllocation: got (%v, %v)", got, err)
	}
	if got, err := ParseVariableMode("private_method"); err != nil || got != PrivateMethod {
		t.Errorf("ParseVariableMode: got (%v, %v)", got, err)
	}
	if ScopeType(12).String() != "invalid" {
		t.Error("invalid scope type should render as invalid")
	}
}
