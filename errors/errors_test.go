package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseAccess,
				Kind:     KindInvalidVariant,
				Path:     []string{"outerScopeInfo", "0"},
				Expected: "ScopeInfo|TheHole",
				Actual:   "String",
				Detail:   "not a member",
			},
			contains: []string{"[access]", "invalid_variant", "outerScopeInfo.0", "expected ScopeInfo|TheHole", "got String", "not a member"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLayout,
				Kind:  KindOverflow,
			},
			contains: []string{"[layout]", "overflow"},
		},
		{
			name: "actual only",
			err: &Error{
				Phase:  PhaseCast,
				Kind:   KindCastError,
				Actual: "Smi",
			},
			contains: []string{"[cast]", "got Smi"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "arena full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "allocation", "arena full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseSnapshot,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := CastError([]string{"obj"}, "ScopeInfo", "String")

	if !errors.Is(err, &Error{Phase: PhaseCast, Kind: KindCastError}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseAccess, Kind: KindCastError}) {
		t.Error("phase mismatch should not match")
	}
	if !errors.Is(err, ErrCast) {
		t.Error("expected match against phase-less sentinel")
	}
	if errors.Is(err, ErrUnreachable) {
		t.Error("cast error should not match unreachable")
	}
	if errors.Is(err, errors.New("other")) {
		t.Error("should not match foreign error")
	}
}

func TestInvalidVariant_IsCast(t *testing.T) {
	err := InvalidVariant([]string{"localsBlockList", "0"}, "StringSet|TheHole", "Smi")
	if err.Kind != KindInvalidVariant {
		t.Errorf("kind: got %s, want %s", err.Kind, KindInvalidVariant)
	}
	if !errors.Is(err, ErrCast) {
		t.Error("variant failures should be reachable as cast errors")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("cause")
	err := New(PhaseAccess, KindInvalidVariant).
		Path("functionNameInfo", "0", "name").
		Expected("Name|Undefined").
		Actual("Smi").
		Value(42).
		Cause(cause).
		Detail("slot %d", 3).
		Build()

	if err.Phase != PhaseAccess {
		t.Errorf("phase: got %s, want %s", err.Phase, PhaseAccess)
	}
	if err.Kind != KindInvalidVariant {
		t.Errorf("kind: got %s, want %s", err.Kind, KindInvalidVariant)
	}
	if strings.Join(err.Path, ".") != "functionNameInfo.0.name" {
		t.Errorf("path: got %v", err.Path)
	}
	if err.Expected != "Name|Undefined" || err.Actual != "Smi" {
		t.Errorf("expected/actual: got %q/%q", err.Expected, err.Actual)
	}
	if err.Value != 42 {
		t.Errorf("value: got %v, want 42", err.Value)
	}
	if err.Cause != cause {
		t.Error("cause not set")
	}
	if err.Detail != "slot 3" {
		t.Errorf("detail: got %q, want %q", err.Detail, "slot 3")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"cast", CastError(nil, "ScopeInfo", "Map"), PhaseCast, KindCastError},
		{"variant", InvalidVariant(nil, "Name", "Smi"), PhaseAccess, KindInvalidVariant},
		{"out of bounds", OutOfBounds(PhaseMemory, nil, 10, 4), PhaseMemory, KindOutOfBounds},
		{"allocation", AllocationFailed(PhaseAlloc, 64, 4), PhaseAlloc, KindAllocation},
		{"overflow", Overflow(PhaseEncode, nil, 40, "5-bit field"), PhaseEncode, KindOverflow},
		{"enum", InvalidEnum(PhaseDecode, nil, 9, "ScopeType"), PhaseDecode, KindInvalidEnum},
		{"missing", FieldMissing(PhaseConstruct, nil, "moduleInfo"), PhaseConstruct, KindFieldMissing},
		{"unknown", FieldUnknown(PhaseConstruct, nil, "positionInfo"), PhaseConstruct, KindFieldUnknown},
		{"invalid data", InvalidData(PhaseSnapshot, nil, "short image"), PhaseSnapshot, KindInvalidData},
		{"not found", NotFound(PhaseSnapshot, "snapshot", "base"), PhaseSnapshot, KindNotFound},
		{"invalid input", InvalidInput(PhaseConfig, "empty file"), PhaseConfig, KindInvalidInput},
		{"wrap", Wrap(PhaseMemory, KindInvalidData, errors.New("x"), "read"), PhaseMemory, KindInvalidData},
		{"incompatible", Incompatible(PhaseSnapshot, "format 2.0.0", nil), PhaseSnapshot, KindIncompatible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("phase: got %s, want %s", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("kind: got %s, want %s", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestUnreachable(t *testing.T) {
	defer func() {
		r := recover()
		if !IsUnreachable(r) {
			t.Fatalf("expected unreachable panic, got %v", r)
		}
		if !strings.Contains(r.(*Error).Detail, "scope type 9") {
			t.Errorf("detail: got %q", r.(*Error).Detail)
		}
	}()
	Unreachable(PhaseDecode, []string{"flags"}, "scope type %d", 9)
}

func TestCheckIndex(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		length uint32
		fatal  bool
	}{
		{"first", 0, 2, false},
		{"last", 1, 2, false},
		{"at length", 2, 2, true},
		{"negative", -1, 2, true},
		{"empty section", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fatal := func() (fatal bool) {
				defer func() {
					if r := recover(); r != nil {
						fatal = IsUnreachable(r)
						if !errors.Is(r.(*Error), ErrOutOfBounds) {
							t.Error("bounds panic should wrap ErrOutOfBounds")
						}
					}
				}()
				CheckIndex(PhaseAccess, []string{"contextLocalNames"}, tt.index, tt.length)
				return false
			}()
			if fatal != tt.fatal {
				t.Errorf("fatal: got %v, want %v", fatal, tt.fatal)
			}
		})
	}
}

func TestIsUnreachable_Foreign(t *testing.T) {
	if IsUnreachable("boom") {
		t.Error("string panic is not unreachable")
	}
	if IsUnreachable(CastError(nil, "a", "b")) {
		t.Error("cast error is not unreachable")
	}
}
