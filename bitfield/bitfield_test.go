package bitfield

import (
	"errors"
	"testing"

	"go.uber.org/multierr"

	lerrors "github.com/wippyai/scope-layout/errors"
)

func TestFieldRoundTrip(t *testing.T) {
	fields := []Field{
		{Name: "a", Shift: 0, Width: 4},
		{Name: "b", Shift: 4, Width: 1},
		{Name: "c", Shift: 7, Width: 2},
		{Name: "d", Shift: 17, Width: 5},
		{Name: "e", Shift: 31, Width: 1},
	}

	for _, f := range fields {
		t.Run(f.Name, func(t *testing.T) {
			for v := uint32(0); v <= f.Max(); v++ {
				word, err := f.Encode(0xA5A5A5A5, v)
				if err != nil {
					t.Fatalf("encode %d: %v", v, err)
				}
				if got := f.Decode(word); got != v {
					t.Errorf("decode: got %d, want %d", got, v)
				}
				if word&^f.Mask() != 0xA5A5A5A5&^f.Mask() {
					t.Errorf("bits outside field changed: %08x", word)
				}
			}
		})
	}
}

func TestFieldDisjointIndependence(t *testing.T) {
	a := Field{Name: "a", Shift: 0, Width: 4}
	b := Field{Name: "b", Shift: 4, Width: 3}

	word, _ := a.Encode(0, 9)
	for v := uint32(0); v <= b.Max(); v++ {
		w, err := b.Encode(word, v)
		if err != nil {
			t.Fatal(err)
		}
		if a.Decode(w) != 9 {
			t.Errorf("encoding b=%d perturbed a: got %d", v, a.Decode(w))
		}
	}
}

func TestFieldOverflow(t *testing.T) {
	f := Field{Name: "kind", Shift: 17, Width: 5}
	word, err := f.Encode(0x1234, 32)
	if err == nil {
		t.Fatal("expected overflow")
	}
	if word != 0x1234 {
		t.Errorf("word changed on overflow: %x", word)
	}
	if !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseEncode, Kind: lerrors.KindOverflow}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFieldBool(t *testing.T) {
	f := Field{Name: "flag", Shift: 22, Width: 1}
	w := f.EncodeBool(0, true)
	if w != 1<<22 {
		t.Errorf("set: got %x", w)
	}
	if !f.DecodeBool(w) {
		t.Error("decode set bit")
	}
	w = f.EncodeBool(w|1, false)
	if w != 1 {
		t.Errorf("clear: got %x", w)
	}
}

type kind uint8

func TestGenericGetSet(t *testing.T) {
	f := Field{Name: "kind", Shift: 0, Width: 4}
	w, err := Set(0, f, kind(7))
	if err != nil {
		t.Fatal(err)
	}
	if got := Get[kind](w, f); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

func TestFieldMaskAndString(t *testing.T) {
	f := Field{Name: "receiver", Shift: 7, Width: 2}
	if f.Mask() != 0x180 {
		t.Errorf("mask: got %x, want 180", f.Mask())
	}
	if f.String() != "receiver[7:8]" {
		t.Errorf("string: got %q", f.String())
	}
	full := Field{Name: "all", Shift: 0, Width: 32}
	if full.Max() != 0xFFFFFFFF {
		t.Errorf("full max: got %x", full.Max())
	}
}

func TestLayoutValidate(t *testing.T) {
	a := Field{Name: "a", Shift: 0, Width: 4}
	b := Next(a, "b", 2)
	if b.Shift != 4 {
		t.Fatalf("Next shift: got %d, want 4", b.Shift)
	}

	ok := Layout{Name: "ok", Bits: 31, Fields: []Field{a, b}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid layout: %v", err)
	}
	if ok.Used() != 0x3F {
		t.Errorf("used: got %x, want 3f", ok.Used())
	}

	bad := Layout{Name: "bad", Bits: 8, Fields: []Field{
		a,
		{Name: "overlap", Shift: 2, Width: 2},
		{Name: "wide", Shift: 6, Width: 4},
		{Name: "empty", Shift: 0, Width: 0},
	}}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("error count: got %d, want 3 (%v)", n, err)
	}
}
