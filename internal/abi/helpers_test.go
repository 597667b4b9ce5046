package abi

import (
	"math"
	"testing"
)

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uint32
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{20, 8, 24},
		{7, 0, 7},
		{7, 1, 7},
	}
	for _, tc := range tests {
		if got := AlignTo(tc.offset, tc.align); got != tc.want {
			t.Errorf("AlignTo(%d, %d): got %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}

func TestSafeArithmetic(t *testing.T) {
	if _, ok := SafeAddU32(math.MaxUint32, 1); ok {
		t.Error("add overflow not detected")
	}
	if v, ok := SafeAddU32(20, 12); !ok || v != 32 {
		t.Errorf("SafeAddU32(20, 12): got %d, %v", v, ok)
	}
	if _, ok := SafeMulU32(1<<20, 1<<12); ok {
		t.Error("mul overflow not detected")
	}
	if v, ok := SafeMulU32(12, 3); !ok || v != 36 {
		t.Errorf("SafeMulU32(12, 3): got %d, %v", v, ok)
	}
	if v, ok := SafeMulU32(0, math.MaxUint32); !ok || v != 0 {
		t.Errorf("SafeMulU32(0, max): got %d, %v", v, ok)
	}
}

func TestPagesFor(t *testing.T) {
	tests := []struct {
		size uint64
		want uint32
	}{
		{0, 0},
		{1, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
	}
	for _, tc := range tests {
		if got := PagesFor(tc.size); got != tc.want {
			t.Errorf("PagesFor(%d): got %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, a := range []uint32{1, 2, 4, 8, 1 << 20} {
		if !IsPowerOfTwo(a) {
			t.Errorf("%d should be a power of two", a)
		}
	}
	for _, a := range []uint32{0, 3, 6, 12} {
		if IsPowerOfTwo(a) {
			t.Errorf("%d should not be a power of two", a)
		}
	}
}
