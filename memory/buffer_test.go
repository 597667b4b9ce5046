package memory

import (
	"errors"
	"testing"

	lerrors "github.com/wippyai/scope-layout/errors"
)

func TestBuffer_IntegerReadWrite(t *testing.T) {
	buf := NewBuffer(1)

	if err := buf.WriteU8(0, 42); err != nil {
		t.Fatalf("WriteU8 failed: %v", err)
	}
	if v, err := buf.ReadU8(0); err != nil || v != 42 {
		t.Errorf("ReadU8: got %d, %v", v, err)
	}

	if err := buf.WriteU16(2, 0x1234); err != nil {
		t.Fatalf("WriteU16 failed: %v", err)
	}
	if v, err := buf.ReadU16(2); err != nil || v != 0x1234 {
		t.Errorf("ReadU16: got 0x%x, %v", v, err)
	}

	if err := buf.WriteU32(4, 0x12345678); err != nil {
		t.Fatalf("WriteU32 failed: %v", err)
	}
	if v, err := buf.ReadU32(4); err != nil || v != 0x12345678 {
		t.Errorf("ReadU32: got 0x%x, %v", v, err)
	}
	raw, _ := buf.Read(4, 4)
	if raw[0] != 0x78 || raw[3] != 0x12 {
		t.Errorf("expected little-endian bytes, got %x", raw)
	}

	if err := buf.WriteU64(8, 0x0102030405060708); err != nil {
		t.Fatalf("WriteU64 failed: %v", err)
	}
	if v, err := buf.ReadU64(8); err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadU64: got 0x%x, %v", v, err)
	}
}

func TestBuffer_OutOfBounds(t *testing.T) {
	buf := NewBuffer(1)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"read at end", func() error { _, err := buf.Read(65536, 1); return err }},
		{"read straddling", func() error { _, err := buf.ReadU32(65534); return err }},
		{"write at end", func() error { return buf.Write(65536, []byte{1}) }},
		{"write u64 straddling", func() error { return buf.WriteU64(65530, 1) }},
		{"offset overflow", func() error { _, err := buf.Read(0xFFFFFFFF, 2); return err }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if err == nil {
				t.Fatal("expected out of bounds error")
			}
			if !errors.Is(err, lerrors.ErrOutOfBounds) {
				t.Errorf("expected out_of_bounds kind, got %v", err)
			}
		})
	}
}

func TestBuffer_Grow(t *testing.T) {
	buf := NewBuffer(1)
	if err := buf.WriteU32(100, 7); err != nil {
		t.Fatal(err)
	}

	prev, ok := buf.Grow(2)
	if !ok || prev != 1 {
		t.Fatalf("Grow: got %d, %v", prev, ok)
	}
	if buf.Size() != 3*65536 {
		t.Errorf("size: got %d, want %d", buf.Size(), 3*65536)
	}
	if v, _ := buf.ReadU32(100); v != 7 {
		t.Errorf("contents lost on grow: got %d", v)
	}
	if err := buf.WriteU32(2*65536, 1); err != nil {
		t.Errorf("write into grown page failed: %v", err)
	}
}

func TestNewBufferFrom_PadsToPage(t *testing.T) {
	buf := NewBufferFrom([]byte{1, 2, 3})
	if buf.Size() != 65536 {
		t.Errorf("size: got %d, want 65536", buf.Size())
	}
	v, err := buf.ReadU8(2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 3 {
		t.Errorf("byte 2: got %d, want 3", v)
	}
	if prev, ok := buf.Grow(1); !ok || prev != 1 {
		t.Errorf("grow: got (%d, %v), want (1, true)", prev, ok)
	}
}
