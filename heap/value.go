package heap

import (
	"fmt"
	"math"
)

// Value is a tagged 32-bit slot. A clear low bit marks a small integer
// (Smi) stored as v<<1; a set low bit marks a heap reference (address|1).
type Value uint32

const (
	heapObjectTag = 1
	smiShift      = 1

	MaxSmi = math.MaxInt32 >> smiShift
	MinSmi = math.MinInt32 >> smiShift
)

// Smi tags a small integer. Values outside [MinSmi, MaxSmi] lose their top bit;
// callers that cannot guarantee the range use SmiFromInt.
func Smi(v int32) Value {
	return Value(uint32(v) << smiShift)
}

// SmiFromInt tags v, reporting false when v does not fit in 31 bits.
func SmiFromInt(v int) (Value, bool) {
	if v < MinSmi || v > MaxSmi {
		return 0, false
	}
	return Smi(int32(v)), true
}

// Ref tags an object address.
func Ref(addr uint32) Value {
	return Value(addr | heapObjectTag)
}

// IsSmi reports whether v is a small integer.
func (v Value) IsSmi() bool {
	return v&heapObjectTag == 0
}

// IsHeapObject reports whether v references an object.
func (v Value) IsHeapObject() bool {
	return v&heapObjectTag != 0
}

// SmiValue untags a small integer.
func (v Value) SmiValue() int32 {
	return int32(v) >> smiShift
}

// Address untags an object reference.
func (v Value) Address() uint32 {
	return uint32(v) &^ heapObjectTag
}

// String renders a Smi as its value and a reference as its address.
func (v Value) String() string {
	if v.IsSmi() {
		return fmt.Sprintf("Smi(%d)", v.SmiValue())
	}
	return fmt.Sprintf("@%#x", v.Address())
}
