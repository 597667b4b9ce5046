// Package bitfield packs small values into disjoint bit ranges of a 32-bit word.
package bitfield

import (
	"fmt"

	"github.com/wippyai/scope-layout/errors"
)

// Field is a bit range [Shift, Shift+Width) within a word.
type Field struct {
	Name  string
	Shift uint8
	Width uint8
}

// Unsigned is the set of small enum and integer types a field can hold.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

// Mask returns the in-place mask of the field.
func (f Field) Mask() uint32 {
	return f.Max() << f.Shift
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}
	return uint32(1)<<f.Width - 1
}

// End returns the bit just past the field.
func (f Field) End() uint8 {
	return f.Shift + f.Width
}

// Overlaps reports whether two fields share any bit.
func (f Field) Overlaps(o Field) bool {
	return f.Mask()&o.Mask() != 0
}

// Decode extracts the field from word.
func (f Field) Decode(word uint32) uint32 {
	return (word & f.Mask()) >> f.Shift
}

// Encode returns word with the field replaced by v. Bits outside the field are
// untouched. A value wider than the field is an overflow error.
func (f Field) Encode(word, v uint32) (uint32, error) {
	if v > f.Max() {
		return word, errors.Overflow(errors.PhaseEncode, []string{f.Name}, v, fmt.Sprintf("%d-bit field", f.Width))
	}
	return (word &^ f.Mask()) | v<<f.Shift, nil
}

// DecodeBool extracts a one-bit field.
func (f Field) DecodeBool(word uint32) bool {
	return f.Decode(word) != 0
}

// EncodeBool sets or clears a one-bit field.
func (f Field) EncodeBool(word uint32, v bool) uint32 {
	if v {
		return word | f.Mask()
	}
	return word &^ f.Mask()
}

// String renders the field as name[lo:hi].
func (f Field) String() string {
	return fmt.Sprintf("%s[%d:%d]", f.Name, f.Shift, f.End()-1)
}

// Get decodes a field into a small unsigned type.
func Get[T Unsigned](word uint32, f Field) T {
	return T(f.Decode(word))
}

// Set encodes a small unsigned value into a field.
func Set[T Unsigned](word uint32, f Field, v T) (uint32, error) {
	return f.Encode(word, uint32(v))
}
