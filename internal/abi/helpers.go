package abi

import "math"

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// AlignTo rounds offset up to a power-of-two alignment. Zero means unaligned.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// IsPowerOfTwo reports whether align is a valid alignment.
func IsPowerOfTwo(align uint32) bool {
	return align != 0 && align&(align-1) == 0
}

const (
	WordSize = 4       // tagged slot width
	PageSize = 1 << 16 // linear memory page
	MaxPages = 1 << 14 // 1 GB heap ceiling
)

// PagesFor returns the number of pages needed to hold size bytes.
func PagesFor(size uint64) uint32 {
	return uint32((size + PageSize - 1) / PageSize)
}
