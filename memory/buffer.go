package memory

import (
	"encoding/binary"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
)

// Buffer is a Memory backed by a Go byte slice.
type Buffer struct {
	data     []byte
	maxPages uint32
}

// NewBuffer creates a zeroed buffer of the given page count.
func NewBuffer(pages uint32) *Buffer {
	return &Buffer{
		data:     make([]byte, uint64(pages)*abi.PageSize),
		maxPages: abi.MaxPages,
	}
}

// NewBufferFrom wraps an existing image, zero-padding it to a whole page.
func NewBufferFrom(image []byte) *Buffer {
	pages := abi.PagesFor(uint64(len(image)))
	if uint64(len(image)) != uint64(pages)*abi.PageSize {
		padded := make([]byte, uint64(pages)*abi.PageSize)
		copy(padded, image)
		image = padded
	}
	return &Buffer{data: image, maxPages: abi.MaxPages}
}

// Bytes returns the live backing slice.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Size returns the buffer length in bytes.
func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

// Grow extends the buffer by delta pages and returns the previous page count.
func (b *Buffer) Grow(delta uint32) (uint32, bool) {
	prev := uint32(uint64(len(b.data)) / abi.PageSize)
	if uint64(prev)+uint64(delta) > uint64(b.maxPages) {
		return prev, false
	}
	grown := make([]byte, uint64(prev+delta)*abi.PageSize)
	copy(grown, b.data)
	b.data = grown
	return prev, true
}

func (b *Buffer) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(b.data)) {
		return errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
			Detail("offset=%d, length=%d, size=%d", offset, length, len(b.data)).
			Build()
	}
	return nil
}

// Read returns a view of length bytes at offset.
func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	if err := b.check(offset, length); err != nil {
		return nil, err
	}
	return b.data[offset : offset+length], nil
}

// Write copies data to offset.
func (b *Buffer) Write(offset uint32, data []byte) error {
	if err := b.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	if err := b.check(offset, 1); err != nil {
		return 0, err
	}
	return b.data[offset], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	if err := b.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.data[offset:]), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	if err := b.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	if err := b.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.data[offset:]), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	if err := b.check(offset, 1); err != nil {
		return err
	}
	b.data[offset] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	if err := b.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.data[offset:], value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	if err := b.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[offset:], value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	if err := b.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[offset:], value)
	return nil
}
