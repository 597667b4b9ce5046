package heap

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
	"github.com/wippyai/scope-layout/memory"
)

// SizeFunc computes the size of a variable-length object at addr.
type SizeFunc func(h *Heap, addr uint32) (uint32, error)

var sizers = map[InstanceType]SizeFunc{}

// RegisterSize installs the size function for an instance type whose layout
// lives outside this package. It must be called from an init function.
func RegisterSize(t InstanceType, fn SizeFunc) {
	sizers[t] = fn
}

// ObjectSize returns the byte size of the object at addr.
func (h *Heap) ObjectSize(addr uint32) (uint32, error) {
	v := Ref(addr)
	m := h.MapOf(v)
	if fixed := h.Load(m.Address() + mapInstanceSizeOffset).SmiValue(); fixed > 0 {
		return uint32(fixed), nil
	}

	t := h.InstanceType(v)
	switch {
	case t == MapType:
		return mapSize, nil
	case ClassString.Info().Range.Contains(t):
		n := uint32(h.Load(addr + stringLengthOffset).SmiValue())
		return stringHeaderSize + abi.AlignTo(n, abi.WordSize), nil
	case ClassFixedArrayBase.Info().Range.Contains(t):
		n := uint32(h.Load(addr + arrayLengthOffset).SmiValue())
		return arrayHeaderSize + n*abi.WordSize, nil
	}
	if fn, ok := sizers[t]; ok {
		return fn(h, addr)
	}
	return 0, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
		Value(addr).
		Detail("no size known for instance type %d", t).
		Build()
}

// Objects calls fn for every object in allocation order until fn returns false.
func (h *Heap) Objects(fn func(v Value, t InstanceType) bool) error {
	top := h.arena.Top()
	for addr := uint32(memory.FirstAddress); addr < top; {
		v := Ref(addr)
		if !fn(v, h.InstanceType(v)) {
			return nil
		}
		size, err := h.ObjectSize(addr)
		if err != nil {
			return err
		}
		addr = abi.AlignTo(addr+size, ObjectAlignment)
	}
	return nil
}

// Restore rebuilds a slice-backed heap from an image produced by a previous
// heap: its memory bytes, allocation top and root table.
func Restore(image []byte, top uint32, roots []Value) (*Heap, error) {
	if len(roots) != int(NumRoots) {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
			Path("roots").
			Expected(RootEmptyScopeInfo.String()).
			Detail("got %d roots, want %d", len(roots), NumRoots).
			Build()
	}
	if top < memory.FirstAddress || uint64(top) > uint64(len(image)) {
		return nil, errors.InvalidData(errors.PhaseSnapshot, []string{"top"}, "allocation top outside image")
	}
	for i, r := range roots {
		if !r.IsHeapObject() || r.Address() < memory.FirstAddress || r.Address() >= top {
			return nil, errors.InvalidData(errors.PhaseSnapshot, []string{"roots", RootIndex(i).String()}, "root outside image")
		}
	}

	buf := memory.NewBufferFrom(image)
	h := &Heap{
		mem:   buf,
		arena: memory.NewArena(buf, top),
		log:   Logger(),
		names: make(map[string]Value),
	}
	copy(h.roots[:], roots)

	meta := h.roots[RootMetaMap]
	if h.Load(meta.Address()) != meta {
		return nil, errors.InvalidData(errors.PhaseSnapshot, []string{"roots", "meta_map"}, "meta map is not self-describing")
	}

	if err := h.index(); err != nil {
		return nil, err
	}

	h.log.Debug("heap restored", zap.Uint32("top", top), zap.Int("strings", len(h.names)))
	return h, nil
}

// index walks a restored image, checking that every object carries a map
// inside the image and fits below top, and rebuilds the string table. Loads
// that fail on a corrupt image are reported as invalid data.
func (h *Heap) index() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if !errors.IsUnreachable(r) {
				panic(r)
			}
			err = errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, r.(*errors.Error), "corrupt heap image")
		}
	}()

	top := h.arena.Top()
	meta := h.roots[RootMetaMap]
	stringMap := h.roots[RootStringMap]
	starts := make(map[uint32]struct{})
	for addr := uint32(memory.FirstAddress); addr < top; {
		m := h.Load(addr)
		if !m.IsHeapObject() || m.Address() < memory.FirstAddress || m.Address() >= top || h.Load(m.Address()) != meta {
			return errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
				Path("objects").
				Value(addr).
				Detail("object at %#x has no valid map", addr).
				Build()
		}
		size, err := h.ObjectSize(addr)
		if err != nil {
			return err
		}
		end := uint64(addr) + uint64(size)
		if size == 0 || end > uint64(top) {
			return errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
				Path("objects").
				Value(addr).
				Detail("object at %#x of %d bytes overruns top %#x", addr, size, top).
				Build()
		}
		if m == stringMap {
			h.names[h.stringAt(addr)] = Ref(addr)
		}
		starts[addr] = struct{}{}
		addr = abi.AlignTo(uint32(end), ObjectAlignment)
	}

	for i, r := range h.roots {
		if _, ok := starts[r.Address()]; !ok {
			return errors.InvalidData(errors.PhaseSnapshot, []string{"roots", RootIndex(i).String()}, "root is not an object start")
		}
	}
	return nil
}

// Holds reports whether v refers to the start of an object below the
// allocation top.
func (h *Heap) Holds(v Value) bool {
	if !v.IsHeapObject() || v.Address() < memory.FirstAddress || v.Address() >= h.Top() {
		return false
	}
	found := false
	_ = h.Objects(func(o Value, _ InstanceType) bool {
		found = o == v
		return !found && o.Address() < v.Address()
	})
	return found
}

// Image copies the heap contents up to the allocation top.
func (h *Heap) Image(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	top := h.arena.Top()
	b, err := h.mem.Read(0, top)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindOutOfBounds, err, "read heap image")
	}
	out := make([]byte, top)
	copy(out, b)
	return out, nil
}
