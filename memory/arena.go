package memory

import (
	"sync"

	scopelayout "github.com/wippyai/scope-layout"
	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
)

// FirstAddress is the lowest address an arena hands out. Address 0 stays
// unused so that a zero word never decodes as a live object.
const FirstAddress = 8

// Grower is implemented by stores that can extend themselves in pages.
type Grower interface {
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

// Sized is a Memory that reports its size.
type Sized interface {
	scopelayout.Memory
	scopelayout.MemorySizer
}

// Arena is a bump allocator. Allocation is serialized; regions are zeroed.
type Arena struct {
	mem  Sized
	next uint32
	mu   sync.Mutex
}

var _ scopelayout.Allocator = (*Arena)(nil)

// NewArena starts allocating at start (rounded up to FirstAddress).
func NewArena(mem Sized, start uint32) *Arena {
	if start < FirstAddress {
		start = FirstAddress
	}
	return &Arena{mem: mem, next: start}
}

// Alloc reserves size bytes aligned to align, growing the store when it can.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if !abi.IsPowerOfTwo(align) {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "alignment must be a power of two")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ptr := abi.AlignTo(a.next, align)
	end, ok := abi.SafeAddU32(ptr, size)
	if !ok || ptr < a.next {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}

	if end > a.mem.Size() {
		if err := a.grow(end); err != nil {
			return 0, err
		}
	}

	if size > 0 {
		if err := a.mem.Write(ptr, make([]byte, size)); err != nil {
			return 0, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "zero region")
		}
	}

	a.next = end
	return ptr, nil
}

func (a *Arena) grow(end uint32) error {
	g, ok := a.mem.(Grower)
	if !ok {
		return errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("need %d bytes, store holds %d and cannot grow", end, a.mem.Size()).
			Build()
	}
	have := abi.PagesFor(uint64(a.mem.Size()))
	need := abi.PagesFor(uint64(end))
	if _, ok := g.Grow(need - have); !ok {
		return errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("grow from %d to %d pages refused", have, need).
			Build()
	}
	return nil
}

// Free is a no-op; arena regions live as long as the arena.
func (a *Arena) Free(ptr, size, align uint32) {}

// Top returns the next unallocated address.
func (a *Arena) Top() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
