package scopeinfo

import (
	"github.com/wippyai/scope-layout/heap"
)

func init() {
	heap.RegisterSize(heap.ScopeInfoType, func(h *heap.Heap, addr uint32) (uint32, error) {
		return view(h, addr).Size(), nil
	})
}

// Cast downcasts v to a ScopeInfo. Smis and objects of any other type yield a
// cast error the caller can branch on.
func Cast(h *heap.Heap, v heap.Value) (*ScopeInfo, error) {
	addr, err := h.Cast(v, heap.ClassScopeInfo)
	if err != nil {
		return nil, err
	}
	return view(h, addr), nil
}

// Is reports whether v is a ScopeInfo without building a view.
func Is(h *heap.Heap, v heap.Value) bool {
	return h.Is(v, heap.ClassScopeInfo)
}
