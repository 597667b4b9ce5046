package scopeinfo

import (
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/layout"
)

// IsReferenceSlot reports whether a field of a section's elements can hold
// a heap reference. Fields typed as Smi never do.
func IsReferenceSlot(id layout.ID, field string) bool {
	if int(id) < 0 || int(id) >= len(Sections.Sections) {
		return false
	}
	f, _, ok := Sections.Sections[id].Elem.Field(field)
	return ok && f.Variant.HoldsReferences()
}

// ReferenceSlots lists the addresses of every slot that may hold a reference,
// excluding the map word.
func (s *ScopeInfo) ReferenceSlots() []uint32 {
	var slots []uint32
	for _, v := range s.plan.Views {
		for _, f := range v.Elem.Fields {
			if !f.Variant.HoldsReferences() {
				continue
			}
			for i := uint32(0); i < v.Count; i++ {
				slots = append(slots, s.addr+v.Offset+i*v.Stride+f.Offset)
			}
		}
	}
	return slots
}

// VisitReferences calls fn with each reference slot and the object it holds.
// The map word is visited first.
func (s *ScopeInfo) VisitReferences(fn func(slot uint32, v heap.Value)) {
	fn(s.addr+MapOffset, s.h.Load(s.addr+MapOffset))
	for _, slot := range s.ReferenceSlots() {
		if v := s.h.Load(slot); v.IsHeapObject() {
			fn(slot, v)
		}
	}
}
