package heap

import (
	"fmt"
	"strconv"

	"github.com/wippyai/scope-layout/errors"
)

// Is reports whether v is an object of class c.
//
// Exact classes with a root map compare the map word first. Anything else
// loads the instance type from the map and range-checks it.
func (h *Heap) Is(v Value, c Class) bool {
	if !v.IsHeapObject() || v.Address() == 0 {
		return false
	}
	info := c.Info()
	if info.Range.IsExact() && info.RootMap != NoRoot && h.MapOf(v) == h.Root(info.RootMap) {
		return true
	}
	return info.Range.Contains(h.InstanceType(v))
}

// Cast checks v against class c and returns the object address. A mismatch
// is a recoverable cast error.
func (h *Heap) Cast(v Value, c Class) (uint32, error) {
	if !h.Is(v, c) {
		return 0, errors.CastError(nil, c.String(), h.TypeName(v))
	}
	return v.Address(), nil
}

// TypeName names the runtime type of v for diagnostics.
func (h *Heap) TypeName(v Value) string {
	switch {
	case v.IsSmi():
		return "Smi"
	case v.Address() == 0:
		return "null"
	case v == h.Undefined():
		return "Undefined"
	case v == h.TheHole():
		return "TheHole"
	}
	t := h.InstanceType(v)
	if c, ok := Classify(t); ok {
		return c.String()
	}
	return "InstanceType(" + strconv.Itoa(int(t)) + ")"
}

// Matches reports whether v is a member of the variant set.
func (h *Heap) Matches(vs Variant, v Value) bool {
	switch {
	case v.IsSmi():
		return vs.Smi
	case v.Address() == 0:
		return false
	case v == h.Undefined():
		return vs.Undefined
	case v == h.TheHole():
		return vs.TheHole
	}
	for _, c := range vs.Classes {
		if h.Is(v, c) {
			return true
		}
	}
	return false
}

// Describe renders v for humans: Smis as numbers, strings quoted,
// oddballs by name and other objects as type and address.
func (h *Heap) Describe(v Value) string {
	switch {
	case v.IsSmi():
		return strconv.Itoa(int(v.SmiValue()))
	case v.Address() == 0:
		return "null"
	case v == h.Undefined():
		return "undefined"
	case v == h.TheHole():
		return "the_hole"
	case h.Is(v, ClassString):
		return strconv.Quote(h.stringAt(v.Address()))
	case h.Is(v, ClassSymbol):
		s, _ := h.NameString(v)
		return s
	}
	return fmt.Sprintf("%s@%#x", h.TypeName(v), v.Address())
}
