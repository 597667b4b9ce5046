package heap

import (
	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
)

// A StringSet is an open-addressed hash set of internalized strings laid out
// as a FixedArrayBase: element 0 holds the entry count and the remaining
// elements are buckets, undefined when empty.
const (
	stringSetCountIndex = 0
	stringSetFirstIndex = 1
	minStringSetBuckets = 4
)

// NewStringSet allocates a set holding names. Duplicates collapse.
func (h *Heap) NewStringSet(names []string) (Value, error) {
	buckets := uint32(minStringSetBuckets)
	for buckets < uint32(2*len(names)) {
		buckets <<= 1
	}

	values := make([]Value, stringSetFirstIndex+buckets)
	undefined := h.Undefined()
	for i := range values {
		values[i] = undefined
	}

	count := 0
	for _, n := range names {
		v, err := h.NewString(n)
		if err != nil {
			return 0, err
		}
		slot, found := h.probe(values[stringSetFirstIndex:], v, n)
		if found {
			continue
		}
		values[stringSetFirstIndex+slot] = v
		count++
	}
	values[stringSetCountIndex] = Smi(int32(count))

	return h.newArray(RootStringSetMap, values)
}

// probe finds the bucket for name: either the bucket holding v or the first
// empty one. Strings are internalized, so identity is equality.
func (h *Heap) probe(buckets []Value, v Value, name string) (uint32, bool) {
	mask := uint32(len(buckets) - 1)
	undefined := h.Undefined()
	slot := uint32(hashString(name).SmiValue()) & mask
	for {
		switch buckets[slot] {
		case v:
			return slot, true
		case undefined:
			return slot, false
		}
		slot = (slot + 1) & mask
	}
}

func (h *Heap) stringSetBuckets(set Value) ([]Value, error) {
	addr, err := h.Cast(set, ClassStringSet)
	if err != nil {
		return nil, err
	}
	n := uint32(h.Load(addr + arrayLengthOffset).SmiValue())
	if n <= stringSetFirstIndex {
		errors.Unreachable(errors.PhaseAccess, []string{"stringSet"}, "set with %d elements", n)
	}
	buckets := make([]Value, n-stringSetFirstIndex)
	for i := range buckets {
		buckets[i] = h.Load(addr + arrayHeaderSize + (stringSetFirstIndex+uint32(i))*abi.WordSize)
	}
	return buckets, nil
}

// StringSetContains reports whether name is a member of set.
func (h *Heap) StringSetContains(set Value, name string) (bool, error) {
	buckets, err := h.stringSetBuckets(set)
	if err != nil {
		return false, err
	}
	h.mu.RLock()
	v, ok := h.names[name]
	h.mu.RUnlock()
	if !ok {
		return false, nil
	}
	_, found := h.probe(buckets, v, name)
	return found, nil
}

// StringSetCount returns the number of members.
func (h *Heap) StringSetCount(set Value) (int, error) {
	addr, err := h.Cast(set, ClassStringSet)
	if err != nil {
		return 0, err
	}
	return int(h.Load(addr + arrayHeaderSize).SmiValue()), nil
}

// StringSetMembers returns the members in bucket order.
func (h *Heap) StringSetMembers(set Value) ([]string, error) {
	buckets, err := h.stringSetBuckets(set)
	if err != nil {
		return nil, err
	}
	undefined := h.Undefined()
	var out []string
	for _, b := range buckets {
		if b == undefined {
			continue
		}
		s, err := h.String(b)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
