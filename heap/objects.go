package heap

import (
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
)

// Object layouts. Every object starts with its map word.
const (
	mapSize               = 16
	mapInstanceTypeOffset = 8
	mapInstanceSizeOffset = 12

	stringHashOffset   = 4
	stringLengthOffset = 8
	stringHeaderSize   = 12

	symbolHashOffset        = 4
	symbolDescriptionOffset = 8
	symbolSize              = 12

	oddballKindOffset = 4
	oddballSize       = 8

	arrayLengthOffset = 4
	arrayHeaderSize   = 8
)

// Oddball kinds.
const (
	OddballUndefined int32 = 0
	OddballTheHole   int32 = 1
)

func (h *Heap) initMap(addr uint32, meta Value, t InstanceType, size uint32) {
	h.Store(addr, meta)
	h.storeU16(addr+mapInstanceTypeOffset, uint16(t))
	h.Store(addr+mapInstanceSizeOffset, Smi(int32(size)))
}

// NewMap allocates a map for instance type t. size is the fixed instance
// size, or 0 for variable-length objects.
func (h *Heap) NewMap(t InstanceType, size uint32) (Value, error) {
	addr, err := h.Allocate(mapSize, RootMetaMap)
	if err != nil {
		return 0, err
	}
	h.initMap(addr, h.Root(RootMetaMap), t, size)
	return Ref(addr), nil
}

// MapOf returns the map word of an object.
func (h *Heap) MapOf(v Value) Value {
	if !v.IsHeapObject() || v.Address() == 0 {
		errors.Unreachable(errors.PhaseCast, nil, "map of non-object %s", v)
	}
	return h.Load(v.Address())
}

// InstanceType loads the type tag through the object's map.
func (h *Heap) InstanceType(v Value) InstanceType {
	m := h.MapOf(v)
	return InstanceType(h.loadU16(m.Address() + mapInstanceTypeOffset))
}

func (h *Heap) newOddball(kind int32) (Value, error) {
	addr, err := h.Allocate(oddballSize, RootOddballMap)
	if err != nil {
		return 0, err
	}
	h.Store(addr+oddballKindOffset, Smi(kind))
	return Ref(addr), nil
}

func hashString(s string) Value {
	f := fnv.New32a()
	f.Write([]byte(s))
	return Smi(int32(f.Sum32() & MaxSmi))
}

// NewString returns the internalized string for s, allocating it on first use.
func (h *Heap) NewString(s string) (Value, error) {
	h.mu.RLock()
	v, ok := h.names[s]
	h.mu.RUnlock()
	if ok {
		return v, nil
	}

	if len(s) > MaxSmi {
		return 0, errors.Overflow(errors.PhaseAlloc, []string{"string"}, len(s), "string length")
	}
	size, ok := abi.SafeAddU32(stringHeaderSize, abi.AlignTo(uint32(len(s)), abi.WordSize))
	if !ok {
		return 0, errors.Overflow(errors.PhaseAlloc, []string{"string"}, len(s), "object size")
	}

	addr, err := h.Allocate(size, RootStringMap)
	if err != nil {
		return 0, err
	}
	h.Store(addr+stringHashOffset, hashString(s))
	h.Store(addr+stringLengthOffset, Smi(int32(len(s))))
	if len(s) > 0 {
		if err := h.mem.Write(addr+stringHeaderSize, []byte(s)); err != nil {
			return 0, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "write string bytes")
		}
	}

	v = Ref(addr)
	h.mu.Lock()
	if prev, ok := h.names[s]; ok {
		// Lost a race; the duplicate stays unreachable.
		v = prev
	} else {
		h.names[s] = v
	}
	h.mu.Unlock()

	h.log.Debug("string internalized", zap.String("value", s), zap.Stringer("ref", v))
	return v, nil
}

// String returns the contents of a string object.
func (h *Heap) String(v Value) (string, error) {
	addr, err := h.Cast(v, ClassString)
	if err != nil {
		return "", err
	}
	return h.stringAt(addr), nil
}

func (h *Heap) stringAt(addr uint32) string {
	n := h.Load(addr + stringLengthOffset).SmiValue()
	if n == 0 {
		return ""
	}
	return string(h.readBytes(addr+stringHeaderSize, uint32(n)))
}

// NewSymbol allocates a unique symbol with an optional description.
func (h *Heap) NewSymbol(description string) (Value, error) {
	desc := h.Undefined()
	if description != "" {
		var err error
		if desc, err = h.NewString(description); err != nil {
			return 0, err
		}
	}
	addr, err := h.Allocate(symbolSize, RootSymbolMap)
	if err != nil {
		return 0, err
	}
	h.Store(addr+symbolHashOffset, Smi(int32(addr>>3)))
	h.Store(addr+symbolDescriptionOffset, desc)
	return Ref(addr), nil
}

// NameString renders a Name. Symbols render as their description in brackets.
func (h *Heap) NameString(v Value) (string, error) {
	addr, err := h.Cast(v, ClassName)
	if err != nil {
		return "", err
	}
	if h.Is(v, ClassString) {
		return h.stringAt(addr), nil
	}
	desc := h.Load(addr + symbolDescriptionOffset)
	if desc == h.Undefined() {
		return "Symbol()", nil
	}
	return "Symbol(" + h.stringAt(desc.Address()) + ")", nil
}

// NewFixedArray allocates an array holding values.
func (h *Heap) NewFixedArray(values []Value) (Value, error) {
	return h.newArray(RootFixedArrayMap, values)
}

func (h *Heap) newArray(m RootIndex, values []Value) (Value, error) {
	if len(values) > MaxSmi {
		return 0, errors.Overflow(errors.PhaseAlloc, []string{"array"}, len(values), "array length")
	}
	body, ok := abi.SafeMulU32(uint32(len(values)), abi.WordSize)
	if !ok {
		return 0, errors.Overflow(errors.PhaseAlloc, []string{"array"}, len(values), "object size")
	}
	size, ok := abi.SafeAddU32(arrayHeaderSize, body)
	if !ok {
		return 0, errors.Overflow(errors.PhaseAlloc, []string{"array"}, len(values), "object size")
	}
	addr, err := h.Allocate(size, m)
	if err != nil {
		return 0, err
	}
	h.Store(addr+arrayLengthOffset, Smi(int32(len(values))))
	for i, e := range values {
		h.Store(addr+arrayHeaderSize+uint32(i)*abi.WordSize, e)
	}
	return Ref(addr), nil
}

// ArrayLength returns the length of any FixedArrayBase.
func (h *Heap) ArrayLength(v Value) (uint32, error) {
	addr, err := h.Cast(v, ClassFixedArrayBase)
	if err != nil {
		return 0, err
	}
	return uint32(h.Load(addr + arrayLengthOffset).SmiValue()), nil
}

// ArrayGet loads element i. An index outside the array is fatal.
func (h *Heap) ArrayGet(v Value, i int) Value {
	n, err := h.ArrayLength(v)
	if err != nil {
		errors.Unreachable(errors.PhaseAccess, []string{"array"}, "%v", err)
	}
	errors.CheckIndex(errors.PhaseAccess, []string{"array"}, i, n)
	return h.Load(v.Address() + arrayHeaderSize + uint32(i)*abi.WordSize)
}

// ArraySet stores element i. An index outside the array is fatal.
func (h *Heap) ArraySet(v Value, i int, e Value) {
	n, err := h.ArrayLength(v)
	if err != nil {
		errors.Unreachable(errors.PhaseAccess, []string{"array"}, "%v", err)
	}
	errors.CheckIndex(errors.PhaseAccess, []string{"array"}, i, n)
	h.Store(v.Address()+arrayHeaderSize+uint32(i)*abi.WordSize, e)
}

// NewModuleInfo allocates a SourceTextModuleInfo listing the module's
// requested specifiers.
func (h *Heap) NewModuleInfo(requests []string) (Value, error) {
	values := make([]Value, len(requests))
	for i, r := range requests {
		v, err := h.NewString(r)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}
	return h.newArray(RootModuleInfoMap, values)
}

// ModuleRequests returns the specifiers of a SourceTextModuleInfo.
func (h *Heap) ModuleRequests(v Value) ([]string, error) {
	if _, err := h.Cast(v, ClassModuleInfo); err != nil {
		return nil, err
	}
	return h.arrayStrings(v)
}

func (h *Heap) arrayStrings(v Value) ([]string, error) {
	n, err := h.ArrayLength(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		s, err := h.String(h.ArrayGet(v, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
