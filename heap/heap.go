package heap

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
	"github.com/wippyai/scope-layout/memory"
)

// Backing selects the store a heap allocates from.
type Backing string

const (
	BackingBuffer Backing = "buffer" // Go byte slice
	BackingWasm   Backing = "wasm"   // wazero linear memory
)

// Config controls heap creation.
type Config struct {
	Logger  *zap.Logger
	Backing Backing
	Pages   uint32
}

// DefaultConfig returns a one-page slice-backed heap configuration.
func DefaultConfig() Config {
	return Config{Backing: BackingBuffer, Pages: 1}
}

// ObjectAlignment is the alignment of every object start.
const ObjectAlignment = 8

// RootIndex names a well-known heap value.
type RootIndex uint8

const (
	RootMetaMap RootIndex = iota
	RootStringMap
	RootSymbolMap
	RootOddballMap
	RootFixedArrayMap
	RootModuleInfoMap
	RootStringSetMap
	RootScopeInfoMap
	RootUndefined
	RootTheHole
	RootEmptyString
	RootEmptyFixedArray
	RootEmptyScopeInfo
	NumRoots

	NoRoot RootIndex = 0xFF
)

var rootNames = [NumRoots]string{
	"meta_map", "string_map", "symbol_map", "oddball_map", "fixed_array_map",
	"module_info_map", "string_set_map", "scope_info_map",
	"undefined", "the_hole", "empty_string", "empty_fixed_array", "empty_scope_info",
}

func (r RootIndex) String() string {
	if r >= NumRoots {
		return "no_root"
	}
	return rootNames[r]
}

// rootMaps lists the map roots in allocation order with their instance types.
var rootMaps = []struct {
	root RootIndex
	typ  InstanceType
	size uint32
}{
	{RootStringMap, InternalizedStringType, 0},
	{RootSymbolMap, SymbolType, symbolSize},
	{RootOddballMap, OddballType, oddballSize},
	{RootFixedArrayMap, FixedArrayType, 0},
	{RootModuleInfoMap, ModuleInfoType, 0},
	{RootStringSetMap, StringSetType, 0},
	{RootScopeInfoMap, ScopeInfoType, 0},
}

// Heap is a tagged object heap over a single linear store.
//
// Allocation is serialized. Objects are never freed or moved, so a Value stays
// valid for the life of the heap.
type Heap struct {
	mem    memory.Sized
	arena  *memory.Arena
	log    *zap.Logger
	closer func(context.Context) error

	mu    sync.RWMutex
	roots [NumRoots]Value
	names map[string]Value
}

// New creates a heap with the given configuration.
func New(cfg Config) (*Heap, error) {
	return NewContext(context.Background(), cfg)
}

// NewContext creates a heap; ctx bounds wasm memory instantiation.
func NewContext(ctx context.Context, cfg Config) (*Heap, error) {
	if cfg.Pages == 0 {
		cfg.Pages = 1
	}
	if cfg.Pages > abi.MaxPages {
		return nil, errors.Overflow(errors.PhaseConfig, []string{"pages"}, cfg.Pages, "heap page limit")
	}

	h := &Heap{log: cfg.Logger, names: make(map[string]Value)}
	if h.log == nil {
		h.log = Logger()
	}

	switch cfg.Backing {
	case BackingBuffer, "":
		h.mem = memory.NewBuffer(cfg.Pages)
	case BackingWasm:
		wm, err := memory.NewWasmMemory(ctx, cfg.Pages)
		if err != nil {
			return nil, err
		}
		h.mem = wm
		h.closer = wm.Close
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidEnum).
			Path("backing").
			Expected("buffer|wasm").
			Actual(string(cfg.Backing)).
			Build()
	}
	h.arena = memory.NewArena(h.mem, memory.FirstAddress)

	if err := h.bootstrap(); err != nil {
		_ = h.Close(ctx)
		return nil, err
	}

	h.log.Debug("heap created",
		zap.String("backing", string(cfg.Backing)),
		zap.Uint32("pages", cfg.Pages),
		zap.Uint32("top", h.arena.Top()))
	return h, nil
}

func (h *Heap) bootstrap() error {
	addr, err := h.arena.Alloc(mapSize, ObjectAlignment)
	if err != nil {
		return err
	}
	meta := Ref(addr)
	h.roots[RootMetaMap] = meta
	h.initMap(addr, meta, MapType, mapSize)

	for _, m := range rootMaps {
		v, err := h.NewMap(m.typ, m.size)
		if err != nil {
			return err
		}
		h.roots[m.root] = v
	}

	if h.roots[RootUndefined], err = h.newOddball(OddballUndefined); err != nil {
		return err
	}
	if h.roots[RootTheHole], err = h.newOddball(OddballTheHole); err != nil {
		return err
	}
	if h.roots[RootEmptyString], err = h.NewString(""); err != nil {
		return err
	}
	if h.roots[RootEmptyFixedArray], err = h.NewFixedArray(nil); err != nil {
		return err
	}
	// The empty ScopeInfo needs the scopeinfo layout; it is installed on first use.
	h.roots[RootEmptyScopeInfo] = h.roots[RootUndefined]
	return nil
}

// Close releases the backing store.
func (h *Heap) Close(ctx context.Context) error {
	if h.closer == nil {
		return nil
	}
	return h.closer(ctx)
}

// Memory exposes the backing store.
func (h *Heap) Memory() memory.Sized {
	return h.mem
}

// Top returns the address one past the last allocated object.
func (h *Heap) Top() uint32 {
	return h.arena.Top()
}

// Root returns a well-known value.
func (h *Heap) Root(r RootIndex) Value {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.roots[r]
}

// Roots returns a copy of the root table.
func (h *Heap) Roots() []Value {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Value, NumRoots)
	copy(out, h.roots[:])
	return out
}

// SetRoot replaces a root. Only roots that are installed lazily may change.
func (h *Heap) SetRoot(r RootIndex, v Value) {
	if r != RootEmptyScopeInfo {
		errors.Unreachable(errors.PhaseConstruct, []string{"roots", r.String()}, "root is immutable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roots[r] = v
}

// Undefined returns the undefined oddball.
func (h *Heap) Undefined() Value { return h.Root(RootUndefined) }

// TheHole returns the hole oddball that fills uninitialized slots.
func (h *Heap) TheHole() Value { return h.Root(RootTheHole) }

// Allocate reserves size bytes for an object whose map is the given root and
// writes the map word. The rest of the object is zeroed.
func (h *Heap) Allocate(size uint32, m RootIndex) (uint32, error) {
	return h.AllocateWithMap(size, h.Root(m))
}

// AllocateWithMap is Allocate for maps that are not roots.
func (h *Heap) AllocateWithMap(size uint32, m Value) (uint32, error) {
	if size < abi.WordSize {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "object smaller than its map word")
	}
	addr, err := h.arena.Alloc(size, ObjectAlignment)
	if err != nil {
		return 0, err
	}
	h.Store(addr, m)
	return addr, nil
}

// Load reads the tagged word at addr. A failing read means a corrupt
// reference and is fatal.
func (h *Heap) Load(addr uint32) Value {
	w, err := h.mem.ReadU32(addr)
	if err != nil {
		errors.Unreachable(errors.PhaseMemory, nil, "load at %#x: %v", addr, err)
	}
	return Value(w)
}

// Store writes the tagged word at addr.
func (h *Heap) Store(addr uint32, v Value) {
	if err := h.mem.WriteU32(addr, uint32(v)); err != nil {
		errors.Unreachable(errors.PhaseMemory, nil, "store at %#x: %v", addr, err)
	}
}

func (h *Heap) loadU16(addr uint32) uint16 {
	w, err := h.mem.ReadU16(addr)
	if err != nil {
		errors.Unreachable(errors.PhaseMemory, nil, "load16 at %#x: %v", addr, err)
	}
	return w
}

func (h *Heap) storeU16(addr uint32, v uint16) {
	if err := h.mem.WriteU16(addr, v); err != nil {
		errors.Unreachable(errors.PhaseMemory, nil, "store16 at %#x: %v", addr, err)
	}
}

func (h *Heap) readBytes(addr, n uint32) []byte {
	b, err := h.mem.Read(addr, n)
	if err != nil {
		errors.Unreachable(errors.PhaseMemory, nil, "read %d bytes at %#x: %v", n, addr, err)
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
