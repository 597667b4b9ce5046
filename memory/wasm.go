package memory

import (
	"context"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/internal/abi"
)

// ExportName is the export the heap module publishes its memory under.
const ExportName = "memory"

// WasmMemory owns a wazero runtime holding a single exported linear memory.
type WasmMemory struct {
	*Wrapper
	rt wazero.Runtime
}

// NewWasmMemory instantiates a memory-only module with the given initial pages.
func NewWasmMemory(ctx context.Context, pages uint32) (*WasmMemory, error) {
	if pages > abi.MaxPages {
		return nil, errors.Overflow(errors.PhaseMemory, nil, pages, "heap page limit")
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(abi.MaxPages))

	compiled, err := rt.CompileModule(ctx, memoryModule(pages))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindInvalidData, err, "compile memory module")
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory(ExportName)
	if mem == nil {
		rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseMemory, "export", ExportName)
	}

	return &WasmMemory{Wrapper: WrapMemory(mem), rt: rt}, nil
}

// Close releases the wazero runtime and the memory with it.
func (w *WasmMemory) Close(ctx context.Context) error {
	return w.rt.Close(ctx)
}

// memoryModule assembles a module with one memory of min pages and no maximum,
// exported as "memory".
func memoryModule(pages uint32) []byte {
	limits := append([]byte{0x01, 0x00}, uleb128(pages)...) // one memory, no max

	bin := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	bin = append(bin, 0x05) // memory section
	bin = append(bin, uleb128(uint32(len(limits)))...)
	bin = append(bin, limits...)

	export := []byte{0x01, byte(len(ExportName))}
	export = append(export, ExportName...)
	export = append(export, 0x02, 0x00) // kind: memory, index 0

	bin = append(bin, 0x07) // export section
	bin = append(bin, uleb128(uint32(len(export)))...)
	return append(bin, export...)
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
