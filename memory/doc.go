// Package memory provides heap backing stores and the arena allocator.
//
// Two stores implement scopelayout.Memory:
//
//	buf := memory.NewBuffer(1)               // Go byte slice, 1 page
//	wm, err := memory.NewWasmMemory(ctx, 1)  // wazero linear memory, 1 page
//	defer wm.Close(ctx)
//
// Both are little-endian and grow in 64 KiB pages. WrapMemory adapts any wazero
// api.Memory, so a heap can live inside a guest module's exported memory.
//
// # Arena
//
// Arena is a bump allocator over a Memory. Regions are zeroed on allocation and
// never move. Free is a no-op: reclamation belongs to the host's collector.
//
//	arena := memory.NewArena(buf, memory.FirstAddress)
//	ptr, err := arena.Alloc(32, 4)
package memory
