// Package scopelayout provides a Go implementation of a scope descriptor layout engine.
//
// A scope descriptor (ScopeInfo) is a compact, variable-length record describing a
// lexical scope: its kind, its context-allocated locals and a handful of optional
// trailing sections. The record stores no offsets. Every section's position is
// recomputed from the header flags and the lengths of earlier sections.
//
// # Architecture Overview
//
//	scopelayout/         Root package with core Memory and Allocator interfaces
//	├── memory/          Heap backing stores (Go slice, wazero linear memory) and arena allocator
//	├── bitfield/        Packed bit-field codec
//	├── heap/            Tagged values, maps, roots, downcasts and type-range checks
//	├── layout/          Ordered section tables and the offset fold
//	├── scopeinfo/       ScopeInfo header codec, construction and bounds-checked accessors
//	├── snapshot/        Heap images persisted to bbolt
//	├── errors/          Structured error types, CastError and fatal Unreachable
//	└── cmd/scopeinfo/   CLI for building, printing and inspecting descriptors
//
// # Quick Start
//
//	h, err := heap.New(heap.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	si, err := scopeinfo.New(h, scopeinfo.Descriptor{
//	    Flags:  scopeinfo.Flags{ScopeType: scopeinfo.FunctionScope},
//	    Locals: []scopeinfo.Local{{Name: "x"}, {Name: "y"}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	name := si.ContextLocalName(1) // "y"
//
// # Failure Channels
//
// A downcast that does not match returns a CastError the caller can branch on.
// An index outside a section, or an enum value outside its declared set, panics
// with an Unreachable error: it means the heap is corrupt or the caller ignored
// metadata it already holds.
//
// # Thread Safety
//
// Heap allocation is serialized. ScopeInfo views are safe for concurrent reads once
// published; element stores are single-writer and rely on the host for ordering.
package scopelayout
