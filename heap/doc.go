// Package heap implements a tagged object heap over a linear store.
//
// Every slot is a 32-bit word: small integers are stored shifted left by one,
// references as address|1. Objects begin with a map word; the map carries the
// 16-bit instance type that downcasts check. Classes covering a contiguous
// family of instance types are checked with a single unsigned range compare.
//
// The heap owns a fixed set of roots (the meta map, one map per built-in
// type, the undefined and hole oddballs, the empty string and the empty
// ScopeInfo) and internalizes strings so that name identity is equality.
package heap
