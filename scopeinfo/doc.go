// Package scopeinfo implements scope descriptors: compact heap records
// describing one lexical scope.
//
// A descriptor is a fixed header followed by up to twelve sections in a fixed
// order. No offsets are stored. Whether a section is present, and how many
// elements it has, follows from the header flags and the local count (and for
// module variables, from the count stored in the preceding section). The
// Sections table is the single source of that layout; ScopeInfo views fold it
// once and serve bounds-checked element access from the result.
//
// Out-of-range indices and undeclared enum values panic with an unreachable
// error. Downcasting a value that is not a descriptor returns a cast error.
package scopeinfo
