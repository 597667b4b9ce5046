// Package snapshot persists heap images so that prebuilt scope descriptors can
// be restored without rebuilding them. Snapshots live in a bbolt file keyed by
// name and carry a semantic format version checked on load.
package snapshot
