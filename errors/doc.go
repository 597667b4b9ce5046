// Package errors provides structured error types for the scope layout engine.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: slot path, expected/actual class names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAccess, errors.KindInvalidVariant).
//		Path("outerScopeInfo", "0").
//		Expected("ScopeInfo|TheHole").
//		Actual("String").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CastError(path, "ScopeInfo", "FixedArray")
//	err := errors.Overflow(errors.PhaseEncode, path, 40, "5-bit field")
//
// Two failure channels exist. CastError values are returned and callers branch on
// them (errors.Is(err, errors.ErrCast)). Unreachable panics mark invariant violations
// such as an out-of-range section index; IsUnreachable identifies them after recover.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
