package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode    Phase = "encode"    // header and property packing
	PhaseDecode    Phase = "decode"    // header and property unpacking
	PhaseLayout    Phase = "layout"    // section offset computation
	PhaseAccess    Phase = "access"    // element loads and stores
	PhaseCast      Phase = "cast"      // downcasts and type checks
	PhaseConstruct Phase = "construct" // descriptor construction
	PhaseAlloc     Phase = "alloc"     // heap allocation
	PhaseMemory    Phase = "memory"    // backing store operations
	PhaseSnapshot  Phase = "snapshot"  // heap image persistence
	PhaseConfig    Phase = "config"    // configuration and description files
)

// Kind categorizes the error
type Kind string

const (
	KindCastError      Kind = "cast_error"
	KindUnreachable    Kind = "unreachable"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindInvalidEnum    Kind = "invalid_enum"
	KindInvalidVariant Kind = "invalid_variant"
	KindOverflow       Kind = "overflow"
	KindAllocation     Kind = "allocation"
	KindFieldMissing   Kind = "field_missing"
	KindFieldUnknown   Kind = "field_unknown"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindIncompatible   Kind = "incompatible"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Actual   string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": ")
		if e.Expected != "" && e.Actual != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", got ")
			b.WriteString(e.Actual)
		} else if e.Expected != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		} else {
			b.WriteString("got ")
			b.WriteString(e.Actual)
		}
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks that do not care about the phase.
var (
	ErrCast        = &Error{Kind: KindCastError}
	ErrUnreachable = &Error{Kind: KindUnreachable}
	ErrOutOfBounds = &Error{Kind: KindOutOfBounds}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets the expected type or class name
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Actual sets the observed type or class name
func (b *Builder) Actual(t string) *Builder {
	b.err.Actual = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// CastError creates a recoverable downcast failure
func CastError(path []string, expected, actual string) *Error {
	return &Error{
		Phase:    PhaseCast,
		Kind:     KindCastError,
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// InvalidVariant creates a store-time variant membership failure
func InvalidVariant(path []string, variant, actual string) *Error {
	return &Error{
		Phase:    PhaseAccess,
		Kind:     KindInvalidVariant,
		Path:     path,
		Expected: variant,
		Actual:   actual,
		Detail:   "value is not a member of the slot's variant set",
		Cause:    ErrCast,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		Expected: target,
		Detail:   fmt.Sprintf("value %v overflows %s", value, target),
		Value:    value,
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidEnum,
		Path:     path,
		Expected: enumType,
		Detail:   fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:    value,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// FieldUnknown creates an error for a payload supplied to an absent section
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("field %q is not present in this layout", fieldName),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Unreachable panics with a KindUnreachable error. It marks an engine
// invariant violation: a corrupt heap or a caller ignoring its own metadata.
func Unreachable(phase Phase, path []string, detail string, args ...any) {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	panic(&Error{
		Phase:  phase,
		Kind:   KindUnreachable,
		Path:   path,
		Detail: detail,
	})
}

// CheckIndex panics with Unreachable unless 0 <= index < length.
// The comparison is unsigned so negative indices fail the same test.
func CheckIndex(phase Phase, path []string, index int, length uint32) {
	if uint(index) < uint(length) {
		return
	}
	panic(&Error{
		Phase:  phase,
		Kind:   KindUnreachable,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
		Cause:  ErrOutOfBounds,
	})
}

// IsUnreachable reports whether a recovered panic value is an Unreachable error.
func IsUnreachable(recovered any) bool {
	e, ok := recovered.(*Error)
	return ok && e.Kind == KindUnreachable
}

// Incompatible creates a version or format mismatch error
func Incompatible(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIncompatible,
		Detail: detail,
		Cause:  cause,
	}
}
