package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // catalog loading and validation
	PhaseRecord  Phase = "record"  // allocation recording
	PhaseRelease Phase = "release" // explicit deallocation
	PhaseScope   Phase = "scope"   // scope push/pop
	PhaseQuery   Phase = "query"   // address and offset resolution
	PhaseConfig  Phase = "config"  // options and config files
	PhaseHost    Phase = "host"    // wasm host module calls
	PhaseReplay  Phase = "replay"  // allocation trace replay
)

// Kind categorizes the error
type Kind string

const (
	KindMissing          Kind = "missing"
	KindMalformed        Kind = "malformed"
	KindCycleRejected    Kind = "cycle_rejected"
	KindNotFound         Kind = "not_found"
	KindUntracked        Kind = "untracked"
	KindOffsetOutOfRange Kind = "offset_out_of_range"
	KindUnknownType      Kind = "unknown_type"
	KindInvalidHandle    Kind = "invalid_handle"
	KindInvalidInput     Kind = "invalid_input"
	KindOverflow         Kind = "overflow"
	KindUnsupported      Kind = "unsupported"
	KindNotInitialized   Kind = "not_initialized"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
	Addr   uintptr
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Addr != 0 {
		b.WriteString(" at 0x")
		b.WriteString(strconv.FormatUint(uint64(e.Addr), 16))
	}

	if len(e.Path) > 0 {
		b.WriteString(" in ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err or any error it wraps is an *Error of the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PhaseOf returns the phase of the outermost *Error in err's chain, or "".
func PhaseOf(err error) Phase {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Phase
	}
	return ""
}

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

// Path sets the type path, outermost first
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the type name involved
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Addr sets the address the operation was applied to
func (b *Builder) Addr(addr uintptr) *Builder {
	b.err.Addr = addr
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

// Missing creates a missing-source error
func Missing(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissing,
		Detail: what + " not available",
		Cause:  cause,
	}
}

// Malformed creates a catalog validation error
func Malformed(typeName string, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMalformed,
		Type:   typeName,
		Detail: detail,
	}
}

// CycleRejected creates an error for a cyclic containment graph
func CycleRejected(path []string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindCycleRejected,
		Path:   path,
		Detail: "type contains itself",
	}
}

// NotFound creates a lookup failure for an untracked base address
func NotFound(phase Phase, addr uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Addr:   addr,
		Detail: "no allocation tracked at address",
	}
}

// Untracked creates a query failure for an address outside every live allocation
func Untracked(addr uintptr) *Error {
	return &Error{
		Phase:  PhaseQuery,
		Kind:   KindUntracked,
		Addr:   addr,
		Detail: "address is not inside a tracked allocation",
	}
}

// OffsetOutOfRange creates a query failure for an offset without finer structure
func OffsetOutOfRange(addr uintptr, typeName string, offset uint64) *Error {
	return &Error{
		Phase:  PhaseQuery,
		Kind:   KindOffsetOutOfRange,
		Addr:   addr,
		Type:   typeName,
		Detail: fmt.Sprintf("byte offset %d does not start an element", offset),
		Value:  offset,
	}
}

// UnknownType creates an error for a type id missing from the active catalog
func UnknownType(phase Phase, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownType,
		Type:   typeName,
		Detail: "type is not described by the active catalog",
	}
}

// InvalidHandle creates an error for a scope handle that is no longer live
func InvalidHandle(detail string) *Error {
	return &Error{
		Phase:  PhaseScope,
		Kind:   KindInvalidHandle,
		Detail: detail,
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

// Overflow creates an arithmetic overflow error
func Overflow(phase Phase, typeName string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Type:   typeName,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
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
