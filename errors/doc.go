// Package errors provides structured error types for the typeart runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the address, type name and type path involved plus a cause chain.
//
// The kinds follow the runtime's error taxonomy:
//
//	load:    missing, malformed, cycle_rejected
//	release: not_found
//	query:   untracked, offset_out_of_range, unknown_type
//	scope:   invalid_handle
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseQuery, errors.KindOffsetOutOfRange).
//		Addr(addr).
//		Path("Point", "y").
//		Type("int32").
//		Detail("byte offset %d inside scalar", 2).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Untracked(addr)
//	err := errors.Malformed("Point", "member offsets not increasing")
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Phase and Kind; IsKind matches on Kind alone.
package errors
