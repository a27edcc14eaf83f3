// Package errors provides structured error types for the plugin runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending handle, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseOpen, errors.KindInvalidHandle).
//		Handle(int32(h)).
//		Detail("loader %d is not live", h).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseRead, int32(h))
//	err := errors.Unsupported(errors.PhaseOpen, "follow redirect")
//
// All errors implement the standard error interface and support errors.Is/As.
// Result maps any error onto the plugin-facing result code.
package errors
