// Package errors provides structured error types for the extsync library.
//
// Errors are categorized by Phase (which entry point failed) and Kind (error
// category). The Error type carries the object name involved, a human-readable
// detail and an optional cause from the backend.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseImport, errors.KindInvalidHandleKind).
//		Object("semaphore", 3).
//		Value(kind).
//		Detail("handle kind %s is not supported", kind).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownObject(errors.PhaseWait, "semaphore", 7)
//	err := errors.InvalidCount(errors.PhaseCreate, -1)
//
// Callers that only care about the category use KindOf or HasKind:
//
//	if errors.HasKind(err, errors.KindUnknownObject) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
