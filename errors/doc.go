// Package errors provides structured error types for the script bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: member path, Go/script type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHost, errors.KindTypeMismatch).
//		Path("printRect", "arg 0").
//		GoType("int32").
//		ScriptType("string").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownObject(errors.PhaseDispatch, 7)
//	err := errors.Overflow(errors.PhaseHost, path, 1<<40, "int32")
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind matches on kind alone, walking the cause chain.
package errors
