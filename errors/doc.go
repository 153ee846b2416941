// Package errors provides structured error types for the ffi-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: parameter path, Go/C type names, and cause chain.
//
// Phases map onto the failure classes of the FFI boundary:
//
//	PhaseDeclaration  descriptor construction (duplicate or unresolved names)
//	PhaseLoad         opening the native library
//	PhaseSymbol       resolving exported symbols and checking signatures
//	PhaseMarshal      converting one call's arguments or result
//	PhaseCall         the native call itself and binder lifecycle
//	PhaseParse        reading header text
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("complex_1", "_a", "x").
//		GoType("string").
//		CType("float").
//		Detail("cannot convert string to float").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NullPointer([]string{"ptr", "x"}, "int64_t*")
//	err := errors.Overflow(errors.PhaseMarshal, path, 300, "uint8_t")
//
// All errors implement the standard error interface and support errors.Is/As.
// The exported Err* values are match targets for errors.Is:
//
//	if errors.Is(err, errors.ErrNullPointer) { ... }
package errors
