// Package ffiruntime binds native shared libraries from Go without cgo.
//
// A library's surface is declared once as a descriptor: named constants,
// types and function prototypes. The descriptor can be built in Go or parsed
// from C header text, and it renders back to the same header text. Binding
// a descriptor against a library resolves every declared symbol up front
// and yields a table of callable functions that marshal Go values to the
// native calling convention and back.
//
// # Architecture Overview
//
//	ffiruntime/
//	├── descriptor/      Declarations, type model and C layout
//	├── header/          C header parser and renderer
//	├── marshal/         Go value conversion, call frames and callbacks
//	├── binder/          Library lifecycle, symbol resolution and calls
//	├── reference/       Reference surface with a typed Go API
//	├── resource/        Handle table backing callback registrations
//	├── errors/          Structured error types for debugging
//	└── cmd/ffirun/      Command-line runner with an interactive mode
//
// # Quick Start
//
//	d, err := header.Parse(`int32_t add(int32_t a, int32_t b);`, header.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg := binder.NewRegistry(binder.DefaultOptions())
//	defer reg.Close()
//
//	table, err := reg.Bind("./libmath.so", d)
//	if err != nil {
//	    log.Fatal(err) // a missing symbol fails the whole bind
//	}
//
//	add, _ := table.Func("add")
//	sum, err := add.Call(2, 3)
//	fmt.Println(sum) // int32(5)
//
// # Values
//
// Scalars map to Go integers, floats and bool with range checks. Structs
// accept Go structs or maps keyed by field name and lift to marshal.Record.
// Enums lift to marshal.EnumValue. Pointers to scalars and pointers to
// pointers accept and return typed Go pointers; pointers to opaque types
// travel as marshal.OpaqueRef. Null handling follows each pointer's
// declared semantics.
//
// # Callbacks
//
// Go functions become native function pointers with Table.NewCallback. A
// callback stays valid until it is released or its binder closes; calls
// through a released callback fail with a dangling-callback error instead
// of reaching Go.
//
// # Thread Safety
//
// Registries, binders and tables are safe for concurrent use. Closing a
// binder while calls through it are in flight is not supported.
package ffiruntime
