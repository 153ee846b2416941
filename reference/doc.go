// Package reference is the reference FFI surface: three constants, an
// enum, an opaque handle, three structs, a callback type and twenty-one
// functions exercising primitives, structs, pointers and callbacks.
//
// The surface exists in three equivalent forms. Descriptor builds it with
// the descriptor builder, Source holds the header text that
// header.Render produces from it, and ParseSource reads that text back.
// API is a typed wrapper over a bound table:
//
//	reg := binder.NewRegistry(binder.DefaultOptions())
//	defer reg.Close()
//	api, err := reference.Load(reg, "./libreference.so")
//	v, err := api.PrimitiveU8(7)
//
// testdata/reference.c implements the surface in C.
package reference
