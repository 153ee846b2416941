// Package binder loads native shared libraries and binds descriptor
// functions to callable stubs.
//
// # Main Types
//
//   - Binder: one library and its lifecycle (Unopened, Opened, Bound, Closed)
//   - Table: the immutable set of bound functions for one descriptor
//   - Func: a bound function; Call marshals, calls and lifts
//   - Registry: binders cached by cleaned path
//
// # Thread Safety
//
// Binder and Registry are safe for concurrent use. A Table never changes
// after BindAll returns it, and Func.Call may run concurrently. No lock is
// held while native code runs, so callbacks may call other bound functions.
//
// Closing a binder while calls are still running is the caller's
// responsibility to avoid: the library is unmapped immediately.
//
// # Binding Rules
//
//  1. Every declared function must be exported, else the whole bind fails
//     with symbol_not_found listing every missing name
//  2. Every signature must compile to a call stub, else signature_mismatch
//  3. A descriptor with an API guard calls it once; a hash other than the
//     expected one is a signature_mismatch
//  4. A failed first bind releases the library once and closes the binder.
//     A failed bind on a Bound binder leaves its table usable
//
// # Example
//
//	reg := binder.NewRegistry(binder.DefaultOptions())
//	defer reg.Close()
//	table, err := reg.Bind("./libreference.so", desc)
//	fn, err := table.Func("primitive_u8")
//	v, err := fn.Call(uint8(7))
package binder
