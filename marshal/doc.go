// Package marshal converts host values to and from the native calling
// convention of a descriptor function.
//
// A Plan is compiled once per function. It carries the Go function type
// handed to the call layer and one codec per parameter and for the result:
//
//	plan, err := marshal.Compile(fn)
//	args, frame, err := plan.Lower([]any{uint8(7)})
//	out := stub.Call(args)
//	err = frame.Finish()
//	result, err := plan.Lift(out)
//
// # Host Values
//
//	C type              accepted on the way in                      lifted to
//	bool, intN_t, ...   Go bool / any in-range Go integer           exact Go type
//	float, double       float32, exactly representable float64     float32, float64
//	enum                EnumValue, member name, member value        EnumValue
//	struct              Go struct (ffi tag or name), Record, map    Record
//	T* (scalar T)       *T, Pointer, unsafe.Pointer, nil            *T
//	T** (scalar T)      **T, Pointer, unsafe.Pointer                **T
//	S* (struct S)       *S with identical layout, S value (copied)  Pointer
//	Opaque*             OpaqueRef                                   OpaqueRef
//	function pointer    *Callback                                   uintptr
//
// Required pointers reject nil with a null_pointer error. Optional pointers
// pass nil through. Integers never wrap: out-of-range values fail with an
// overflow error.
//
// # Callbacks
//
// Callbacks.Wrap turns a Go function into a native function pointer through
// a trampoline. Trampolines are a process-wide resource and are never
// reassigned: after Release a stale native pointer still reaches the
// released wrapper, which logs the invocation, returns zero and records a
// fault that the call passing the wrapper reports.
package marshal
