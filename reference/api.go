package reference

import (
	"fmt"

	"github.com/wippyai/ffi-runtime/binder"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/marshal"
)

// Constants of the reference surface.
const (
	C1 = 1
	C2 = 1
	C3 = -100
)

// CallbackType names the callback function pointer type.
const CallbackType = "fptr_fn_u8_rval_u8"

// FFIError is the status enum.
type FFIError int32

const (
	Ok   FFIError = 0
	Fail FFIError = 200
)

func (e FFIError) String() string {
	switch e {
	case Ok:
		return "Ok"
	case Fail:
		return "Fail"
	}
	return fmt.Sprintf("FFIError(%d)", int32(e))
}

// Vec3f32 matches the C struct Vec3f32.
type Vec3f32 struct {
	X, Y, Z float32
}

// SomeForeignType matches the C struct SomeForeignType.
type SomeForeignType struct {
	X uint32
}

// Empty matches the zero-field C struct Empty.
type Empty struct{}

// API is the typed reference surface over a bound table.
type API struct {
	table *binder.Table

	callback     *binder.Func
	complex1     *binder.Func
	complex2     *binder.Func
	primBool     *binder.Func
	primI8       *binder.Func
	primI16      *binder.Func
	primI32      *binder.Func
	primI64      *binder.Func
	primU8       *binder.Func
	primU16      *binder.Func
	primU32      *binder.Func
	primU64      *binder.Func
	primVoid     *binder.Func
	primVoid2    *binder.Func
	ptr          *binder.Func
	ptrMut       *binder.Func
	ptrOption    *binder.Func
	ptrOptionMut *binder.Func
	ptrPtr       *binder.Func
	ptrSimple    *binder.Func
	ptrSimpleMut *binder.Func
}

// Load binds the reference surface from the library at path. Any missing
// symbol fails the load.
func Load(reg *binder.Registry, path string) (*API, error) {
	table, err := reg.Bind(path, Descriptor())
	if err != nil {
		return nil, err
	}
	return New(table)
}

// New wraps a table bound from Descriptor or an equal descriptor.
func New(table *binder.Table) (*API, error) {
	api := &API{table: table}
	for name, dst := range map[string]**binder.Func{
		"callback":        &api.callback,
		"complex_1":       &api.complex1,
		"complex_2":       &api.complex2,
		"primitive_bool":  &api.primBool,
		"primitive_i8":    &api.primI8,
		"primitive_i16":   &api.primI16,
		"primitive_i32":   &api.primI32,
		"primitive_i64":   &api.primI64,
		"primitive_u8":    &api.primU8,
		"primitive_u16":   &api.primU16,
		"primitive_u32":   &api.primU32,
		"primitive_u64":   &api.primU64,
		"primitive_void":  &api.primVoid,
		"primitive_void2": &api.primVoid2,
		"ptr":             &api.ptr,
		"ptr_mut":         &api.ptrMut,
		"ptr_option":      &api.ptrOption,
		"ptr_option_mut":  &api.ptrOptionMut,
		"ptr_ptr":         &api.ptrPtr,
		"ptr_simple":      &api.ptrSimple,
		"ptr_simple_mut":  &api.ptrSimpleMut,
	} {
		f, err := table.Func(name)
		if err != nil {
			return nil, err
		}
		*dst = f
	}
	return api, nil
}

// Table returns the underlying bound table.
func (a *API) Table() *binder.Table { return a.table }

// NewCallback wraps fn as a fptr_fn_u8_rval_u8.
func (a *API) NewCallback(fn func(uint8) uint8) (*marshal.Callback, error) {
	return a.table.NewCallback(CallbackType, fn)
}

// Callback calls cb(value) from native code.
func (a *API) Callback(cb *marshal.Callback, value uint8) (uint8, error) {
	return call[uint8](a.callback, cb, value)
}

// Complex1 reports Fail for a zero vector.
func (a *API) Complex1(v Vec3f32, e *Empty) (FFIError, error) {
	ev, err := call[marshal.EnumValue](a.complex1, v, e)
	if err != nil {
		return 0, err
	}
	return FFIError(ev.Value), nil
}

// Complex2 returns a handle to a native object holding c.
func (a *API) Complex2(c SomeForeignType) (marshal.OpaqueRef, error) {
	return call[marshal.OpaqueRef](a.complex2, c)
}

func (a *API) PrimitiveBool(x bool) (bool, error) { return call[bool](a.primBool, x) }
func (a *API) PrimitiveI8(x int8) (int8, error)   { return call[int8](a.primI8, x) }
func (a *API) PrimitiveI16(x int16) (int16, error) {
	return call[int16](a.primI16, x)
}
func (a *API) PrimitiveI32(x int32) (int32, error) {
	return call[int32](a.primI32, x)
}
func (a *API) PrimitiveI64(x int64) (int64, error) {
	return call[int64](a.primI64, x)
}
func (a *API) PrimitiveU8(x uint8) (uint8, error) { return call[uint8](a.primU8, x) }
func (a *API) PrimitiveU16(x uint16) (uint16, error) {
	return call[uint16](a.primU16, x)
}
func (a *API) PrimitiveU32(x uint32) (uint32, error) {
	return call[uint32](a.primU32, x)
}
func (a *API) PrimitiveU64(x uint64) (uint64, error) {
	return call[uint64](a.primU64, x)
}

func (a *API) PrimitiveVoid() error {
	_, err := a.primVoid.Call()
	return err
}

func (a *API) PrimitiveVoid2() error {
	_, err := a.primVoid2.Call()
	return err
}

// Ptr returns x, which may be nil.
func (a *API) Ptr(x *int64) (*int64, error) { return call[*int64](a.ptr, x) }

// PtrMut negates *x and returns x. x must not be nil.
func (a *API) PtrMut(x *int64) (*int64, error) { return call[*int64](a.ptrMut, x) }

// PtrOption returns x, which may be nil.
func (a *API) PtrOption(x *int64) (*int64, error) { return call[*int64](a.ptrOption, x) }

// PtrOptionMut negates *x when x is not nil and returns x.
func (a *API) PtrOptionMut(x *int64) (*int64, error) {
	return call[*int64](a.ptrOptionMut, x)
}

// PtrPtr returns x. x must not be nil; *x may be.
func (a *API) PtrPtr(x **int64) (**int64, error) { return call[**int64](a.ptrPtr, x) }

// PtrSimple returns x. x must not be nil.
func (a *API) PtrSimple(x *int64) (*int64, error) { return call[*int64](a.ptrSimple, x) }

// PtrSimpleMut negates *x and returns x. x must not be nil.
func (a *API) PtrSimpleMut(x *int64) (*int64, error) {
	return call[*int64](a.ptrSimpleMut, x)
}

// call invokes f and asserts the lifted result type. A nil result yields
// the zero T.
func call[T any](f *binder.Func, args ...any) (T, error) {
	var zero T
	v, err := f.Call(args...)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseMarshal, []string{f.Name(), "return"},
			fmt.Sprintf("%T", v), fmt.Sprintf("%T", zero))
	}
	return t, nil
}
