package marshal

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/abi"
)

type pointerCodec struct {
	typ      *descriptor.PointerType
	compiler *Compiler
	// hostElem is the Go pointee type of lifted results, nil when results
	// lift to Pointer or OpaqueRef.
	hostElem reflect.Type

	once    sync.Once
	elem    codec
	elemErr error
}

func (c *Compiler) compilePointer(pt *descriptor.PointerType) codec {
	return &pointerCodec{typ: pt, compiler: c, hostElem: hostElemType(pt.Elem())}
}

func hostElemType(t descriptor.Type) reflect.Type {
	switch typ := t.(type) {
	case descriptor.Scalar:
		return scalarReps[typ.Kind()]
	case *descriptor.EnumType:
		return scalarReps[typ.Repr().Kind()]
	case *descriptor.PointerType:
		if inner := hostElemType(typ.Elem()); inner != nil {
			return reflect.PointerTo(inner)
		}
	}
	return nil
}

func (c *pointerCodec) Type() descriptor.Type { return c.typ }
func (c *pointerCodec) Rep() reflect.Type     { return unsafePointerType }

// elemCodec compiles the pointee lazily so self-referential structs do not
// recurse at compile time.
func (c *pointerCodec) elemCodec() (codec, error) {
	c.once.Do(func() {
		c.elem, c.elemErr = c.compiler.codecFor(c.typ.Elem())
	})
	return c.elem, c.elemErr
}

func (c *pointerCodec) lower(path []string, v any, f *Frame) (reflect.Value, error) {
	if isNilPointer(v) {
		if c.typ.Nullable() {
			return reflect.ValueOf(unsafe.Pointer(nil)), nil
		}
		return reflect.Value{}, errors.NullPointer(path, c.typ.Name())
	}

	elem := c.typ.Elem()
	switch x := v.(type) {
	case OpaqueRef:
		if elem.Kind() != descriptor.KindOpaque || x.Type == nil || x.Type.Name() != elem.Name() {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, x.String(), c.typ.Name())
		}
		return reflect.ValueOf(x.addr), nil
	case Pointer:
		if !compatibleElem(x.Elem, elem) {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, elemName(x.Elem)+"*", c.typ.Name())
		}
		return reflect.ValueOf(x.addr), nil
	case unsafe.Pointer:
		return reflect.ValueOf(x), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if !c.compiler.exactRep(rv.Type().Elem(), elem, make(map[repKey]bool)) {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), c.typ.Name())
		}
		if f != nil {
			f.keep(v)
		}
		return reflect.ValueOf(rv.UnsafePointer()), nil
	}

	if elem.Kind() != descriptor.KindStruct {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), c.typ.Name())
	}
	if f == nil {
		return reflect.Value{}, errors.Unsupported(errors.PhaseMarshal, "copying a struct value outside a call")
	}
	ec, err := c.elemCodec()
	if err != nil {
		return reflect.Value{}, err
	}
	val, err := ec.lower(path, v, f)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(ec.Rep())
	ptr.Elem().Set(val)
	f.keep(ptr.Interface())
	return reflect.ValueOf(ptr.UnsafePointer()), nil
}

func (c *pointerCodec) lift(_ []string, v reflect.Value) (any, error) {
	p := v.UnsafePointer()
	if p == nil {
		return nil, nil
	}
	elem := c.typ.Elem()
	if ot, ok := elem.(*descriptor.OpaqueType); ok {
		return OpaqueRef{Type: ot, addr: p}, nil
	}
	if c.hostElem != nil {
		return reflect.NewAt(c.hostElem, p).Interface(), nil
	}
	return Pointer{Elem: elem, addr: p}, nil
}

func isNilPointer(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case Pointer:
		return x.IsNull()
	case OpaqueRef:
		return x.IsNull()
	case unsafe.Pointer:
		return x == nil
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func compatibleElem(have, want descriptor.Type) bool {
	if have == nil || want == nil {
		return true
	}
	if have.Kind() == descriptor.KindVoid || want.Kind() == descriptor.KindVoid {
		return true
	}
	return have.Name() == want.Name()
}

type funcPtrCodec struct {
	typ *descriptor.FuncPtrType
}

func (c *funcPtrCodec) Type() descriptor.Type { return c.typ }
func (c *funcPtrCodec) Rep() reflect.Type     { return uintptrType }

func (c *funcPtrCodec) lower(path []string, v any, f *Frame) (reflect.Value, error) {
	cb, ok := v.(*Callback)
	if !ok {
		if v == nil {
			return reflect.Value{}, errors.NullPointer(path, c.typ.Name())
		}
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), c.typ.Name())
	}
	if cb == nil {
		return reflect.Value{}, errors.NullPointer(path, c.typ.Name())
	}
	if cb.typ.Prototype() != c.typ.Prototype() {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, cb.typ.Name(), c.typ.Name())
	}
	if f == nil {
		if cb.Released() {
			return reflect.Value{}, errors.DanglingCallback(path, c.typ.Name())
		}
	} else if err := f.useCallback(path, cb); err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(cb.addr), nil
}

func (c *funcPtrCodec) lift(_ []string, v reflect.Value) (any, error) {
	return uintptr(v.Uint()), nil
}
