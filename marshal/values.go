package marshal

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
)

// Record is a lifted struct value keyed by field name.
type Record map[string]any

// EnumValue is a lifted enum member.
type EnumValue struct {
	Type  *descriptor.EnumType
	Name  string
	Value int64
}

func (e EnumValue) String() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("%d", e.Value)
}

// OpaqueRef is a handle to a native object of an opaque type. It is only
// ever passed back to native code.
type OpaqueRef struct {
	Type *descriptor.OpaqueType
	addr unsafe.Pointer
}

// NewOpaqueRef wraps a native address.
func NewOpaqueRef(t *descriptor.OpaqueType, addr unsafe.Pointer) OpaqueRef {
	return OpaqueRef{Type: t, addr: addr}
}

// Addr returns the native address.
func (o OpaqueRef) Addr() uintptr { return uintptr(o.addr) }

// IsNull reports a null handle.
func (o OpaqueRef) IsNull() bool { return o.addr == nil }

func (o OpaqueRef) String() string {
	name := "?"
	if o.Type != nil {
		name = o.Type.Name()
	}
	return fmt.Sprintf("%s@%#x", name, uintptr(o.addr))
}

// Pointer is a raw native address with a known element type.
type Pointer struct {
	Elem descriptor.Type
	addr unsafe.Pointer
}

// NewPointer wraps an address. elem may be descriptor.Void.
func NewPointer(elem descriptor.Type, addr unsafe.Pointer) Pointer {
	return Pointer{Elem: elem, addr: addr}
}

// Addr returns the native address.
func (p Pointer) Addr() uintptr { return uintptr(p.addr) }

// UnsafePointer returns the address as an unsafe.Pointer.
func (p Pointer) UnsafePointer() unsafe.Pointer { return p.addr }

// IsNull reports a null pointer.
func (p Pointer) IsNull() bool { return p.addr == nil }

func (p Pointer) String() string {
	name := "void"
	if p.Elem != nil {
		name = p.Elem.Name()
	}
	return fmt.Sprintf("(%s*)%#x", name, uintptr(p.addr))
}

// Load reads the element through the pointer using the element layout.
func (p Pointer) Load() (any, error) {
	c, err := p.elemCodec()
	if err != nil {
		return nil, err
	}
	return c.lift([]string{p.String()}, reflectAt(c, p.addr))
}

// Store writes v through the pointer using the element layout. Values that
// would need a fresh allocation, such as a struct behind a pointer field,
// are rejected.
func (p Pointer) Store(v any) error {
	c, err := p.elemCodec()
	if err != nil {
		return err
	}
	rv, err := c.lower([]string{p.String()}, v, nil)
	if err != nil {
		return err
	}
	reflectAt(c, p.addr).Set(rv)
	return nil
}

// Field returns a pointer to field i of a struct element.
func (p Pointer) Field(i int) (Pointer, error) {
	st, ok := p.Elem.(*descriptor.StructType)
	if !ok {
		return Pointer{}, errors.TypeMismatch(errors.PhaseMarshal, []string{p.String()}, "field access", elemName(p.Elem))
	}
	if i < 0 || i >= st.NumFields() {
		return Pointer{}, errors.FieldUnknown(errors.PhaseMarshal, []string{st.Name()}, fmt.Sprintf("#%d", i))
	}
	if p.addr == nil {
		return Pointer{}, errors.NullPointer([]string{st.Name()}, p.Elem.Name()+"*")
	}
	l, err := defaultCompiler.layoutOf(st)
	if err != nil {
		return Pointer{}, err
	}
	return Pointer{Elem: st.Field(i).Type, addr: unsafe.Add(p.addr, l.Offsets[i])}, nil
}

func (p Pointer) elemCodec() (codec, error) {
	if p.addr == nil {
		return nil, errors.NullPointer([]string{p.String()}, elemName(p.Elem)+"*")
	}
	if p.Elem == nil || p.Elem.Kind() == descriptor.KindVoid || p.Elem.Kind() == descriptor.KindOpaque {
		return nil, errors.Unsupported(errors.PhaseMarshal,
			fmt.Sprintf("cannot dereference %s*", elemName(p.Elem)))
	}
	return defaultCompiler.codecFor(p.Elem)
}

// HostType returns the Go type that a typed pointer to t points at, or nil
// when pointers to t lift to Pointer or OpaqueRef instead.
func HostType(t descriptor.Type) reflect.Type { return hostElemType(t) }

func elemName(t descriptor.Type) string {
	if t == nil {
		return "void"
	}
	return t.Name()
}
