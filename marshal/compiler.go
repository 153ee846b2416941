package marshal

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
)

// codec converts one descriptor type between host values and the Go
// representation handed to the call layer.
type codec interface {
	Type() descriptor.Type
	// Rep is the Go type whose memory layout matches the C type.
	Rep() reflect.Type
	// lower converts a host value. A nil frame forbids allocation.
	lower(path []string, v any, f *Frame) (reflect.Value, error)
	lift(path []string, v reflect.Value) (any, error)
}

var (
	boolType          = reflect.TypeOf(false)
	uintptrType       = reflect.TypeOf(uintptr(0))
	unsafePointerType = reflect.TypeOf(unsafe.Pointer(nil))
)

var scalarReps = map[descriptor.Kind]reflect.Type{
	descriptor.KindBool: boolType,
	descriptor.KindU8:   reflect.TypeOf(uint8(0)),
	descriptor.KindS8:   reflect.TypeOf(int8(0)),
	descriptor.KindU16:  reflect.TypeOf(uint16(0)),
	descriptor.KindS16:  reflect.TypeOf(int16(0)),
	descriptor.KindU32:  reflect.TypeOf(uint32(0)),
	descriptor.KindS32:  reflect.TypeOf(int32(0)),
	descriptor.KindU64:  reflect.TypeOf(uint64(0)),
	descriptor.KindS64:  reflect.TypeOf(int64(0)),
	descriptor.KindF32:  reflect.TypeOf(float32(0)),
	descriptor.KindF64:  reflect.TypeOf(float64(0)),
}

// Compiler builds and caches codecs for resolved descriptor types.
// Codecs are keyed by type identity, so one Compiler may serve any number
// of descriptors.
type Compiler struct {
	cache   sync.Map // descriptor.Type -> codec
	layouts sync.Map // *descriptor.StructType -> descriptor.Layout
	fields  sync.Map // fieldKey -> []int
}

// NewCompiler creates a compiler with empty caches.
func NewCompiler() *Compiler {
	return &Compiler{}
}

var defaultCompiler = NewCompiler()

func (c *Compiler) codecFor(t descriptor.Type) (codec, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Detail("type cannot be nil").
			Build()
	}
	if cached, ok := c.cache.Load(t); ok {
		return cached.(codec), nil
	}
	cd, err := c.compile(t)
	if err != nil {
		return nil, err
	}
	actual, _ := c.cache.LoadOrStore(t, cd)
	return actual.(codec), nil
}

func (c *Compiler) compile(t descriptor.Type) (codec, error) {
	switch typ := t.(type) {
	case descriptor.Scalar:
		if typ.Kind() == descriptor.KindVoid {
			return voidCodec{}, nil
		}
		return &scalarCodec{typ: typ, rep: scalarReps[typ.Kind()]}, nil
	case *descriptor.EnumType:
		return &enumCodec{typ: typ, rep: scalarReps[typ.Repr().Kind()]}, nil
	case *descriptor.StructType:
		return c.compileStruct(typ)
	case *descriptor.PointerType:
		return c.compilePointer(typ), nil
	case *descriptor.FuncPtrType:
		return &funcPtrCodec{typ: typ}, nil
	case *descriptor.OpaqueType:
		return nil, errors.Unsupported(errors.PhaseMarshal, "opaque type "+typ.Name()+" by value")
	default:
		return nil, errors.New(errors.PhaseMarshal, errors.KindUnsupported).
			CType(t.Name()).
			Detail("unresolved type %s", t.Name()).
			Build()
	}
}

func (c *Compiler) layoutOf(st *descriptor.StructType) (descriptor.Layout, error) {
	if l, ok := c.layouts.Load(st); ok {
		return l.(descriptor.Layout), nil
	}
	l, err := descriptor.LayoutOf(st)
	if err != nil {
		return descriptor.Layout{}, err
	}
	c.layouts.Store(st, l)
	return l, nil
}

// reflectAt views native memory at p as the codec representation.
func reflectAt(c codec, p unsafe.Pointer) reflect.Value {
	return reflect.NewAt(c.Rep(), p).Elem()
}

type repKey struct {
	goType reflect.Type
	cType  descriptor.Type
}

// exactRep reports whether goType has the same memory layout as t, so a Go
// pointer to it may be handed to native code without copying.
func (c *Compiler) exactRep(goType reflect.Type, t descriptor.Type, seen map[repKey]bool) bool {
	key := repKey{goType, t}
	if seen[key] {
		return true
	}
	seen[key] = true

	switch typ := t.(type) {
	case descriptor.Scalar:
		rep, ok := scalarReps[typ.Kind()]
		return ok && goType.Kind() == rep.Kind()
	case *descriptor.EnumType:
		return goType.Kind() == scalarReps[typ.Repr().Kind()].Kind()
	case *descriptor.FuncPtrType:
		return goType.Kind() == reflect.Uintptr
	case *descriptor.PointerType:
		switch goType.Kind() {
		case reflect.UnsafePointer:
			return true
		case reflect.Ptr:
			switch typ.Elem().Kind() {
			case descriptor.KindOpaque, descriptor.KindVoid:
				return true
			}
			return c.exactRep(goType.Elem(), typ.Elem(), seen)
		}
		return false
	case *descriptor.StructType:
		if goType.Kind() != reflect.Struct || goType.NumField() != typ.NumFields() {
			return false
		}
		l, err := c.layoutOf(typ)
		if err != nil || goType.Size() != l.Size {
			return false
		}
		for i := 0; i < goType.NumField(); i++ {
			gf := goType.Field(i)
			if gf.Offset != l.Offsets[i] || !c.exactRep(gf.Type, typ.Field(i).Type, seen) {
				return false
			}
		}
		return true
	}
	return false
}
