package descriptor

import (
	"fmt"
	"unsafe"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/abi"
)

// Layout is the native memory layout of a type.
type Layout struct {
	// Offsets holds one entry per struct field; nil for other kinds.
	Offsets []uintptr
	Size    uintptr
	Align   uintptr
}

// FieldOffset returns the offset of field i.
func (l Layout) FieldOffset(i int) uintptr {
	return l.Offsets[i]
}

var scalarLayouts = [...]Layout{
	KindBool: {Size: unsafe.Sizeof(false), Align: unsafe.Alignof(false)},
	KindU8:   {Size: 1, Align: 1},
	KindS8:   {Size: 1, Align: 1},
	KindU16:  {Size: unsafe.Sizeof(uint16(0)), Align: unsafe.Alignof(uint16(0))},
	KindS16:  {Size: unsafe.Sizeof(int16(0)), Align: unsafe.Alignof(int16(0))},
	KindU32:  {Size: unsafe.Sizeof(uint32(0)), Align: unsafe.Alignof(uint32(0))},
	KindS32:  {Size: unsafe.Sizeof(int32(0)), Align: unsafe.Alignof(int32(0))},
	KindU64:  {Size: unsafe.Sizeof(uint64(0)), Align: unsafe.Alignof(uint64(0))},
	KindS64:  {Size: unsafe.Sizeof(int64(0)), Align: unsafe.Alignof(int64(0))},
	KindF32:  {Size: unsafe.Sizeof(float32(0)), Align: unsafe.Alignof(float32(0))},
	KindF64:  {Size: unsafe.Sizeof(float64(0)), Align: unsafe.Alignof(float64(0))},
}

var pointerLayout = Layout{Size: abi.PointerSize, Align: unsafe.Alignof(uintptr(0))}

// LayoutOf computes the layout of a resolved type without a descriptor
// cache.
func LayoutOf(t Type) (Layout, error) {
	return computeLayout(t, make(map[*StructType]Layout))
}

func computeLayout(t Type, cache map[*StructType]Layout) (Layout, error) {
	switch typ := t.(type) {
	case Scalar:
		if typ.kind == KindVoid {
			return Layout{}, errors.InvalidDeclaration([]string{"void"}, "void has no layout")
		}
		return scalarLayouts[typ.kind], nil
	case *PointerType, *FuncPtrType:
		return pointerLayout, nil
	case *EnumType:
		return scalarLayouts[typ.repr.kind], nil
	case *StructType:
		return structLayout(typ, cache)
	case *OpaqueType:
		return Layout{}, errors.InvalidDeclaration([]string{typ.name}, "opaque type has no layout")
	case *RefType:
		return Layout{}, errors.InvalidDeclaration([]string{typ.name}, "unresolved type reference")
	}
	return Layout{}, errors.InvalidDeclaration(nil, "unknown type")
}

func structLayout(s *StructType, cache map[*StructType]Layout) (Layout, error) {
	if cached, ok := cache[s]; ok {
		return cached, nil
	}

	if len(s.fields) == 0 {
		l := Layout{Size: 0, Align: 1, Offsets: []uintptr{}}
		cache[s] = l
		return l, nil
	}

	offsets := make([]uintptr, len(s.fields))
	maxAlign := uintptr(1)
	offset := uintptr(0)

	for i, f := range s.fields {
		fl, err := computeLayout(f.Type, cache)
		if err != nil {
			return Layout{}, err
		}

		offset = abi.AlignTo(offset, fl.Align)
		offsets[i] = offset

		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}

		next, ok := abi.SafeAdd(offset, fl.Size)
		if !ok {
			return Layout{}, errors.InvalidDeclaration([]string{s.name, f.Name},
				fmt.Sprintf("struct %s size overflows", s.name))
		}
		offset = next
	}

	l := Layout{
		Size:    abi.AlignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
	cache[s] = l
	return l, nil
}
