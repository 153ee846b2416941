package descriptor

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutScalars(t *testing.T) {
	tests := []struct {
		typ   Type
		size  uintptr
		align uintptr
	}{
		{Bool, 1, 1},
		{U8, 1, 1},
		{S8, 1, 1},
		{U16, 2, 2},
		{S16, 2, 2},
		{U32, 4, 4},
		{S32, 4, 4},
		{F32, 4, 4},
		{U64, 8, unsafe.Alignof(uint64(0))},
		{F64, 8, unsafe.Alignof(float64(0))},
		{PointerTo(U8, Optional), unsafe.Sizeof(uintptr(0)), unsafe.Alignof(uintptr(0))},
		{FuncPtr("cb", U8, Param{Name: "x0", Type: U8}), unsafe.Sizeof(uintptr(0)), unsafe.Alignof(uintptr(0))},
		{Enum("E", EnumMember{Name: "A", Value: 1}), 4, 4},
		{Enum("E8", EnumMember{Name: "A", Value: 1}).WithRepr(U8), 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.typ.Name(), func(t *testing.T) {
			l, err := LayoutOf(tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.size, l.Size, "size")
			assert.Equal(t, tc.align, l.Align, "align")
		})
	}
}

func TestLayoutStruct(t *testing.T) {
	tests := []struct {
		name    string
		typ     *StructType
		size    uintptr
		align   uintptr
		offsets []uintptr
	}{
		{"empty", Struct("Empty"), 0, 1, nil},
		{"vec3f32", Struct("Vec3f32",
			Field{Name: "x", Type: F32},
			Field{Name: "y", Type: F32},
			Field{Name: "z", Type: F32},
		), 12, 4, []uintptr{0, 4, 8}},
		{"mixed_alignment", Struct("Mixed",
			Field{Name: "a", Type: U8},
			Field{Name: "b", Type: U32},
			Field{Name: "c", Type: U8},
		), 12, 4, []uintptr{0, 4, 8}},
		{"nested", Struct("Outer",
			Field{Name: "x", Type: U8},
			Field{Name: "in", Type: Struct("Inner", Field{Name: "a", Type: U16}, Field{Name: "b", Type: U8})},
		), 6, 2, []uintptr{0, 2}},
		{"trailing_empty", Struct("Tail",
			Field{Name: "a", Type: U32},
			Field{Name: "e", Type: Struct("Empty")},
		), 4, 4, []uintptr{0, 4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := LayoutOf(tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.size, l.Size, "size")
			assert.Equal(t, tc.align, l.Align, "align")
			for i, want := range tc.offsets {
				assert.Equal(t, want, l.FieldOffset(i), "field %d offset", i)
			}
		})
	}
}

func TestLayoutErrors(t *testing.T) {
	for _, typ := range []Type{Void, Opaque("O"), Ref("X")} {
		_, err := LayoutOf(typ)
		assert.Error(t, err, typ.Name())
	}
}
