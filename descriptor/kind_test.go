package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		want string
		kind Kind
	}{
		{"bool", KindBool},
		{"u8", KindU8},
		{"s8", KindS8},
		{"u16", KindU16},
		{"s16", KindS16},
		{"u32", KindU32},
		{"s32", KindS32},
		{"u64", KindU64},
		{"s64", KindS64},
		{"f32", KindF32},
		{"f64", KindF64},
		{"void", KindVoid},
		{"opaque", KindOpaque},
		{"struct", KindStruct},
		{"enum", KindEnum},
		{"funcptr", KindFuncPtr},
		{"pointer", KindPointer},
		{"ref", KindRef},
		{"unknown", Kind(255)},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.String())
		})
	}
}

func TestKindPredicates(t *testing.T) {
	for _, k := range []Kind{KindU8, KindS8, KindU16, KindS16, KindU32, KindS32, KindU64, KindS64} {
		assert.True(t, k.IsInteger(), k.String())
		assert.True(t, k.IsScalar(), k.String())
	}
	for _, k := range []Kind{KindBool, KindF32, KindF64, KindVoid, KindStruct} {
		assert.False(t, k.IsInteger(), k.String())
	}
	for _, k := range []Kind{KindS8, KindS16, KindS32, KindS64} {
		assert.True(t, k.IsSigned(), k.String())
	}
	assert.False(t, KindU64.IsSigned())
	assert.True(t, KindF32.IsFloat())
	assert.False(t, KindS32.IsFloat())
	for _, k := range []Kind{KindOpaque, KindStruct, KindEnum, KindFuncPtr} {
		assert.True(t, k.IsNamed(), k.String())
	}
	assert.False(t, KindPointer.IsNamed(), "pointers are anonymous")
	assert.False(t, KindVoid.IsScalar(), "void is not a scalar value")
}

func TestKindBits(t *testing.T) {
	tests := []struct {
		kind Kind
		bits int
	}{
		{KindBool, 8}, {KindU8, 8}, {KindS16, 16}, {KindU32, 32},
		{KindF32, 32}, {KindS64, 64}, {KindF64, 64}, {KindVoid, 0}, {KindPointer, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.bits, tc.kind.Bits(), tc.kind.String())
	}
}

func TestScalarByName(t *testing.T) {
	for _, s := range Scalars {
		got, ok := ScalarByName(s.Name())
		assert.True(t, ok, s.Name())
		assert.Equal(t, s, got)
	}
	_, ok := ScalarByName("int")
	assert.False(t, ok, "plain int is not a fixed-width scalar")
}

func TestPointerName(t *testing.T) {
	p := PointerTo(PointerTo(S64, Optional), DoubleIndirection)
	assert.Equal(t, "int64_t**", p.Name())
	assert.False(t, PointerTo(S64, Required).Nullable())
	assert.True(t, PointerTo(S64, Optional).Nullable())
	assert.Equal(t, "double_indirection", DoubleIndirection.String())
	assert.Equal(t, "unknown", PointerSemantics(9).String())
}
