package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/errors"
)

func referenceLike(t *testing.T) *Descriptor {
	t.Helper()
	must := noErr(t)

	b := NewBuilder()
	must(b.DeclareConstant("C1", 1))
	must(b.DeclareConstant("C3", -100))
	must(b.DeclareType(Enum("FFIError",
		EnumMember{Name: "Ok", Value: 0},
		EnumMember{Name: "Fail", Value: 200},
	)))
	must(b.DeclareType(Opaque("Opaque")))
	must(b.DeclareType(Struct("Empty")))
	must(b.DeclareType(Struct("Vec3f32",
		Field{Name: "x", Type: F32},
		Field{Name: "y", Type: F32},
		Field{Name: "z", Type: F32},
	)))
	must(b.DeclareType(FuncPtr("fptr_fn_u8_rval_u8", U8, Param{Name: "x0", Type: U8})))
	must(b.DeclareFunction("callback", U8,
		Param{Name: "callback", Type: Ref("fptr_fn_u8_rval_u8")},
		Param{Name: "value", Type: U8},
	))
	must(b.DeclareFunction("complex_1", Ref("FFIError"),
		Param{Name: "_a", Type: Ref("Vec3f32")},
		Param{Name: "_b", Type: PointerTo(Ref("Empty"), Required)},
	))
	must(b.DeclareFunction("complex_2", PointerTo(Ref("Opaque"), Optional)))
	must(b.DeclareFunction("ptr_ptr", PointerTo(PointerTo(S64, Optional), DoubleIndirection),
		Param{Name: "x", Type: PointerTo(PointerTo(S64, Optional), DoubleIndirection)},
	))
	must(b.DeclareFunction("primitive_void", nil))

	d, err := b.Build()
	require.NoError(t, err)
	return d
}

func noErr(t *testing.T) func(any, error) {
	return func(_ any, err error) {
		t.Helper()
		require.NoError(t, err)
	}
}

func TestBuilder_Reference(t *testing.T) {
	d := referenceLike(t)

	assert.Len(t, d.Constants(), 2)
	assert.Len(t, d.Types(), 5)
	assert.Equal(t, 5, d.NumFunctions())

	c, err := d.Constant("C3")
	require.NoError(t, err)
	assert.Equal(t, int64(-100), c.Value())

	fn, err := d.Function("complex_1")
	require.NoError(t, err)
	assert.Equal(t, "FFIError complex_1(Vec3f32 _a, Empty* _b)", fn.Signature())
	assert.Equal(t, 1, fn.Index())
	p := fn.Param(1).Type.(*PointerType)
	assert.Equal(t, Required, p.Semantics())
	assert.Equal(t, KindStruct, p.Elem().Kind())

	vec, err := d.Type("Vec3f32")
	require.NoError(t, err)
	assert.Equal(t, vec, fn.Param(0).Type, "Ref should resolve to the declared type object")

	void, err := d.Function("primitive_void")
	require.NoError(t, err)
	assert.Equal(t, Type(Void), void.Result())
	assert.Equal(t, "void primitive_void()", void.Signature())

	fp, err := d.Type("fptr_fn_u8_rval_u8")
	require.NoError(t, err)
	assert.Equal(t, "uint8_t (*fptr_fn_u8_rval_u8)(uint8_t x0)", fp.(*FuncPtrType).Prototype())

	l, err := d.LayoutOf(vec)
	require.NoError(t, err)
	assert.Equal(t, uintptr(12), l.Size)
	assert.Equal(t, uintptr(4), l.Align)

	empty, err := d.Type("Empty")
	require.NoError(t, err)
	l, err = d.LayoutOf(empty)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0), l.Size)
	assert.Equal(t, uintptr(1), l.Align)
}

func TestBuilder_Resolve(t *testing.T) {
	d := referenceLike(t)

	for _, name := range []string{"C1", "FFIError", "Opaque", "callback"} {
		e, err := d.Resolve(name)
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, e.Name())
		}
	}

	_, err := d.Resolve("nope")
	assert.ErrorIs(t, err, errors.ErrUnknownSymbol)
	_, err = d.Function("C1")
	assert.ErrorIs(t, err, errors.ErrUnknownSymbol, "constant looked up as function")
	_, err = d.Constant("Vec3f32")
	assert.Error(t, err, "type looked up as constant")
	_, err = d.Type("Ok")
	assert.Error(t, err, "enum members are not global names")
}

func TestBuilder_Duplicates(t *testing.T) {
	tests := []struct {
		name    string
		declare func(b *Builder) error
	}{
		{"constant twice", func(b *Builder) error {
			_, err := b.DeclareConstant("X", 2)
			return err
		}},
		{"type over constant", func(b *Builder) error {
			_, err := b.DeclareType(Opaque("X"))
			return err
		}},
		{"function over constant", func(b *Builder) error {
			_, err := b.DeclareFunction("X", nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			noErr(t)(b.DeclareConstant("X", 1))
			assert.ErrorIs(t, tt.declare(b), errors.ErrDuplicateDeclaration)
		})
	}
}

func TestBuilder_InvalidDeclarations(t *testing.T) {
	foreign := Struct("Foreign", Field{Name: "x", Type: U32})

	tests := []struct {
		name    string
		declare func(b *Builder) error
	}{
		{"unresolved ref", func(b *Builder) error {
			_, err := b.DeclareFunction("f", Ref("Missing"))
			return err
		}},
		{"undeclared type object", func(b *Builder) error {
			_, err := b.DeclareFunction("f", nil, Param{Name: "x", Type: foreign})
			return err
		}},
		{"opaque by value", func(b *Builder) error {
			if _, err := b.DeclareType(Opaque("O")); err != nil {
				return nil
			}
			_, err := b.DeclareFunction("f", Ref("O"))
			return err
		}},
		{"void parameter", func(b *Builder) error {
			_, err := b.DeclareFunction("f", nil, Param{Name: "x", Type: Void})
			return err
		}},
		{"double indirection without pointer", func(b *Builder) error {
			_, err := b.DeclareFunction("f", nil, Param{Name: "x", Type: PointerTo(S64, DoubleIndirection)})
			return err
		}},
		{"duplicate field", func(b *Builder) error {
			_, err := b.DeclareType(Struct("S", Field{Name: "a", Type: U8}, Field{Name: "a", Type: U8}))
			return err
		}},
		{"empty field name", func(b *Builder) error {
			_, err := b.DeclareType(Struct("S", Field{Name: "", Type: U8}))
			return err
		}},
		{"duplicate parameter", func(b *Builder) error {
			_, err := b.DeclareFunction("f", nil, Param{Name: "a", Type: U8}, Param{Name: "a", Type: U8})
			return err
		}},
		{"duplicate enum member", func(b *Builder) error {
			_, err := b.DeclareType(Enum("E", EnumMember{Name: "A", Value: 1}, EnumMember{Name: "A", Value: 2}))
			return err
		}},
		{"duplicate enum value", func(b *Builder) error {
			_, err := b.DeclareType(Enum("E", EnumMember{Name: "A", Value: 1}, EnumMember{Name: "B", Value: 1}))
			return err
		}},
		{"enum value outside repr", func(b *Builder) error {
			_, err := b.DeclareType(Enum("E", EnumMember{Name: "A", Value: 300}).WithRepr(U8))
			return err
		}},
		{"enum float repr", func(b *Builder) error {
			_, err := b.DeclareType(Enum("E", EnumMember{Name: "A", Value: 1}).WithRepr(F32))
			return err
		}},
		{"struct contains itself", func(b *Builder) error {
			_, err := b.DeclareType(Struct("S", Field{Name: "self", Type: Ref("S")}))
			return err
		}},
		{"scalar declared by name", func(b *Builder) error {
			_, err := b.DeclareType(U8)
			return err
		}},
		{"bad identifier", func(b *Builder) error {
			_, err := b.DeclareConstant("1abc", 1)
			return err
		}},
		{"constant used as type", func(b *Builder) error {
			if _, err := b.DeclareConstant("K", 1); err != nil {
				return nil
			}
			_, err := b.DeclareFunction("f", Ref("K"))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.declare(NewBuilder()), errors.ErrInvalidDeclaration)
		})
	}
}

func TestBuilder_FailedStructReleasesName(t *testing.T) {
	b := NewBuilder()
	_, err := b.DeclareType(Struct("S", Field{Name: "x", Type: Ref("Missing")}))
	require.Error(t, err)
	_, err = b.DeclareType(Struct("S", Field{Name: "x", Type: U8}))
	assert.NoError(t, err, "name should be free after failed declaration")
}

func TestBuilder_SelfReferenceBehindPointer(t *testing.T) {
	b := NewBuilder()
	node, err := b.DeclareType(Struct("Node",
		Field{Name: "value", Type: S32},
		Field{Name: "next", Type: PointerTo(Ref("Node"), Optional)},
	))
	require.NoError(t, err)
	next := node.(*StructType).Field(1).Type.(*PointerType)
	assert.Equal(t, node, next.Elem(), "self reference should resolve to the struct itself")

	d, err := b.Build()
	require.NoError(t, err)
	l, err := d.LayoutOf(node)
	require.NoError(t, err)
	assert.Equal(t, 2*l.Align, l.Size)
}

func TestBuilder_DeclaredObjectIdentity(t *testing.T) {
	b := NewBuilder()
	vec := Struct("V", Field{Name: "x", Type: F32})
	_, err := b.DeclareType(vec)
	require.NoError(t, err)
	_, err = b.DeclareFunction("f", nil, Param{Name: "v", Type: vec})
	require.NoError(t, err, "declared object should resolve")

	lookalike := Struct("V", Field{Name: "x", Type: F32})
	_, err = b.DeclareFunction("g", nil, Param{Name: "v", Type: lookalike})
	assert.ErrorIs(t, err, errors.ErrInvalidDeclaration, "same-named foreign object")
}

func TestBuilder_BuildSnapshot(t *testing.T) {
	must := noErr(t)
	b := NewBuilder()
	must(b.DeclareConstant("A", 1))
	d, err := b.Build()
	require.NoError(t, err)
	must(b.DeclareConstant("B", 2))

	assert.Len(t, d.Entities(), 1, "descriptor changed after Build")
}

func TestDescriptor_Equal(t *testing.T) {
	must := noErr(t)
	a := referenceLike(t)
	b := referenceLike(t)
	require.True(t, a.Equal(b), "identically built descriptors should be equal")

	nb := NewBuilder()
	must(nb.DeclareConstant("C1", 2))
	other, err := nb.Build()
	require.NoError(t, err)
	assert.False(t, a.Equal(other))

	sb1, sb2 := NewBuilder(), NewBuilder()
	must(sb1.DeclareFunction("p", nil, Param{Name: "x", Type: PointerTo(S64, Required)}))
	must(sb2.DeclareFunction("p", nil, Param{Name: "x", Type: PointerTo(S64, Optional)}))
	d1, err := sb1.Build()
	require.NoError(t, err)
	d2, err := sb2.Build()
	require.NoError(t, err)
	assert.False(t, d1.Equal(d2), "pointer semantics take part in equality")
}
