package marshal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/descriptor"
)

func p(name string, t descriptor.Type) descriptor.Param {
	return descriptor.Param{Name: name, Type: t}
}

func f(name string, t descriptor.Type) descriptor.Field {
	return descriptor.Field{Name: name, Type: t}
}

func testDescriptor(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	b := descriptor.NewBuilder()

	vec := descriptor.Struct("Vec3f32", f("x", descriptor.F32), f("y", descriptor.F32), f("z", descriptor.F32))
	empty := descriptor.Struct("Empty")
	foreign := descriptor.Struct("SomeForeignType", f("x", descriptor.U32))
	opaque := descriptor.Opaque("Opaque")
	ffiErr := descriptor.Enum("FFIError",
		descriptor.EnumMember{Name: "Ok", Value: 0},
		descriptor.EnumMember{Name: "Fail", Value: 200})
	fp := descriptor.FuncPtr("fptr_fn_u8_rval_u8", descriptor.U8, p("x0", descriptor.U8))
	node := descriptor.Struct("Node", f("value", descriptor.S32), f("next", descriptor.PointerTo(descriptor.Ref("Node"), descriptor.Optional)))

	for _, typ := range []descriptor.Type{ffiErr, opaque, empty, foreign, vec, fp, node} {
		_, err := b.DeclareType(typ)
		require.NoError(t, err)
	}

	declare := func(name string, result descriptor.Type, params ...descriptor.Param) {
		_, err := b.DeclareFunction(name, result, params...)
		require.NoError(t, err)
	}
	i64Ptr := func(sem descriptor.PointerSemantics) descriptor.Type {
		return descriptor.PointerTo(descriptor.S64, sem)
	}
	double := descriptor.PointerTo(i64Ptr(descriptor.Optional), descriptor.DoubleIndirection)

	declare("callback", descriptor.U8, p("callback", fp), p("value", descriptor.U8))
	declare("complex_1", ffiErr, p("_a", vec), p("_b", descriptor.PointerTo(empty, descriptor.Required)))
	declare("complex_2", descriptor.PointerTo(opaque, descriptor.Optional), p("_cmplx", foreign))
	declare("consume", descriptor.Void, p("o", descriptor.PointerTo(opaque, descriptor.Required)))
	declare("check", descriptor.Bool, p("e", ffiErr))
	declare("make_vec", vec)
	declare("walk", descriptor.S32, p("n", descriptor.PointerTo(node, descriptor.Optional)))
	declare("scale", descriptor.F32, p("x", descriptor.F32))
	declare("scale_d", descriptor.F64, p("x", descriptor.F64))
	declare("primitive_bool", descriptor.Bool, p("x", descriptor.Bool))
	declare("primitive_u8", descriptor.U8, p("x", descriptor.U8))
	declare("primitive_i8", descriptor.S8, p("x", descriptor.S8))
	declare("primitive_u16", descriptor.U16, p("x", descriptor.U16))
	declare("primitive_i32", descriptor.S32, p("x", descriptor.S32))
	declare("primitive_u64", descriptor.U64, p("x", descriptor.U64))
	declare("primitive_i64", descriptor.S64, p("x", descriptor.S64))
	declare("primitive_void", descriptor.Void)
	declare("ptr", i64Ptr(descriptor.Required), p("x", i64Ptr(descriptor.Required)))
	declare("ptr_option", i64Ptr(descriptor.Optional), p("x", i64Ptr(descriptor.Optional)))
	declare("ptr_ptr", double, p("x", double))

	d, err := b.Build()
	require.NoError(t, err)
	return d
}

func compileFn(t *testing.T, d *descriptor.Descriptor, name string) *Plan {
	t.Helper()
	fn, err := d.Function(name)
	require.NoError(t, err)
	plan, err := Compile(fn)
	require.NoError(t, err)
	return plan
}

// lowerOne lowers a single-argument call and finishes the frame.
func lowerOne(t *testing.T, plan *Plan, arg any) (any, error) {
	t.Helper()
	vals, frame, err := plan.Lower([]any{arg})
	if err != nil {
		return nil, err
	}
	require.NoError(t, frame.Finish())
	return vals[0].Interface(), nil
}
