package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/header"
)

func TestSource_MatchesRender(t *testing.T) {
	assert.Equal(t, Source, header.Render(Descriptor(), header.RenderOptions{}))
}

func TestParseSource_MatchesDescriptor(t *testing.T) {
	parsed, err := ParseSource()
	require.NoError(t, err)
	assert.True(t, Descriptor().Equal(parsed))
	assert.Equal(t, Descriptor().Hash(), parsed.Hash())
	assert.Equal(t, Source, header.Render(parsed, header.RenderOptions{}))

	plain, err := header.Parse(Source, header.Options{})
	require.NoError(t, err)
	assert.False(t, Descriptor().Equal(plain), "semantics are part of the surface")
	assert.NotEqual(t, Descriptor().Hash(), plain.Hash())
}

func TestDescriptor_Shape(t *testing.T) {
	d := Descriptor()
	assert.Same(t, d, Descriptor())
	assert.Len(t, d.Constants(), 3)
	assert.Len(t, d.Types(), 6)
	assert.Equal(t, 21, d.NumFunctions())

	for name, want := range map[string]int64{"C1": C1, "C2": C2, "C3": C3} {
		c, err := d.Constant(name)
		require.NoError(t, err)
		assert.Equal(t, want, c.Value())
	}

	typ, err := d.Type("FFIError")
	require.NoError(t, err)
	enum := typ.(*descriptor.EnumType)
	ok, _ := enum.Member("Ok")
	fail, _ := enum.Member("Fail")
	assert.Equal(t, int64(Ok), ok.Value)
	assert.Equal(t, int64(Fail), fail.Value)

	layouts := map[string][2]uintptr{
		"Vec3f32":         {12, 4},
		"Empty":           {0, 1},
		"SomeForeignType": {4, 4},
	}
	for name, want := range layouts {
		typ, err := d.Type(name)
		require.NoError(t, err)
		l, err := d.LayoutOf(typ)
		require.NoError(t, err)
		assert.Equal(t, want, [2]uintptr{l.Size, l.Align}, name)
	}

	sems := map[string]descriptor.PointerSemantics{
		"ptr":            descriptor.Optional,
		"ptr_mut":        descriptor.Required,
		"ptr_option":     descriptor.Optional,
		"ptr_option_mut": descriptor.Optional,
		"ptr_simple":     descriptor.Required,
		"ptr_simple_mut": descriptor.Required,
		"ptr_ptr":        descriptor.DoubleIndirection,
	}
	for name, want := range sems {
		fn, err := d.Function(name)
		require.NoError(t, err)
		pt := fn.Param(0).Type.(*descriptor.PointerType)
		assert.Equal(t, want, pt.Semantics(), name)
		assert.Equal(t, want, fn.Result().(*descriptor.PointerType).Semantics(), name)
	}
}

func TestFFIError_String(t *testing.T) {
	assert.Equal(t, "Ok", Ok.String())
	assert.Equal(t, "Fail", Fail.String())
	assert.Equal(t, "FFIError(3)", FFIError(3).String())
}
