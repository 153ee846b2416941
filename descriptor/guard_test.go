package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/errors"
)

func TestDescriptor_Hash(t *testing.T) {
	a := referenceLike(t)
	b := referenceLike(t)
	assert.Equal(t, a.Hash(), b.Hash())

	changed := func(declare func(*Builder)) uint64 {
		nb := NewBuilder()
		declare(nb)
		d, err := nb.Build()
		require.NoError(t, err)
		return d.Hash()
	}
	required := changed(func(nb *Builder) {
		_, err := nb.DeclareFunction("p", nil, Param{Name: "x", Type: PointerTo(S64, Required)})
		require.NoError(t, err)
	})
	optional := changed(func(nb *Builder) {
		_, err := nb.DeclareFunction("p", nil, Param{Name: "x", Type: PointerTo(S64, Optional)})
		require.NoError(t, err)
	})
	renamed := changed(func(nb *Builder) {
		_, err := nb.DeclareFunction("p", nil, Param{Name: "y", Type: PointerTo(S64, Required)})
		require.NoError(t, err)
	})
	assert.NotEqual(t, required, optional, "pointer semantics take part in the hash")
	assert.NotEqual(t, required, renamed)

	c1 := changed(func(nb *Builder) {
		_, err := nb.DeclareConstant("C1", 1)
		require.NoError(t, err)
	})
	c2 := changed(func(nb *Builder) {
		_, err := nb.DeclareConstant("C1", 2)
		require.NoError(t, err)
	})
	assert.NotEqual(t, c1, c2)
}

func TestBuilder_APIGuard(t *testing.T) {
	plain := NewBuilder()
	_, err := plain.DeclareFunction("primitive_u8", U8, Param{Name: "x", Type: U8})
	require.NoError(t, err)
	unguarded, err := plain.Build()
	require.NoError(t, err)
	_, ok := unguarded.APIGuard()
	assert.False(t, ok)

	b := NewBuilder()
	_, err = b.DeclareFunction("primitive_u8", U8, Param{Name: "x", Type: U8})
	require.NoError(t, err)
	_, err = b.DeclareFunction("api_guard", U64)
	require.NoError(t, err)
	b.SetAPIGuard("api_guard", 42)
	d, err := b.Build()
	require.NoError(t, err)

	guard, ok := d.APIGuard()
	require.True(t, ok)
	assert.Equal(t, APIGuard{Func: "api_guard", Hash: 42}, guard)
	assert.Equal(t, unguarded.Hash(), d.Hash(), "the guard function is not part of the hash")
}

func TestBuilder_APIGuardInvalid(t *testing.T) {
	tests := []struct {
		name    string
		declare func(*Builder) error
	}{
		{"undeclared", func(*Builder) error { return nil }},
		{"constant", func(b *Builder) error {
			_, err := b.DeclareConstant("api_guard", 1)
			return err
		}},
		{"wrong result", func(b *Builder) error {
			_, err := b.DeclareFunction("api_guard", U32)
			return err
		}},
		{"has params", func(b *Builder) error {
			_, err := b.DeclareFunction("api_guard", U64, Param{Name: "x", Type: U8})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			require.NoError(t, tt.declare(b))
			b.SetAPIGuard("api_guard", 1)
			_, err := b.Build()
			assert.ErrorIs(t, err, errors.ErrInvalidDeclaration)
		})
	}
}
