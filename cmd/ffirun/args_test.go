package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/marshal"
	"github.com/wippyai/ffi-runtime/reference"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []any
	}{
		{"", nil},
		{"[1, -2, true]", []any{1, -2, true}},
		{"1, 2", []any{1, 2}},
		{"[null, {x: 1}]", []any{nil, map[string]any{"x": 1}}},
		{"[Fail, 1.5]", []any{"Fail", 1.5}},
	}
	for _, tt := range tests {
		got, err := parseArgs(tt.in)
		if assert.NoError(t, err, tt.in) {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}

	_, err := parseArgs("[1, ")
	assert.Error(t, err, "unterminated sequence")
}

func TestHostArgs_Reference(t *testing.T) {
	d := reference.Descriptor()
	fn := func(name string) *descriptor.Function {
		f, err := d.Function(name)
		require.NoError(t, err)
		return f
	}

	args, err := hostArgs(fn("complex_1"), []any{map[string]any{"x": 1.5, "y": 0.0, "z": 2.0}, map[string]any{}})
	require.NoError(t, err)
	vec, ok := args[0].(marshal.Record)
	require.True(t, ok, "vector = %#v", args[0])
	assert.Equal(t, float32(1.5), vec["x"])
	assert.IsType(t, marshal.Record{}, args[1], "struct pointee")

	args, err = hostArgs(fn("ptr"), []any{-7})
	require.NoError(t, err)
	p, ok := args[0].(*int64)
	require.True(t, ok, "ptr arg = %#v", args[0])
	assert.Equal(t, int64(-7), *p)

	args, err = hostArgs(fn("ptr_ptr"), []any{3})
	require.NoError(t, err)
	pp, ok := args[0].(**int64)
	require.True(t, ok, "ptr_ptr arg = %#v", args[0])
	assert.Equal(t, int64(3), **pp)

	args, err = hostArgs(fn("ptr_option"), []any{nil})
	require.NoError(t, err)
	assert.Nil(t, args[0])

	_, err = hostArgs(fn("primitive_u8"), nil)
	assert.Error(t, err, "arity")
	_, err = hostArgs(fn("primitive_u8"), []any{1, 2})
	assert.Error(t, err, "arity")
	_, err = hostArgs(fn("ptr"), []any{1 << 40})
	assert.NoError(t, err, "int64 pointee")
	_, err = hostArgs(fn("callback"), []any{"f", 1})
	assert.Error(t, err, "callback argument")
}

func TestFormatValue(t *testing.T) {
	x := int64(5)
	px := &x
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{uint8(7), "7"},
		{true, "true"},
		{marshal.Record{"y": 2, "x": 1}, "{x: 1, y: 2}"},
		{(*int64)(nil), "null"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in))
	}
	assert.Regexp(t, "^&&5", formatValue(&px))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ffirun.yaml")
	src := `library: ./libreference.so
header: ./reference.h
semantics:
  ptr.x: required
  ptr_ptr.x: double_indirection
api_guard:
  func: reference_api_guard
  hash: 5066755664026058268
lazy: true
calls:
  - func: primitive_u8
    args: [7]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./libreference.so", cfg.Library)
	assert.True(t, cfg.Lazy)
	require.Len(t, cfg.Calls, 1)
	require.NotNil(t, cfg.APIGuard)
	assert.Equal(t, GuardConfig{Func: "reference_api_guard", Hash: 5066755664026058268}, *cfg.APIGuard)
	assert.Equal(t, "primitive_u8", cfg.Calls[0].Func)
	assert.Equal(t, []any{7}, cfg.Calls[0].Args)

	sems, err := cfg.pointerSemantics()
	require.NoError(t, err)
	assert.Equal(t, descriptor.Required, sems["ptr.x"])
	assert.Equal(t, descriptor.DoubleIndirection, sems["ptr_ptr.x"])

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("libary: x\n"), 0o644))
	_, err = loadConfig(bad)
	assert.Error(t, err, "unknown key")

	cfg.Semantics = map[string]string{"ptr.x": "sometimes"}
	_, err = cfg.pointerSemantics()
	assert.Error(t, err, "unknown semantics")

	empty, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Library)
}
