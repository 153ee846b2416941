package marshal

import (
	"math"
	"reflect"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/abi"
)

type scalarCodec struct {
	typ descriptor.Scalar
	rep reflect.Type
}

func (c *scalarCodec) Type() descriptor.Type { return c.typ }
func (c *scalarCodec) Rep() reflect.Type     { return c.rep }

func (c *scalarCodec) lower(path []string, v any, _ *Frame) (reflect.Value, error) {
	kind := c.typ.Kind()
	switch {
	case kind == descriptor.KindBool:
		b, ok := abi.CoerceBool(v)
		if !ok {
			return reflect.Value{}, c.mismatch(path, v)
		}
		return reflect.ValueOf(b), nil

	case kind.IsSigned():
		n, ok, fits := abi.CoerceSigned(v, kind.Bits())
		if !ok {
			return reflect.Value{}, c.mismatch(path, v)
		}
		if !fits {
			return reflect.Value{}, errors.Overflow(errors.PhaseMarshal, path, v, c.typ.Name())
		}
		return reflect.ValueOf(n).Convert(c.rep), nil

	case kind.IsInteger():
		n, ok, fits := abi.CoerceUnsigned(v, kind.Bits())
		if !ok {
			return reflect.Value{}, c.mismatch(path, v)
		}
		if !fits {
			return reflect.Value{}, errors.Overflow(errors.PhaseMarshal, path, v, c.typ.Name())
		}
		return reflect.ValueOf(n).Convert(c.rep), nil

	case kind == descriptor.KindF32:
		f, ok, exact := abi.CoerceFloat32(v)
		if !ok {
			return reflect.Value{}, c.mismatch(path, v)
		}
		if !exact {
			return reflect.Value{}, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
				Path(path...).
				GoType(abi.TypeName(v)).
				CType(c.typ.Name()).
				Value(v).
				Detail("%v is not exactly representable as float", v).
				Build()
		}
		return reflect.ValueOf(f), nil

	case kind == descriptor.KindF64:
		f, ok := abi.CoerceFloat64(v)
		if !ok {
			return reflect.Value{}, c.mismatch(path, v)
		}
		return reflect.ValueOf(f), nil
	}
	return reflect.Value{}, errors.Unsupported(errors.PhaseMarshal, "scalar "+c.typ.Name())
}

func (c *scalarCodec) lift(_ []string, v reflect.Value) (any, error) {
	return v.Interface(), nil
}

func (c *scalarCodec) mismatch(path []string, v any) error {
	return errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), c.typ.Name())
}

// voidCodec only appears as a function or callback result.
type voidCodec struct{}

func (voidCodec) Type() descriptor.Type { return descriptor.Void }
func (voidCodec) Rep() reflect.Type     { return nil }

func (voidCodec) lower(path []string, v any, _ *Frame) (reflect.Value, error) {
	if v != nil {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), "void")
	}
	return reflect.Value{}, nil
}

func (voidCodec) lift([]string, reflect.Value) (any, error) { return nil, nil }

type enumCodec struct {
	typ *descriptor.EnumType
	rep reflect.Type
}

func (c *enumCodec) Type() descriptor.Type { return c.typ }
func (c *enumCodec) Rep() reflect.Type     { return c.rep }

func (c *enumCodec) lower(path []string, v any, _ *Frame) (reflect.Value, error) {
	var value int64
	switch x := v.(type) {
	case EnumValue:
		if x.Type != nil && x.Type.Name() != c.typ.Name() {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, x.Type.Name(), c.typ.Name())
		}
		value = x.Value
	case string:
		m, ok := c.typ.Member(x)
		if !ok {
			return reflect.Value{}, errors.InvalidEnum(errors.PhaseMarshal, path, x, c.typ.Name())
		}
		value = m.Value
	default:
		n, ok := abi.IntegerOf(v)
		if !ok {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), c.typ.Name())
		}
		s, fits := n.Signed(64)
		if !fits {
			return reflect.Value{}, errors.InvalidEnum(errors.PhaseMarshal, path, v, c.typ.Name())
		}
		value = s
	}
	if _, ok := c.typ.MemberByValue(value); !ok {
		return reflect.Value{}, errors.InvalidEnum(errors.PhaseMarshal, path, v, c.typ.Name())
	}
	return reflect.ValueOf(value).Convert(c.rep), nil
}

func (c *enumCodec) lift(path []string, v reflect.Value) (any, error) {
	var value int64
	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, errors.InvalidEnum(errors.PhaseMarshal, path, u, c.typ.Name())
		}
		value = int64(u)
	default:
		value = v.Int()
	}
	m, ok := c.typ.MemberByValue(value)
	if !ok {
		return nil, errors.InvalidEnum(errors.PhaseMarshal, path, value, c.typ.Name())
	}
	return EnumValue{Type: c.typ, Name: m.Name, Value: m.Value}, nil
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}
