package abi

import (
	"math"
	"reflect"
	"strconv"
)

// Integer is a Go integer value of any kind, held without loss.
type Integer struct {
	mag uint64
	neg bool
}

// IntegerOf extracts an integer from any Go integer kind, including named
// types. Floats, bools and everything else are rejected.
func IntegerOf(value any) (Integer, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		return Integer{mag: uint64(i), neg: i < 0}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Integer{mag: rv.Uint()}, true
	}
	return Integer{}, false
}

// Signed returns the value as a signed integer of the given bit width.
func (n Integer) Signed(bits int) (int64, bool) {
	if n.neg {
		v := int64(n.mag)
		return v, v >= -1<<(bits-1)
	}
	return int64(n.mag), n.mag <= uint64(1)<<(bits-1)-1
}

// Unsigned returns the value as an unsigned integer of the given bit width.
func (n Integer) Unsigned(bits int) (uint64, bool) {
	if n.neg {
		return 0, false
	}
	if bits >= 64 {
		return n.mag, true
	}
	return n.mag, n.mag <= uint64(1)<<bits-1
}

func (n Integer) String() string {
	if n.neg {
		return strconv.FormatInt(int64(n.mag), 10)
	}
	return strconv.FormatUint(n.mag, 10)
}

// CoerceSigned converts value to a signed integer of the given width.
// ok reports an integer kind; fits reports that the value is in range.
func CoerceSigned(value any, bits int) (v int64, ok, fits bool) {
	n, ok := IntegerOf(value)
	if !ok {
		return 0, false, false
	}
	v, fits = n.Signed(bits)
	return v, true, fits
}

// CoerceUnsigned converts value to an unsigned integer of the given width.
func CoerceUnsigned(value any, bits int) (v uint64, ok, fits bool) {
	n, ok := IntegerOf(value)
	if !ok {
		return 0, false, false
	}
	v, fits = n.Unsigned(bits)
	return v, true, fits
}

// CoerceBool accepts bool and named bool types only.
func CoerceBool(value any) (bool, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Bool {
		return false, false
	}
	return rv.Bool(), true
}

// CoerceFloat32 accepts a float32, or a float64 that is exactly representable
// as a float32. NaN and infinities pass through.
func CoerceFloat32(value any) (f float32, ok, exact bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32:
		return float32(rv.Float()), true, true
	case reflect.Float64:
		d := rv.Float()
		f = float32(d)
		if math.IsNaN(d) {
			return f, true, true
		}
		return f, true, float64(f) == d
	}
	return 0, false, false
}

// CoerceFloat64 accepts float32 and float64 kinds.
func CoerceFloat64(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
