package abi

import (
	"math"
	"reflect"
	"unsafe"
)

// PointerSize is the size of a native data or function pointer.
const PointerSize = unsafe.Sizeof(uintptr(0))

// SafeAdd returns a+b, or false on overflow.
func SafeAdd(a, b uintptr) (uintptr, bool) {
	if a > math.MaxUint-b {
		return 0, false
	}
	return a + b, true
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}

// AlignTo rounds offset up to a multiple of align, which must be a power of two.
func AlignTo(offset, align uintptr) uintptr {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
