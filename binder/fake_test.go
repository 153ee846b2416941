package binder

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/header"
)

const testHeader = `
typedef uint8_t (*fptr_fn_u8_rval_u8)(uint8_t x0);
typedef enum FFIError { Ok = 0, Fail = 200, } FFIError;

uint8_t callback(fptr_fn_u8_rval_u8 callback, uint8_t value);
FFIError check(int32_t code);
uint8_t primitive_u8(uint8_t x);
int64_t* ptr(int64_t* _Nonnull x);
void primitive_void();
`

func testDescriptor(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	d, err := header.Parse(testHeader, header.Options{})
	require.NoError(t, err)
	return d
}

// fakeLibrary serves Go implementations in place of native symbols.
type fakeLibrary struct {
	impls  map[string]any
	mu     sync.Mutex
	closes int
}

func (l *fakeLibrary) Symbol(name string) (uintptr, error) {
	if _, ok := l.impls[name]; !ok {
		return 0, fmt.Errorf("undefined symbol: %s", name)
	}
	return uintptr(len(name)), nil
}

func (l *fakeLibrary) MakeFunc(name string, typ reflect.Type, _ uintptr) (reflect.Value, error) {
	impl := reflect.ValueOf(l.impls[name])
	if impl.Type() != typ {
		return reflect.Value{}, fmt.Errorf("%s: have %s, want %s", name, impl.Type(), typ)
	}
	return impl, nil
}

func (l *fakeLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

func (l *fakeLibrary) Closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

type fakeLoader struct {
	libs  map[string]*fakeLibrary
	mu    sync.Mutex
	loads map[string]int
}

func newFakeLoader(libs map[string]*fakeLibrary) *fakeLoader {
	return &fakeLoader{libs: libs, loads: make(map[string]int)}
}

func (l *fakeLoader) Load(path string) (Library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lib, ok := l.libs[path]
	if !ok {
		return nil, errors.LibraryNotFound(path, nil)
	}
	l.loads[path]++
	return lib, nil
}

func (l *fakeLoader) Loads(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[path]
}

// completeLibrary implements every function of testHeader.
func completeLibrary() *fakeLibrary {
	return &fakeLibrary{impls: map[string]any{
		"callback":       func(cb uintptr, v uint8) uint8 { return v },
		"check":          func(code int32) int32 { return code },
		"primitive_u8":   func(x uint8) uint8 { return x },
		"ptr":            func(x unsafe.Pointer) unsafe.Pointer { return x },
		"primitive_void": func() {},
	}}
}
