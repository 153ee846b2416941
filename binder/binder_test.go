package binder

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/header"
	"github.com/wippyai/ffi-runtime/marshal"
)

const libPath = "/opt/lib/libtest.so"

func newBinder(lib *fakeLibrary) (*Binder, *fakeLoader) {
	loader := newFakeLoader(map[string]*fakeLibrary{libPath: lib})
	return New(libPath, Options{Loader: loader}), loader
}

func TestBinder_Lifecycle(t *testing.T) {
	lib := completeLibrary()
	b, loader := newBinder(lib)
	assert.Equal(t, Unopened, b.State())

	_, err := b.BindAll(testDescriptor(t))
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	require.NoError(t, b.Open())
	require.NoError(t, b.Open())
	assert.Equal(t, 1, loader.Loads(libPath), "library acquired once")
	assert.Equal(t, Opened, b.State())

	d := testDescriptor(t)
	table, err := b.BindAll(d)
	require.NoError(t, err)
	assert.Equal(t, Bound, b.State())
	assert.Equal(t, 5, table.Len())
	assert.Equal(t, libPath, table.Path())
	assert.Same(t, d, table.Descriptor())

	again, err := b.BindAll(d)
	require.NoError(t, err)
	assert.Same(t, table, again)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 1, lib.Closes(), "library released once")

	assert.ErrorIs(t, b.Open(), errors.ErrUseAfterClose)
	_, err = b.BindAll(d)
	assert.ErrorIs(t, err, errors.ErrUseAfterClose)

	fn, err := table.Func("primitive_u8")
	require.NoError(t, err)
	_, err = fn.Call(uint8(1))
	assert.ErrorIs(t, err, errors.ErrUseAfterClose)
}

func TestBinder_OpenNotFound(t *testing.T) {
	b := New("/missing/lib.so", Options{Loader: newFakeLoader(nil)})
	err := b.Open()
	assert.ErrorIs(t, err, errors.ErrLibraryNotFound)
	assert.Equal(t, Unopened, b.State())
}

func TestBinder_MissingSymbols(t *testing.T) {
	lib := completeLibrary()
	delete(lib.impls, "ptr")
	delete(lib.impls, "check")
	b, _ := newBinder(lib)
	require.NoError(t, b.Open())

	table, err := b.BindAll(testDescriptor(t))
	require.Error(t, err)
	assert.Nil(t, table, "no partial table")
	assert.ErrorIs(t, err, errors.ErrSymbolNotFound)

	var missing *errors.MissingSymbolsError
	require.True(t, stderrors.As(err, &missing))
	assert.ElementsMatch(t, []string{"check", "ptr"}, missing.Names())
	assert.Contains(t, err.Error(), "ptr")

	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 1, lib.Closes())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, lib.Closes())
}

func TestBinder_SignatureMismatch(t *testing.T) {
	lib := completeLibrary()
	lib.impls["primitive_u8"] = func(x int) int { return x }
	b, _ := newBinder(lib)
	require.NoError(t, b.Open())

	_, err := b.BindAll(testDescriptor(t))
	assert.ErrorIs(t, err, errors.ErrSignatureMismatch)
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 1, lib.Closes())
}

func TestBinder_FailedRebindKeepsTable(t *testing.T) {
	lib := completeLibrary()
	b, _ := newBinder(lib)
	require.NoError(t, b.Open())
	defer b.Close()

	table, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)

	other, err := header.Parse("uint8_t not_exported(uint8_t x);", header.Options{})
	require.NoError(t, err)
	_, err = b.BindAll(other)
	assert.ErrorIs(t, err, errors.ErrSymbolNotFound)

	assert.Equal(t, Bound, b.State())
	assert.Equal(t, 0, lib.Closes())

	fn, err := table.Func("primitive_u8")
	require.NoError(t, err)
	got, err := fn.Call(uint8(9))
	require.NoError(t, err)
	assert.Equal(t, uint8(9), got)

	again, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)
	assert.Equal(t, table.Names(), again.Names())
}

func TestBinder_APIGuard(t *testing.T) {
	guarded := func(hash uint64) *descriptor.Descriptor {
		d, err := header.Parse(testHeader+"uint64_t api_guard(void);\n", header.Options{
			APIGuard: &descriptor.APIGuard{Func: "api_guard", Hash: hash},
		})
		require.NoError(t, err)
		return d
	}
	withGuard := func() *fakeLibrary {
		lib := completeLibrary()
		lib.impls["api_guard"] = func() uint64 { return 42 }
		return lib
	}

	b, _ := newBinder(withGuard())
	require.NoError(t, b.Open())
	table, err := b.BindAll(guarded(42))
	require.NoError(t, err)
	assert.Equal(t, 6, table.Len())
	require.NoError(t, b.Close())

	lib := withGuard()
	b, _ = newBinder(lib)
	require.NoError(t, b.Open())
	_, err = b.BindAll(guarded(43))
	assert.ErrorIs(t, err, errors.ErrSignatureMismatch)
	assert.Contains(t, err.Error(), "API hash 42")
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 1, lib.Closes())

	lib = withGuard()
	lib.impls["api_guard"] = func() uint64 { panic("bad guard") }
	b, _ = newBinder(lib)
	require.NoError(t, b.Open())
	_, err = b.BindAll(guarded(42))
	assert.ErrorIs(t, err, errors.ErrSignatureMismatch)
	assert.ErrorIs(t, err, errors.ErrCallFault)
}

func TestTable_Lookup(t *testing.T) {
	b, _ := newBinder(completeLibrary())
	require.NoError(t, b.Open())
	defer b.Close()
	table, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"callback", "check", "primitive_u8", "ptr", "primitive_void"}, table.Names())
	assert.Equal(t, "uint8_t primitive_u8(uint8_t x)", table.Signatures()["primitive_u8"])

	_, err = table.Func("nope")
	assert.ErrorIs(t, err, errors.ErrUnknownSymbol)
	_, ok := table.Lookup("nope")
	assert.False(t, ok)

	fn, ok := table.Lookup("ptr")
	require.True(t, ok)
	assert.Equal(t, "ptr", fn.Name())
	assert.Equal(t, "int64_t* ptr(int64_t* x)", fn.Signature())
	assert.NotZero(t, fn.Addr())
	assert.Len(t, table.Funcs(), 5)
}

func TestFunc_Call(t *testing.T) {
	b, _ := newBinder(completeLibrary())
	require.NoError(t, b.Open())
	defer b.Close()
	table, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)

	call := func(name string, args ...any) (any, error) {
		fn, err := table.Func(name)
		require.NoError(t, err)
		return fn.Call(args...)
	}

	got, err := call("primitive_u8", 200)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), got)

	_, err = call("primitive_u8", 256)
	assert.ErrorIs(t, err, errors.ErrOverflow)

	got, err = call("primitive_void")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = call("check", 200)
	require.NoError(t, err)
	assert.Equal(t, "Fail", got.(marshal.EnumValue).Name)

	_, err = call("check", 7)
	assert.ErrorIs(t, err, errors.ErrInvalidEnum, "undeclared result value")

	x := int64(5)
	got, err = call("ptr", &x)
	require.NoError(t, err)
	assert.Same(t, &x, got.(*int64))

	_, err = call("ptr", nil)
	assert.ErrorIs(t, err, errors.ErrNullPointer)
}

func TestFunc_CallFault(t *testing.T) {
	lib := completeLibrary()
	lib.impls["primitive_u8"] = func(x uint8) uint8 { panic("segfault") }
	b, _ := newBinder(lib)
	require.NoError(t, b.Open())
	defer b.Close()
	table, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)

	fn, _ := table.Func("primitive_u8")
	_, err = fn.Call(1)
	assert.ErrorIs(t, err, errors.ErrCallFault)
}

func TestFunc_ConcurrentCalls(t *testing.T) {
	b, _ := newBinder(completeLibrary())
	require.NoError(t, b.Open())
	defer b.Close()
	table, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)
	fn, _ := table.Func("primitive_u8")

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(v uint8) {
			defer wg.Done()
			got, err := fn.Call(v)
			if err == nil && got != v {
				err = stderrors.New("wrong result")
			}
			errs <- err
		}(uint8(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestTable_NewCallbackTypeChecks(t *testing.T) {
	b, _ := newBinder(completeLibrary())
	require.NoError(t, b.Open())
	table, err := b.BindAll(testDescriptor(t))
	require.NoError(t, err)

	_, err = table.NewCallback("FFIError", func(uint8) uint8 { return 0 })
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	_, err = table.NewCallback("nope", func(uint8) uint8 { return 0 })
	assert.ErrorIs(t, err, errors.ErrUnknownSymbol)

	require.NoError(t, b.Close())
	_, err = table.NewCallback("fptr_fn_u8_rval_u8", func(uint8) uint8 { return 0 })
	assert.ErrorIs(t, err, errors.ErrUseAfterClose)
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{Unopened: "unopened", Opened: "opened", Bound: "bound", Closed: "closed", State(9): "unknown"} {
		assert.Equal(t, want, s.String())
	}
}
