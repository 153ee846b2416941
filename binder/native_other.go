//go:build !(darwin || freebsd || linux)

package binder

import (
	"reflect"
	"runtime"

	"github.com/wippyai/ffi-runtime/errors"
)

type unsupportedLoader struct{}

// NativeLoader reports that native loading is unavailable.
func NativeLoader(Options) Loader {
	return unsupportedLoader{}
}

func (unsupportedLoader) Load(path string) (Library, error) {
	return nil, errors.LibraryLoad(path, errors.Unsupported(errors.PhaseLoad, "dynamic loading on "+runtime.GOOS))
}

func makeStub(reflect.Type, uintptr) (reflect.Value, error) {
	return reflect.Value{}, errors.Unsupported(errors.PhaseSymbol, "native calls on "+runtime.GOOS)
}
