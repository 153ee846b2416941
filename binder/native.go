//go:build darwin || freebsd || linux

package binder

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/ebitengine/purego"

	"github.com/wippyai/ffi-runtime/errors"
)

type nativeLoader struct {
	mode int
}

// NativeLoader opens libraries with the platform dynamic loader.
func NativeLoader(opts Options) Loader {
	mode := purego.RTLD_NOW
	if opts.Lazy {
		mode = purego.RTLD_LAZY
	}
	if opts.Global {
		mode |= purego.RTLD_GLOBAL
	} else {
		mode |= purego.RTLD_LOCAL
	}
	return nativeLoader{mode: mode}
}

func (l nativeLoader) Load(path string) (Library, error) {
	// Bare names go through the loader's search path, so only explicit
	// paths can be told apart from load failures.
	if strings.ContainsRune(path, os.PathSeparator) {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.LibraryNotFound(path, err)
		}
	}
	h, err := purego.Dlopen(path, l.mode)
	if err != nil {
		if !strings.ContainsRune(path, os.PathSeparator) {
			return nil, errors.LibraryNotFound(path, err)
		}
		return nil, errors.LibraryLoad(path, err)
	}
	return &nativeLibrary{path: path, handle: h}, nil
}

type nativeLibrary struct {
	path   string
	handle uintptr
}

func (l *nativeLibrary) Symbol(name string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, fmt.Errorf("symbol %s resolved to null", name)
	}
	return addr, nil
}

func (l *nativeLibrary) Close() error {
	if err := purego.Dlclose(l.handle); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindLibraryLoad, err, "close "+l.path)
	}
	return nil
}

// makeStub builds a Go function of type typ that calls addr with the C
// calling convention.
func makeStub(typ reflect.Type, addr uintptr) (fn reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	ptr := reflect.New(typ)
	purego.RegisterFunc(ptr.Interface(), addr)
	return ptr.Elem(), nil
}
