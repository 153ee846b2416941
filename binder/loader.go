package binder

import "reflect"

// Options configures library loading.
type Options struct {
	// Loader opens libraries. NativeLoader is used when nil.
	Loader Loader
	// Lazy defers function symbol relocation to first use.
	Lazy bool
	// Global exposes the library's symbols to libraries loaded later.
	Global bool
}

// DefaultOptions resolves every relocation at load time and keeps
// symbols local.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) loader() Loader {
	if o.Loader != nil {
		return o.Loader
	}
	return NativeLoader(o)
}

// Library is an opened shared library.
type Library interface {
	// Symbol returns the address of an exported symbol.
	Symbol(name string) (uintptr, error)
	// Close releases the library.
	Close() error
}

// Loader opens libraries by path.
type Loader interface {
	Load(path string) (Library, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (Library, error)

func (f LoaderFunc) Load(path string) (Library, error) { return f(path) }

// FuncMaker is implemented by libraries that build their own call stubs.
// Libraries without it get stubs from the native call layer.
type FuncMaker interface {
	MakeFunc(name string, typ reflect.Type, addr uintptr) (reflect.Value, error)
}
