//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package marshal

import (
	"reflect"

	"github.com/ebitengine/purego"

	"github.com/wippyai/ffi-runtime/errors"
)

// newTrampoline allocates a process-wide native entry point for cb. The
// slot is never reassigned.
func newTrampoline(cb *Callback) (addr uintptr, err error) {
	in := make([]reflect.Type, len(cb.in))
	for i := range in {
		in[i] = uintptrType
	}
	ft := reflect.FuncOf(in, []reflect.Type{uintptrType}, false)
	impl := reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.ValueOf(cb.native(args))}
	})

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseMarshal, errors.KindUnsupported).
				CType(cb.typ.Name()).
				Detail("cannot create trampoline: %v", r).
				Build()
		}
	}()
	return purego.NewCallback(impl.Interface()), nil
}
