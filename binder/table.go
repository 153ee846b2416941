package binder

import (
	"reflect"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/marshal"
)

// Table is the bound surface of one descriptor. It is read-only and safe
// for concurrent use.
type Table struct {
	binder *Binder
	desc   *descriptor.Descriptor
	byName map[string]*Func
	funcs  []*Func
}

// Func returns the named function.
func (t *Table) Func(name string) (*Func, error) {
	if f, ok := t.byName[name]; ok {
		return f, nil
	}
	return nil, errors.UnknownSymbol(name)
}

// Lookup returns the named function if it is bound.
func (t *Table) Lookup(name string) (*Func, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Funcs returns the bound functions in declaration order.
func (t *Table) Funcs() []*Func {
	return append([]*Func(nil), t.funcs...)
}

// Names returns the bound function names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.funcs))
	for i, f := range t.funcs {
		names[i] = f.Name()
	}
	return names
}

// Signatures maps each function name to its C prototype.
func (t *Table) Signatures() map[string]string {
	sigs := make(map[string]string, len(t.funcs))
	for _, f := range t.funcs {
		sigs[f.Name()] = f.Signature()
	}
	return sigs
}

// Len returns the number of bound functions.
func (t *Table) Len() int { return len(t.funcs) }

// Descriptor returns the descriptor the table was bound from.
func (t *Table) Descriptor() *descriptor.Descriptor { return t.desc }

// Path returns the library path.
func (t *Table) Path() string { return t.binder.path }

// NewCallback wraps fn as the named function pointer type. The wrapper is
// released when the binder closes, or earlier by Callback.Release.
func (t *Table) NewCallback(typeName string, fn any) (*marshal.Callback, error) {
	if t.binder.State() == Closed {
		return nil, errors.UseAfterClose("binder for " + t.binder.path)
	}
	typ, err := t.desc.Type(typeName)
	if err != nil {
		return nil, err
	}
	fp, ok := typ.(*descriptor.FuncPtrType)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseMarshal, []string{typeName}, "func", typ.Name())
	}
	return t.binder.callbacks.Wrap(fp, fn)
}

// Func is a bound native function.
type Func struct {
	binder *Binder
	fn     *descriptor.Function
	plan   *marshal.Plan
	stub   reflect.Value
	addr   uintptr
}

// Name returns the function name.
func (f *Func) Name() string { return f.fn.Name() }

// Signature returns the C prototype.
func (f *Func) Signature() string { return f.fn.Signature() }

// Function returns the declaration.
func (f *Func) Function() *descriptor.Function { return f.fn }

// Addr returns the resolved symbol address.
func (f *Func) Addr() uintptr { return f.addr }

// Call lowers args, calls the native function and lifts its result. Void
// functions return nil.
func (f *Func) Call(args ...any) (any, error) {
	if f.binder.State() == Closed {
		return nil, errors.UseAfterClose("function " + f.fn.Name())
	}

	in, frame, err := f.plan.Lower(args)
	if err != nil {
		return nil, err
	}
	out, err := f.invoke(in)
	if ferr := frame.Finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return nil, err
	}
	return f.plan.Lift(out)
}

func (f *Func) invoke(in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseCall, errors.KindCallFault).
				Path(f.fn.Name()).
				Value(r).
				Detail("native call panicked: %v", r).
				Build()
		}
	}()
	return f.stub.Call(in), nil
}
