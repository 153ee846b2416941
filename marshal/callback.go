package marshal

import (
	stderrors "errors"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/abi"
	"github.com/wippyai/ffi-runtime/resource"
)

// Callbacks owns the callback wrappers created for one binder. Closing it
// releases every wrapper that is still live.
type Callbacks struct {
	compiler *Compiler
	table    *resource.Table
	stale    atomic.Uint64
}

// NewCallbacks creates an empty callback registry.
func NewCallbacks() *Callbacks {
	return &Callbacks{compiler: defaultCompiler, table: resource.NewTable()}
}

// Len returns the number of live wrappers.
func (r *Callbacks) Len() int { return r.table.Len() }

// Stale returns how many times native code invoked a released wrapper.
func (r *Callbacks) Stale() uint64 { return r.stale.Load() }

// Subscribe observes wrapper lifecycle events.
func (r *Callbacks) Subscribe(o resource.Observer) { r.table.Subscribe(o) }

// Close releases every live wrapper, including wrappers pinned by calls
// that are still running. Their trampolines keep returning zero.
func (r *Callbacks) Close() error {
	if err := r.table.Close(); err != nil && !stderrors.Is(err, resource.ErrClosed) {
		return err
	}
	return nil
}

// Wrap validates fn against the function pointer type and returns a wrapper
// with a native-callable address.
//
// fn must be a non-variadic Go function whose parameter and result kinds
// match the C types: bool, sized integers (enums use their repr), uintptr
// for function pointers and unsafe.Pointer for pointers. Floating point and
// struct parameters are not supported by the trampoline.
func (r *Callbacks) Wrap(fp *descriptor.FuncPtrType, fn any) (*Callback, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, errors.TypeMismatch(errors.PhaseMarshal, []string{fp.Name()}, abi.TypeName(fn), fp.Prototype())
	}
	ft := fv.Type()
	params := fp.Params()
	if ft.IsVariadic() || ft.NumIn() != len(params) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(fp.Name()).
			GoType(ft.String()).
			CType(fp.Prototype()).
			Detail("expected %d parameters, got %d", len(params), ft.NumIn()).
			Build()
	}

	cb := &Callback{registry: r, typ: fp, params: make([]codec, len(params)), in: make([]reflect.Type, len(params))}
	for i, p := range params {
		pc, err := r.compiler.codecFor(p.Type)
		if err != nil {
			return nil, err
		}
		path := []string{fp.Name(), p.Name}
		if err := checkWord(path, pc, ft.In(i)); err != nil {
			return nil, err
		}
		cb.params[i] = pc
		cb.in[i] = ft.In(i)
	}

	rc, err := r.compiler.codecFor(fp.Result())
	if err != nil {
		return nil, err
	}
	cb.result = rc
	if rc.Rep() == nil {
		if ft.NumOut() != 0 {
			return nil, errors.TypeMismatch(errors.PhaseMarshal, []string{fp.Name(), "return"}, ft.Out(0).String(), "void")
		}
	} else {
		if ft.NumOut() != 1 {
			return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
				Path(fp.Name(), "return").
				GoType(ft.String()).
				CType(rc.Type().Name()).
				Detail("expected one result, got %d", ft.NumOut()).
				Build()
		}
		if err := checkWord([]string{fp.Name(), "return"}, rc, ft.Out(0)); err != nil {
			return nil, err
		}
	}
	cb.fn.Store(&fv)

	addr, err := newTrampoline(cb)
	if err != nil {
		return nil, err
	}
	cb.addr = addr

	cb.handle = r.table.Insert(resource.TypeCallback, callbackEntry{cb}, addr)
	if cb.handle == 0 {
		cb.release()
		return nil, errors.UseAfterClose("callback registry")
	}

	Logger().Debug("callback wrapped",
		zap.String("type", fp.Name()),
		zap.Uint32("handle", uint32(cb.handle)),
		zap.Uintptr("addr", addr))
	return cb, nil
}

// checkWord verifies that a callback parameter or result travels in one
// integer register and that the Go type has the C type's kind.
func checkWord(path []string, c codec, goType reflect.Type) error {
	rep := c.Rep()
	switch rep.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Struct:
		return errors.Unsupported(errors.PhaseMarshal, "callback value of type "+c.Type().Name())
	}
	if goType.Kind() != rep.Kind() {
		return errors.TypeMismatch(errors.PhaseMarshal, path, goType.String(), c.Type().Name())
	}
	return nil
}

// Callback is a Go function callable from native code.
type Callback struct {
	registry *Callbacks
	typ      *descriptor.FuncPtrType
	fn       atomic.Pointer[reflect.Value]
	params   []codec
	in       []reflect.Type
	result   codec
	addr     uintptr
	handle   resource.Handle

	released  atomic.Bool
	faults    atomic.Uint64
	mu        sync.Mutex
	lastFault error
}

type callbackEntry struct {
	cb *Callback
}

func (e callbackEntry) Finalize() { e.cb.release() }

func (c *Callback) release() {
	c.released.Store(true)
	c.fn.Store(nil)
}

// Type returns the function pointer type.
func (c *Callback) Type() *descriptor.FuncPtrType { return c.typ }

// Pointer returns the native address of the trampoline.
func (c *Callback) Pointer() uintptr { return c.addr }

// Handle returns the wrapper's handle in its registry.
func (c *Callback) Handle() resource.Handle { return c.handle }

// Released reports whether the host side has been dropped.
func (c *Callback) Released() bool { return c.released.Load() }

// Faults returns the number of failed native invocations.
func (c *Callback) Faults() uint64 { return c.faults.Load() }

// LastFault returns the most recent invocation failure.
func (c *Callback) LastFault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFault
}

// Release drops the host function. The native address stays valid and
// returns zero from then on. Releasing twice is a no-op; releasing a
// wrapper pinned by a running call fails.
func (c *Callback) Release() error {
	if c.Released() {
		return nil
	}
	_, err := c.registry.table.Remove(c.handle)
	switch {
	case err == nil, stderrors.Is(err, resource.ErrReleased), stderrors.Is(err, resource.ErrClosed):
		c.release()
		return nil
	case stderrors.Is(err, resource.ErrOutstandingBorrow):
		return errors.InvalidState("callback " + c.typ.Name() + " is in use by a running call")
	}
	return errors.Wrap(errors.PhaseCall, errors.KindInvalidState, err, "release callback")
}

// Invoke calls the host function from Go with marshalled arguments.
func (c *Callback) Invoke(args ...any) (any, error) {
	fn := c.fn.Load()
	if fn == nil {
		return nil, errors.DanglingCallback([]string{c.typ.Name()}, c.typ.Name())
	}
	if len(args) != len(c.params) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(c.typ.Name()).
			Detail("expected %d arguments, got %d", len(c.params), len(args)).
			Build()
	}

	f := getFrame(c.typ.Name())
	in := make([]reflect.Value, len(args))
	for i, pc := range c.params {
		v, err := pc.lower(appendPath([]string{c.typ.Name()}, c.typ.Params()[i].Name), args[i], f)
		if err != nil {
			f.Finish()
			return nil, err
		}
		in[i] = v.Convert(c.in[i])
	}

	out, err := c.call(*fn, in)
	f.Finish()
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return c.result.lift([]string{c.typ.Name(), "return"}, out[0].Convert(c.result.Rep()))
}

func (c *Callback) call(fn reflect.Value, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseCall, errors.KindCallFault).
				Path(c.typ.Name()).
				Value(r).
				Detail("callback panicked: %v", r).
				Build()
		}
	}()
	return fn.Call(in), nil
}

// native is the body of the trampoline. Arguments arrive as machine words.
func (c *Callback) native(args []reflect.Value) uintptr {
	fn := c.fn.Load()
	if fn == nil {
		c.registry.stale.Add(1)
		c.fault(errors.DanglingCallback([]string{c.typ.Name()}, c.typ.Name()))
		Logger().Warn("native code invoked a released callback",
			zap.String("type", c.typ.Name()),
			zap.Uint32("handle", uint32(c.handle)),
			zap.Uintptr("addr", c.addr))
		return 0
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = fromWord(uintptr(a.Uint()), c.in[i])
	}
	out, err := c.call(*fn, in)
	if err != nil {
		c.fault(err)
		Logger().Error("callback failed", zap.String("type", c.typ.Name()), zap.Error(err))
		return 0
	}
	if len(out) == 0 {
		return 0
	}
	return toWord(out[0])
}

func (c *Callback) fault(err error) {
	c.mu.Lock()
	c.lastFault = err
	c.mu.Unlock()
	c.faults.Add(1)
}

func fromWord(w uintptr, t reflect.Type) reflect.Value {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(w&0xff != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		shift := 64 - t.Bits()
		v.SetInt(int64(uint64(w)<<shift) >> shift)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		if bits := t.Bits(); bits < 64 {
			v.SetUint(uint64(w) & (1<<bits - 1))
		} else {
			v.SetUint(uint64(w))
		}
	case reflect.UnsafePointer:
		v.SetPointer(*(*unsafe.Pointer)(unsafe.Pointer(&w)))
	}
	return v
}

func toWord(v reflect.Value) uintptr {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return uintptr(v.Int())
	case reflect.UnsafePointer:
		return uintptr(v.UnsafePointer())
	default:
		return uintptr(v.Uint())
	}
}
