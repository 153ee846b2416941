package binder

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/marshal"
)

// State is a binder lifecycle state. States only move forward.
type State uint32

const (
	Unopened State = iota
	Opened
	Bound
	Closed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Opened:
		return "opened"
	case Bound:
		return "bound"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Binder owns one native library and the tables bound against it.
type Binder struct {
	loader    Loader
	lib       Library
	tables    map[*descriptor.Descriptor]*Table
	callbacks *marshal.Callbacks
	path      string
	mu        sync.Mutex
	state     atomic.Uint32
}

// New creates an unopened binder for path.
func New(path string, opts Options) *Binder {
	return &Binder{
		loader:    opts.loader(),
		path:      path,
		tables:    make(map[*descriptor.Descriptor]*Table),
		callbacks: marshal.NewCallbacks(),
	}
}

// Path returns the library path.
func (b *Binder) Path() string { return b.path }

// State returns the current lifecycle state.
func (b *Binder) State() State { return State(b.state.Load()) }

// Callbacks returns the registry of wrappers released by Close.
func (b *Binder) Callbacks() *marshal.Callbacks { return b.callbacks }

// Open acquires the library. Opening an opened or bound binder is a no-op.
func (b *Binder) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.State() {
	case Closed:
		return errors.UseAfterClose("binder for " + b.path)
	case Opened, Bound:
		return nil
	}

	lib, err := b.loader.Load(b.path)
	if err != nil {
		Logger().Debug("library load failed", zap.String("path", b.path), zap.Error(err))
		return err
	}
	b.lib = lib
	b.state.Store(uint32(Opened))
	Logger().Debug("library opened", zap.String("path", b.path))
	return nil
}

// BindAll resolves every function of d and returns the bound table. The
// same descriptor always yields the same table. A failed first bind
// releases the library and closes the binder. A failure on an already
// bound binder leaves it and its earlier tables intact. No partial table
// is returned.
func (b *Binder) BindAll(d *descriptor.Descriptor) (*Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.State() {
	case Closed:
		return nil, errors.UseAfterClose("binder for " + b.path)
	case Unopened:
		return nil, errors.InvalidState("binder for " + b.path + " is not open")
	}
	if t, ok := b.tables[d]; ok {
		return t, nil
	}

	t, err := b.bind(d)
	if err != nil {
		if b.State() == Bound {
			Logger().Warn("bind failed", zap.String("path", b.path), zap.Error(err))
			return nil, err
		}
		Logger().Warn("bind failed, closing library", zap.String("path", b.path), zap.Error(err))
		if cerr := b.closeLocked(); cerr != nil {
			Logger().Error("close after failed bind", zap.String("path", b.path), zap.Error(cerr))
		}
		return nil, err
	}

	b.tables[d] = t
	b.state.Store(uint32(Bound))
	Logger().Debug("library bound",
		zap.String("path", b.path),
		zap.Int("functions", t.Len()))
	return t, nil
}

func (b *Binder) bind(d *descriptor.Descriptor) (*Table, error) {
	fns := d.Functions()
	addrs := make([]uintptr, len(fns))
	var missing []string
	for i, fn := range fns {
		addr, err := b.lib.Symbol(fn.Name())
		if err != nil {
			missing = append(missing, fn.Name()+"|"+fn.Signature())
			continue
		}
		addrs[i] = addr
	}
	if len(missing) > 0 {
		return nil, errors.SymbolNotFound(errors.NewMissingSymbolsError(b.path, missing))
	}

	maker, _ := b.lib.(FuncMaker)
	t := &Table{
		binder: b,
		desc:   d,
		funcs:  make([]*Func, len(fns)),
		byName: make(map[string]*Func, len(fns)),
	}
	for i, fn := range fns {
		plan, err := marshal.Compile(fn)
		if err != nil {
			return nil, errors.SignatureMismatch(fn.Name(), "cannot marshal "+fn.Signature(), err)
		}

		var stub reflect.Value
		if maker != nil {
			stub, err = maker.MakeFunc(fn.Name(), plan.FuncType(), addrs[i])
		} else {
			stub, err = makeStub(plan.FuncType(), addrs[i])
		}
		if err != nil {
			return nil, errors.SignatureMismatch(fn.Name(), "cannot call "+fn.Signature(), err)
		}

		f := &Func{binder: b, fn: fn, plan: plan, stub: stub, addr: addrs[i]}
		t.funcs[i] = f
		t.byName[fn.Name()] = f
	}

	if guard, ok := d.APIGuard(); ok {
		if err := checkAPIGuard(t, guard); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// checkAPIGuard calls the guard function and compares the hash the library
// reports with the one the descriptor expects.
func checkAPIGuard(t *Table, guard descriptor.APIGuard) error {
	fn, err := t.Func(guard.Func)
	if err != nil {
		return err
	}
	got, err := fn.Call()
	if err != nil {
		return errors.SignatureMismatch(guard.Func, "API guard call failed", err)
	}
	if hash, _ := got.(uint64); hash != guard.Hash {
		return errors.SignatureMismatch(guard.Func,
			fmt.Sprintf("library reports API hash %d, bindings expect %d", got, guard.Hash), nil)
	}
	Logger().Debug("API guard matched",
		zap.String("func", guard.Func),
		zap.Uint64("hash", guard.Hash))
	return nil
}

// Close releases the library and every callback wrapper created through
// the binder. Closing twice is a no-op.
func (b *Binder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *Binder) closeLocked() error {
	if b.State() == Closed {
		return nil
	}
	b.state.Store(uint32(Closed))
	b.tables = nil

	err := b.callbacks.Close()
	if b.lib != nil {
		if lerr := b.lib.Close(); lerr != nil && err == nil {
			err = lerr
		}
		b.lib = nil
	}
	Logger().Debug("library closed", zap.String("path", b.path))
	return err
}
