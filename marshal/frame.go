package marshal

import (
	"runtime"
	"sync"

	"github.com/wippyai/ffi-runtime/errors"
)

const (
	// Pool limits to prevent memory bloat
	framePoolMaxKeep = 64
	framePoolInitCap = 4
)

type callbackUse struct {
	cb     *Callback
	faults uint64
}

// Frame holds the per-call state of one lowered argument list: Go memory
// that must stay reachable while native code runs and the callbacks the
// call passed.
type Frame struct {
	function  string
	keepAlive []any
	callbacks []callbackUse
}

var framePool = sync.Pool{
	New: func() any {
		return &Frame{keepAlive: make([]any, 0, framePoolInitCap)}
	},
}

func getFrame(function string) *Frame {
	f := framePool.Get().(*Frame)
	f.function = function
	return f
}

func putFrame(f *Frame) {
	if cap(f.keepAlive) > framePoolMaxKeep {
		return // reject oversized
	}
	clear(f.keepAlive)
	f.keepAlive = f.keepAlive[:0]
	f.callbacks = f.callbacks[:0]
	f.function = ""
	framePool.Put(f)
}

func (f *Frame) keep(v any) {
	f.keepAlive = append(f.keepAlive, v)
}

// useCallback pins cb for the duration of the call.
func (f *Frame) useCallback(path []string, cb *Callback) error {
	if !cb.registry.table.Borrow(cb.handle) {
		return errors.DanglingCallback(path, cb.typ.Name())
	}
	f.callbacks = append(f.callbacks, callbackUse{cb: cb, faults: cb.faults.Load()})
	return nil
}

// Finish ends the call: it releases pinned memory and callbacks and reports
// any fault raised inside a callback the call passed. The frame must not be
// used afterwards.
func (f *Frame) Finish() error {
	if f == nil {
		return nil
	}
	var err error
	for _, use := range f.callbacks {
		use.cb.registry.table.ReturnBorrow(use.cb.handle)
		if err == nil && use.cb.faults.Load() != use.faults {
			err = errors.CallFault(f.function, use.cb.LastFault())
		}
	}
	runtime.KeepAlive(f.keepAlive)
	putFrame(f)
	return err
}
