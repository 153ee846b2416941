package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("resource backend closed")
	ErrOutstandingBorrow = errors.New("cannot release value with outstanding borrows")
	ErrReleased          = errors.New("handle refers to a released value")
	ErrUnknownHandle     = errors.New("unknown handle")
)

// LocalBackend is an in-memory backend with borrow tracking.
// Released handles are tombstoned and never handed out again.
type LocalBackend struct {
	entries []entry
	mu      sync.RWMutex
	closed  bool
}

type entry struct {
	value       any
	rep         uintptr
	typeID      uint32
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries: make([]entry, 0, 64),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any, rep uintptr) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	b.entries = append(b.entries, entry{
		typeID: typeID,
		value:  value,
		rep:    rep,
		valid:  true,
	})
	return Handle(len(b.entries)), nil
}

// lookup returns the entry for handle. Caller holds b.mu.
func (b *LocalBackend) lookup(handle Handle) (*entry, error) {
	if handle == 0 || int(handle) > len(b.entries) {
		return nil, ErrUnknownHandle
	}
	e := &b.entries[handle-1]
	if !e.valid {
		return e, ErrReleased
	}
	return e, nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Drop tombstones a handle and returns its value.
func (b *LocalBackend) Drop(handle Handle) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}
	if e.borrowCount > 0 {
		return nil, ErrOutstandingBorrow
	}

	value := e.value
	e.valid = false
	e.value = nil
	return value, nil
}

// Close releases all values. Handles stay tombstoned.
func (b *LocalBackend) Close() error {
	_, err := b.drain()
	return err
}

type drained struct {
	value  any
	handle Handle
	typeID uint32
}

func (b *LocalBackend) drain() ([]drained, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil
	}
	b.closed = true

	var values []drained
	for i := range b.entries {
		if b.entries[i].valid {
			values = append(values, drained{
				value:  b.entries[i].value,
				handle: Handle(i + 1),
				typeID: b.entries[i].typeID,
			})
			b.entries[i].valid = false
			b.entries[i].value = nil
			b.entries[i].borrowCount = 0
		}
	}
	return values, nil
}

// Rep returns the native representation recorded for a handle. Tombstoned
// handles keep their representation.
func (b *LocalBackend) Rep(handle Handle) (uintptr, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if handle == 0 || int(handle) > len(b.entries) {
		return 0, false
	}
	return b.entries[handle-1].rep, true
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil {
		return false
	}
	e.borrowCount++
	return true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

// TypeID returns the type ID for a live handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, err := b.lookup(handle)
	if err != nil {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of live values.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live values.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}
