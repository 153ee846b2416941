package resource

import (
	"errors"
	"sync"
)

// Table maps handles to host values with type information and observer
// support.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value with its native representation and returns its handle.
// Returns 0 once the table is closed.
func (t *Table) Insert(typeID uint32, value any, rep uintptr) Handle {
	handle, err := t.backend.Create(typeID, value, rep)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle. A tombstoned handle fails with
// ErrReleased and emits EventStale.
func (t *Table) Get(handle Handle) (any, error) {
	value, err := t.backend.Get(handle)
	if errors.Is(err, ErrReleased) {
		t.notify(Event{Type: EventStale, Handle: handle})
	}
	return value, err
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, error) {
	actual, ok := t.backend.TypeID(handle)
	if ok && actual != typeID {
		return nil, ErrUnknownHandle
	}
	return t.Get(handle)
}

// Rep returns the native representation recorded for a handle.
func (t *Table) Rep(handle Handle) (uintptr, bool) {
	return t.backend.Rep(handle)
}

// Remove releases a value and tombstones its handle.
func (t *Table) Remove(handle Handle) (any, error) {
	typeID, _ := t.backend.TypeID(handle)
	value, err := t.backend.Drop(handle)
	if err != nil {
		return nil, err
	}

	if f, ok := value.(Finalizer); ok {
		f.Finalize()
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, nil
}

// Borrow marks a handle as lent to an in-flight call.
func (t *Table) Borrow(handle Handle) bool {
	if !t.backend.Borrow(handle) {
		return false
	}
	t.notify(Event{Type: EventBorrowed, Handle: handle})
	return true
}

// ReturnBorrow ends a borrow started with Borrow.
func (t *Table) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	t.notify(Event{Type: EventBorrowReturned, Handle: handle})
	return true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live values.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all live values.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

// Close releases every live value, ignoring borrows, and stops accepting
// inserts.
func (t *Table) Close() error {
	values, err := t.backend.drain()
	if err != nil {
		return err
	}

	for _, d := range values {
		if f, ok := d.value.(Finalizer); ok {
			f.Finalize()
		}
		t.notify(Event{
			Type:   EventReleased,
			Handle: d.handle,
			TypeID: d.typeID,
			Value:  d.value,
		})
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
