// Package resource provides handle tables for host values referenced from
// native code.
//
// A native library never receives a Go pointer to a host value it may call
// back into. It receives a stable address whose trampoline resolves a Handle
// through a Table. Releasing the value tombstones the handle: the slot is
// never reused, so a stale native reference always resolves to ErrReleased
// instead of to an unrelated value.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(resource.TypeCallback, cb)
//
//	// Retrieve value by handle
//	value, err := table.Get(handle)
//
//	// Release the value; later lookups fail with ErrReleased
//	value, err = table.Remove(handle)
//
// # Borrows
//
// A value lent to an in-flight native call is borrowed. Remove refuses to
// release a borrowed value and returns ErrOutstandingBorrow:
//
//	if table.Borrow(handle) {
//	    defer table.ReturnBorrow(handle)
//	}
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(observer)
//
// Values implementing Finalizer are notified once when they leave the table,
// either through Remove or through Close.
package resource
