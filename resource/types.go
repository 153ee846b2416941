package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Type IDs for values stored in tables.
const (
	TypeCallback uint32 = iota + 1
)

// Event types for lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
	EventBorrowed
	EventBorrowReturned
	// EventStale is emitted when a lookup hits a tombstoned handle.
	EventStale
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventReleased:
		return "released"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	case EventStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Event represents a lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage.
type Backend interface {
	// Create stores a value with its native representation and returns a handle.
	Create(typeID uint32, value any, rep uintptr) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, error)

	// Drop tombstones a handle and returns its value.
	// Fails with ErrOutstandingBorrow while the handle is borrowed.
	Drop(handle Handle) (any, error)

	// Close releases all values held by the backend.
	Close() error
}

// Finalizer is optionally implemented by values that must observe their
// own release.
type Finalizer interface {
	Finalize()
}
