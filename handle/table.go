package handle

import (
	"math"
	"sync"
)

// Name is an opaque reference to a value in a table.
// Name 0 is reserved and always invalid.
type Name uint32

// EventType identifies a table lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a table lifecycle event.
type Event struct {
	Value any
	Name  Name
	Type  EventType
}

// Observer receives notifications about table lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Table maps names to values of type T. Safe for concurrent use.
type Table[T any] struct {
	entries   map[Name]T
	pending   []Event
	observers []Observer
	limit     Name
	maxKey    Name
	mu        sync.RWMutex
	obsMu     sync.RWMutex
}

// NewTable creates a table whose names never exceed limit.
// A limit of 0 allows the full uint32 range.
func NewTable[T any](limit uint32) *Table[T] {
	if limit == 0 {
		limit = math.MaxUint32
	}
	return &Table[T]{
		entries: make(map[Name]T),
		limit:   Name(limit),
	}
}

// Lock acquires the table for a batch of Locked operations.
func (t *Table[T]) Lock() {
	t.mu.Lock()
}

// Unlock ends a batch and delivers the events it produced.
func (t *Table[T]) Unlock() {
	events := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, e := range events {
		t.notify(e)
	}
}

// AllocateBlockLocked returns the first of count contiguous unused names,
// or 0 if no such block exists. The names are not reserved until inserted.
func (t *Table[T]) AllocateBlockLocked(count uint32) Name {
	if count == 0 {
		return 0
	}

	if uint64(t.limit)-uint64(t.maxKey) >= uint64(count) {
		return t.maxKey + 1
	}

	// Out of fresh names above maxKey; look for a hole left by deletions.
	var run uint32
	first := Name(1)
	for key := uint64(1); key <= uint64(t.limit); key++ {
		if _, used := t.entries[Name(key)]; used {
			run = 0
			first = Name(key + 1)
			continue
		}
		run++
		if run == count {
			return first
		}
	}
	return 0
}

// InsertLocked stores value under name, replacing any previous value.
// Inserting under name 0 is ignored.
func (t *Table[T]) InsertLocked(name Name, value T) {
	if name == 0 {
		return
	}
	t.entries[name] = value
	if name > t.maxKey {
		t.maxKey = name
	}
	t.pending = append(t.pending, Event{Type: EventCreated, Name: name, Value: value})
}

// RemoveLocked removes name and returns its value.
func (t *Table[T]) RemoveLocked(name Name) (T, bool) {
	value, ok := t.entries[name]
	if !ok {
		return value, false
	}
	delete(t.entries, name)
	t.pending = append(t.pending, Event{Type: EventDropped, Name: name, Value: value})
	return value, true
}

// LookupLocked retrieves a value by name.
func (t *Table[T]) LookupLocked(name Name) (T, bool) {
	if name == 0 {
		var zero T
		return zero, false
	}
	value, ok := t.entries[name]
	return value, ok
}

// Insert stores value under name as a single-element batch.
func (t *Table[T]) Insert(name Name, value T) {
	t.Lock()
	defer t.Unlock()
	t.InsertLocked(name, value)
}

// Remove removes name as a single-element batch.
func (t *Table[T]) Remove(name Name) (T, bool) {
	t.Lock()
	defer t.Unlock()
	return t.RemoveLocked(name)
}

// Lookup retrieves a value by name.
func (t *Table[T]) Lookup(name Name) (T, bool) {
	if name == 0 {
		var zero T
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	value, ok := t.entries[name]
	return value, ok
}

// Len returns the number of live names.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each calls fn for every live entry until fn returns false.
// Iteration order is unspecified. fn must not modify the table.
func (t *Table[T]) Each(fn func(Name, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for name, value := range t.entries {
		if !fn(name, value) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
