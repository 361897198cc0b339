package wasmhost

import (
	"sync"

	"github.com/wippyai/extsync/oshandle"
)

// Handles holds OS handles the embedder has handed to guests. Guests refer
// to a handle only by the token Transfer returned, never by descriptor.
// Safe for concurrent use.
type Handles struct {
	entries map[uint32]*oshandle.Handle
	next    uint32
	mu      sync.Mutex
}

// NewHandles creates an empty transfer table.
func NewHandles() *Handles {
	return &Handles{entries: make(map[uint32]*oshandle.Handle)}
}

// Transfer moves h into the table and returns the token a guest imports it
// by. Token 0 is never issued; a nil handle yields 0.
func (t *Handles) Transfer(h *oshandle.Handle) uint32 {
	if h == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		t.next++
		if t.next == 0 {
			continue
		}
		if _, used := t.entries[t.next]; !used {
			t.entries[t.next] = h
			return t.next
		}
	}
}

// Revoke takes a handle that no guest has consumed back out of the table.
func (t *Handles) Revoke(token uint32) (*oshandle.Handle, bool) {
	return t.take(token)
}

// Len returns the number of handles waiting to be imported.
func (t *Handles) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ReleaseAll releases every handle still in the table and returns the first
// close error.
func (t *Handles) ReleaseAll() error {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[uint32]*oshandle.Handle)
	t.mu.Unlock()

	var first error
	for _, h := range entries {
		if _, err := h.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// take removes token so that only one guest call can hold its handle.
func (t *Handles) take(token uint32) (*oshandle.Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.entries[token]
	if ok {
		delete(t.entries, token)
	}
	return h, ok
}

// restore puts back a handle an import left unconsumed.
func (t *Handles) restore(token uint32, h *oshandle.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[token] = h
}
