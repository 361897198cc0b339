package device

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/errors"
)

// State is the lifecycle state of a named object.
type State uint8

const (
	StateUninitialized State = iota
	StateImported
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateImported:
		return "imported"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// binding tags which backend primitive backs a semaphore.
type binding uint8

const (
	bindingNone binding = iota
	bindingSemaphore
	bindingFence
)

// Semaphore is a named semaphore object. Fields are guarded by mu.
type Semaphore struct {
	sem     backend.Semaphore
	fence   backend.Fence
	mu      sync.Mutex
	name    Name
	state   State
	binding binding
}

// Name returns the object's name.
func (s *Semaphore) Name() Name {
	return s.name
}

// State returns the current lifecycle state.
func (s *Semaphore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// destroy releases the bound primitive. The object must already be out of
// the table.
func (s *Semaphore) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.binding {
	case bindingSemaphore:
		s.sem.Release()
	case bindingFence:
		s.fence.Release()
	}
	s.sem, s.fence = nil, nil
	s.binding = bindingNone
	s.state = StateDestroyed
}

// CreateSemaphores allocates n contiguous fresh names, each holding an
// uninitialized semaphore.
//
// If the backend fails to allocate an object partway through, creation stops
// and the names created so far are returned with the error. They stay live.
func (d *Device) CreateSemaphores(n int) ([]Name, error) {
	if n < 0 {
		return nil, errors.InvalidCount(errors.PhaseCreate, n)
	}
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > math.MaxUint32 {
		return nil, errors.AllocationFailed(errors.PhaseCreate, "semaphore names", nil)
	}

	d.semaphores.Lock()
	defer d.semaphores.Unlock()

	first := d.semaphores.AllocateBlockLocked(uint32(n))
	if first == 0 {
		d.log.Warn("no contiguous semaphore names", zap.Int("count", n))
		return nil, errors.New(errors.PhaseCreate, errors.KindAllocation).
			Detail("no block of %d contiguous semaphore names", n).
			Build()
	}

	names := make([]Name, 0, n)
	for i := range n {
		name := first + Name(i)
		if d.alloc != nil {
			if err := d.alloc.AllocSemaphoreObject(uint32(name)); err != nil {
				d.log.Warn("semaphore allocation failed",
					zap.Uint32("name", uint32(name)),
					zap.Int("created", len(names)),
					zap.Error(err))
				return names, errors.AllocationFailed(errors.PhaseCreate, "semaphore object", err)
			}
		}
		d.semaphores.InsertLocked(name, &Semaphore{name: name})
		names = append(names, name)
	}
	return names, nil
}

// DeleteSemaphores deletes the named semaphores. Zero and unknown names are
// skipped, so deletion never fails.
//
// Names leave the table as one batch. Primitives are released afterwards,
// outside the table lock, each once its in-flight wait or signal finishes.
func (d *Device) DeleteSemaphores(names []Name) {
	if len(names) == 0 {
		return
	}

	removed := make([]*Semaphore, 0, len(names))
	d.semaphores.Lock()
	for _, name := range names {
		if name == 0 {
			continue
		}
		if obj, ok := d.semaphores.RemoveLocked(name); ok {
			removed = append(removed, obj)
		}
	}
	d.semaphores.Unlock()

	for _, obj := range removed {
		obj.destroy()
	}
}

// IsSemaphore reports whether name denotes a live semaphore.
func (d *Device) IsSemaphore(name Name) bool {
	_, ok := d.semaphores.Lookup(name)
	return ok
}

// SemaphoreState returns the state of a live semaphore.
func (d *Device) SemaphoreState(name Name) (State, error) {
	obj, ok := d.semaphores.Lookup(name)
	if !ok {
		return StateDestroyed, errors.UnknownObject(errors.PhaseParameter, "semaphore", uint32(name))
	}
	return obj.State(), nil
}

// lockSemaphore resolves name and locks the object. It fails if the object
// was deleted after lookup.
func (d *Device) lockSemaphore(phase errors.Phase, name Name) (*Semaphore, error) {
	obj, ok := d.semaphores.Lookup(name)
	if !ok {
		return nil, errors.UnknownObject(phase, "semaphore", uint32(name))
	}
	obj.mu.Lock()
	if obj.state == StateDestroyed {
		obj.mu.Unlock()
		return nil, errors.UnknownObject(phase, "semaphore", uint32(name))
	}
	return obj, nil
}
