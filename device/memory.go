package device

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/errors"
)

// MemoryParam names a memory object parameter.
type MemoryParam uint32

const (
	DedicatedMemoryObject MemoryParam = 0x9581
	ProtectedMemoryObject MemoryParam = 0x959B
)

func (p MemoryParam) String() string {
	switch p {
	case DedicatedMemoryObject:
		return "dedicated"
	case ProtectedMemoryObject:
		return "protected"
	default:
		return "unknown"
	}
}

// MemoryObject is a named memory object. Fields are guarded by mu.
type MemoryObject struct {
	mem       backend.Memory
	size      uint64
	mu        sync.Mutex
	name      Name
	state     State
	dedicated bool
	protected bool
}

// Name returns the object's name.
func (m *MemoryObject) Name() Name {
	return m.name
}

// State returns the current lifecycle state.
func (m *MemoryObject) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MemoryObject) destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mem != nil {
		m.mem.Release()
		m.mem = nil
	}
	m.state = StateDestroyed
}

// CreateMemoryObjects allocates n contiguous fresh names, each holding an
// uninitialized memory object. Partial failure behaves as in CreateSemaphores.
func (d *Device) CreateMemoryObjects(n int) ([]Name, error) {
	if n < 0 {
		return nil, errors.InvalidCount(errors.PhaseCreate, n)
	}
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > math.MaxUint32 {
		return nil, errors.AllocationFailed(errors.PhaseCreate, "memory object names", nil)
	}

	d.memory.Lock()
	defer d.memory.Unlock()

	first := d.memory.AllocateBlockLocked(uint32(n))
	if first == 0 {
		d.log.Warn("no contiguous memory object names", zap.Int("count", n))
		return nil, errors.New(errors.PhaseCreate, errors.KindAllocation).
			Detail("no block of %d contiguous memory object names", n).
			Build()
	}

	names := make([]Name, 0, n)
	for i := range n {
		name := first + Name(i)
		if d.alloc != nil {
			if err := d.alloc.AllocMemoryObject(uint32(name)); err != nil {
				d.log.Warn("memory object allocation failed",
					zap.Uint32("name", uint32(name)),
					zap.Int("created", len(names)),
					zap.Error(err))
				return names, errors.AllocationFailed(errors.PhaseCreate, "memory object", err)
			}
		}
		d.memory.InsertLocked(name, &MemoryObject{name: name})
		names = append(names, name)
	}
	return names, nil
}

// DeleteMemoryObjects deletes the named memory objects. Zero and unknown
// names are skipped.
func (d *Device) DeleteMemoryObjects(names []Name) {
	if len(names) == 0 {
		return
	}

	removed := make([]*MemoryObject, 0, len(names))
	d.memory.Lock()
	for _, name := range names {
		if name == 0 {
			continue
		}
		if obj, ok := d.memory.RemoveLocked(name); ok {
			removed = append(removed, obj)
		}
	}
	d.memory.Unlock()

	for _, obj := range removed {
		obj.destroy()
	}
}

// IsMemoryObject reports whether name denotes a live memory object.
func (d *Device) IsMemoryObject(name Name) bool {
	_, ok := d.memory.Lookup(name)
	return ok
}

// MemoryObjectParameter sets a boolean parameter. Parameters are frozen once
// the object has been imported.
func (d *Device) MemoryObjectParameter(name Name, pname MemoryParam, value int32) error {
	obj, err := d.lockMemoryObject(errors.PhaseParameter, name)
	if err != nil {
		return err
	}
	defer obj.mu.Unlock()

	if obj.state == StateImported {
		return errors.Immutable(errors.PhaseParameter, "memory object", uint32(name))
	}

	switch pname {
	case DedicatedMemoryObject:
		obj.dedicated = value != 0
	case ProtectedMemoryObject:
		obj.protected = value != 0
	default:
		return errors.InvalidEnum(errors.PhaseParameter, uint32(pname), "memory object parameter")
	}
	return nil
}

// GetMemoryObjectParameter returns a boolean parameter as 0 or 1.
func (d *Device) GetMemoryObjectParameter(name Name, pname MemoryParam) (int32, error) {
	obj, err := d.lockMemoryObject(errors.PhaseParameter, name)
	if err != nil {
		return 0, err
	}
	defer obj.mu.Unlock()

	var v bool
	switch pname {
	case DedicatedMemoryObject:
		v = obj.dedicated
	case ProtectedMemoryObject:
		v = obj.protected
	default:
		return 0, errors.InvalidEnum(errors.PhaseParameter, uint32(pname), "memory object parameter")
	}
	if v {
		return 1, nil
	}
	return 0, nil
}

// MemoryObjectSize returns the imported size in bytes.
func (d *Device) MemoryObjectSize(name Name) (uint64, error) {
	obj, err := d.lockMemoryObject(errors.PhaseParameter, name)
	if err != nil {
		return 0, err
	}
	defer obj.mu.Unlock()

	if obj.state != StateImported {
		return 0, errors.NotImported(errors.PhaseParameter, "memory object", uint32(name))
	}
	return obj.size, nil
}

func (d *Device) lockMemoryObject(phase errors.Phase, name Name) (*MemoryObject, error) {
	obj, ok := d.memory.Lookup(name)
	if !ok {
		return nil, errors.UnknownObject(phase, "memory object", uint32(name))
	}
	obj.mu.Lock()
	if obj.state == StateDestroyed {
		obj.mu.Unlock()
		return nil, errors.UnknownObject(phase, "memory object", uint32(name))
	}
	return obj, nil
}
