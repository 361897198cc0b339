package device

import (
	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/handle"
)

// Name identifies a semaphore or memory object within its device.
// Name 0 never denotes a live object.
type Name = handle.Name

// Device owns the semaphore and memory object namespaces of one logical
// device and the backend context they are bound to.
type Device struct {
	ctx        backend.Context
	alloc      backend.ObjectAllocator
	storage    StorageAllocator
	log        *zap.Logger
	semaphores *handle.Table[*Semaphore]
	memory     *handle.Table[*MemoryObject]
	caps       backend.Caps
}

// New creates a device driving ctx. A nil cfg uses defaults.
func New(ctx backend.Context, cfg *Config) *Device {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	d := &Device{
		ctx:        ctx,
		storage:    cfg.Storage,
		log:        log,
		semaphores: handle.NewTable[*Semaphore](cfg.MaxNames),
		memory:     handle.NewTable[*MemoryObject](cfg.MaxNames),
		caps:       ctx.Capabilities(),
	}
	if a, ok := ctx.(backend.ObjectAllocator); ok {
		d.alloc = a
	}

	d.semaphores.Subscribe(&tableLogger{log: log, object: "semaphore"})
	d.memory.Subscribe(&tableLogger{log: log, object: "memory object"})

	log.Debug("device created",
		zap.Bool("layout_transitions", d.caps.LayoutTransitions),
		zap.Bool("fence_interop", d.caps.FenceInterop))
	return d
}

// Backend returns the context the device drives.
func (d *Device) Backend() backend.Context {
	return d.ctx
}

// Close deletes every object and releases its backend primitive.
func (d *Device) Close() {
	d.DeleteSemaphores(d.semaphoreNames())
	d.DeleteMemoryObjects(d.memoryNames())
}

// SemaphoreCount returns the number of live semaphore names.
func (d *Device) SemaphoreCount() int {
	return d.semaphores.Len()
}

// MemoryObjectCount returns the number of live memory object names.
func (d *Device) MemoryObjectCount() int {
	return d.memory.Len()
}

func (d *Device) semaphoreNames() []Name {
	var names []Name
	d.semaphores.Each(func(name Name, _ *Semaphore) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (d *Device) memoryNames() []Name {
	var names []Name
	d.memory.Each(func(name Name, _ *MemoryObject) bool {
		names = append(names, name)
		return true
	})
	return names
}
