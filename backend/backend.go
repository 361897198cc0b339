// Package backend defines the command-submission context a device drives.
//
// A Context is the opaque collaborator behind every device: it turns OS
// handles into driver primitives and enqueues waits, signals, flushes and
// layout transitions into its command stream. Operations on a Context never
// block the calling goroutine; waits block the GPU queue, not the caller.
// The command stream must preserve submission order per queue.
package backend

// Caps describes optional backend behavior.
type Caps struct {
	// LayoutTransitions reports whether TransitionResourceLayout is honored.
	// Without it, textures are only flushed.
	LayoutTransitions bool

	// FenceInterop makes imports bind fences instead of semaphores, for
	// backends that represent cross-context sync as fences.
	FenceInterop bool
}

// Primitive is a driver object that must be released when its owner dies.
type Primitive interface {
	Release()
}

// Semaphore is a driver-level semaphore bound from an OS handle.
type Semaphore interface {
	Primitive
}

// Fence is a driver-level fence bound from an OS handle.
type Fence interface {
	Primitive
}

// Memory is a driver-level memory allocation bound from an OS handle.
type Memory interface {
	Primitive
	Size() uint64
}

// Context is the command-submission context behind a device.
//
// The *FromHandle methods borrow fd: they may duplicate it but must not close
// it, since the caller releases its copy afterwards.
type Context interface {
	Capabilities() Caps

	CreateSemaphoreFromHandle(fd int) (Semaphore, error)
	CreateFenceFromHandle(fd int) (Fence, error)
	ImportMemoryFromHandle(fd int, size uint64) (Memory, error)

	SemaphoreWait(s Semaphore)
	SemaphoreSignal(s Semaphore)
	FenceServerSync(f Fence)
	FenceServerSignal(f Fence)

	FlushResource(r Resource)
	TransitionResourceLayout(r Resource, layout Layout)
	FlushContext()
}

// ObjectAllocator is optionally implemented by contexts that keep driver
// state per named object. An error aborts the rest of a creation batch.
type ObjectAllocator interface {
	AllocSemaphoreObject(name uint32) error
	AllocMemoryObject(name uint32) error
}
