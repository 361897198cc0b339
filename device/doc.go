// Package device manages external semaphore and memory objects for one
// logical device.
//
// A Device owns two name tables, one for semaphores and one for memory
// objects, and drives a backend.Context. Objects are created in batches,
// bound to OS handles by import, and used by server-side wait and signal
// operations that order resource barriers around the backend primitive.
//
// # Lifecycle
//
//	dev := device.New(ctx, nil)
//	defer dev.Close()
//
//	names, _ := dev.CreateSemaphores(1)
//	err := dev.ImportSemaphoreFromHandle(names[0], oshandle.New(oshandle.OpaqueFD, fd))
//
// Import consumes the handle: once the backend has been asked to bind it, the
// device releases the caller's descriptor exactly once, whether or not the
// bind succeeded. Validation failures leave the handle with the caller.
//
// # Ordering
//
// ServerSignalSemaphore enqueues every resource flush and layout transition
// before the signal, then flushes the context. ServerWaitSemaphore enqueues
// its barriers, flushes the context, then enqueues the wait. A consumer that
// waits on a semaphore therefore observes the producer's barriered state.
//
// # Concurrency
//
// A Device is safe for concurrent use. Batch creation and deletion hold the
// table lock for the whole batch. Wait, signal and import serialize on the
// individual object, so a concurrent delete never releases a primitive that
// is in use.
package device
