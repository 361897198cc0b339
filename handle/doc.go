// Package handle provides the name table shared by a device's objects.
//
// A Table maps small positive integer names to values. Name 0 is reserved and
// never denotes a live value, so a zero name always looks up as absent.
//
// # Batches
//
// Batch operations hold the table lock once for the whole batch so that
// other goroutines sharing the table never observe a half-created or
// half-deleted batch:
//
//	table.Lock()
//	first := table.AllocateBlockLocked(uint32(n))
//	for i := range n {
//	    table.InsertLocked(first+handle.Name(i), newObject())
//	}
//	table.Unlock()
//
// Methods with the Locked suffix require the caller to hold the lock. The
// others acquire it themselves.
//
// # Observers
//
// Observers receive EventCreated and EventDropped notifications. Events
// produced inside a batch are delivered after Unlock, outside the lock, so an
// observer may safely look names up again.
package handle
