// Package extsync implements GPU semaphore and memory objects imported from
// operating-system handles.
//
// An external API (another process, or a Vulkan device) exports a semaphore
// or a block of memory as a file descriptor. extsync gives the object a small
// integer name, takes ownership of the descriptor on import, and orders
// cross-API waits and signals against resource flushes and image layout
// transitions.
//
// # Architecture Overview
//
//	extsync/
//	├── device/          Semaphore and memory object lifecycle, import, barriers
//	├── handle/          Name tables with block allocation and observers
//	├── oshandle/        Move-only OS descriptor ownership
//	├── backend/         Interface to the GPU driver context
//	│   └── recorder/    Journaling backend used by tests and the CLI
//	├── wasmhost/        wazero host module exposing the device to guests
//	├── errors/          Structured error types
//	└── cmd/extsync/     Scenario runner, journal dump and TUI
//
// # Quick Start
//
// Share a semaphore exported by another API:
//
//	dev := device.New(ctx, nil)
//	defer dev.Close()
//
//	names, err := dev.CreateSemaphores(1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := dev.ImportSemaphoreFromHandle(names[0], oshandle.New(oshandle.OpaqueFD, fd)); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Make texture readable by shaders, then let the other API proceed.
//	err = dev.ServerSignalSemaphore(names[0], nil,
//	    []backend.Resource{texture},
//	    []device.Layout{device.LayoutShaderReadOnly})
//
// Import transfers ownership: the descriptor is closed by extsync whether or
// not the backend accepts it, and must not be used by the caller afterwards.
//
// # Error Handling
//
// All errors are *errors.Error values carrying a Phase and a Kind:
//
//	if errors.HasKind(err, errors.KindNotImported) {
//	    // import before waiting
//	}
//
// # Logging
//
// Packages log through zap and are silent by default. Install a logger with
// device.SetLogger or per device through device.Config.
package extsync
