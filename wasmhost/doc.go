// Package wasmhost exposes a device to WebAssembly guests as a wazero host
// module.
//
// The module (default name "ext_semaphore") exports core-wasm functions that
// take only integers. Names, resource ids and layouts travel through guest
// linear memory as little-endian u32 arrays. Every function returns a Status.
//
//	(import "ext_semaphore" "create_semaphores"   (func (param i32 i32) (result i32)))
//	(import "ext_semaphore" "delete_semaphores"   (func (param i32 i32) (result i32)))
//	(import "ext_semaphore" "is_semaphore"        (func (param i32) (result i32)))
//	(import "ext_semaphore" "import_semaphore_handle" (func (param i32 i32 i32) (result i32)))
//	(import "ext_semaphore" "wait_semaphore"      (func (param i32 i32 i32 i32 i32 i32) (result i32)))
//	(import "ext_semaphore" "signal_semaphore"    (func (param i32 i32 i32 i32 i32 i32) (result i32)))
//	(import "ext_semaphore" "create_memory_objects" (func (param i32 i32) (result i32)))
//	(import "ext_semaphore" "delete_memory_objects" (func (param i32 i32) (result i32)))
//	(import "ext_semaphore" "is_memory_object"    (func (param i32) (result i32)))
//	(import "ext_semaphore" "import_memory_handle" (func (param i32 i64 i32 i32) (result i32)))
//
// wait_semaphore and signal_semaphore take (semaphore, buffer count, buffer
// ids, texture count, texture ids, layouts). Resource id 0 means none and is
// skipped. Other ids are resolved through Config.Resolve.
//
// Guests never see descriptors. The embedder moves a handle into a Handles
// table with Transfer and gives the guest the returned token; import_*_handle
// take (name, [size,] kind, token). Unknown tokens fail without closing
// anything, and a handle that an import rejects stays under its token.
package wasmhost
