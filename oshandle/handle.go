// Package oshandle models OS-level handles that cross an API boundary by
// ownership transfer.
//
// A Handle is move-only: whoever holds the *Handle owns the descriptor, and
// Release gives it back to the OS exactly once. Borrowing the descriptor after
// release reports failure instead of returning a stale number.
package oshandle

import (
	"fmt"
	"sync/atomic"
)

// Kind declares what an OS handle refers to.
type Kind uint32

const (
	OpaqueFD       Kind = 0x9586
	OpaqueWin32    Kind = 0x9587
	OpaqueWin32KMT Kind = 0x9588
	D3D12Tilepool  Kind = 0x9589
	D3D12Resource  Kind = 0x958A
	D3D11Image     Kind = 0x958B
	D3D11ImageKMT  Kind = 0x958C
	D3D12Fence     Kind = 0x9594
)

var kindNames = map[Kind]string{
	OpaqueFD:       "opaque-fd",
	OpaqueWin32:    "opaque-win32",
	OpaqueWin32KMT: "opaque-win32-kmt",
	D3D12Tilepool:  "d3d12-tilepool",
	D3D12Resource:  "d3d12-resource",
	D3D11Image:     "d3d11-image",
	D3D11ImageKMT:  "d3d11-image-kmt",
	D3D12Fence:     "d3d12-fence",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%#x)", uint32(k))
}

// Supported reports whether handles of this kind can be imported.
// Only process-local file descriptors are.
func (k Kind) Supported() bool {
	return k == OpaqueFD
}

// Handle owns one OS descriptor until Release.
type Handle struct {
	fd       int
	kind     Kind
	consumed atomic.Bool
}

// New takes ownership of fd.
func New(kind Kind, fd int) *Handle {
	return &Handle{fd: fd, kind: kind}
}

// Kind returns the declared handle kind.
func (h *Handle) Kind() Kind {
	return h.kind
}

// FD borrows the descriptor. The handle keeps ownership. It returns false
// once the handle has been released.
func (h *Handle) FD() (int, bool) {
	if h.consumed.Load() {
		return -1, false
	}
	return h.fd, true
}

// Consumed reports whether Release has been called.
func (h *Handle) Consumed() bool {
	return h.consumed.Load()
}

// Release gives the descriptor back to the OS. Only the first call has an
// effect; it reports whether this call performed the release.
func (h *Handle) Release() (bool, error) {
	if !h.consumed.CompareAndSwap(false, true) {
		return false, nil
	}
	return true, closeFD(h.fd)
}

func (h *Handle) String() string {
	state := "owned"
	if h.consumed.Load() {
		state = "released"
	}
	return fmt.Sprintf("%s:%d(%s)", h.kind, h.fd, state)
}
