package device

import (
	"fmt"

	"github.com/wippyai/extsync/backend"
)

// Layout is an image layout as named by API callers.
type Layout uint32

const (
	LayoutGeneral                Layout = 0x958D
	LayoutColorAttachment        Layout = 0x958E
	LayoutDepthStencilAttachment Layout = 0x958F
	LayoutDepthStencilReadOnly   Layout = 0x9590
	LayoutShaderReadOnly         Layout = 0x9591
	LayoutTransferSrc            Layout = 0x9592
	LayoutTransferDst            Layout = 0x9593
)

// backendLayouts is total over the public layouts.
var backendLayouts = map[Layout]backend.Layout{
	LayoutGeneral:                backend.LayoutGeneral,
	LayoutColorAttachment:        backend.LayoutColorAttachment,
	LayoutDepthStencilAttachment: backend.LayoutDepthStencilAttachment,
	LayoutDepthStencilReadOnly:   backend.LayoutDepthStencilReadOnly,
	LayoutShaderReadOnly:         backend.LayoutShaderReadOnly,
	LayoutTransferSrc:            backend.LayoutTransferSrc,
	LayoutTransferDst:            backend.LayoutTransferDst,
}

// Valid reports whether l is one of the public layouts.
func (l Layout) Valid() bool {
	_, ok := backendLayouts[l]
	return ok
}

func (l Layout) String() string {
	if bl, ok := backendLayouts[l]; ok {
		return bl.String()
	}
	return fmt.Sprintf("layout(%#x)", uint32(l))
}

// Backend maps l to the backend enumeration. Callers validate first, so an
// unmapped value is a programming error.
func (l Layout) Backend() backend.Layout {
	bl, ok := backendLayouts[l]
	if !ok {
		panic(fmt.Sprintf("device: unmapped layout %#x", uint32(l)))
	}
	return bl
}
