package backend

import "fmt"

// ResourceKind distinguishes buffers from images.
type ResourceKind uint8

const (
	Buffer ResourceKind = iota + 1
	Texture
)

func (k ResourceKind) String() string {
	switch k {
	case Buffer:
		return "buffer"
	case Texture:
		return "texture"
	default:
		return fmt.Sprintf("resource-kind(%d)", uint8(k))
	}
}

// Resource is a buffer or image known to the backend.
type Resource interface {
	ResourceKind() ResourceKind
	ID() uint32
}

// Layout is the backend's internal image layout.
type Layout uint8

const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
)

var layoutNames = [...]string{
	LayoutUndefined:              "undefined",
	LayoutGeneral:                "general",
	LayoutColorAttachment:        "color-attachment",
	LayoutDepthStencilAttachment: "depth-stencil-attachment",
	LayoutDepthStencilReadOnly:   "depth-stencil-read-only",
	LayoutShaderReadOnly:         "shader-read-only",
	LayoutTransferSrc:            "transfer-src",
	LayoutTransferDst:            "transfer-dst",
}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("layout(%d)", uint8(l))
}
