package recorder

import (
	"fmt"

	"github.com/wippyai/extsync/backend"
)

type resource struct {
	kind backend.ResourceKind
	id   uint32
}

func (r resource) ResourceKind() backend.ResourceKind { return r.kind }
func (r resource) ID() uint32                         { return r.id }

// Buffer returns a buffer resource with the given id.
func Buffer(id uint32) backend.Resource {
	return resource{kind: backend.Buffer, id: id}
}

// Texture returns a texture resource with the given id.
func Texture(id uint32) backend.Resource {
	return resource{kind: backend.Texture, id: id}
}

// ResourceLabel formats r the way the journal names it, e.g. "texture:4".
func ResourceLabel(r backend.Resource) string {
	return fmt.Sprintf("%s:%d", r.ResourceKind(), r.ID())
}
