package device

import (
	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/errors"
)

// TextureDesc describes immutable texture storage.
type TextureDesc struct {
	Format  uint32
	Levels  int
	Samples int
	Width   int
	Height  int
	Depth   int
}

// StorageRequest is handed to a StorageAllocator.
type StorageRequest struct {
	Target    backend.Resource
	Memory    backend.Memory
	Texture   *TextureDesc
	Offset    uint64
	Size      uint64
	Dedicated bool
	Protected bool
}

// StorageAllocator places buffer or texture storage inside imported memory.
type StorageAllocator interface {
	AllocateStorageFromMemoryObject(req StorageRequest) error
}

// BufferStorageMem backs buffer with size bytes of the memory object at offset.
func (d *Device) BufferStorageMem(buffer backend.Resource, size uint64, memory Name, offset uint64) error {
	return d.allocateStorage(StorageRequest{Target: buffer, Size: size, Offset: offset}, memory)
}

// TexStorageMem backs texture with storage described by desc, placed in the
// memory object at offset. The byte size is left to the allocator.
func (d *Device) TexStorageMem(texture backend.Resource, desc TextureDesc, memory Name, offset uint64) error {
	if desc.Levels < 1 || desc.Width < 1 || desc.Height < 1 || desc.Depth < 1 || desc.Samples < 0 {
		return errors.New(errors.PhaseStorage, errors.KindInvalidCount).
			Detail("invalid texture extent %dx%dx%d levels=%d samples=%d",
				desc.Width, desc.Height, desc.Depth, desc.Levels, desc.Samples).
			Build()
	}
	return d.allocateStorage(StorageRequest{Target: texture, Texture: &desc, Offset: offset}, memory)
}

func (d *Device) allocateStorage(req StorageRequest, memory Name) error {
	if d.storage == nil {
		return errors.Unsupported(errors.PhaseStorage, "no storage allocator configured")
	}
	if req.Target == nil {
		return errors.New(errors.PhaseStorage, errors.KindUnknownObject).Detail("nil storage target").Build()
	}

	obj, err := d.lockMemoryObject(errors.PhaseStorage, memory)
	if err != nil {
		return err
	}
	defer obj.mu.Unlock()

	if obj.state != StateImported {
		return errors.NotImported(errors.PhaseStorage, "memory object", uint32(memory))
	}

	end := req.Offset + req.Size
	if end < req.Offset || end > obj.size || req.Offset > obj.size {
		return errors.OutOfRange(errors.PhaseStorage, "memory object", uint32(memory), end, obj.size)
	}

	req.Memory = obj.mem
	req.Dedicated = obj.dedicated
	req.Protected = obj.protected
	if err := d.storage.AllocateStorageFromMemoryObject(req); err != nil {
		d.log.Warn("storage allocation failed",
			zap.Uint32("memory", uint32(memory)),
			zap.Uint64("offset", req.Offset),
			zap.Uint64("size", req.Size),
			zap.Error(err))
		return errors.AllocationFailed(errors.PhaseStorage, "storage from memory object", err)
	}
	return nil
}
