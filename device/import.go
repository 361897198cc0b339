package device

import (
	"go.uber.org/zap"

	"github.com/wippyai/extsync/errors"
	"github.com/wippyai/extsync/oshandle"
)

// ImportSemaphoreFromHandle binds the semaphore name to the primitive behind h.
//
// Validation failures (nil or unsupported handle, unknown name, semaphore
// already imported) return before the backend is involved and leave h with
// the caller. Otherwise h is consumed: it is released exactly once after the
// backend bind attempt, successful or not.
//
// The backend binds a fence instead of a semaphore when it reports
// FenceInterop.
func (d *Device) ImportSemaphoreFromHandle(name Name, h *oshandle.Handle) error {
	if err := checkHandle(errors.PhaseImport, h); err != nil {
		return err
	}

	obj, err := d.lockSemaphore(errors.PhaseImport, name)
	if err != nil {
		return err
	}
	defer obj.mu.Unlock()

	if obj.state != StateUninitialized {
		return errors.AlreadyImported(errors.PhaseImport, "semaphore", uint32(name))
	}

	fd, ok := h.FD()
	if !ok {
		return releasedHandle(errors.PhaseImport, h)
	}
	var bindErr error
	if d.caps.FenceInterop {
		fence, err := d.ctx.CreateFenceFromHandle(fd)
		if err == nil {
			obj.fence, obj.binding = fence, bindingFence
		}
		bindErr = err
	} else {
		sem, err := d.ctx.CreateSemaphoreFromHandle(fd)
		if err == nil {
			obj.sem, obj.binding = sem, bindingSemaphore
		}
		bindErr = err
	}
	d.releaseHandle(h)

	if bindErr != nil {
		d.log.Warn("semaphore import failed",
			zap.Uint32("name", uint32(name)),
			zap.Int("fd", fd),
			zap.Error(bindErr))
		return errors.New(errors.PhaseImport, errors.KindAllocation).
			Object("semaphore", uint32(name)).
			Cause(bindErr).
			Detail("backend could not bind handle").
			Build()
	}

	obj.state = StateImported
	d.log.Debug("semaphore imported",
		zap.Uint32("name", uint32(name)),
		zap.Int("fd", fd),
		zap.Bool("fence", obj.binding == bindingFence))
	return nil
}

// ImportMemoryFromHandle binds the memory object name to size bytes of the
// allocation behind h. Handle ownership follows ImportSemaphoreFromHandle.
func (d *Device) ImportMemoryFromHandle(name Name, size uint64, h *oshandle.Handle) error {
	if err := checkHandle(errors.PhaseImport, h); err != nil {
		return err
	}

	obj, err := d.lockMemoryObject(errors.PhaseImport, name)
	if err != nil {
		return err
	}
	defer obj.mu.Unlock()

	if obj.state != StateUninitialized {
		return errors.AlreadyImported(errors.PhaseImport, "memory object", uint32(name))
	}

	fd, ok := h.FD()
	if !ok {
		return releasedHandle(errors.PhaseImport, h)
	}
	mem, bindErr := d.ctx.ImportMemoryFromHandle(fd, size)
	d.releaseHandle(h)

	if bindErr != nil {
		d.log.Warn("memory import failed",
			zap.Uint32("name", uint32(name)),
			zap.Int("fd", fd),
			zap.Uint64("size", size),
			zap.Error(bindErr))
		return errors.New(errors.PhaseImport, errors.KindAllocation).
			Object("memory object", uint32(name)).
			Cause(bindErr).
			Detail("backend could not bind %d bytes", size).
			Build()
	}

	obj.mem = mem
	obj.size = size
	obj.state = StateImported
	d.log.Debug("memory object imported",
		zap.Uint32("name", uint32(name)),
		zap.Int("fd", fd),
		zap.Uint64("size", size))
	return nil
}

func checkHandle(phase errors.Phase, h *oshandle.Handle) error {
	if h == nil {
		return errors.New(phase, errors.KindInvalidHandleKind).Detail("nil handle").Build()
	}
	if h.Consumed() {
		return releasedHandle(phase, h)
	}
	if !h.Kind().Supported() {
		return errors.InvalidHandleKind(phase, h.Kind())
	}
	return nil
}

func releasedHandle(phase errors.Phase, h *oshandle.Handle) error {
	return errors.New(phase, errors.KindInvalidHandleKind).Detail("handle %s was already released", h).Build()
}

func (d *Device) releaseHandle(h *oshandle.Handle) {
	if _, err := h.Release(); err != nil {
		d.log.Warn("release OS handle", zap.Stringer("handle", h), zap.Error(err))
	}
}
