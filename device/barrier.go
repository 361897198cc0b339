package device

import (
	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/errors"
)

// ServerWaitSemaphore makes the command stream wait on the named semaphore.
//
// Every non-nil buffer is flushed, then every non-nil texture is flushed and,
// when the backend supports it, transitioned to the matching entry of
// srcLayouts. The context is flushed and only then is the wait enqueued, so
// the barriers are ordered ahead of it. Nil entries are skipped.
//
// The calling goroutine does not block; the wait is enqueued.
func (d *Device) ServerWaitSemaphore(name Name, buffers, textures []backend.Resource, srcLayouts []Layout) error {
	if err := checkBarriers(errors.PhaseWait, textures, srcLayouts); err != nil {
		return err
	}

	obj, err := d.lockSemaphore(errors.PhaseWait, name)
	if err != nil {
		return err
	}
	defer obj.mu.Unlock()

	if obj.state != StateImported {
		return errors.NotImported(errors.PhaseWait, "semaphore", uint32(name))
	}

	n := d.barriers(buffers, textures, srcLayouts)
	d.ctx.FlushContext()

	switch obj.binding {
	case bindingSemaphore:
		d.ctx.SemaphoreWait(obj.sem)
	case bindingFence:
		d.ctx.FenceServerSync(obj.fence)
	}

	d.log.Debug("server wait enqueued",
		zap.Uint32("name", uint32(name)),
		zap.Int("barriers", n))
	return nil
}

// ServerSignalSemaphore signals the named semaphore from the command stream.
//
// All resource flushes and layout transitions (to dstLayouts) are enqueued
// before the signal, and the context is flushed after it. A consumer that
// waits on the semaphore therefore sees the barriered state.
func (d *Device) ServerSignalSemaphore(name Name, buffers, textures []backend.Resource, dstLayouts []Layout) error {
	if err := checkBarriers(errors.PhaseSignal, textures, dstLayouts); err != nil {
		return err
	}

	obj, err := d.lockSemaphore(errors.PhaseSignal, name)
	if err != nil {
		return err
	}
	defer obj.mu.Unlock()

	if obj.state != StateImported {
		return errors.NotImported(errors.PhaseSignal, "semaphore", uint32(name))
	}

	n := d.barriers(buffers, textures, dstLayouts)

	switch obj.binding {
	case bindingSemaphore:
		d.ctx.SemaphoreSignal(obj.sem)
	case bindingFence:
		d.ctx.FenceServerSignal(obj.fence)
	}
	d.ctx.FlushContext()

	d.log.Debug("server signal enqueued",
		zap.Uint32("name", uint32(name)),
		zap.Int("barriers", n))
	return nil
}

// barriers enqueues flushes, and transitions where supported, in program
// order. It returns the number of resources touched.
func (d *Device) barriers(buffers, textures []backend.Resource, layouts []Layout) int {
	n := 0
	for _, buf := range buffers {
		if buf == nil {
			continue
		}
		d.ctx.FlushResource(buf)
		n++
	}

	for i, tex := range textures {
		if tex == nil {
			continue
		}
		d.ctx.FlushResource(tex)
		if d.caps.LayoutTransitions {
			d.ctx.TransitionResourceLayout(tex, layouts[i].Backend())
		}
		n++
	}
	return n
}

func checkBarriers(phase errors.Phase, textures []backend.Resource, layouts []Layout) error {
	if len(layouts) != len(textures) {
		return errors.New(phase, errors.KindInvalidCount).
			Value(len(layouts)).
			Detail("%d layouts for %d textures", len(layouts), len(textures)).
			Build()
	}
	for i, tex := range textures {
		if tex != nil && !layouts[i].Valid() {
			return errors.InvalidEnum(phase, layouts[i], "layout")
		}
	}
	return nil
}
