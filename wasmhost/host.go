package wasmhost

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/device"
	"github.com/wippyai/extsync/errors"
	"github.com/wippyai/extsync/oshandle"
)

// DefaultModuleName is the import module guests link against.
const DefaultModuleName = "ext_semaphore"

// ResourceResolver maps a guest resource id to a backend resource. It
// returns nil for ids it does not know.
type ResourceResolver func(kind backend.ResourceKind, id uint32) backend.Resource

// Config holds configuration for the host module
type Config struct {
	Logger *zap.Logger

	// Resolve maps guest buffer and texture ids. Without it every non-zero
	// id is unknown.
	Resolve ResourceResolver

	// Handles holds the OS handles guests may import. Without it every
	// token is unknown.
	Handles *Handles

	// ModuleName overrides DefaultModuleName.
	ModuleName string
}

type funcDef struct {
	fn      api.GoModuleFunc
	name    string
	params  []api.ValueType
	results []api.ValueType
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// host binds one device to guest calls.
type host struct {
	dev     *device.Device
	resolve ResourceResolver
	handles *Handles
	log     *zap.Logger
}

// Instantiate registers the host module for dev in r. A nil cfg uses
// defaults. Guests must be instantiated after this call.
func Instantiate(ctx context.Context, r wazero.Runtime, dev *device.Device, cfg *Config) (api.Module, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	name := cfg.ModuleName
	if name == "" {
		name = DefaultModuleName
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h := &host{dev: dev, resolve: cfg.Resolve, handles: cfg.Handles, log: log.With(zap.String("module", name))}

	builder := r.NewHostModuleBuilder(name)
	for _, f := range h.funcs() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			WithName(f.name).
			Export(f.name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindUnsupported, err, "instantiate host module "+name)
	}
	return mod, nil
}

func (h *host) funcs() []funcDef {
	return []funcDef{
		{name: "create_semaphores", fn: h.createSemaphores, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: "delete_semaphores", fn: h.deleteSemaphores, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: "is_semaphore", fn: h.isSemaphore, params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		{name: "import_semaphore_handle", fn: h.importSemaphoreHandle, params: []api.ValueType{i32, i32, i32}, results: []api.ValueType{i32}},
		{name: "wait_semaphore", fn: h.waitSemaphore, params: []api.ValueType{i32, i32, i32, i32, i32, i32}, results: []api.ValueType{i32}},
		{name: "signal_semaphore", fn: h.signalSemaphore, params: []api.ValueType{i32, i32, i32, i32, i32, i32}, results: []api.ValueType{i32}},
		{name: "create_memory_objects", fn: h.createMemoryObjects, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: "delete_memory_objects", fn: h.deleteMemoryObjects, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: "is_memory_object", fn: h.isMemoryObject, params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		{name: "import_memory_handle", fn: h.importMemoryHandle, params: []api.ValueType{i32, i64, i32, i32}, results: []api.ValueType{i32}},
	}
}

func (h *host) finish(stack []uint64, op string, err error) {
	status := StatusOf(err)
	if err != nil {
		h.log.Debug("guest call failed",
			zap.String("op", op),
			zap.Stringer("status", status),
			zap.Error(err))
	}
	stack[0] = api.EncodeU32(uint32(status))
}

func (h *host) createSemaphores(_ context.Context, mod api.Module, stack []uint64) {
	h.finish(stack, "create_semaphores", h.create(mod, stack, h.dev.CreateSemaphores))
}

func (h *host) createMemoryObjects(_ context.Context, mod api.Module, stack []uint64) {
	h.finish(stack, "create_memory_objects", h.create(mod, stack, h.dev.CreateMemoryObjects))
}

// create checks the output array before creating anything, so a bad pointer
// never leaks names.
func (h *host) create(mod api.Module, stack []uint64, fn func(int) ([]device.Name, error)) error {
	n := api.DecodeI32(stack[0])
	out := api.DecodeU32(stack[1])
	if n < 0 {
		return errors.InvalidCount(errors.PhaseHost, int(n))
	}
	if _, err := readU32s(mod, out, n); err != nil {
		return err
	}

	names, err := fn(int(n))
	buf := make([]byte, 4*len(names))
	for i, name := range names {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(name))
	}
	if len(buf) > 0 && !mod.Memory().Write(out, buf) {
		return errors.MemoryAccess(errors.PhaseHost, out, uint32(len(buf)))
	}
	return err
}

func (h *host) deleteSemaphores(_ context.Context, mod api.Module, stack []uint64) {
	names, err := h.readNames(mod, stack)
	if err == nil {
		h.dev.DeleteSemaphores(names)
	}
	h.finish(stack, "delete_semaphores", err)
}

func (h *host) deleteMemoryObjects(_ context.Context, mod api.Module, stack []uint64) {
	names, err := h.readNames(mod, stack)
	if err == nil {
		h.dev.DeleteMemoryObjects(names)
	}
	h.finish(stack, "delete_memory_objects", err)
}

func (h *host) readNames(mod api.Module, stack []uint64) ([]device.Name, error) {
	n := api.DecodeI32(stack[0])
	if n < 0 {
		return nil, errors.InvalidCount(errors.PhaseHost, int(n))
	}
	ids, err := readU32s(mod, api.DecodeU32(stack[1]), n)
	if err != nil {
		return nil, err
	}
	names := make([]device.Name, len(ids))
	for i, id := range ids {
		names[i] = device.Name(id)
	}
	return names, nil
}

func (h *host) isSemaphore(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = boolResult(h.dev.IsSemaphore(device.Name(api.DecodeU32(stack[0]))))
}

func (h *host) isMemoryObject(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = boolResult(h.dev.IsMemoryObject(device.Name(api.DecodeU32(stack[0]))))
}

func (h *host) importSemaphoreHandle(_ context.Context, _ api.Module, stack []uint64) {
	name := device.Name(api.DecodeU32(stack[0]))
	kind := oshandle.Kind(api.DecodeU32(stack[1]))
	token := api.DecodeU32(stack[2])

	err := h.importHandle(kind, token, func(oh *oshandle.Handle) error {
		return h.dev.ImportSemaphoreFromHandle(name, oh)
	})
	h.finish(stack, "import_semaphore_handle", err)
}

func (h *host) importMemoryHandle(_ context.Context, _ api.Module, stack []uint64) {
	name := device.Name(api.DecodeU32(stack[0]))
	size := stack[1]
	kind := oshandle.Kind(api.DecodeU32(stack[2]))
	token := api.DecodeU32(stack[3])

	err := h.importHandle(kind, token, func(oh *oshandle.Handle) error {
		return h.dev.ImportMemoryFromHandle(name, size, oh)
	})
	h.finish(stack, "import_memory_handle", err)
}

// importHandle resolves a transfer token and runs fn with its handle. A
// handle that fn leaves unconsumed goes back under the same token.
func (h *host) importHandle(kind oshandle.Kind, token uint32, fn func(*oshandle.Handle) error) error {
	var oh *oshandle.Handle
	ok := false
	if h.handles != nil {
		oh, ok = h.handles.take(token)
	}
	if !ok {
		return errors.New(errors.PhaseHost, errors.KindUnknownObject).
			Object("handle", token).
			Detail("no handle was transferred under this token").
			Build()
	}

	var err error
	if oh.Kind() != kind {
		err = errors.New(errors.PhaseHost, errors.KindInvalidHandleKind).
			Value(kind).
			Detail("token %d holds a %s handle", token, oh.Kind()).
			Build()
	} else {
		err = fn(oh)
	}

	if !oh.Consumed() {
		h.handles.restore(token, oh)
	}
	return err
}

func (h *host) waitSemaphore(_ context.Context, mod api.Module, stack []uint64) {
	name, b, err := h.readBarriers(mod, stack)
	if err == nil {
		err = h.dev.ServerWaitSemaphore(name, b.buffers, b.textures, b.layouts)
	}
	h.finish(stack, "wait_semaphore", err)
}

func (h *host) signalSemaphore(_ context.Context, mod api.Module, stack []uint64) {
	name, b, err := h.readBarriers(mod, stack)
	if err == nil {
		err = h.dev.ServerSignalSemaphore(name, b.buffers, b.textures, b.layouts)
	}
	h.finish(stack, "signal_semaphore", err)
}

type barrierArgs struct {
	buffers  []backend.Resource
	textures []backend.Resource
	layouts  []device.Layout
}

func (h *host) readBarriers(mod api.Module, stack []uint64) (device.Name, barrierArgs, error) {
	var b barrierArgs
	name := device.Name(api.DecodeU32(stack[0]))
	nbuf, bufPtr := api.DecodeI32(stack[1]), api.DecodeU32(stack[2])
	ntex, texPtr := api.DecodeI32(stack[3]), api.DecodeU32(stack[4])
	layoutPtr := api.DecodeU32(stack[5])

	if nbuf < 0 {
		return name, b, errors.InvalidCount(errors.PhaseHost, int(nbuf))
	}
	if ntex < 0 {
		return name, b, errors.InvalidCount(errors.PhaseHost, int(ntex))
	}

	bufIDs, err := readU32s(mod, bufPtr, nbuf)
	if err != nil {
		return name, b, err
	}
	texIDs, err := readU32s(mod, texPtr, ntex)
	if err != nil {
		return name, b, err
	}
	layouts, err := readU32s(mod, layoutPtr, ntex)
	if err != nil {
		return name, b, err
	}

	if b.buffers, err = h.resources(backend.Buffer, bufIDs); err != nil {
		return name, b, err
	}
	if b.textures, err = h.resources(backend.Texture, texIDs); err != nil {
		return name, b, err
	}
	b.layouts = make([]device.Layout, len(layouts))
	for i, l := range layouts {
		b.layouts[i] = device.Layout(l)
	}
	return name, b, nil
}

func (h *host) resources(kind backend.ResourceKind, ids []uint32) ([]backend.Resource, error) {
	out := make([]backend.Resource, len(ids))
	for i, id := range ids {
		if id == 0 {
			continue
		}
		var r backend.Resource
		if h.resolve != nil {
			r = h.resolve(kind, id)
		}
		if r == nil {
			return nil, errors.New(errors.PhaseHost, errors.KindUnknownObject).
				Object(kind.String(), id).
				Detail("resource id is not known to the host").
				Build()
		}
		out[i] = r
	}
	return out, nil
}

// readU32s copies n little-endian u32 values from guest memory at ptr.
func readU32s(mod api.Module, ptr uint32, n int32) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	mem := mod.Memory()
	byteCount := uint64(n) * 4
	if mem == nil || byteCount > uint64(^uint32(0)) {
		return nil, errors.MemoryAccess(errors.PhaseHost, ptr, uint32(byteCount))
	}
	data, ok := mem.Read(ptr, uint32(byteCount))
	if !ok {
		return nil, errors.MemoryAccess(errors.PhaseHost, ptr, uint32(byteCount))
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return out, nil
}

func boolResult(v bool) uint64 {
	if v {
		return api.EncodeU32(1)
	}
	return api.EncodeU32(0)
}
