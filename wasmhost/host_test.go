package wasmhost

import (
	"context"
	"errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/backend/recorder"
	"github.com/wippyai/extsync/device"
	syncerrors "github.com/wippyai/extsync/errors"
	"github.com/wippyai/extsync/oshandle"
)

var (
	i32x2 = []api.ValueType{i32, i32}
	i32x6 = []api.ValueType{i32, i32, i32, i32, i32, i32}
	ret   = []api.ValueType{i32}
)

var testImports = []guestImport{
	{"create_semaphores", i32x2, ret},
	{"delete_semaphores", i32x2, ret},
	{"is_semaphore", []api.ValueType{i32}, ret},
	{"import_semaphore_handle", []api.ValueType{i32, i32, i32}, ret},
	{"wait_semaphore", i32x6, ret},
	{"signal_semaphore", i32x6, ret},
	{"create_memory_objects", i32x2, ret},
	{"delete_memory_objects", i32x2, ret},
	{"is_memory_object", []api.ValueType{i32}, ret},
	{"import_memory_handle", []api.ValueType{i32, i64, i32, i32}, ret},
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	dev     *device.Device
	rec     *recorder.Context
	handles *Handles
	guest   api.Module
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	rec := recorder.New(&recorder.Options{
		Caps:        backend.Caps{LayoutTransitions: true},
		SkipFDCheck: true,
	})
	dev := device.New(rec, nil)
	t.Cleanup(dev.Close)

	resolve := func(kind backend.ResourceKind, id uint32) backend.Resource {
		if id >= 1000 {
			return nil
		}
		if kind == backend.Buffer {
			return recorder.Buffer(id)
		}
		return recorder.Texture(id)
	}
	handles := NewHandles()
	t.Cleanup(func() { handles.ReleaseAll() })

	if _, err := Instantiate(ctx, r, dev, &Config{Resolve: resolve, Handles: handles}); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	guest, err := r.Instantiate(ctx, buildGuest(DefaultModuleName, testImports))
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	return &harness{t: t, ctx: ctx, dev: dev, rec: rec, handles: handles, guest: guest}
}

func (h *harness) call(name string, args ...uint64) Status {
	h.t.Helper()
	res, err := h.guest.ExportedFunction(name).Call(h.ctx, args...)
	if err != nil {
		h.t.Fatalf("%s: %v", name, err)
	}
	return Status(api.DecodeU32(res[0]))
}

// transfer hands the guest a placeholder descriptor the recorder accepts.
func (h *harness) transfer() uint32 {
	return h.handles.Transfer(oshandle.New(oshandle.OpaqueFD, -1))
}

func (h *harness) writeU32s(offset uint32, values ...uint32) {
	h.t.Helper()
	for i, v := range values {
		if !h.guest.Memory().WriteUint32Le(offset+uint32(4*i), v) {
			h.t.Fatalf("write guest memory at %d", offset)
		}
	}
}

func (h *harness) readU32(offset uint32) uint32 {
	h.t.Helper()
	v, ok := h.guest.Memory().ReadUint32Le(offset)
	if !ok {
		h.t.Fatalf("read guest memory at %d", offset)
	}
	return v
}

func TestHost_SemaphoreLifecycle(t *testing.T) {
	h := newHarness(t)

	if st := h.call("create_semaphores", 3, 64); st != StatusOK {
		t.Fatalf("create_semaphores = %s", st)
	}
	for i := uint32(0); i < 3; i++ {
		if got := h.readU32(64 + 4*i); got != i+1 {
			t.Errorf("name[%d] = %d, want %d", i, got, i+1)
		}
	}
	if st := h.call("is_semaphore", 2); st != 1 {
		t.Fatalf("is_semaphore(2) = %d, want 1", st)
	}

	h.writeU32s(128, 2, 0, 77)
	if st := h.call("delete_semaphores", 3, 128); st != StatusOK {
		t.Fatalf("delete_semaphores = %s", st)
	}
	if st := h.call("is_semaphore", 2); st != 0 {
		t.Fatal("semaphore 2 survived delete")
	}
	if !h.dev.IsSemaphore(1) || !h.dev.IsSemaphore(3) {
		t.Fatal("delete removed the wrong names")
	}
}

func TestHost_Counts(t *testing.T) {
	h := newHarness(t)

	if st := h.call("create_semaphores", api.EncodeI32(-1), 64); st != StatusInvalidCount {
		t.Errorf("create_semaphores(-1) = %s, want invalid_count", st)
	}
	if st := h.call("delete_semaphores", api.EncodeI32(-5), 64); st != StatusInvalidCount {
		t.Errorf("delete_semaphores(-5) = %s, want invalid_count", st)
	}
	if st := h.call("create_semaphores", 0, 0); st != StatusOK {
		t.Errorf("create_semaphores(0) = %s, want ok", st)
	}
}

func TestHost_BadPointerCreatesNothing(t *testing.T) {
	h := newHarness(t)

	if st := h.call("create_semaphores", 2, 65535); st != StatusMemoryAccess {
		t.Fatalf("create_semaphores past memory end = %s, want memory_access", st)
	}
	if h.dev.SemaphoreCount() != 0 {
		t.Fatalf("SemaphoreCount = %d, want 0", h.dev.SemaphoreCount())
	}
}

func TestHost_ImportAndBarriers(t *testing.T) {
	h := newHarness(t)

	if st := h.call("create_semaphores", 1, 64); st != StatusOK {
		t.Fatalf("create_semaphores = %s", st)
	}
	win32 := h.handles.Transfer(oshandle.New(oshandle.OpaqueWin32, -1))
	if st := h.call("import_semaphore_handle", 1, uint64(oshandle.OpaqueWin32), uint64(win32)); st != StatusInvalidHandleKind {
		t.Fatalf("win32 import = %s, want invalid_handle_kind", st)
	}
	if _, ok := h.handles.Revoke(win32); !ok {
		t.Fatal("rejected handle was not kept under its token")
	}
	if st := h.call("signal_semaphore", 1, 0, 0, 0, 0, 0); st != StatusNotImported {
		t.Fatalf("signal before import = %s, want not_imported", st)
	}
	if st := h.call("import_semaphore_handle", 1, uint64(oshandle.OpaqueFD), uint64(h.transfer())); st != StatusOK {
		t.Fatalf("import_semaphore_handle = %s", st)
	}
	if st := h.call("import_semaphore_handle", 1, uint64(oshandle.OpaqueFD), uint64(h.transfer())); st != StatusAlreadyImported {
		t.Fatalf("second import = %s, want already_imported", st)
	}
	h.rec.Reset()

	h.writeU32s(256, 5, 0)
	h.writeU32s(288, 7)
	h.writeU32s(320, uint32(device.LayoutShaderReadOnly))
	if st := h.call("signal_semaphore", 1, 2, 256, 1, 288, 320); st != StatusOK {
		t.Fatalf("signal_semaphore = %s", st)
	}

	want := []recorder.Op{
		recorder.OpFlushResource,
		recorder.OpFlushResource,
		recorder.OpTransitionLayout,
		recorder.OpSemaphoreSignal,
		recorder.OpFlushContext,
	}
	got := h.rec.Ops()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}

	h.writeU32s(352, 0x1234)
	if st := h.call("wait_semaphore", 1, 0, 0, 1, 288, 352); st != StatusInvalidEnum {
		t.Fatalf("wait with bad layout = %s, want invalid_enum", st)
	}
	h.writeU32s(384, 4242)
	if st := h.call("wait_semaphore", 1, 1, 384, 0, 0, 0); st != StatusUnknownObject {
		t.Fatalf("wait with unresolvable buffer = %s, want unknown_object", st)
	}
	if st := h.call("wait_semaphore", 9, 0, 0, 0, 0, 0); st != StatusUnknownObject {
		t.Fatalf("wait on unknown semaphore = %s, want unknown_object", st)
	}
}

func TestHost_MemoryObjects(t *testing.T) {
	h := newHarness(t)

	if st := h.call("create_memory_objects", 1, 64); st != StatusOK {
		t.Fatalf("create_memory_objects = %s", st)
	}
	name := h.readU32(64)
	if st := h.call("is_memory_object", uint64(name)); st != 1 {
		t.Fatal("is_memory_object = 0 after create")
	}
	if st := h.call("import_memory_handle", uint64(name), 1<<33, uint64(oshandle.OpaqueFD), uint64(h.transfer())); st != StatusOK {
		t.Fatalf("import_memory_handle = %s", st)
	}
	size, err := h.dev.MemoryObjectSize(device.Name(name))
	if err != nil || size != 1<<33 {
		t.Fatalf("MemoryObjectSize = (%d, %v), want 64-bit size", size, err)
	}

	h.writeU32s(128, 0, name, 55)
	if st := h.call("delete_memory_objects", 3, 128); st != StatusOK {
		t.Fatalf("delete_memory_objects = %s", st)
	}
	if st := h.call("is_memory_object", uint64(name)); st != 0 {
		t.Fatal("memory object survived delete")
	}
	if h.rec.Live() != 0 {
		t.Fatalf("Live = %d after delete, want 0", h.rec.Live())
	}
	if st := h.call("delete_memory_objects", api.EncodeI32(-1), 128); st != StatusInvalidCount {
		t.Fatalf("delete_memory_objects(-1) = %s, want invalid_count", st)
	}
	if st := h.call("delete_memory_objects", 2, 65535); st != StatusMemoryAccess {
		t.Fatalf("delete_memory_objects past memory end = %s, want memory_access", st)
	}
}

func TestHost_UnknownToken(t *testing.T) {
	h := newHarness(t)
	if st := h.call("create_semaphores", 1, 64); st != StatusOK {
		t.Fatalf("create_semaphores = %s", st)
	}

	token := h.transfer()
	for _, bad := range []uint32{0, token + 1} {
		if st := h.call("import_semaphore_handle", 1, uint64(oshandle.OpaqueFD), uint64(bad)); st != StatusUnknownObject {
			t.Fatalf("import with token %d = %s, want unknown_object", bad, st)
		}
	}
	if h.handles.Len() != 1 {
		t.Fatalf("Handles.Len = %d, want 1", h.handles.Len())
	}
	if st, _ := h.dev.SemaphoreState(1); st != device.StateUninitialized {
		t.Fatalf("state = %s, want uninitialized", st)
	}
}

func TestHandles_Transfer(t *testing.T) {
	handles := NewHandles()
	if handles.Transfer(nil) != 0 {
		t.Fatal("Transfer(nil) issued a token")
	}

	a := handles.Transfer(oshandle.New(oshandle.OpaqueFD, -1))
	b := handles.Transfer(oshandle.New(oshandle.OpaqueFD, -1))
	if a == 0 || b == 0 || a == b {
		t.Fatalf("tokens = %d, %d, want distinct non-zero", a, b)
	}

	oh, ok := handles.Revoke(a)
	if !ok || oh.Consumed() {
		t.Fatalf("Revoke(%d) = (%v, %v)", a, oh, ok)
	}
	if _, ok := handles.Revoke(a); ok {
		t.Fatal("token revoked twice")
	}

	if err := handles.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}
	if handles.Len() != 0 {
		t.Fatalf("Len = %d after ReleaseAll", handles.Len())
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{syncerrors.InvalidCount(syncerrors.PhaseCreate, -1), StatusInvalidCount},
		{syncerrors.UnknownObject(syncerrors.PhaseWait, "semaphore", 1), StatusUnknownObject},
		{syncerrors.Immutable(syncerrors.PhaseParameter, "memory object", 1), StatusOther},
		{errors.New("plain"), StatusOther},
	}

	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
