package device

import (
	"testing"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/backend/recorder"
	"github.com/wippyai/extsync/errors"
	"github.com/wippyai/extsync/oshandle"
)

func TestMemoryObjects_Lifecycle(t *testing.T) {
	dev, rec := newTestDevice(t, backend.Caps{})

	names, err := dev.CreateMemoryObjects(3)
	if err != nil {
		t.Fatalf("CreateMemoryObjects: %v", err)
	}
	for _, name := range names {
		if !dev.IsMemoryObject(name) {
			t.Errorf("IsMemoryObject(%d) = false", name)
		}
	}
	if dev.IsMemoryObject(0) {
		t.Error("IsMemoryObject(0) = true")
	}

	h := oshandle.New(oshandle.OpaqueFD, -1)
	if err := dev.ImportMemoryFromHandle(names[1], 1<<20, h); err != nil {
		t.Fatalf("ImportMemoryFromHandle: %v", err)
	}
	if !h.Consumed() {
		t.Error("memory import did not release the handle")
	}
	size, err := dev.MemoryObjectSize(names[1])
	if err != nil || size != 1<<20 {
		t.Errorf("MemoryObjectSize = (%d, %v), want (%d, nil)", size, err, 1<<20)
	}

	dev.DeleteMemoryObjects([]Name{0, names[1], 500})
	if dev.IsMemoryObject(names[1]) {
		t.Error("deleted memory object still live")
	}
	if rec.Live() != 0 {
		t.Errorf("Live = %d after delete, want 0", rec.Live())
	}
	if dev.MemoryObjectCount() != 2 {
		t.Errorf("MemoryObjectCount = %d, want 2", dev.MemoryObjectCount())
	}
}

func TestImportMemory_Validation(t *testing.T) {
	dev, _ := newTestDevice(t, backend.Caps{})
	names, _ := dev.CreateMemoryObjects(1)

	tests := []struct {
		name string
		mem  Name
		kind oshandle.Kind
		want errors.Kind
	}{
		{"unsupported kind checked first", 99, oshandle.D3D12Resource, errors.KindInvalidHandleKind},
		{"unknown name", 99, oshandle.OpaqueFD, errors.KindUnknownObject},
		{"zero name", 0, oshandle.OpaqueFD, errors.KindUnknownObject},
		{"win32 handle", names[0], oshandle.OpaqueWin32, errors.KindInvalidHandleKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := oshandle.New(tt.kind, -1)
			err := dev.ImportMemoryFromHandle(tt.mem, 64, h)
			if !errors.HasKind(err, tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
			if h.Consumed() {
				t.Error("rejected import consumed the handle")
			}
		})
	}

	if _, err := dev.MemoryObjectSize(names[0]); !errors.HasKind(err, errors.KindNotImported) {
		t.Errorf("size of unimported object: error = %v, want not_imported", err)
	}
}

func TestImportMemory_BackendFailure(t *testing.T) {
	dev := New(recorder.New(&recorder.Options{FailCreate: true, SkipFDCheck: true}), nil)
	defer dev.Close()

	names, _ := dev.CreateMemoryObjects(1)
	h := oshandle.New(oshandle.OpaqueFD, -1)
	if err := dev.ImportMemoryFromHandle(names[0], 64, h); !errors.HasKind(err, errors.KindAllocation) {
		t.Fatalf("error = %v, want allocation", err)
	}
	if !h.Consumed() {
		t.Error("handle must be released once the bind was attempted")
	}
}

func TestMemoryObjectParameter(t *testing.T) {
	dev, _ := newTestDevice(t, backend.Caps{})
	names, _ := dev.CreateMemoryObjects(1)
	mem := names[0]

	for _, pname := range []MemoryParam{DedicatedMemoryObject, ProtectedMemoryObject} {
		if v, err := dev.GetMemoryObjectParameter(mem, pname); err != nil || v != 0 {
			t.Errorf("default %s = (%d, %v), want (0, nil)", pname, v, err)
		}
		if err := dev.MemoryObjectParameter(mem, pname, 5); err != nil {
			t.Fatalf("set %s: %v", pname, err)
		}
		if v, _ := dev.GetMemoryObjectParameter(mem, pname); v != 1 {
			t.Errorf("%s = %d after set, want 1", pname, v)
		}
	}

	if err := dev.MemoryObjectParameter(mem, 0x1, 1); !errors.HasKind(err, errors.KindInvalidEnum) {
		t.Errorf("unknown pname: error = %v, want invalid_enum", err)
	}
	if _, err := dev.GetMemoryObjectParameter(mem, 0x1); !errors.HasKind(err, errors.KindInvalidEnum) {
		t.Errorf("unknown pname get: error = %v, want invalid_enum", err)
	}
	if err := dev.MemoryObjectParameter(42, DedicatedMemoryObject, 1); !errors.HasKind(err, errors.KindUnknownObject) {
		t.Errorf("unknown object: error = %v, want unknown_object", err)
	}

	if err := dev.ImportMemoryFromHandle(mem, 256, oshandle.New(oshandle.OpaqueFD, -1)); err != nil {
		t.Fatalf("ImportMemoryFromHandle: %v", err)
	}
	if err := dev.MemoryObjectParameter(mem, DedicatedMemoryObject, 0); !errors.HasKind(err, errors.KindImmutable) {
		t.Errorf("set after import: error = %v, want immutable", err)
	}
	if v, _ := dev.GetMemoryObjectParameter(mem, DedicatedMemoryObject); v != 1 {
		t.Errorf("dedicated = %d after rejected change, want 1", v)
	}

	h := oshandle.New(oshandle.OpaqueFD, -1)
	if err := dev.ImportMemoryFromHandle(mem, 256, h); !errors.HasKind(err, errors.KindAlreadyImported) {
		t.Errorf("second import: error = %v, want already_imported", err)
	}
}
