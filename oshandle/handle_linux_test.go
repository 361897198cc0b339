//go:build linux

package oshandle

import (
	"testing"

	"github.com/wippyai/extsync/internal/fdtest"
)

func TestHandle_ReleaseOnce(t *testing.T) {
	fd := fdtest.Eventfd(t)
	h := New(OpaqueFD, fd)

	if !Valid(fd) {
		t.Fatal("fresh eventfd should be valid")
	}
	if got, ok := h.FD(); !ok || got != fd {
		t.Fatalf("FD() = (%d, %v), want (%d, true)", got, ok, fd)
	}

	released, err := h.Release()
	if err != nil || !released {
		t.Fatalf("first Release = (%v, %v), want (true, nil)", released, err)
	}
	if Valid(fd) {
		t.Fatal("descriptor still open after Release")
	}

	released, err = h.Release()
	if err != nil || released {
		t.Fatalf("second Release = (%v, %v), want (false, nil)", released, err)
	}
	if !h.Consumed() {
		t.Fatal("Consumed() = false after Release")
	}
}

func TestHandle_FDAfterRelease(t *testing.T) {
	h := New(OpaqueFD, fdtest.Eventfd(t))
	if _, err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if fd, ok := h.FD(); ok || fd != -1 {
		t.Fatalf("FD() on a released handle = (%d, %v), want (-1, false)", fd, ok)
	}
}

func TestHandle_NoLeakAcrossCycles(t *testing.T) {
	baseline := fdtest.Count(t)
	for range 64 {
		h := New(OpaqueFD, fdtest.Eventfd(t))
		if _, err := h.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	if got := fdtest.Count(t); got != baseline {
		t.Fatalf("descriptor count = %d, want baseline %d", got, baseline)
	}
}

func TestValid_Negative(t *testing.T) {
	if Valid(-1) {
		t.Fatal("Valid(-1) = true")
	}
}
