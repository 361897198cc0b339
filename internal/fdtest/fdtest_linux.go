//go:build linux

// Package fdtest creates real descriptors for tests and counts the ones the
// process holds open.
package fdtest

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

// Eventfd returns a fresh close-on-exec eventfd. The caller owns it.
func Eventfd(t testing.TB) int {
	t.Helper()
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		t.Fatalf("eventfd: %v", err)
	}
	return fd
}

// Count returns the number of descriptors open in this process.
func Count(t testing.TB) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Fatalf("read /proc/self/fd: %v", err)
	}
	// ReadDir holds one descriptor of its own while listing.
	return len(entries) - 1
}

// Close closes fd if it is still open, for cleanup after failed imports.
func Close(fd int) {
	_ = unix.Close(fd)
}
