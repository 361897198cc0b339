//go:build unix

package oshandle

import "golang.org/x/sys/unix"

func closeFD(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}

// Valid reports whether fd refers to an open descriptor.
func Valid(fd int) bool {
	if fd < 0 {
		return false
	}
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}
