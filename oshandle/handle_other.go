//go:build !unix

package oshandle

// Imported handles on these platforms have no closable local duplicate.
func closeFD(int) error {
	return nil
}

// Valid reports whether fd is plausible. Descriptors cannot be probed here.
func Valid(fd int) bool {
	return fd >= 0
}
