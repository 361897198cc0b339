//go:build !linux

package main

const exportableFDs = false

// openFD returns a placeholder descriptor; the recorder skips fd probing
// on these platforms.
func openFD() (int, error) {
	return -1, nil
}
