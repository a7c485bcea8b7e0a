//go:build linux || darwin
// +build linux darwin

// File: pool/native_unix.go
// Author: momentics <momentics@gmail.com>
//
// Anonymous private mappings. Mapped memory is zero-filled and never moves.

package pool

import "golang.org/x/sys/unix"

func mapMemory(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapMemory(mem []byte) error {
	return unix.Munmap(mem)
}
