//go:build !linux && !darwin
// +build !linux,!darwin

// File: pool/native_other.go
// Author: momentics <momentics@gmail.com>
//
// Heap-backed regions for platforms without a reactor backend. The region map
// keeps each slice reachable, and the Go heap does not move objects.

package pool

func mapMemory(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapMemory([]byte) error { return nil }
