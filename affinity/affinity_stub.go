//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without thread affinity control.

package affinity

import "github.com/momentics/hioload-netio/api"

func setAffinityPlatform(cpuID int) error {
	return api.ErrNotSupported
}

// Current is not available on this platform.
func Current() ([]int, error) {
	return nil, api.ErrNotSupported
}
