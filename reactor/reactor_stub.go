//go:build !linux && !darwin
// +build !linux,!darwin

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>

package reactor

import "github.com/momentics/hioload-netio/api"

func newBackend() (Backend, error) {
	return nil, api.ErrNotSupported
}
