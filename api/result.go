// Package api
// Author: momentics@gmail.com
//
// Normalized I/O result vocabulary shared by the socket driver and the facade.

package api

import (
	"errors"
	"strconv"
	"syscall"
)

// Result is the value every send/recv/peek returns. Non-negative values are
// byte counts; negative values are drawn from the closed set below.
type Result int

const (
	// ResultPeerDisconnect reports an orderly shutdown by the remote end.
	ResultPeerDisconnect Result = -1
	// ResultIOError reports any other failure. The OS error code travels on
	// the side channel, never inside the result.
	ResultIOError Result = -2
	// ResultRetry reports would-block: wait for readiness and try again.
	ResultRetry Result = -3
)

// Bytes returns the transferred byte count and whether r is a byte count.
func (r Result) Bytes() (int, bool) {
	if r >= 0 {
		return int(r), true
	}
	return 0, false
}

// IsRetry reports whether the caller should wait for readiness.
func (r Result) IsRetry() bool { return r == ResultRetry }

// IsDisconnect reports whether the peer closed the connection.
func (r Result) IsDisconnect() bool { return r == ResultPeerDisconnect }

func (r Result) String() string {
	switch r {
	case ResultPeerDisconnect:
		return "peer-disconnect"
	case ResultIOError:
		return "io-error"
	case ResultRetry:
		return "retry"
	}
	if r >= 0 {
		return strconv.Itoa(int(r)) + "B"
	}
	return "result(" + strconv.Itoa(int(r)) + ")"
}

// Label is a bounded metric label for r.
func (r Result) Label() string {
	if r >= 0 {
		return "bytes"
	}
	return r.String()
}

func errnoFromSyscall(err error) int {
	var en syscall.Errno
	if errors.As(err, &en) {
		return int(en)
	}
	return 0
}
