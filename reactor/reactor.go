// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness multiplexer contract.

package reactor

import (
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/layout"
)

// Backend owns one kernel-level event queue.
type Backend interface {
	// Handle returns the kernel queue descriptor.
	Handle() int

	// Name identifies the mechanism ("epoll", "kqueue").
	Name() string

	// Wait applies every record of changes, then blocks until at least one
	// event fires, events.Len() events fired, or timeoutMs elapsed. It returns
	// the number of records written to events. timeoutMs == 0 polls and
	// timeoutMs < 0 blocks indefinitely. A change that fails is written to
	// events with the error flag set and the errno in Data, and Wait returns
	// without blocking; when events has no room the call fails instead.
	Wait(changes, events layout.Records, timeoutMs int) (int, error)

	// Close releases the kernel queue. The handle is invalid afterwards.
	Close() error
}

// New creates the backend for the running platform.
func New() (Backend, error) {
	return newBackend()
}

func observeWait(backend string, n int, err error) {
	m := control.Metrics()
	switch {
	case err != nil:
		m.WaitCalls.WithLabelValues(backend, "error").Inc()
	case n == 0:
		m.WaitCalls.WithLabelValues(backend, "timeout").Inc()
	default:
		m.WaitCalls.WithLabelValues(backend, "events").Inc()
		m.FiredEvents.WithLabelValues(backend).Add(float64(n))
	}
}
