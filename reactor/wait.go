//go:build linux || darwin
// +build linux darwin

// File: reactor/wait.go
// Author: momentics <momentics@gmail.com>
//
// Interrupt-safe timeout accounting shared by the kernel backends.

package reactor

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netio/control"
)

// waitStep performs one kernel wait. budget < 0 means wait indefinitely.
// first is true only for the initial attempt of a call.
type waitStep func(budget time.Duration, first bool) (int, error)

// retryWait runs step until it succeeds, fails with something other than
// EINTR, or the budget is spent. Elapsed time is read from now, which must be
// monotonic (time.Now carries a monotonic reading). An infinite budget is
// never decremented. Spending the budget while interrupted yields (0, nil).
func retryWait(backend string, now func() time.Time, timeoutMs int, step waitStep) (int, error) {
	if timeoutMs < 0 {
		for first := true; ; first = false {
			n, err := step(-1, first)
			if !errors.Is(err, unix.EINTR) {
				return n, err
			}
			control.Metrics().WaitInterrupts.WithLabelValues(backend).Inc()
		}
	}

	total := time.Duration(timeoutMs) * time.Millisecond
	start := now()
	budget := total
	for first := true; ; first = false {
		n, err := step(budget, first)
		if !errors.Is(err, unix.EINTR) {
			return n, err
		}
		control.Metrics().WaitInterrupts.WithLabelValues(backend).Inc()
		budget = total - now().Sub(start)
		if budget <= 0 {
			return 0, nil
		}
	}
}

// millis rounds budget up to whole milliseconds so a millisecond-resolution
// wait never ends before the budget.
func millis(budget time.Duration) int {
	if budget < 0 {
		return -1
	}
	ms := budget / time.Millisecond
	if budget%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
