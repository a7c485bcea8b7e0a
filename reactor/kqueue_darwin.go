//go:build darwin
// +build darwin

// File: reactor/kqueue_darwin.go
// Author: momentics <momentics@gmail.com>
//
// kqueue backend. Change and event lists are the caller's raw kevent arrays,
// handed to the kernel without copying.

package reactor

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/layout"
)

const kqueueName = "kqueue"

type kqueueBackend struct {
	kq     int
	closed atomic.Bool

	now    func() time.Time
	kevent func(kq int, changes, events []unix.Kevent_t, timeout *unix.Timespec) (int, error)
}

func newBackend() (Backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, api.NewError(api.ErrCodeExhausted, api.ErrnoOf(err), "kqueue", err)
	}
	unix.CloseOnExec(kq)
	return &kqueueBackend{kq: kq, now: time.Now, kevent: unix.Kevent}, nil
}

func (k *kqueueBackend) Handle() int  { return k.kq }
func (k *kqueueBackend) Name() string { return kqueueName }

func (k *kqueueBackend) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return api.ErrQueueClosed
	}
	return unix.Close(k.kq)
}

func keventSlice(r layout.Records) []unix.Kevent_t {
	if r.IsNil() {
		return nil
	}
	return unsafe.Slice((*unix.Kevent_t)(r.Pointer()), r.Len())
}

// Wait submits the change list on the first kevent call only; an interrupted
// call has already applied it, so retries pass no changes.
func (k *kqueueBackend) Wait(changes, events layout.Records, timeoutMs int) (n int, err error) {
	defer func() { observeWait(kqueueName, n, err) }()
	if k.closed.Load() {
		return 0, api.ErrQueueClosed
	}
	chg := keventSlice(changes)
	evs := keventSlice(events)

	n, err = retryWait(kqueueName, k.now, timeoutMs, func(budget time.Duration, first bool) (int, error) {
		c := chg
		if !first {
			c = nil
		}
		var ts *unix.Timespec
		if budget >= 0 {
			t := unix.NsecToTimespec(int64(budget))
			ts = &t
		}
		return k.kevent(k.kq, c, evs, ts)
	})
	if err != nil {
		return 0, api.NewError(api.ErrCodeOS, api.ErrnoOf(err), "kevent", err)
	}
	return n, nil
}
