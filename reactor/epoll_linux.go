//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// epoll backend speaking the kevent change-list model. epoll keys interest by
// descriptor, so per-filter state is kept here and folded into one kernel
// registration per fd.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
	"github.com/momentics/hioload-netio/layout"
)

const epollName = "epoll"

var errReused = errors.New("reactor: descriptor closed since registration")

type filterState struct {
	active  bool
	oneshot bool
	edge    bool
	udata   uint64
	gen     uint64
}

type registration struct {
	read     filterState
	write    filterState
	inKernel bool
	armed    uint32
}

// kernelEvents folds filter interest into one epoll mask. EPOLLONESHOT is set
// only when every active filter is one-shot.
func (r *registration) kernelEvents() uint32 {
	var ev uint32
	oneshot := true
	for _, fs := range []*filterState{&r.read, &r.write} {
		if !fs.active {
			continue
		}
		oneshot = oneshot && fs.oneshot
		if fs.edge {
			ev |= unix.EPOLLET
		}
	}
	if r.read.active {
		ev |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if r.write.active {
		ev |= unix.EPOLLOUT
	}
	if ev&(unix.EPOLLIN|unix.EPOLLOUT) == 0 {
		return 0
	}
	if oneshot {
		ev |= unix.EPOLLONESHOT
	}
	return ev
}

// fired is a translated record that did not fit the caller's event list.
type fired struct {
	fd     int
	filter int16
	flags  uint16
	udata  uint64
	gen    uint64
}

type epollBackend struct {
	mu      sync.Mutex
	epfd    int
	closed  bool
	t       *layout.Table
	regs    map[int]*registration
	buf     []unix.EpollEvent
	pending *queue.Queue
	nextGen uint64

	now       func() time.Time
	epollWait func(epfd int, events []unix.EpollEvent, msec int) (int, error)
}

func newBackend() (Backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.NewError(api.ErrCodeExhausted, api.ErrnoOf(err), "epoll_create1", err)
	}
	return newEpoll(epfd), nil
}

func newEpoll(epfd int) *epollBackend {
	t := layout.Get()
	return &epollBackend{
		epfd:      epfd,
		t:         &t,
		regs:      make(map[int]*registration),
		pending:   queue.New(),
		now:       time.Now,
		epollWait: unix.EpollWait,
	}
}

func (e *epollBackend) Handle() int  { return e.epfd }
func (e *epollBackend) Name() string { return epollName }

func (e *epollBackend) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return api.ErrQueueClosed
	}
	e.closed = true
	e.regs = nil
	return unix.Close(e.epfd)
}

func (e *epollBackend) Wait(changes, events layout.Records, timeoutMs int) (n int, err error) {
	defer func() { observeWait(epollName, n, err) }()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, api.ErrQueueClosed
	}
	out := 0
	for i := 0; i < changes.Len(); i++ {
		cerr := e.apply(changes, i)
		if cerr == nil {
			continue
		}
		control.Metrics().ChangeErrors.WithLabelValues(epollName).Inc()
		if out >= events.Len() {
			e.mu.Unlock()
			return 0, fmt.Errorf("reactor: change %d (fd %d): %w", i, changes.Fd(i), cerr)
		}
		events.Set(out, changes.Fd(i), changes.Filter(i), changes.Flags(i)|e.t.EvError, changes.Udata(i))
		events.SetData(out, int64(api.ErrnoOf(cerr)))
		out++
	}
	if out > 0 || events.Len() == 0 {
		e.mu.Unlock()
		return out, nil
	}
	if out = e.drainPending(events); out > 0 {
		e.mu.Unlock()
		return out, nil
	}
	if cap(e.buf) < events.Len() {
		e.buf = make([]unix.EpollEvent, events.Len())
	}
	buf := e.buf[:events.Len()]
	e.mu.Unlock()

	got, err := retryWait(epollName, e.now, timeoutMs, func(budget time.Duration, _ bool) (int, error) {
		return e.epollWait(e.epfd, buf, millis(budget))
	})
	if err != nil {
		return 0, api.NewError(api.ErrCodeOS, api.ErrnoOf(err), "epoll_wait", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.translate(buf[:got], events), nil
}

// apply performs change i against the registration table and the kernel.
func (e *epollBackend) apply(changes layout.Records, i int) error {
	fd := changes.Fd(i)
	filter := changes.Filter(i)
	flags := changes.Flags(i)
	if fd < 0 {
		return unix.EBADF
	}
	if filter != e.t.EvfiltRead && filter != e.t.EvfiltWrite {
		return unix.EINVAL
	}

	reg := e.regs[fd]
	switch {
	case flags&e.t.EvDelete != 0:
		if reg == nil {
			return unix.ENOENT
		}
		fs := reg.filter(filter, e.t)
		if !fs.active {
			return unix.ENOENT
		}
		old := *fs
		*fs = filterState{}
		if err := e.sync(fd, reg); err != nil {
			if errors.Is(err, errReused) {
				// The interest belonged to a descriptor that is gone.
				delete(e.regs, fd)
				return unix.ENOENT
			}
			*fs = old
			return err
		}
		if !reg.inKernel {
			delete(e.regs, fd)
		}
		return nil

	case flags&e.t.EvAdd != 0:
		if reg == nil {
			reg = &registration{}
			e.regs[fd] = reg
		}
		fs := reg.filter(filter, e.t)
		old := *fs
		e.nextGen++
		*fs = filterState{
			active:  true,
			oneshot: flags&e.t.EvOneshot != 0,
			edge:    flags&e.t.EvClear != 0,
			udata:   changes.Udata(i),
			gen:     e.nextGen,
		}
		err := e.sync(fd, reg)
		if errors.Is(err, errReused) {
			// A new descriptor under a recycled number starts with only
			// the interest it is being given now.
			fresh := *fs
			*reg = registration{}
			*reg.filter(filter, e.t) = fresh
			fs = reg.filter(filter, e.t)
			old = filterState{}
			err = e.sync(fd, reg)
		}
		if err != nil {
			*fs = old
			if !reg.inKernel && !reg.read.active && !reg.write.active {
				delete(e.regs, fd)
			}
			return err
		}
		return nil
	}
	return unix.EINVAL
}

func (r *registration) filter(f int16, t *layout.Table) *filterState {
	if f == t.EvfiltRead {
		return &r.read
	}
	return &r.write
}

// sync pushes the folded interest of reg to the kernel. A modify that finds
// no kernel entry means the descriptor was closed, possibly reused, and
// returns errReused so the caller can discard the old interest.
func (e *epollBackend) sync(fd int, reg *registration) error {
	want := reg.kernelEvents()
	if want == 0 {
		if reg.inKernel {
			err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil)
			if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
				return err
			}
		}
		reg.inKernel = false
		reg.armed = 0
		return nil
	}

	ev := unix.EpollEvent{Events: want, Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if reg.inKernel {
		op = unix.EPOLL_CTL_MOD
	}
	err := unix.EpollCtl(e.epfd, op, fd, &ev)
	switch {
	case op == unix.EPOLL_CTL_MOD && errors.Is(err, unix.ENOENT):
		// The kernel dropped the entry when the descriptor was closed;
		// the number now names a different file.
		reg.inKernel = false
		reg.armed = 0
		return errReused
	case op == unix.EPOLL_CTL_ADD && errors.Is(err, unix.EEXIST):
		err = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	if err != nil {
		return err
	}
	reg.inKernel = true
	reg.armed = want
	return nil
}

// translate turns kernel events into per-filter records, consumes one-shot
// interest and re-arms what is left. Records beyond the caller's capacity are
// queued for the next call.
func (e *epollBackend) translate(raw []unix.EpollEvent, events layout.Records) int {
	out := 0
	emit := func(f fired) {
		if out < events.Len() {
			e.write(events, out, f)
			out++
			return
		}
		e.pending.Add(f)
	}

	for k := range raw {
		fd := int(raw[k].Fd)
		mask := raw[k].Events
		reg := e.regs[fd]
		if reg == nil {
			continue
		}
		// The pending socket error is left for the caller's SO_ERROR
		// post-check; reading it here would clear it.
		consumed := false

		if reg.read.active && mask&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			var flags uint16
			if mask&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				flags |= e.t.EvEOF
			}
			emit(e.fire(fd, e.t.EvfiltRead, flags, &reg.read))
			consumed = consumed || reg.read.oneshot
			if reg.read.oneshot {
				reg.read.active = false
			}
		}
		if reg.write.active && mask&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			var flags uint16
			if mask&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				flags |= e.t.EvEOF
			}
			emit(e.fire(fd, e.t.EvfiltWrite, flags, &reg.write))
			consumed = consumed || reg.write.oneshot
			if reg.write.oneshot {
				reg.write.active = false
			}
		}

		// A kernel one-shot registration is disarmed now; anything still
		// active must be re-armed. A fully consumed one stays disarmed.
		if (consumed || reg.armed&unix.EPOLLONESHOT != 0) && reg.kernelEvents() != 0 {
			if err := e.sync(fd, reg); err != nil {
				l := logger.Named("reactor")
				l.Warn().Err(err).Int("fd", fd).Msg("epoll re-arm failed")
			}
		}
	}
	return out
}

func (e *epollBackend) fire(fd int, filter int16, flags uint16, fs *filterState) fired {
	if fs.oneshot {
		flags |= e.t.EvOneshot
	}
	if fs.edge {
		flags |= e.t.EvClear
	}
	return fired{fd: fd, filter: filter, flags: flags, udata: fs.udata, gen: fs.gen}
}

func (e *epollBackend) write(events layout.Records, i int, f fired) {
	events.Set(i, f.fd, f.filter, f.flags, f.udata)
}

// drainPending delivers queued records whose registration was not replaced
// or deleted since they fired.
func (e *epollBackend) drainPending(events layout.Records) int {
	out := 0
	for e.pending.Length() > 0 && out < events.Len() {
		f := e.pending.Remove().(fired)
		reg := e.regs[f.fd]
		if reg == nil || reg.filter(f.filter, e.t).gen != f.gen {
			continue
		}
		e.write(events, out, f)
		out++
	}
	return out
}

// Pending reports the number of fired records waiting for a later call.
func (e *epollBackend) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.Length()
}
