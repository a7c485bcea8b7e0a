//go:build linux
// +build linux

package reactor

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netio/layout"
	"github.com/momentics/hioload-netio/pool"
)

func records(t *testing.T, n int) layout.Records {
	t.Helper()
	addr, err := pool.Calloc(n, layout.SizeofEvent(), pool.TagRecords)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pool.Free(addr) })
	return layout.View(addr, n)
}

func socketPair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func newTestEpoll(t *testing.T) *epollBackend {
	t.Helper()
	b, err := newBackend()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b.(*epollBackend)
}

func TestEpollFoldsBothFilters(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()
	a, b := socketPair(t)
	if _, err := unix.Write(b, []byte("ping")); err != nil {
		t.Fatal(err)
	}

	changes := records(t, 2)
	changes.Set(0, a, tab.EvfiltRead, tab.EvAdd, 10)
	changes.Set(1, a, tab.EvfiltWrite, tab.EvAdd, 20)
	events := records(t, 4)

	n, err := e.Wait(changes, events, 1000)
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	got := map[int16]uint64{events.Filter(0): events.Udata(0), events.Filter(1): events.Udata(1)}
	if got[tab.EvfiltRead] != 10 || got[tab.EvfiltWrite] != 20 {
		t.Fatalf("udata by filter %v", got)
	}
	reg := e.regs[a]
	if reg.armed&(unix.EPOLLIN|unix.EPOLLOUT) != unix.EPOLLIN|unix.EPOLLOUT || reg.armed&unix.EPOLLONESHOT != 0 {
		t.Fatalf("kernel mask %#x", reg.armed)
	}
}

func TestEpollOverflowDeliveredNextCall(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()
	a, b := socketPair(t)
	if _, err := unix.Write(b, []byte("ping")); err != nil {
		t.Fatal(err)
	}

	changes := records(t, 2)
	changes.Set(0, a, tab.EvfiltRead, tab.EvAdd|tab.EvOneshot, 1)
	changes.Set(1, a, tab.EvfiltWrite, tab.EvAdd|tab.EvOneshot, 2)
	events := records(t, 1)

	n, err := e.Wait(changes, events, 1000)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	first := events.Filter(0)
	if e.Pending() != 1 {
		t.Fatalf("pending=%d, want 1", e.Pending())
	}

	n, err = e.Wait(layout.Records{}, events, 0)
	if err != nil || n != 1 {
		t.Fatalf("drain: n=%d err=%v", n, err)
	}
	if events.Filter(0) == first {
		t.Fatalf("same filter delivered twice: %d", first)
	}
	if e.Pending() != 0 {
		t.Fatalf("pending=%d after drain", e.Pending())
	}
}

func TestEpollDropsStaleOverflow(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()
	a, b := socketPair(t)
	if _, err := unix.Write(b, []byte("ping")); err != nil {
		t.Fatal(err)
	}

	changes := records(t, 2)
	changes.Set(0, a, tab.EvfiltRead, tab.EvAdd|tab.EvOneshot, 1)
	changes.Set(1, a, tab.EvfiltWrite, tab.EvAdd|tab.EvOneshot, 2)
	events := records(t, 1)
	if n, err := e.Wait(changes, events, 1000); err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	stale := tab.EvfiltWrite
	if events.Filter(0) == tab.EvfiltWrite {
		stale = tab.EvfiltRead
	}

	// Re-registering the pending filter replaces its queued record.
	changes.Set(0, a, stale, tab.EvAdd|tab.EvOneshot, 99)
	n, err := e.Wait(changes.Slice(0, 1), events, 1000)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if events.Udata(0) != 99 || events.Filter(0) != stale {
		t.Fatalf("got filter %d udata %d, want fresh record", events.Filter(0), events.Udata(0))
	}
}

func TestEpollChangeErrorWithoutRoomFails(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()
	changes := records(t, 1)
	changes.Set(0, 5000, tab.EvfiltRead, tab.EvDelete, 0)
	if _, err := e.Wait(changes, layout.Records{}, 0); err == nil {
		t.Fatal("expected failure with no room for an error record")
	}

	changes.Set(0, 3, 42, tab.EvAdd, 0)
	events := records(t, 1)
	n, err := e.Wait(changes, events, 0)
	if err != nil || n != 1 || events.Data(0) != int64(unix.EINVAL) {
		t.Fatalf("unknown filter: n=%d err=%v data=%d", n, err, events.Data(0))
	}
}

func TestEpollReusedDescriptorRecovers(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()
	a, _ := socketPair(t)

	changes := records(t, 1)
	events := records(t, 1)
	changes.Set(0, a, tab.EvfiltWrite, tab.EvAdd, 0)
	if n, err := e.Wait(changes, events, 1000); err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}

	// Drop the kernel registration behind the backend's back, as a close and
	// reuse of the descriptor would.
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, a, nil); err != nil {
		t.Fatal(err)
	}
	changes.Set(0, a, tab.EvfiltWrite, tab.EvAdd, 5)
	n, err := e.Wait(changes, events, 1000)
	if err != nil || n != 1 || events.Udata(0) != 5 {
		t.Fatalf("n=%d err=%v udata=%d", n, err, events.Udata(0))
	}
}

func TestEpollReusedDescriptorDropsOldInterest(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()

	old, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatal(err)
	}
	changes := records(t, 1)
	events := records(t, 4)
	changes.Set(0, old[0], tab.EvfiltRead, tab.EvAdd|tab.EvOneshot, 111)
	if n, err := e.Wait(changes, events, 0); err != nil || n != 0 {
		t.Fatalf("register: n=%d err=%v", n, err)
	}
	unix.Close(old[0])
	unix.Close(old[1])

	a, b := socketPair(t)
	if a != old[0] {
		t.Skipf("descriptor %d not reused (got %d)", old[0], a)
	}
	if _, err := unix.Write(b, []byte("data")); err != nil {
		t.Fatal(err)
	}

	changes.Set(0, a, tab.EvfiltWrite, tab.EvAdd|tab.EvOneshot, 222)
	n, err := e.Wait(changes, events, 1000)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if events.Filter(0) != tab.EvfiltWrite || events.Udata(0) != 222 {
		t.Fatalf("got filter %d udata %d, want only the new write interest", events.Filter(0), events.Udata(0))
	}
	if e.regs[a].read.active {
		t.Fatal("read interest of the closed descriptor survived")
	}
}

func TestEpollDeleteOnReusedDescriptorIsENOENT(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()

	old, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatal(err)
	}
	changes := records(t, 2)
	events := records(t, 2)
	changes.Set(0, old[0], tab.EvfiltRead, tab.EvAdd, 1)
	changes.Set(1, old[0], tab.EvfiltWrite, tab.EvAdd, 2)
	if _, err := e.Wait(changes, events, 0); err != nil {
		t.Fatal(err)
	}
	unix.Close(old[0])
	unix.Close(old[1])

	a, _ := socketPair(t)
	if a != old[0] {
		t.Skipf("descriptor %d not reused (got %d)", old[0], a)
	}
	changes.Set(0, a, tab.EvfiltRead, tab.EvDelete, 0)
	n, err := e.Wait(changes.Slice(0, 1), events, 0)
	if err != nil || n != 1 || !events.Has(0, tab.EvError) || events.Data(0) != int64(unix.ENOENT) {
		t.Fatalf("n=%d err=%v flags=%#x data=%d", n, err, events.Flags(0), events.Data(0))
	}
	if _, ok := e.regs[a]; ok {
		t.Fatal("registration of the closed descriptor kept")
	}
}

func TestEpollLeavesSocketErrorForCaller(t *testing.T) {
	e := newTestEpoll(t)
	tab := layout.Get()

	tmp, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := unix.Bind(tmp, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}); err != nil {
		t.Fatal(err)
	}
	sa, err := unix.Getsockname(tmp)
	if err != nil {
		t.Fatal(err)
	}
	unix.Close(tmp)
	port := sa.(*unix.SockaddrInet4).Port

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { unix.Close(fd) })
	err = unix.Connect(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}, Port: port})
	if err == unix.ECONNREFUSED {
		t.Skip("connect refused synchronously")
	}
	if err != unix.EINPROGRESS {
		t.Fatalf("connect: %v", err)
	}

	changes := records(t, 1)
	events := records(t, 1)
	changes.Set(0, fd, tab.EvfiltWrite, tab.EvAdd|tab.EvOneshot, 0)
	n, err := e.Wait(changes, events, 5000)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if !events.Has(0, tab.EvEOF) {
		t.Fatalf("flags %#x, want EOF", events.Flags(0))
	}
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || soerr != int(unix.ECONNREFUSED) {
		t.Fatalf("SO_ERROR=%d err=%v, want ECONNREFUSED", soerr, err)
	}
}
