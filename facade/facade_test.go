//go:build linux || darwin
// +build linux darwin

package facade_test

import (
	"bytes"
	"runtime"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/facade"
	"github.com/momentics/hioload-netio/layout"
	"github.com/momentics/hioload-netio/pool"
	"github.com/momentics/hioload-netio/transport"
)

const loopback = 0x7F000001

func native(t *testing.T, size int) uintptr {
	t.Helper()
	p, err := pool.Malloc(size, pool.TagIO)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Free(p) })
	return p
}

// putChange writes one change record using only the published offsets.
func putChange(base uintptr, i, fd, filter, flags int, udata uint64) {
	rec := base + uintptr(i*facade.SizeofEvent())
	*(*uint64)(unsafe.Pointer(rec + uintptr(facade.FdOffset()))) = uint64(fd)
	*(*int16)(unsafe.Pointer(rec + uintptr(facade.FilterOffset()))) = int16(filter)
	*(*uint16)(unsafe.Pointer(rec + uintptr(facade.FlagsOffset()))) = uint16(flags)
	*(*uint64)(unsafe.Pointer(rec + uintptr(facade.UdataOffset()))) = udata
}

func eventFd(base uintptr, i int) int {
	rec := base + uintptr(i*facade.SizeofEvent())
	return int(*(*uint64)(unsafe.Pointer(rec + uintptr(facade.FdOffset()))))
}

func eventUdata(base uintptr, i int) uint64 {
	rec := base + uintptr(i*facade.SizeofEvent())
	return *(*uint64)(unsafe.Pointer(rec + uintptr(facade.UdataOffset())))
}

func listener(t *testing.T) (int, int) {
	t.Helper()
	fd := facade.SocketTCP(true)
	require.GreaterOrEqual(t, fd, 0, "errno %d", facade.Errno())
	t.Cleanup(func() { facade.Close(fd) })

	sa := facade.SockAddr(loopback, 0)
	defer facade.FreeSockAddr(sa)
	rec, err := address.LookupSockAddr(sa)
	require.NoError(t, err)
	require.NoError(t, transport.Bind(fd, rec))
	require.NoError(t, transport.Listen(fd, 8))
	ap, err := transport.LocalAddr(fd)
	require.NoError(t, err)
	return fd, int(ap.Port())
}

// connectThroughQueue runs the loopback connect scenario end to end.
func connectThroughQueue(t *testing.T) (client, server int) {
	t.Helper()
	lfd, port := listener(t)

	client = facade.SocketTCP(false)
	require.GreaterOrEqual(t, client, 0)
	t.Cleanup(func() { facade.Close(client) })

	sa := facade.SockAddr(loopback, port)
	require.NotZero(t, sa)
	defer facade.FreeSockAddr(sa)
	if rc := facade.Connect(client, sa); rc != 0 {
		require.Equal(t, facade.EInProgress(), facade.Errno())
	}

	kq := facade.QueueCreate()
	require.GreaterOrEqual(t, kq, 0)
	defer facade.QueueClose(kq)

	changes := native(t, facade.SizeofEvent())
	events := native(t, 4*facade.SizeofEvent())
	putChange(changes, 0, client, facade.EvfiltWrite(), facade.EvAdd()|facade.EvOneshot(), 0xFEED)

	start := time.Now()
	n := facade.SubmitAndWait(kq, changes, 1, events, 4, 5000)
	require.Equal(t, 1, n, "errno %d", facade.Errno())
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, client, eventFd(events, 0))
	require.Equal(t, uint64(0xFEED), eventUdata(events, 0))
	require.Equal(t, 0, facade.ConnectError(client))

	server, _, err := transport.Accept(lfd)
	require.NoError(t, err)
	t.Cleanup(func() { facade.Close(server) })
	return client, server
}

func TestLayoutQueriesAreStable(t *testing.T) {
	first := []int{facade.EvfiltRead(), facade.EvfiltWrite(), facade.EvAdd(), facade.EvOneshot(),
		facade.EWouldBlock(), facade.SizeofEvent(), facade.FdOffset(), facade.FilterOffset(),
		facade.UdataOffset(), facade.FlagsOffset()}
	for i := 0; i < 50; i++ {
		again := []int{facade.EvfiltRead(), facade.EvfiltWrite(), facade.EvAdd(), facade.EvOneshot(),
			facade.EWouldBlock(), facade.SizeofEvent(), facade.FdOffset(), facade.FilterOffset(),
			facade.UdataOffset(), facade.FlagsOffset()}
		require.Equal(t, first, again)
	}
}

func TestConnectReportedWritable(t *testing.T) {
	connectThroughQueue(t)
}

func TestRecvBeforeDataIsRetry(t *testing.T) {
	_, server := connectThroughQueue(t)
	buf := native(t, 32)
	view := pool.Bytes(buf, 32)
	for i := range view {
		view[i] = 0xAA
	}

	require.Equal(t, int(api.ResultRetry), facade.Recv(server, buf, 32))
	require.Equal(t, bytes.Repeat([]byte{0xAA}, 32), view, "buffer touched by a would-block recv")
}

func TestRemoteCloseIsPeerDisconnect(t *testing.T) {
	client, server := connectThroughQueue(t)
	require.NoError(t, unix.Shutdown(client, unix.SHUT_RDWR))

	buf := native(t, 16)
	res := int(api.ResultRetry)
	deadline := time.Now().Add(5 * time.Second)
	for res == int(api.ResultRetry) && time.Now().Before(deadline) {
		res = facade.Recv(server, buf, 16)
		if res == int(api.ResultRetry) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	require.Equal(t, int(api.ResultPeerDisconnect), res)
	require.NotEqual(t, int(api.ResultIOError), res)
}

func TestPeekThenRecvSameBytes(t *testing.T) {
	client, server := connectThroughQueue(t)
	msg := native(t, 5)
	copy(pool.Bytes(msg, 5), "hello")
	require.Equal(t, 5, facade.Send(client, msg, 5))

	peek := native(t, 16)
	recv := native(t, 16)
	n := int(api.ResultRetry)
	deadline := time.Now().Add(5 * time.Second)
	for n == int(api.ResultRetry) && time.Now().Before(deadline) {
		if n = facade.Peek(server, peek, 16); n == int(api.ResultRetry) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	require.Equal(t, 5, n)
	require.Equal(t, 5, facade.Recv(server, recv, 16))
	require.Equal(t, pool.Bytes(peek, 5), pool.Bytes(recv, 5))
}

func TestSocketOptionsThroughBoundary(t *testing.T) {
	fd := facade.SocketTCP(false)
	require.GreaterOrEqual(t, fd, 0)
	defer facade.Close(fd)

	require.Equal(t, 0, facade.SetKeepAlive(fd, 30))
	require.Equal(t, 30, facade.GetKeepAlive(fd))
	require.Equal(t, 0, facade.SetTCPNoDelay(fd, true))
	require.Equal(t, 1, facade.GetTCPNoDelay(fd))
	require.Equal(t, 0, facade.SetSndBuf(fd, 256*1024))
	require.GreaterOrEqual(t, facade.GetSndBuf(fd), 256*1024)

	require.Equal(t, -1, facade.GetSndBuf(-1))
	require.Equal(t, int(unix.EBADF), facade.Errno())
}

func TestResolveFreePairs(t *testing.T) {
	host, err := pool.PutCString("localhost")
	require.NoError(t, err)
	defer pool.Free(host)

	before := address.AddrInfoCount()
	for i := 0; i < 100; i++ {
		ai := facade.GetAddrInfo(host, 443)
		require.NotEqual(t, facade.AddrInfoFailed, ai, "eai %d", facade.Errno())
		facade.FreeAddrInfo(ai)
		facade.FreeAddrInfo(ai)
	}
	facade.FreeAddrInfo(0)
	facade.FreeSockAddr(0)
	require.Equal(t, before, address.AddrInfoCount())
}

func TestWrongKindFreeIsRefused(t *testing.T) {
	sa := facade.SockAddr(loopback, 80)
	facade.FreeAddrInfo(sa)
	_, err := address.LookupSockAddr(sa)
	require.NoError(t, err, "record must survive a wrong-kind free")
	facade.FreeSockAddr(sa)
	_, err = address.LookupSockAddr(sa)
	require.ErrorIs(t, err, api.ErrUnknownAddress)
}

func TestResolveFailure(t *testing.T) {
	host, err := pool.PutCString("no-such-host.invalid")
	require.NoError(t, err)
	defer pool.Free(host)

	require.Equal(t, facade.AddrInfoFailed, facade.GetAddrInfo(host, 80))
	require.Less(t, facade.Errno(), 0)
	require.Equal(t, facade.AddrInfoFailed, facade.GetAddrInfo(0, 80))
}

func TestQueueHandleLifecycle(t *testing.T) {
	require.Equal(t, -1, facade.SubmitAndWait(-5, 0, 0, 0, 0, 0))
	require.Equal(t, int(unix.EBADF), facade.Errno())

	kq := facade.QueueCreate()
	require.GreaterOrEqual(t, kq, 0)

	events := native(t, 2*facade.SizeofEvent())
	start := time.Now()
	require.Equal(t, 0, facade.SubmitAndWait(kq, 0, 0, events, 2, 100))
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	require.Equal(t, 0, facade.QueueClose(kq))
	require.Equal(t, -1, facade.QueueClose(kq))
	require.Equal(t, -1, facade.SubmitAndWait(kq, 0, 0, events, 2, 0))
}

func TestChangeErrorReportedInEvents(t *testing.T) {
	kq := facade.QueueCreate()
	require.GreaterOrEqual(t, kq, 0)
	defer facade.QueueClose(kq)

	fd := facade.SocketTCP(false)
	require.GreaterOrEqual(t, fd, 0)
	defer facade.Close(fd)

	changes := native(t, facade.SizeofEvent())
	events := native(t, facade.SizeofEvent())
	putChange(changes, 0, fd, facade.EvfiltRead(), facade.EvDelete(), 1)
	require.Equal(t, 1, facade.SubmitAndWait(kq, changes, 1, events, 1, 1000))

	rec := events
	flags := *(*uint16)(unsafe.Pointer(rec + uintptr(facade.FlagsOffset())))
	data := *(*int64)(unsafe.Pointer(rec + uintptr(facade.DataOffset())))
	require.NotZero(t, int(flags)&facade.EvError())
	require.Equal(t, int64(unix.ENOENT), data)
}

func TestErrnoIsTrackedPerDescriptor(t *testing.T) {
	n := facade.New(nil)
	kq := n.QueueCreate()
	require.GreaterOrEqual(t, kq, 0)
	const bogus = 1 << 20

	require.Equal(t, -1, n.SubmitAndWait(kq, 0, 1, 0, 0, 0))
	require.Equal(t, -1, n.GetSndBuf(bogus))

	require.Equal(t, int(unix.EBADF), n.Errno())
	require.Equal(t, int(unix.EINVAL), n.ErrnoFor(kq))
	require.Equal(t, int(unix.EBADF), n.ErrnoFor(bogus))
	require.Zero(t, n.ErrnoFor(bogus+1))

	require.Equal(t, 0, n.QueueClose(kq))
	require.Zero(t, n.ErrnoFor(kq))
}

func TestGetAddrInfoCodeLeavesSharedErrno(t *testing.T) {
	n := facade.New(nil)
	require.Equal(t, -1, n.GetSndBuf(-1))

	ptr, code := n.GetAddrInfoCode("no-such-host.invalid", 80)
	require.Equal(t, facade.AddrInfoFailed, ptr)
	require.Less(t, code, 0)
	require.Equal(t, int(unix.EBADF), n.Errno())

	ptr, code = n.GetAddrInfoCode("127.0.0.1", 80)
	require.Zero(t, code)
	n.FreeAddrInfo(ptr)
}

func TestMmsghdrLayoutExported(t *testing.T) {
	require.Equal(t, layout.SizeofMmsghdr(), facade.SizeofMmsghdr())
	require.Equal(t, layout.MmsghdrIovOffset(), facade.MmsghdrIovOffset())
	require.Equal(t, layout.MmsghdrLenOffset(), facade.MmsghdrLenOffset())
	if runtime.GOOS == "linux" {
		require.Greater(t, facade.SizeofMmsghdr(), facade.MmsghdrLenOffset())
	} else {
		require.Equal(t, -1, facade.SizeofMmsghdr())
	}
}
