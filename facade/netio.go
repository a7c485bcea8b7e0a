// File: facade/netio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NetIO aggregates the queue registry, resolver and error side channel behind
// the integer boundary. Package-level functions use one process-wide NetIO.

package facade

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
	"github.com/momentics/hioload-netio/layout"
	"github.com/momentics/hioload-netio/pool"
	"github.com/momentics/hioload-netio/reactor"
	"github.com/momentics/hioload-netio/transport"
)

// AddrInfoFailed is the GetAddrInfo failure value (-1 as an address).
const AddrInfoFailed = ^uintptr(0)

// maxHostLen bounds the NUL scan of a host name outside pool memory.
const maxHostLen = 1025

// NetIO is safe for concurrent use; each queue handle still has a single
// waiter.
type NetIO struct {
	mu       sync.RWMutex
	queues   map[int]reactor.Backend
	resolver *address.Resolver
	errno    atomic.Int64
	fdErrno  sync.Map // descriptor or queue handle -> last failure code
}

// New builds a facade whose resolver timeout comes from cfg.
func New(cfg *control.ConfigStore) *NetIO {
	if cfg == nil {
		cfg = control.Store()
	}
	n := &NetIO{
		queues:   make(map[int]reactor.Backend),
		resolver: address.NewResolver(time.Duration(cfg.GetSnapshot().Net.ResolveTimeoutMs) * time.Millisecond),
	}
	cfg.OnReload(func(c control.Config) {
		r := address.NewResolver(time.Duration(c.Net.ResolveTimeoutMs) * time.Millisecond)
		n.mu.Lock()
		n.resolver = r
		n.mu.Unlock()
	})
	return n
}

var (
	defaultOnce sync.Once
	defaultIO   *NetIO
)

// Default returns the process-wide facade.
func Default() *NetIO {
	defaultOnce.Do(func() {
		defaultIO = New(nil)
		control.Probes().RegisterProbe("facade.queues", func() any { return defaultIO.QueueCount() })
	})
	return defaultIO
}

func errnoCode(err error) int {
	code := api.ErrnoOf(err)
	if code == 0 {
		switch {
		case errors.Is(err, api.ErrQueueClosed):
			code = int(syscall.EBADF)
		case errors.Is(err, api.ErrNotSupported):
			code = int(syscall.ENOSYS)
		default:
			code = int(syscall.EINVAL)
		}
	}
	return code
}

// fail records err on the process-wide side channel and returns -1.
func (n *NetIO) fail(err error) int {
	n.errno.Store(int64(errnoCode(err)))
	return -1
}

// failOn is fail that also records the code against fd.
func (n *NetIO) failOn(fd int, err error) int {
	code := errnoCode(err)
	n.errno.Store(int64(code))
	n.fdErrno.Store(fd, code)
	return -1
}

// Errno returns the OS error code of the most recent failure on any thread.
// Concurrent callers should use ErrnoFor instead.
func (n *NetIO) Errno() int { return int(n.errno.Load()) }

// ErrnoFor returns the code of the most recent failure on the descriptor or
// queue handle fd, or 0. Closing fd through the facade clears it.
func (n *NetIO) ErrnoFor(fd int) int {
	if v, ok := n.fdErrno.Load(fd); ok {
		return v.(int)
	}
	return 0
}

// QueueCreate opens a kernel event queue and returns its handle, or -1.
func (n *NetIO) QueueCreate() int {
	b, err := reactor.New()
	if err != nil {
		return n.fail(err)
	}
	n.mu.Lock()
	n.queues[b.Handle()] = b
	n.mu.Unlock()
	return b.Handle()
}

func (n *NetIO) queue(h int) reactor.Backend {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.queues[h]
}

// QueueCount is the number of open queue handles.
func (n *NetIO) QueueCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.queues)
}

// SubmitAndWait applies nChanges records at changes and waits up to
// timeoutMs for at most capacity records written to events. It returns the
// fired count or -1.
func (n *NetIO) SubmitAndWait(h int, changes uintptr, nChanges int, events uintptr, capacity, timeoutMs int) int {
	b := n.queue(h)
	if b == nil {
		return n.failOn(h, syscall.EBADF)
	}
	if nChanges < 0 || capacity < 0 || (changes == 0 && nChanges > 0) || (events == 0 && capacity > 0) {
		return n.failOn(h, syscall.EINVAL)
	}
	got, err := b.Wait(layout.View(changes, nChanges), layout.View(events, capacity), timeoutMs)
	if err != nil {
		return n.failOn(h, err)
	}
	return got
}

// QueueClose closes a queue handle. 0 on success, -1 otherwise.
func (n *NetIO) QueueClose(h int) int {
	n.mu.Lock()
	b := n.queues[h]
	delete(n.queues, h)
	n.mu.Unlock()
	if b == nil {
		return n.failOn(h, syscall.EBADF)
	}
	n.fdErrno.Delete(h)
	if err := b.Close(); err != nil {
		return n.fail(err)
	}
	return 0
}

// SocketTCP returns a new stream socket descriptor or -1.
func (n *NetIO) SocketTCP(blocking bool) int {
	fd, err := transport.SocketTCP(blocking)
	if err != nil {
		return n.fail(err)
	}
	return fd
}

// SocketUDP returns a new datagram socket descriptor or -1.
func (n *NetIO) SocketUDP(blocking bool) int {
	fd, err := transport.SocketUDP(blocking)
	if err != nil {
		return n.fail(err)
	}
	return fd
}

// Connect connects fd to a record from SockAddr. It returns 0 on immediate
// success and -1 otherwise; Errno is EINPROGRESS while a non-blocking
// connect is pending.
func (n *NetIO) Connect(fd int, sockaddr uintptr) int {
	sa, err := address.LookupSockAddr(sockaddr)
	if err != nil {
		return n.failOn(fd, err)
	}
	return n.status(fd, transport.Connect(fd, sa))
}

// ConnectAddrInfo connects fd to the first endpoint of a GetAddrInfo chain.
func (n *NetIO) ConnectAddrInfo(fd int, addrinfo uintptr) int {
	ai, err := address.LookupAddrInfo(addrinfo)
	if err != nil {
		return n.failOn(fd, err)
	}
	return n.status(fd, transport.ConnectAddrInfo(fd, ai))
}

// ConnectError returns the pending socket error of fd (0 when connected).
func (n *NetIO) ConnectError(fd int) int {
	err := transport.ConnectError(fd)
	if err == nil {
		return 0
	}
	n.failOn(fd, err)
	return api.ErrnoOf(err)
}

func (n *NetIO) status(fd int, err error) int {
	if err != nil {
		return n.failOn(fd, err)
	}
	return 0
}

func (n *NetIO) result(fd int, res api.Result, err error) int {
	if res == api.ResultIOError {
		n.failOn(fd, err)
	}
	return int(res)
}

// Send returns bytes sent or a negative api.Result code.
func (n *NetIO) Send(fd int, ptr uintptr, length int) int {
	res, err := transport.SendRaw(fd, ptr, length)
	return n.result(fd, res, err)
}

// Recv returns bytes received or a negative api.Result code.
func (n *NetIO) Recv(fd int, ptr uintptr, length int) int {
	res, err := transport.RecvRaw(fd, ptr, length)
	return n.result(fd, res, err)
}

// Peek is Recv without consuming.
func (n *NetIO) Peek(fd int, ptr uintptr, length int) int {
	res, err := transport.PeekRaw(fd, ptr, length)
	return n.result(fd, res, err)
}

func (n *NetIO) value(fd, v int, err error) int {
	if err != nil {
		return n.failOn(fd, err)
	}
	return v
}

func (n *NetIO) SetSndBuf(fd, size int) int { return n.status(fd, transport.SetSndBuf(fd, size)) }

func (n *NetIO) GetSndBuf(fd int) int {
	v, err := transport.GetSndBuf(fd)
	return n.value(fd, v, err)
}

func (n *NetIO) SetRcvBuf(fd, size int) int { return n.status(fd, transport.SetRcvBuf(fd, size)) }

func (n *NetIO) GetRcvBuf(fd int) int {
	v, err := transport.GetRcvBuf(fd)
	return n.value(fd, v, err)
}

func (n *NetIO) SetTCPNoDelay(fd int, on bool) int {
	return n.status(fd, transport.SetTCPNoDelay(fd, on))
}

// GetTCPNoDelay returns 1, 0, or -1 on failure.
func (n *NetIO) GetTCPNoDelay(fd int) int {
	on, err := transport.GetTCPNoDelay(fd)
	if err != nil {
		return n.failOn(fd, err)
	}
	if on {
		return 1
	}
	return 0
}

func (n *NetIO) SetKeepAlive(fd, seconds int) int {
	return n.status(fd, transport.SetKeepAlive(fd, seconds))
}

func (n *NetIO) GetKeepAlive(fd int) int {
	v, err := transport.GetKeepAlive(fd)
	return n.value(fd, v, err)
}

// Join adds fd to a multicast group; addresses are host-order IPv4.
func (n *NetIO) Join(fd int, bind, group uint32) bool {
	ok, err := transport.JoinErr(fd, bind, group)
	if !ok {
		n.failOn(fd, err)
	}
	return ok
}

// SockAddr builds a literal address record and returns its pointer, or 0
// when native memory is exhausted.
func (n *NetIO) SockAddr(ipv4 uint32, port int) uintptr {
	sa, err := address.NewSockAddr(ipv4, port&0xFFFF)
	if err != nil {
		n.fail(err)
		return 0
	}
	return sa.Pointer()
}

// GetAddrInfo resolves the NUL-terminated host name at host. It may block.
// Failure returns AddrInfoFailed with the EAI code in Errno.
func (n *NetIO) GetAddrInfo(host uintptr, port int) uintptr {
	name, err := cstring(host)
	if err != nil {
		n.fail(err)
		return AddrInfoFailed
	}
	return n.GetAddrInfoString(name, port)
}

// GetAddrInfoString is GetAddrInfo for a Go string.
func (n *NetIO) GetAddrInfoString(host string, port int) uintptr {
	ptr, code := n.GetAddrInfoCode(host, port)
	if code != 0 {
		n.errno.Store(int64(code))
	}
	return ptr
}

// GetAddrInfoCode resolves host and returns the chain with the EAI code
// alongside, leaving the shared Errno untouched.
func (n *NetIO) GetAddrInfoCode(host string, port int) (uintptr, int) {
	n.mu.RLock()
	r := n.resolver
	n.mu.RUnlock()
	ai, err := r.Resolve(context.Background(), host, port)
	if err != nil {
		return AddrInfoFailed, errnoCode(err)
	}
	return ai.Pointer(), 0
}

// FreeSockAddr releases a SockAddr record; null and freed pointers are
// ignored. Freeing a resolved chain here is refused and logged.
func (n *NetIO) FreeSockAddr(ptr uintptr) {
	if err := address.FreeSockAddr(ptr); err != nil {
		n.fail(err)
	}
}

// FreeAddrInfo releases a GetAddrInfo chain; null and freed pointers are
// ignored.
func (n *NetIO) FreeAddrInfo(ptr uintptr) {
	if err := address.FreeAddrInfo(ptr); err != nil {
		n.fail(err)
	}
}

// Close closes a socket descriptor. 0 on success, -1 otherwise.
func (n *NetIO) Close(fd int) int {
	if err := transport.Close(fd); err != nil {
		return n.failOn(fd, err)
	}
	n.fdErrno.Delete(fd)
	return 0
}

func cstring(ptr uintptr) (string, error) {
	if ptr == 0 {
		return "", api.ErrInvalidArgument
	}
	if s, err := pool.CString(ptr); err == nil {
		return s, nil
	}
	for i := 0; i < maxHostLen; i++ {
		if *(*byte)(unsafe.Pointer(ptr + uintptr(i))) == 0 {
			return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), i)), nil
		}
	}
	l := logger.Named("facade")
	l.Warn().Uint64("ptr", uint64(ptr)).Msg("host name not terminated")
	return "", api.ErrInvalidArgument
}
