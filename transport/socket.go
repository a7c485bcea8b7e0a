// File: transport/socket.go
// Author: momentics <momentics@gmail.com>
//
// Socket creation, connect and accept.

package transport

import (
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
)

func osError(code api.ErrorCode, op string, err error) error {
	return api.NewError(code, api.ErrnoOf(err), op, err)
}

// SocketTCP creates an IPv4 stream socket. Unless blocking is requested the
// socket is switched to non-blocking mode; if that fails the descriptor is
// closed and -1 is returned.
func SocketTCP(blocking bool) (int, error) {
	return newSocket(sockStream, blocking)
}

// SocketUDP creates an IPv4 datagram socket, e.g. for multicast membership.
func SocketUDP(blocking bool) (int, error) {
	return newSocket(sockDgram, blocking)
}

func newSocket(kind sockKind, blocking bool) (int, error) {
	fd, err := sysSocket(kind)
	if err != nil {
		return -1, osError(api.ErrCodeExhausted, "socket", err)
	}
	mode := "blocking"
	if !blocking {
		mode = "nonblocking"
		if err := ConfigureNonBlocking(fd); err != nil {
			_ = sysClose(fd)
			return -1, err
		}
	}
	typ := "tcp"
	if kind == sockDgram {
		typ = "udp"
	}
	control.Metrics().SocketsCreated.WithLabelValues(typ, mode).Inc()
	return fd, nil
}

// ConfigureNonBlocking switches fd to non-blocking mode.
func ConfigureNonBlocking(fd int) error {
	if err := sysSetNonblock(fd); err != nil {
		return osError(api.ErrCodeOS, "set non-blocking", err)
	}
	return nil
}

// Connect starts connecting fd to sa. On a non-blocking descriptor the
// result is usually an error matching api.ErrInProgress: completion is
// signalled by write readiness, after which ConnectError reports the outcome.
func Connect(fd int, sa *address.SockAddr) error {
	if sa == nil {
		return fmt.Errorf("transport: connect to nil address: %w", api.ErrInvalidArgument)
	}
	return connect(fd, sa.AddrPort())
}

// ConnectAddrInfo connects to the first endpoint of a resolved chain.
func ConnectAddrInfo(fd int, ai *address.AddrInfo) error {
	if ai == nil || ai.Len() == 0 {
		return fmt.Errorf("transport: connect to empty address chain: %w", api.ErrInvalidArgument)
	}
	return connect(fd, ai.First().AddrPort())
}

func connect(fd int, ap netip.AddrPort) error {
	err := sysConnect(fd, ap)
	switch {
	case err == nil:
		return nil
	case isInProgress(err):
		return api.NewError(api.ErrCodeTransient, api.ErrnoOf(err), "connect "+ap.String(), api.ErrInProgress)
	}
	return api.NewError(api.ErrCodeOS, api.ErrnoOf(err), "connect "+ap.String(), err).WithContext("fd", fd)
}

// ConnectError returns the pending socket error of fd, nil once a connect
// has completed successfully.
func ConnectError(fd int) error {
	v, err := sysGetOpt(fd, optError)
	if err != nil {
		return osError(api.ErrCodeOS, "getsockopt SO_ERROR", err)
	}
	if v != 0 {
		return api.NewError(api.ErrCodeOS, v, "connect", errnoErr(v))
	}
	return nil
}

// Bind binds fd to a literal address.
func Bind(fd int, sa *address.SockAddr) error {
	if sa == nil {
		return fmt.Errorf("transport: bind to nil address: %w", api.ErrInvalidArgument)
	}
	if err := sysBind(fd, sa.AddrPort()); err != nil {
		return osError(api.ErrCodeOS, "bind "+sa.String(), err)
	}
	return nil
}

// Listen marks fd as accepting connections.
func Listen(fd, backlog int) error {
	if err := sysListen(fd, backlog); err != nil {
		return osError(api.ErrCodeOS, "listen", err)
	}
	return nil
}

// Accept takes one pending connection. The new descriptor is non-blocking.
// With nothing pending it returns -1 and ResultRetry.
func Accept(fd int) (int, api.Result, error) {
	nfd, err := sysAccept(fd)
	switch {
	case err == nil:
		control.Metrics().SocketsCreated.WithLabelValues("tcp", "accepted").Inc()
		return nfd, 0, nil
	case isWouldBlock(err), isInterrupted(err):
		return -1, api.ResultRetry, nil
	}
	return -1, api.ResultIOError, osError(api.ErrCodeOS, "accept", err)
}

// LocalAddr returns the bound IPv4 address of fd.
func LocalAddr(fd int) (netip.AddrPort, error) {
	ap, err := sysLocalAddr(fd)
	if err != nil {
		return netip.AddrPort{}, osError(api.ErrCodeOS, "getsockname", err)
	}
	return ap, nil
}

// Close closes fd. Failures are logged and returned.
func Close(fd int) error {
	if fd < 0 {
		return nil
	}
	if err := sysClose(fd); err != nil {
		l := logger.Named("transport")
		l.Error().Err(err).Int("fd", fd).Msg("close failed")
		return osError(api.ErrCodeOS, "close", err)
	}
	return nil
}
