//go:build linux || darwin
// +build linux darwin

// File: transport/sys_unix.go
// Author: momentics <momentics@gmail.com>
//
// Socket primitives shared by Linux and Darwin.

package transport

import (
	"errors"
	"net/netip"

	"golang.org/x/sys/unix"
)

type sockKind int

const (
	sockStream sockKind = iota
	sockDgram
)

type sockOpt int

const (
	optKeepAlive sockOpt = iota
	optKeepIdle
	optKeepIntvl
	optSndBuf
	optRcvBuf
	optNoDelay
	optReuseAddr
	optError
)

type optName struct{ level, name int }

func sysSocket(kind sockKind) (int, error) {
	typ := unix.SOCK_STREAM
	if kind == sockDgram {
		typ = unix.SOCK_DGRAM
	}
	fd, err := unix.Socket(unix.AF_INET, typ|socketFlags, 0)
	if err != nil {
		return -1, err
	}
	if err := afterSocket(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func sysSetNonblock(fd int) error { return unix.SetNonblock(fd, true) }

func sysConnect(fd int, ap netip.AddrPort) error {
	return unix.Connect(fd, &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ap.Addr().As4()})
}

func sysBind(fd int, ap netip.AddrPort) error {
	return unix.Bind(fd, &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ap.Addr().As4()})
}

func sysListen(fd, backlog int) error { return unix.Listen(fd, backlog) }

func sysClose(fd int) error { return unix.Close(fd) }

func sysSend(fd int, p []byte) (int, error) {
	return unix.SendmsgN(fd, p, nil, nil, sendFlags)
}

func sysRecv(fd int, p []byte, peek bool) (int, error) {
	flags := 0
	if peek {
		flags = unix.MSG_PEEK
	}
	n, _, err := unix.Recvfrom(fd, p, flags)
	return n, err
}

func sysSetOpt(fd int, opt sockOpt, v int) error {
	o := optNames[opt]
	return unix.SetsockoptInt(fd, o.level, o.name, v)
}

func sysGetOpt(fd int, opt sockOpt) (int, error) {
	o := optNames[opt]
	return unix.GetsockoptInt(fd, o.level, o.name)
}

func sysJoin(fd int, iface, group [4]byte) error {
	mreq := unix.IPMreq{Multiaddr: group, Interface: iface}
	return unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, &mreq)
}

func sysLocalAddr(fd int) (netip.AddrPort, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return netip.AddrPort{}, err
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return netip.AddrPort{}, unix.EAFNOSUPPORT
	}
	return netip.AddrPortFrom(netip.AddrFrom4(in4.Addr), uint16(in4.Port)), nil
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func isInterrupted(err error) bool { return errors.Is(err, unix.EINTR) }

func isInProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS) || errors.Is(err, unix.EINTR)
}

func errnoErr(code int) error { return unix.Errno(code) }
