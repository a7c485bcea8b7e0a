//go:build linux
// +build linux

package transport

import "golang.org/x/sys/unix"

const (
	socketFlags = unix.SOCK_CLOEXEC
	// A write to a reset peer fails with EPIPE instead of raising SIGPIPE.
	sendFlags = unix.MSG_NOSIGNAL
)

var optNames = map[sockOpt]optName{
	optKeepAlive: {unix.SOL_SOCKET, unix.SO_KEEPALIVE},
	optKeepIdle:  {unix.IPPROTO_TCP, unix.TCP_KEEPIDLE},
	optKeepIntvl: {unix.IPPROTO_TCP, unix.TCP_KEEPINTVL},
	optSndBuf:    {unix.SOL_SOCKET, unix.SO_SNDBUF},
	optRcvBuf:    {unix.SOL_SOCKET, unix.SO_RCVBUF},
	optNoDelay:   {unix.IPPROTO_TCP, unix.TCP_NODELAY},
	optReuseAddr: {unix.SOL_SOCKET, unix.SO_REUSEADDR},
	optError:     {unix.SOL_SOCKET, unix.SO_ERROR},
}

func afterSocket(int) error { return nil }

func sysAccept(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return nfd, err
}
