//go:build darwin
// +build darwin

package transport

import "golang.org/x/sys/unix"

const (
	socketFlags = 0
	sendFlags   = 0
)

var optNames = map[sockOpt]optName{
	optKeepAlive: {unix.SOL_SOCKET, unix.SO_KEEPALIVE},
	optKeepIdle:  {unix.IPPROTO_TCP, unix.TCP_KEEPALIVE},
	optKeepIntvl: {unix.IPPROTO_TCP, unix.TCP_KEEPINTVL},
	optSndBuf:    {unix.SOL_SOCKET, unix.SO_SNDBUF},
	optRcvBuf:    {unix.SOL_SOCKET, unix.SO_RCVBUF},
	optNoDelay:   {unix.IPPROTO_TCP, unix.TCP_NODELAY},
	optReuseAddr: {unix.SOL_SOCKET, unix.SO_REUSEADDR},
	optError:     {unix.SOL_SOCKET, unix.SO_ERROR},
}

// Darwin has no MSG_NOSIGNAL; broken-pipe suppression is a socket option.
func afterSocket(fd int) error {
	unix.CloseOnExec(fd)
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}

func sysAccept(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := afterSocket(nfd); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}
