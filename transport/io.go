// File: transport/io.go
// Author: momentics <momentics@gmail.com>
//
// send/recv/peek with every OS outcome folded into api.Result.

package transport

import (
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/pool"
)

// Send writes buf. It returns the bytes accepted by the kernel, ResultRetry
// when the send buffer is full, or ResultIOError with the OS error.
func Send(fd int, buf []byte) (api.Result, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := sysSend(fd, buf)
	var res api.Result
	switch {
	case err == nil:
		res = api.Result(n)
	case isWouldBlock(err), isInterrupted(err):
		res = api.ResultRetry
	default:
		res = api.ResultIOError
		err = osError(api.ErrCodeOS, "send", err)
	}
	observe(opSend, res)
	if res != api.ResultIOError {
		err = nil
	}
	return res, err
}

// Recv reads into buf. An orderly shutdown by the peer is
// ResultPeerDisconnect; an empty buffer returns 0 without a syscall.
func Recv(fd int, buf []byte) (api.Result, error) {
	return recv(opRecv, fd, buf, false)
}

// Peek is Recv without consuming: a following Recv sees the same bytes.
func Peek(fd int, buf []byte) (api.Result, error) {
	return recv(opPeek, fd, buf, true)
}

func recv(op ioOp, fd int, buf []byte, peek bool) (api.Result, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := sysRecv(fd, buf, peek)
	var res api.Result
	switch {
	case err == nil && n > 0:
		res = api.Result(n)
	case err == nil:
		res = api.ResultPeerDisconnect
	case isWouldBlock(err), isInterrupted(err):
		res = api.ResultRetry
		err = nil
	default:
		res = api.ResultIOError
		err = osError(api.ErrCodeOS, op.String(), err)
	}
	observe(op, res)
	if res != api.ResultIOError {
		err = nil
	}
	return res, err
}

// SendRaw sends n bytes of native memory at addr.
func SendRaw(fd int, addr uintptr, n int) (api.Result, error) {
	return Send(fd, pool.Bytes(addr, n))
}

// RecvRaw receives into n bytes of native memory at addr.
func RecvRaw(fd int, addr uintptr, n int) (api.Result, error) {
	return Recv(fd, pool.Bytes(addr, n))
}

// PeekRaw peeks into n bytes of native memory at addr.
func PeekRaw(fd int, addr uintptr, n int) (api.Result, error) {
	return Peek(fd, pool.Bytes(addr, n))
}

// TestConnection reports whether the connection on fd is gone, using a
// non-consuming read into buf. fd -1 counts as gone.
func TestConnection(fd int, buf []byte) bool {
	if fd < 0 {
		return true
	}
	res, _ := Peek(fd, buf)
	return res == api.ResultPeerDisconnect || res == api.ResultIOError
}
