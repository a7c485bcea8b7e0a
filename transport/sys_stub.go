//go:build !linux && !darwin
// +build !linux,!darwin

package transport

import (
	"net/netip"
	"syscall"

	"github.com/momentics/hioload-netio/api"
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

func sysSocket(sockKind) (int, error)          { return -1, api.ErrNotSupported }
func sysSetNonblock(int) error                 { return api.ErrNotSupported }
func sysConnect(int, netip.AddrPort) error     { return api.ErrNotSupported }
func sysBind(int, netip.AddrPort) error        { return api.ErrNotSupported }
func sysListen(int, int) error                 { return api.ErrNotSupported }
func sysAccept(int) (int, error)               { return -1, api.ErrNotSupported }
func sysClose(int) error                       { return api.ErrNotSupported }
func sysSend(int, []byte) (int, error)         { return -1, api.ErrNotSupported }
func sysRecv(int, []byte, bool) (int, error)   { return -1, api.ErrNotSupported }
func sysSetOpt(int, sockOpt, int) error        { return api.ErrNotSupported }
func sysGetOpt(int, sockOpt) (int, error)      { return -1, api.ErrNotSupported }
func sysJoin(int, [4]byte, [4]byte) error      { return api.ErrNotSupported }
func sysLocalAddr(int) (netip.AddrPort, error) { return netip.AddrPort{}, api.ErrNotSupported }
func isWouldBlock(error) bool                  { return false }
func isInterrupted(error) bool                 { return false }
func isInProgress(error) bool                  { return false }
func errnoErr(code int) error                  { return syscall.Errno(code) }
