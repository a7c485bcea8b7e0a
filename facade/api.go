// File: facade/api.go
// Author: momentics <momentics@gmail.com>
//
// Package-level boundary functions over Default().

package facade

import "github.com/momentics/hioload-netio/layout"

func QueueCreate() int { return Default().QueueCreate() }

func SubmitAndWait(h int, changes uintptr, nChanges int, events uintptr, capacity, timeoutMs int) int {
	return Default().SubmitAndWait(h, changes, nChanges, events, capacity, timeoutMs)
}

func QueueClose(h int) int { return Default().QueueClose(h) }

func SocketTCP(blocking bool) int { return Default().SocketTCP(blocking) }
func SocketUDP(blocking bool) int { return Default().SocketUDP(blocking) }

func Connect(fd int, sockaddr uintptr) int         { return Default().Connect(fd, sockaddr) }
func ConnectAddrInfo(fd int, addrinfo uintptr) int { return Default().ConnectAddrInfo(fd, addrinfo) }
func ConnectError(fd int) int                      { return Default().ConnectError(fd) }

func Send(fd int, ptr uintptr, n int) int { return Default().Send(fd, ptr, n) }
func Recv(fd int, ptr uintptr, n int) int { return Default().Recv(fd, ptr, n) }
func Peek(fd int, ptr uintptr, n int) int { return Default().Peek(fd, ptr, n) }

func SetSndBuf(fd, size int) int           { return Default().SetSndBuf(fd, size) }
func GetSndBuf(fd int) int                 { return Default().GetSndBuf(fd) }
func SetRcvBuf(fd, size int) int           { return Default().SetRcvBuf(fd, size) }
func GetRcvBuf(fd int) int                 { return Default().GetRcvBuf(fd) }
func SetTCPNoDelay(fd int, on bool) int    { return Default().SetTCPNoDelay(fd, on) }
func GetTCPNoDelay(fd int) int             { return Default().GetTCPNoDelay(fd) }
func SetKeepAlive(fd, seconds int) int     { return Default().SetKeepAlive(fd, seconds) }
func GetKeepAlive(fd int) int              { return Default().GetKeepAlive(fd) }
func Join(fd int, bind, group uint32) bool { return Default().Join(fd, bind, group) }

func SockAddr(ipv4 uint32, port int) uintptr     { return Default().SockAddr(ipv4, port) }
func GetAddrInfo(host uintptr, port int) uintptr { return Default().GetAddrInfo(host, port) }
func FreeSockAddr(ptr uintptr)                   { Default().FreeSockAddr(ptr) }
func FreeAddrInfo(ptr uintptr)                   { Default().FreeAddrInfo(ptr) }

func Close(fd int) int { return Default().Close(fd) }

// Errno is the OS error code of the most recent failed boundary call.
func Errno() int { return Default().Errno() }

// ErrnoFor is the code of the most recent failure on descriptor or queue
// handle fd.
func ErrnoFor(fd int) int { return Default().ErrnoFor(fd) }

// Layout queries.

func EvfiltRead() int       { return int(layout.EvfiltRead()) }
func EvfiltWrite() int      { return int(layout.EvfiltWrite()) }
func EvAdd() int            { return int(layout.EvAdd()) }
func EvDelete() int         { return int(layout.EvDelete()) }
func EvOneshot() int        { return int(layout.EvOneshot()) }
func EvClear() int          { return int(layout.EvClear()) }
func EvEOF() int            { return int(layout.EvEOF()) }
func EvError() int          { return int(layout.EvError()) }
func EWouldBlock() int      { return layout.EWouldBlock() }
func EInProgress() int      { return layout.EInProgress() }
func SizeofEvent() int      { return layout.SizeofEvent() }
func FdOffset() int         { return layout.FdOffset() }
func FilterOffset() int     { return layout.FilterOffset() }
func FlagsOffset() int      { return layout.FlagsOffset() }
func FflagsOffset() int     { return layout.FflagsOffset() }
func DataOffset() int       { return layout.DataOffset() }
func UdataOffset() int      { return layout.UdataOffset() }
func SizeofMmsghdr() int    { return layout.SizeofMmsghdr() }
func MmsghdrIovOffset() int { return layout.MmsghdrIovOffset() }
func MmsghdrLenOffset() int { return layout.MmsghdrLenOffset() }
