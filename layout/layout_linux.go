//go:build linux
// +build linux

// File: layout/layout_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux has no per-filter kernel record: epoll keys interest by descriptor.
// The reactor therefore speaks a kevent-shaped record on Linux as well and the
// epoll backend translates it, so callers keep one change-list model.

package layout

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Kevent filter and flag values, mirrored from <sys/event.h>.
const (
	evfiltRead  = -1
	evfiltWrite = -2

	evAdd     = 0x0001
	evDelete  = 0x0002
	evOneshot = 0x0010
	evClear   = 0x0020
	evError   = 0x4000
	evEOF     = 0x8000
)

// Event is the native change/fired record on Linux.
type Event struct {
	Ident  uint64
	Filter int16
	Flags  uint16
	Fflags uint32
	Data   int64
	Udata  uint64
}

// Mmsghdr mirrors struct mmsghdr, one slot of a recvmmsg/sendmmsg array.
type Mmsghdr struct {
	Hdr unix.Msghdr
	Len uint32
}

func newTable() Table {
	var ev Event
	var mh Mmsghdr
	return Table{
		Platform:     "linux/epoll",
		Supported:    true,
		EvfiltRead:   evfiltRead,
		EvfiltWrite:  evfiltWrite,
		EvAdd:        evAdd,
		EvDelete:     evDelete,
		EvOneshot:    evOneshot,
		EvClear:      evClear,
		EvEOF:        evEOF,
		EvError:      evError,
		EWouldBlock:  int(unix.EWOULDBLOCK),
		EInProgress:  int(unix.EINPROGRESS),
		SizeofEvent:  int(unsafe.Sizeof(ev)),
		FdOffset:     int(unsafe.Offsetof(ev.Ident)),
		FilterOffset: int(unsafe.Offsetof(ev.Filter)),
		FlagsOffset:  int(unsafe.Offsetof(ev.Flags)),
		FflagsOffset: int(unsafe.Offsetof(ev.Fflags)),
		DataOffset:   int(unsafe.Offsetof(ev.Data)),
		UdataOffset:  int(unsafe.Offsetof(ev.Udata)),

		SizeofMmsghdr:    int(unsafe.Sizeof(mh)),
		MmsghdrIovOffset: int(unsafe.Offsetof(mh.Hdr) + unsafe.Offsetof(mh.Hdr.Iov)),
		MmsghdrLenOffset: int(unsafe.Offsetof(mh.Len)),
	}
}
