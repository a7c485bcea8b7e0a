//go:build darwin
// +build darwin

// File: layout/layout_darwin.go
// Author: momentics <momentics@gmail.com>
//
// Darwin kqueue layout: the record is the kernel's struct kevent.

package layout

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func newTable() Table {
	var ev unix.Kevent_t
	return Table{
		Platform:     "darwin/kqueue",
		Supported:    true,
		EvfiltRead:   unix.EVFILT_READ,
		EvfiltWrite:  unix.EVFILT_WRITE,
		EvAdd:        unix.EV_ADD,
		EvDelete:     unix.EV_DELETE,
		EvOneshot:    unix.EV_ONESHOT,
		EvClear:      unix.EV_CLEAR,
		EvEOF:        unix.EV_EOF,
		EvError:      unix.EV_ERROR,
		EWouldBlock:  int(unix.EWOULDBLOCK),
		EInProgress:  int(unix.EINPROGRESS),
		SizeofEvent:  int(unsafe.Sizeof(ev)),
		FdOffset:     int(unsafe.Offsetof(ev.Ident)),
		FilterOffset: int(unsafe.Offsetof(ev.Filter)),
		FlagsOffset:  int(unsafe.Offsetof(ev.Flags)),
		FflagsOffset: int(unsafe.Offsetof(ev.Fflags)),
		DataOffset:   int(unsafe.Offsetof(ev.Data)),
		UdataOffset:  int(unsafe.Offsetof(ev.Udata)),

		SizeofMmsghdr:    -1,
		MmsghdrIovOffset: -1,
		MmsghdrLenOffset: -1,
	}
}
