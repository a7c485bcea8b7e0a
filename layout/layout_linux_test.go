//go:build linux
// +build linux

package layout_test

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netio/layout"
)

func TestMmsghdrOffsetsMatchKernel(t *testing.T) {
	tab := layout.Get()
	if tab.SizeofMmsghdr <= tab.MmsghdrLenOffset || tab.MmsghdrIovOffset < 0 {
		t.Fatalf("bad mmsghdr layout: %+v", tab)
	}

	p, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])
	if _, err := unix.Write(p[1], []byte("hello")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 64)
	iov := unix.Iovec{Base: &buf[0]}
	iov.SetLen(len(buf))
	msgs := make([]layout.Mmsghdr, 2)
	msgs[0].Hdr.Iov = &iov
	msgs[0].Hdr.SetIovlen(1)

	n, _, errno := unix.Syscall6(unix.SYS_RECVMMSG, uintptr(p[0]),
		uintptr(unsafe.Pointer(&msgs[0])), 1, unix.MSG_DONTWAIT, 0, 0)
	if errno != 0 || n != 1 {
		t.Fatalf("recvmmsg n=%d errno=%v", n, errno)
	}

	base := uintptr(unsafe.Pointer(&msgs[0]))
	if got := *(*uint32)(unsafe.Pointer(base + uintptr(tab.MmsghdrLenOffset))); got != 5 {
		t.Fatalf("length at published offset = %d, want 5", got)
	}
	if got := *(**unix.Iovec)(unsafe.Pointer(base + uintptr(tab.MmsghdrIovOffset))); got != &iov {
		t.Fatal("iov pointer not at published offset")
	}
	if next := uintptr(unsafe.Pointer(&msgs[1])) - base; int(next) != tab.SizeofMmsghdr {
		t.Fatalf("array stride %d, want %d", next, tab.SizeofMmsghdr)
	}
	if string(buf[:5]) != "hello" {
		t.Fatalf("payload %q", buf[:5])
	}
}
