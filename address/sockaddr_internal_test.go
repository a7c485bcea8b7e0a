package address

import (
	"context"
	"testing"
	"unsafe"
)

func TestSockAddrNetworkByteOrder(t *testing.T) {
	sa, err := NewSockAddr(0x0A000102, 0x1F90)
	if err != nil {
		t.Fatal(err)
	}
	defer FreeSockAddr(sa.Pointer())

	raw := sa.raw()
	off := unsafe.Offsetof(rawSockaddr{}.Port)
	got := *(*[2]byte)(unsafe.Pointer(sa.Pointer() + off))
	if got != [2]byte{0x1F, 0x90} {
		t.Fatalf("port bytes %x, want 1f90", got)
	}
	if raw.Addr != [4]byte{10, 0, 1, 2} {
		t.Fatalf("addr bytes %v", raw.Addr)
	}
	if sa.Port() != 8080 || sa.IPv4() != 0x0A000102 {
		t.Fatalf("read back %s", sa)
	}
}

func TestResolvedChainPortOrder(t *testing.T) {
	ai, err := NewResolver(0).Resolve(context.Background(), "127.0.0.1", 443)
	if err != nil {
		t.Fatal(err)
	}
	defer FreeAddrInfo(ai.Pointer())
	if b := *portBytes(ai.First().raw()); b != [2]byte{0x01, 0xBB} {
		t.Fatalf("port bytes %x", b)
	}
	if ai.First().Port() != 443 {
		t.Fatalf("port %d", ai.First().Port())
	}
}
