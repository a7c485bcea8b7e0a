package address_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/api"
)

func TestNewSockAddrRoundTrip(t *testing.T) {
	ip, err := address.ParseIPv4("127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	sa, err := address.NewSockAddr(ip, 8080)
	if err != nil {
		t.Fatal(err)
	}
	defer address.FreeSockAddr(sa.Pointer())

	if sa.IPv4() != 0x7F000001 || sa.Port() != 8080 {
		t.Fatalf("got %s", sa)
	}
	if sa.String() != "127.0.0.1:8080" {
		t.Fatalf("String()=%q", sa.String())
	}
	if b := sa.Addr4(); b != [4]byte{127, 0, 0, 1} {
		t.Fatalf("network order bytes %v", b)
	}
	got, err := address.LookupSockAddr(sa.Pointer())
	if err != nil || got != sa {
		t.Fatalf("lookup: %v", err)
	}
}

func TestNewSockAddrRejectsBadPort(t *testing.T) {
	if _, err := address.NewSockAddr(0, 70000); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}

func TestFreeNullAndDoubleFree(t *testing.T) {
	if err := address.FreeSockAddr(0); err != nil {
		t.Fatalf("free null sockaddr: %v", err)
	}
	if err := address.FreeAddrInfo(0); err != nil {
		t.Fatalf("free null addrinfo: %v", err)
	}

	before := address.SockAddrCount()
	sa, err := address.NewSockAddr(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if address.SockAddrCount() != before+1 {
		t.Fatalf("count %d, want %d", address.SockAddrCount(), before+1)
	}
	ptr := sa.Pointer()
	if err := address.FreeSockAddr(ptr); err != nil {
		t.Fatal(err)
	}
	if err := address.FreeSockAddr(ptr); err != nil {
		t.Fatalf("double free: %v", err)
	}
	if address.SockAddrCount() != before {
		t.Fatalf("count %d after free, want %d", address.SockAddrCount(), before)
	}
	if _, err := address.LookupSockAddr(ptr); !errors.Is(err, api.ErrUnknownAddress) {
		t.Fatalf("lookup after free: %v", err)
	}
}

func TestWrongKindFreeLeavesRecordAlive(t *testing.T) {
	sa, err := address.NewSockAddr(0x7F000001, 80)
	if err != nil {
		t.Fatal(err)
	}
	if err := address.FreeAddrInfo(sa.Pointer()); !errors.Is(err, api.ErrWrongAddressKind) {
		t.Fatalf("err=%v", err)
	}
	if _, err := address.LookupSockAddr(sa.Pointer()); err != nil {
		t.Fatalf("record gone after refused free: %v", err)
	}
	if err := address.FreeSockAddr(sa.Pointer()); err != nil {
		t.Fatal(err)
	}

	ai, err := address.Resolve(context.Background(), "127.0.0.1", 80)
	if err != nil {
		t.Fatal(err)
	}
	if err := address.FreeSockAddr(ai.Pointer()); !errors.Is(err, api.ErrWrongAddressKind) {
		t.Fatalf("err=%v", err)
	}
	if err := address.FreeAddrInfo(ai.Pointer()); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLiteralAndLocalhost(t *testing.T) {
	before := address.AddrInfoCount()
	for _, host := range []string{"127.0.0.1", "localhost"} {
		ai, err := address.Resolve(context.Background(), host, 9000)
		if err != nil {
			t.Fatalf("%s: %v", host, err)
		}
		if ai.Len() == 0 || ai.Host() != host {
			t.Fatalf("%s: empty chain", host)
		}
		for i := 0; i < ai.Len(); i++ {
			if ai.At(i).Port() != 9000 {
				t.Fatalf("%s[%d] port %d", host, i, ai.At(i).Port())
			}
		}
		if host == "127.0.0.1" && ai.First().IPv4() != 0x7F000001 {
			t.Fatalf("literal resolved to %s", ai.First())
		}
		if err := address.FreeAddrInfo(ai.Pointer()); err != nil {
			t.Fatal(err)
		}
	}
	if address.AddrInfoCount() != before {
		t.Fatalf("leaked chains: %d", address.AddrInfoCount()-before)
	}
}

func TestResolveFailureCarriesCode(t *testing.T) {
	r := address.NewResolver(2 * time.Second)
	for _, host := range []string{"", "::1", "no-such-host.invalid"} {
		ai, err := r.Resolve(context.Background(), host, 80)
		if ai != nil {
			t.Fatalf("%q: got a chain", host)
		}
		var re *address.ResolveError
		if !errors.As(err, &re) {
			t.Fatalf("%q: err=%v", host, err)
		}
		if !errors.Is(err, api.ErrResolve) {
			t.Fatalf("%q: not ErrResolve", host)
		}
		if api.ErrnoOf(err) >= 0 {
			t.Fatalf("%q: code %d", host, api.ErrnoOf(err))
		}
	}
}

func TestFormatParseIPv4(t *testing.T) {
	cases := map[string]uint32{
		"0.0.0.0":         0,
		"10.1.2.3":        0x0A010203,
		"255.255.255.255": 0xFFFFFFFF,
		"224.0.0.251":     0xE00000FB,
	}
	for s, v := range cases {
		got, err := address.ParseIPv4(s)
		if err != nil || got != v {
			t.Errorf("ParseIPv4(%q)=%#x,%v", s, got, err)
		}
		if address.FormatIPv4(v) != s {
			t.Errorf("FormatIPv4(%#x)=%q", v, address.FormatIPv4(v))
		}
	}
	if _, err := address.ParseIPv4("::1"); err == nil {
		t.Error("IPv6 accepted")
	}
}

func TestStaleFreeDoesNotReleaseNewRecord(t *testing.T) {
	first, err := address.NewSockAddr(0x7F000001, 1000)
	if err != nil {
		t.Fatal(err)
	}
	stale := first.Pointer()
	if err := address.FreeSockAddr(stale); err != nil {
		t.Fatal(err)
	}

	second, err := address.NewSockAddr(0x7F000001, 2000)
	if err != nil {
		t.Fatal(err)
	}
	defer address.FreeSockAddr(second.Pointer())
	if second.Pointer() == stale {
		t.Fatalf("freed address %#x handed out again while quarantined", stale)
	}

	if err := address.FreeSockAddr(stale); err != nil {
		t.Fatalf("repeated free: %v", err)
	}
	got, err := address.LookupSockAddr(second.Pointer())
	if err != nil || got.Port() != 2000 {
		t.Fatalf("live record damaged by a stale free: %v", err)
	}
}

func TestQuarantineIsBounded(t *testing.T) {
	for i := 0; i < address.QuarantineSize+8; i++ {
		sa, err := address.NewSockAddr(0, i&0xFFFF)
		if err != nil {
			t.Fatal(err)
		}
		if err := address.FreeSockAddr(sa.Pointer()); err != nil {
			t.Fatal(err)
		}
	}
	if q := address.Quarantined(); q != address.QuarantineSize {
		t.Fatalf("quarantined %d, want %d", q, address.QuarantineSize)
	}
}
