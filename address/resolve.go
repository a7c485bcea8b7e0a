// File: address/resolve.go
// Author: momentics <momentics@gmail.com>
//
// Host name resolution into native IPv4 address chains.

package address

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"
	"unsafe"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/pool"
)

// Resolution error codes, with the getaddrinfo EAI_* meanings.
const (
	EAINoName = -2
	EAIAgain  = -3
	EAIFail   = -4
)

// ResolveError reports a failed resolution with its EAI code.
type ResolveError struct {
	Host string
	Code int
	Err  error
}

func (e *ResolveError) Error() string {
	msg := "address: resolve " + strconv.Quote(e.Host) + ": eai " + strconv.Itoa(e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Errno exposes the EAI code to the facade's error side channel.
func (e *ResolveError) Errno() int { return e.Code }

func (e *ResolveError) Unwrap() []error {
	if e.Err == nil {
		return []error{api.ErrResolve}
	}
	return []error{api.ErrResolve, e.Err}
}

// AddrInfo is a resolved chain of IPv4 stream endpoints, stored as
// contiguous native sockaddr_in records.
type AddrInfo struct {
	ptr   uintptr
	host  string
	n     int
	elems []*SockAddr
}

// Pointer returns the address of the first native record.
func (a *AddrInfo) Pointer() uintptr { return a.ptr }

// Host is the name that was resolved.
func (a *AddrInfo) Host() string { return a.host }

// Len is the number of endpoints in the chain.
func (a *AddrInfo) Len() int { return a.n }

// At returns endpoint i. The view is owned by the chain.
func (a *AddrInfo) At(i int) *SockAddr { return a.elems[i] }

// First is the endpoint a connect uses.
func (a *AddrInfo) First() *SockAddr { return a.elems[0] }

func (a *AddrInfo) free() error {
	err := pool.Free(a.ptr)
	a.ptr, a.elems, a.n = 0, nil, 0
	return err
}

// FreeAddrInfo releases a chain returned by Resolve. Null and unknown
// pointers are ignored. A literal address pointer is refused.
func FreeAddrInfo(ptr uintptr) error {
	return release(ptr, kindAddrInfo)
}

// Resolver resolves host names with the process network resolver.
type Resolver struct {
	r       *net.Resolver
	timeout time.Duration
}

// NewResolver uses timeout per lookup; zero disables the extra deadline.
func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{r: net.DefaultResolver, timeout: timeout}
}

// DefaultResolver reads its timeout from the active configuration.
func DefaultResolver() *Resolver {
	cfg := control.Store().GetSnapshot()
	return NewResolver(time.Duration(cfg.Net.ResolveTimeoutMs) * time.Millisecond)
}

// Resolve is DefaultResolver().Resolve.
func Resolve(ctx context.Context, host string, port int) (*AddrInfo, error) {
	return DefaultResolver().Resolve(ctx, host, port)
}

// Resolve looks host up for IPv4 stream use and builds a chain with port
// applied to every endpoint. Literal addresses resolve without a lookup.
func (r *Resolver) Resolve(ctx context.Context, host string, port int) (*AddrInfo, error) {
	if port < 0 || port > 0xFFFF {
		return nil, fmt.Errorf("address: port %d: %w", port, api.ErrInvalidArgument)
	}
	ips, err := r.lookup(ctx, host)
	if err != nil {
		control.Metrics().ResolveFailures.Inc()
		return nil, err
	}

	var zero rawSockaddr
	size := int(unsafe.Sizeof(zero))
	base, err := pool.Calloc(len(ips), size, pool.TagDefault)
	if err != nil {
		return nil, err
	}
	ai := &AddrInfo{ptr: base, host: host, n: len(ips), elems: make([]*SockAddr, len(ips))}
	for i, ip := range ips {
		sa := &SockAddr{ptr: base + uintptr(i*size)}
		raw := sa.raw()
		initRaw(raw)
		binary.BigEndian.PutUint16(portBytes(raw)[:], uint16(port))
		raw.Addr = ip.As4()
		ai.elems[i] = sa
	}
	track(base, ai)
	return ai, nil
}

func (r *Resolver) lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	if host == "" {
		return nil, &ResolveError{Host: host, Code: EAINoName}
	}
	if a, err := netip.ParseAddr(host); err == nil {
		if !a.Is4() {
			return nil, &ResolveError{Host: host, Code: EAINoName}
		}
		return []netip.Addr{a}, nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	addrs, err := r.r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, &ResolveError{Host: host, Code: eaiCode(err), Err: err}
	}
	out := addrs[:0]
	for _, a := range addrs {
		if a = a.Unmap(); a.Is4() {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, &ResolveError{Host: host, Code: EAINoName}
	}
	return out, nil
}

func eaiCode(err error) int {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return EAINoName
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return EAIAgain
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return EAIAgain
	}
	return EAIFail
}
