// File: address/sockaddr.go
// Author: momentics <momentics@gmail.com>
//
// Literal IPv4 socket addresses in native sockaddr_in form.

package address

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"unsafe"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/pool"
)

// SockAddr is one IPv4 endpoint. Port and address are stored in network
// byte order, exactly as the kernel expects them.
type SockAddr struct {
	ptr uintptr
}

// NewSockAddr builds a literal address from a host-order IPv4 value and port.
func NewSockAddr(ipv4 uint32, port int) (*SockAddr, error) {
	if port < 0 || port > 0xFFFF {
		return nil, fmt.Errorf("address: port %d: %w", port, api.ErrInvalidArgument)
	}
	sa, err := allocSockAddr(ipv4, port)
	if err != nil {
		return nil, err
	}
	track(sa.ptr, sa)
	return sa, nil
}

func allocSockAddr(ipv4 uint32, port int) (*SockAddr, error) {
	var zero rawSockaddr
	ptr, err := pool.Malloc(int(unsafe.Sizeof(zero)), pool.TagDefault)
	if err != nil {
		return nil, err
	}
	sa := &SockAddr{ptr: ptr}
	raw := sa.raw()
	initRaw(raw)
	binary.BigEndian.PutUint16(portBytes(raw)[:], uint16(port))
	binary.BigEndian.PutUint32(raw.Addr[:], ipv4)
	return sa, nil
}

func (s *SockAddr) raw() *rawSockaddr { return (*rawSockaddr)(unsafe.Pointer(s.ptr)) }

// portBytes views the port field as the two network-order bytes the kernel
// reads, whatever integer type the platform declares it with.
func portBytes(r *rawSockaddr) *[2]byte { return (*[2]byte)(unsafe.Pointer(&r.Port)) }

// Pointer returns the address of the native record; it is also the handle
// used by the registry.
func (s *SockAddr) Pointer() uintptr { return s.ptr }

// Len is the byte size of the native record.
func (s *SockAddr) Len() int { return int(unsafe.Sizeof(rawSockaddr{})) }

// IPv4 returns the address in host byte order.
func (s *SockAddr) IPv4() uint32 { return binary.BigEndian.Uint32(s.raw().Addr[:]) }

// Port returns the port in host byte order.
func (s *SockAddr) Port() int { return int(binary.BigEndian.Uint16(portBytes(s.raw())[:])) }

// Addr4 returns the IPv4 bytes, ready for unix.SockaddrInet4.
func (s *SockAddr) Addr4() [4]byte { return s.raw().Addr }

// AddrPort converts to the net/netip form.
func (s *SockAddr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(s.Addr4()), uint16(s.Port()))
}

func (s *SockAddr) String() string {
	return FormatIPv4(s.IPv4()) + ":" + strconv.Itoa(s.Port())
}

// FreeSockAddr releases a record created by NewSockAddr. Null and unknown
// pointers are ignored. An address chain pointer is refused.
func FreeSockAddr(ptr uintptr) error {
	return release(ptr, kindSockAddr)
}

func (s *SockAddr) free() error {
	err := pool.Free(s.ptr)
	s.ptr = 0
	return err
}
