// File: address/ipv4.go
// Author: momentics <momentics@gmail.com>

package address

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/momentics/hioload-netio/api"
)

// ParseIPv4 parses dotted-quad text into a host-order value.
func ParseIPv4(s string) (uint32, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return 0, fmt.Errorf("address: %q is not an IPv4 literal: %w", s, api.ErrInvalidArgument)
	}
	b := a.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

// FormatIPv4 renders a host-order value as dotted-quad text.
func FormatIPv4(ip uint32) string {
	buf := make([]byte, 0, 15)
	for shift := 24; shift >= 0; shift -= 8 {
		buf = strconv.AppendUint(buf, uint64(byte(ip>>shift)), 10)
		if shift > 0 {
			buf = append(buf, '.')
		}
	}
	return string(buf)
}
