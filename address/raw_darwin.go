//go:build darwin
// +build darwin

package address

import "golang.org/x/sys/unix"

type rawSockaddr = unix.RawSockaddrInet4

// BSD sockaddrs carry their own length.
func initRaw(r *rawSockaddr) {
	r.Len = unix.SizeofSockaddrInet4
	r.Family = unix.AF_INET
}
