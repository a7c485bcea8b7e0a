//go:build linux
// +build linux

package address

import "golang.org/x/sys/unix"

type rawSockaddr = unix.RawSockaddrInet4

func initRaw(r *rawSockaddr) { r.Family = unix.AF_INET }
