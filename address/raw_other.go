//go:build !linux && !darwin
// +build !linux,!darwin

package address

type rawSockaddr struct {
	Family uint16
	Port   uint16
	Addr   [4]byte
	Zero   [8]uint8
}

func initRaw(r *rawSockaddr) { r.Family = 2 }
