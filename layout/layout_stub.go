//go:build !linux && !darwin
// +build !linux,!darwin

// File: layout/layout_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub layout for unsupported platforms. Supported is false and every offset
// is -1, so a caller that skipped the check fails loudly instead of writing
// records at offset zero.

package layout

func newTable() Table {
	return Table{
		Platform:     "unsupported",
		SizeofEvent:  -1,
		FdOffset:     -1,
		FilterOffset: -1,
		FlagsOffset:  -1,
		FflagsOffset: -1,
		DataOffset:   -1,
		UdataOffset:  -1,

		SizeofMmsghdr:    -1,
		MmsghdrIovOffset: -1,
		MmsghdrLenOffset: -1,
	}
}
