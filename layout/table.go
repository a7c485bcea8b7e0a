// File: layout/table.go
// Author: momentics <momentics@gmail.com>
//
// Package layout publishes the platform constants and the in-memory layout of
// the native event record used by the reactor. Callers that build change lists
// in raw memory query this table once and never hard-code a value.

package layout

import "sync"

// Table is the read-only set of constants and offsets for one process run.
type Table struct {
	Platform  string
	Supported bool

	EvfiltRead  int16
	EvfiltWrite int16

	EvAdd     uint16
	EvDelete  uint16
	EvOneshot uint16
	EvClear   uint16
	EvEOF     uint16
	EvError   uint16

	EWouldBlock int
	EInProgress int

	SizeofEvent  int
	FdOffset     int
	FilterOffset int
	FlagsOffset  int
	FflagsOffset int
	DataOffset   int
	UdataOffset  int

	// recvmmsg/sendmmsg header array: -1 where the kernel has no such call.
	SizeofMmsghdr    int
	MmsghdrIovOffset int
	MmsghdrLenOffset int
}

var (
	tableOnce sync.Once
	table     Table
)

// Get returns a copy of the process-wide table. The first call fills it.
// Changing the copy has no effect on the module.
func Get() Table { return *shared() }

func shared() *Table {
	tableOnce.Do(func() {
		table = newTable()
	})
	return &table
}

func EvfiltRead() int16     { return shared().EvfiltRead }
func EvfiltWrite() int16    { return shared().EvfiltWrite }
func EvAdd() uint16         { return shared().EvAdd }
func EvDelete() uint16      { return shared().EvDelete }
func EvOneshot() uint16     { return shared().EvOneshot }
func EvClear() uint16       { return shared().EvClear }
func EvEOF() uint16         { return shared().EvEOF }
func EvError() uint16       { return shared().EvError }
func EWouldBlock() int      { return shared().EWouldBlock }
func EInProgress() int      { return shared().EInProgress }
func SizeofEvent() int      { return shared().SizeofEvent }
func FdOffset() int         { return shared().FdOffset }
func FilterOffset() int     { return shared().FilterOffset }
func FlagsOffset() int      { return shared().FlagsOffset }
func FflagsOffset() int     { return shared().FflagsOffset }
func DataOffset() int       { return shared().DataOffset }
func UdataOffset() int      { return shared().UdataOffset }
func SizeofMmsghdr() int    { return shared().SizeofMmsghdr }
func MmsghdrIovOffset() int { return shared().MmsghdrIovOffset }
func MmsghdrLenOffset() int { return shared().MmsghdrLenOffset }
