// File: layout/records.go
// Author: momentics <momentics@gmail.com>
//
// Typed view over a caller-owned array of native event records. This is the
// only place in the module that does offset arithmetic on raw record memory.

package layout

import (
	"fmt"
	"unsafe"
)

// Records is a view of n contiguous native event records starting at base.
// The view does not own the memory; the caller keeps it alive and mapped.
type Records struct {
	base uintptr
	n    int
	t    *Table
}

// View wraps n records at base using the process layout table.
func View(base uintptr, n int) Records {
	if n < 0 {
		n = 0
	}
	return Records{base: base, n: n, t: shared()}
}

// Base returns the address of record 0.
func (r Records) Base() uintptr { return r.base }

// Len returns the record capacity of the view.
func (r Records) Len() int { return r.n }

// Pointer returns base as an unsafe.Pointer for syscall wrappers that take
// typed slices of native records.
func (r Records) Pointer() unsafe.Pointer { return unsafe.Pointer(r.base) }

// IsNil reports whether the view has no backing memory.
func (r Records) IsNil() bool { return r.base == 0 || r.n == 0 }

// Size returns the byte size of the viewed array.
func (r Records) Size() int {
	if r.t == nil {
		return 0
	}
	return r.n * r.t.SizeofEvent
}

// Slice returns the sub-view [from, to).
func (r Records) Slice(from, to int) Records {
	if from < 0 || to > r.n || from > to {
		panic(fmt.Sprintf("layout: slice [%d:%d] out of range [0:%d]", from, to, r.n))
	}
	if r.t == nil {
		// Zero view: only [0:0] gets here.
		return Records{}
	}
	return Records{base: r.base + uintptr(from*r.t.SizeofEvent), n: to - from, t: r.t}
}

// At returns the address of record i.
func (r Records) At(i int) uintptr {
	if i < 0 || i >= r.n {
		panic(fmt.Sprintf("layout: record index %d out of range [0:%d]", i, r.n))
	}
	return r.base + uintptr(i*r.t.SizeofEvent)
}

func (r Records) field(i, off int) unsafe.Pointer {
	return unsafe.Pointer(r.At(i) + uintptr(off))
}

// Fd returns the descriptor of record i.
func (r Records) Fd(i int) int { return int(*(*uint64)(r.field(i, r.t.FdOffset))) }

func (r Records) SetFd(i, fd int) { *(*uint64)(r.field(i, r.t.FdOffset)) = uint64(fd) }

func (r Records) Filter(i int) int16 { return *(*int16)(r.field(i, r.t.FilterOffset)) }

func (r Records) SetFilter(i int, f int16) { *(*int16)(r.field(i, r.t.FilterOffset)) = f }

func (r Records) Flags(i int) uint16 { return *(*uint16)(r.field(i, r.t.FlagsOffset)) }

func (r Records) SetFlags(i int, f uint16) { *(*uint16)(r.field(i, r.t.FlagsOffset)) = f }

func (r Records) Fflags(i int) uint32 { return *(*uint32)(r.field(i, r.t.FflagsOffset)) }

func (r Records) SetFflags(i int, f uint32) { *(*uint32)(r.field(i, r.t.FflagsOffset)) = f }

// Data is the kernel-reported value: bytes available, or errno on EV_ERROR.
func (r Records) Data(i int) int64 { return *(*int64)(r.field(i, r.t.DataOffset)) }

func (r Records) SetData(i int, d int64) { *(*int64)(r.field(i, r.t.DataOffset)) = d }

// Udata is the opaque correlation slot carried from change to fired record.
func (r Records) Udata(i int) uint64 { return *(*uint64)(r.field(i, r.t.UdataOffset)) }

func (r Records) SetUdata(i int, u uint64) { *(*uint64)(r.field(i, r.t.UdataOffset)) = u }

// Zero clears record i.
func (r Records) Zero(i int) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(r.At(i))), r.t.SizeofEvent)
	clear(b)
}

// Set writes a complete change record.
func (r Records) Set(i, fd int, filter int16, flags uint16, udata uint64) {
	r.Zero(i)
	r.SetFd(i, fd)
	r.SetFilter(i, filter)
	r.SetFlags(i, flags)
	r.SetUdata(i, udata)
}

// Has reports whether record i carries every bit of flag.
func (r Records) Has(i int, flag uint16) bool { return r.Flags(i)&flag == flag }
