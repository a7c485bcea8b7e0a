// File: pool/native.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Tracked native allocator. Addresses handed out here stay valid and fixed
// until Free, so they can be passed to the kernel and stored in records.

package pool

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
)

// MemoryTag classifies native allocations for accounting.
type MemoryTag int

const (
	TagDefault MemoryTag = iota
	TagRecords
	TagIO
	TagStrings
	tagCount
)

func (t MemoryTag) String() string {
	switch t {
	case TagRecords:
		return "records"
	case TagIO:
		return "io"
	case TagStrings:
		return "strings"
	default:
		return "default"
	}
}

// TagStats is the accounting for one tag.
type TagStats struct {
	Allocs int64
	Frees  int64
	Bytes  int64
}

type region struct {
	mem []byte
	tag MemoryTag
}

var (
	mu      sync.Mutex
	regions = make(map[uintptr]region)
	stats   [tagCount]TagStats
)

func init() {
	control.Probes().RegisterProbe("pool.native", func() any { return Stats() })
}

// Malloc returns the address of size zeroed bytes of native memory.
func Malloc(size int, tag MemoryTag) (uintptr, error) {
	if size <= 0 {
		return 0, fmt.Errorf("pool: malloc %d bytes: %w", size, api.ErrInvalidArgument)
	}
	if tag < 0 || tag >= tagCount {
		tag = TagDefault
	}
	mem, err := mapMemory(size)
	if err != nil {
		return 0, fmt.Errorf("pool: malloc %d bytes: %w", size, err)
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))

	mu.Lock()
	regions[addr] = region{mem: mem, tag: tag}
	stats[tag].Allocs++
	stats[tag].Bytes += int64(len(mem))
	mu.Unlock()

	control.Metrics().NativeBytes.WithLabelValues(tag.String()).Add(float64(len(mem)))
	return addr, nil
}

// Calloc allocates n*size zeroed bytes.
func Calloc(n, size int, tag MemoryTag) (uintptr, error) {
	if n <= 0 || size <= 0 || n > int(^uint(0)>>1)/size {
		return 0, fmt.Errorf("pool: calloc %dx%d: %w", n, size, api.ErrInvalidArgument)
	}
	return Malloc(n*size, tag)
}

// Free releases a region returned by Malloc. Zero is a no-op; an address
// that is not the start of a live region is an error and nothing is freed.
func Free(addr uintptr) error {
	if addr == 0 {
		return nil
	}
	mu.Lock()
	r, ok := regions[addr]
	if ok {
		delete(regions, addr)
		stats[r.tag].Frees++
		stats[r.tag].Bytes -= int64(len(r.mem))
	}
	mu.Unlock()
	if !ok {
		return fmt.Errorf("pool: free %#x: %w", addr, api.ErrInvalidArgument)
	}
	control.Metrics().NativeBytes.WithLabelValues(r.tag.String()).Sub(float64(len(r.mem)))
	return unmapMemory(r.mem)
}

// SizeOf returns the byte size of the live region starting at addr, or -1.
func SizeOf(addr uintptr) int {
	mu.Lock()
	defer mu.Unlock()
	if r, ok := regions[addr]; ok {
		return len(r.mem)
	}
	return -1
}

// Bytes views n bytes at addr. The caller guarantees the range is live.
func Bytes(addr uintptr, n int) []byte {
	if addr == 0 || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// containing returns the live region holding addr and the offset into it.
func containing(addr uintptr) ([]byte, int, bool) {
	mu.Lock()
	defer mu.Unlock()
	for base, r := range regions {
		if addr >= base && addr < base+uintptr(len(r.mem)) {
			return r.mem, int(addr - base), true
		}
	}
	return nil, 0, false
}

// CString reads a NUL-terminated string at addr. The scan never leaves the
// native region that holds addr.
func CString(addr uintptr) (string, error) {
	if addr == 0 {
		return "", fmt.Errorf("pool: cstring at null: %w", api.ErrInvalidArgument)
	}
	mem, off, ok := containing(addr)
	if !ok {
		return "", fmt.Errorf("pool: cstring %#x outside native memory: %w", addr, api.ErrInvalidArgument)
	}
	for i := off; i < len(mem); i++ {
		if mem[i] == 0 {
			return string(mem[off:i]), nil
		}
	}
	return "", fmt.Errorf("pool: cstring %#x not terminated: %w", addr, api.ErrInvalidArgument)
}

// PutCString copies s plus a NUL terminator into a new TagStrings region.
func PutCString(s string) (uintptr, error) {
	addr, err := Malloc(len(s)+1, TagStrings)
	if err != nil {
		return 0, err
	}
	b := Bytes(addr, len(s)+1)
	copy(b, s)
	b[len(s)] = 0
	return addr, nil
}

// Stats returns accounting keyed by tag name.
func Stats() map[string]TagStats {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]TagStats, tagCount)
	for t := MemoryTag(0); t < tagCount; t++ {
		out[t.String()] = stats[t]
	}
	return out
}

// Live returns the number of live regions.
func Live() int {
	mu.Lock()
	defer mu.Unlock()
	return len(regions)
}
