// Package pool
// Author: momentics <momentics@gmail.com>
//
// Native (off-heap) memory for raw event records and I/O buffers.
// Regions are anonymous private mappings on Unix and pinned heap slices
// elsewhere; every region is tracked by address and accounted per MemoryTag.
// See native.go for the allocator and slab_pool.go for fixed-size reuse.
package pool
