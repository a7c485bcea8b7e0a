// File: pool/slab_pool.go
// Package pool implements fixed-size native buffer reuse.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-netio/api"
)

// SlabStats aggregates buffer allocation/reuse stats for one NativePool.
type SlabStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
	Idle       int
}

// NativePool hands out fixed-size native buffers and keeps up to maxIdle of
// them for reuse. Safe for concurrent use.
type NativePool struct {
	size    int
	maxIdle int
	tag     MemoryTag

	mu     sync.Mutex
	idle   *queue.Queue
	closed bool

	totalAlloc int64
	totalFree  int64
	inUse      int64
}

const defaultPoolCapacity = 4096

// NewNativePool creates a pool of size-byte buffers. maxIdle <= 0 selects the
// default capacity.
func NewNativePool(size, maxIdle int, tag MemoryTag) *NativePool {
	if maxIdle <= 0 {
		maxIdle = defaultPoolCapacity
	}
	return &NativePool{
		size:    size,
		maxIdle: maxIdle,
		tag:     tag,
		idle:    queue.New(),
	}
}

// Size returns the byte size of every buffer.
func (p *NativePool) Size() int { return p.size }

// Get returns a buffer address, reusing an idle one when available. Reused
// buffers are not cleared.
func (p *NativePool) Get() (uintptr, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, fmt.Errorf("pool: get from closed pool: %w", api.ErrInvalidArgument)
	}
	if p.idle.Length() > 0 {
		addr := p.idle.Remove().(uintptr)
		p.inUse++
		p.mu.Unlock()
		return addr, nil
	}
	p.mu.Unlock()

	addr, err := Malloc(p.size, p.tag)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.totalAlloc++
	p.inUse++
	p.mu.Unlock()
	return addr, nil
}

// Put returns a buffer obtained from Get.
func (p *NativePool) Put(addr uintptr) {
	if addr == 0 {
		return
	}
	p.mu.Lock()
	p.inUse--
	if !p.closed && p.idle.Length() < p.maxIdle {
		p.idle.Add(addr)
		p.mu.Unlock()
		return
	}
	p.totalFree++
	p.mu.Unlock()
	_ = Free(addr)
}

// Close frees every idle buffer. Buffers still out are freed on Put.
func (p *NativePool) Close() {
	p.mu.Lock()
	p.closed = true
	var addrs []uintptr
	for p.idle.Length() > 0 {
		addrs = append(addrs, p.idle.Remove().(uintptr))
	}
	p.totalFree += int64(len(addrs))
	p.mu.Unlock()
	for _, a := range addrs {
		_ = Free(a)
	}
}

// Stats exposes resource/accounting metrics for observability.
func (p *NativePool) Stats() SlabStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SlabStats{
		TotalAlloc: p.totalAlloc,
		TotalFree:  p.totalFree,
		InUse:      p.inUse,
		Idle:       p.idle.Length(),
	}
}
