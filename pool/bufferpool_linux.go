//go:build linux
// +build linux

// Package pool
// Author: momentics <momentics@gmail.com>
//
// Linux-specific NUMA-aware, zero-copy buffer pool implementation. Backing
// storage for each NUMA node is obtained through the libnuma-backed
// NUMAAllocator (numa_linux.go) when available, falling back to plain heap
// allocation under !cgo or when libnuma reports the node unavailable.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
)

// linuxBufferPool implements api.BufferPool for one NUMA node, recycling
// []byte slices through a sync.Pool keyed by a fixed allocation size.
type linuxBufferPool struct {
	pool       sync.Pool
	numaId     int
	bufSize    int
	na         NUMAAllocator
	totalAlloc atomic.Int64
	totalFree  atomic.Int64
}

func (bp *linuxBufferPool) alloc(size int) []byte {
	if bp.na != nil {
		if b, err := bp.na.Alloc(size, bp.numaId); err == nil {
			return b
		}
	}
	return make([]byte, size)
}

func (bp *linuxBufferPool) Get(size int, numaPreferred int) api.Buffer {
	bp.totalAlloc.Add(1)
	if raw := bp.pool.Get(); raw != nil {
		b := raw.([]byte)
		if cap(b) >= size {
			b = b[:size]
			return api.Buffer{Data: b, NUMA: bp.numaId, Pool: bp, Class: bp.bufSize}
		}
	}
	return api.Buffer{Data: bp.alloc(size), NUMA: bp.numaId, Pool: bp, Class: bp.bufSize}
}

func (bp *linuxBufferPool) Put(b api.Buffer) {
	bp.totalFree.Add(1)
	bp.pool.Put(b.Data[:cap(b.Data)])
}

func (bp *linuxBufferPool) Stats() api.BufferPoolStats {
	alloc := bp.totalAlloc.Load()
	free := bp.totalFree.Load()
	return api.BufferPoolStats{
		TotalAlloc: alloc,
		TotalFree:  free,
		InUse:      alloc - free,
		NUMAStats:  map[int]int64{bp.numaId: alloc - free},
	}
}

// newBufferPool (Linux) creates a buffer pool for the specified NUMA node.
// TODO: Advanced hugepage, mmap, or memfd usage for ultra-low-latency buffer blocks.
func newBufferPool(numaNode int) api.BufferPool {
	return &linuxBufferPool{
		numaId:  numaNode,
		bufSize: 65536, // default buffer size
		na:      createNUMAAllocator(),
	}
}
