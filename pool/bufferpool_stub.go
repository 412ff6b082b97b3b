//go:build !linux
// +build !linux

// File: pool/bufferpool_stub.go
// Author: momentics <momentics@gmail.com>
//
// Plain heap-backed buffer pool for platforms without a NUMA allocator.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
)

type heapBufferPool struct {
	pool       sync.Pool
	totalAlloc atomic.Int64
	totalFree  atomic.Int64
}

func (bp *heapBufferPool) Get(size int, numaPreferred int) api.Buffer {
	bp.totalAlloc.Add(1)
	if raw := bp.pool.Get(); raw != nil {
		b := raw.([]byte)
		if cap(b) >= size {
			return api.Buffer{Data: b[:size], NUMA: -1, Pool: bp}
		}
	}
	return api.Buffer{Data: make([]byte, size), NUMA: -1, Pool: bp}
}

func (bp *heapBufferPool) Put(b api.Buffer) {
	bp.totalFree.Add(1)
	bp.pool.Put(b.Data[:cap(b.Data)])
}

func (bp *heapBufferPool) Stats() api.BufferPoolStats {
	alloc := bp.totalAlloc.Load()
	free := bp.totalFree.Load()
	return api.BufferPoolStats{TotalAlloc: alloc, TotalFree: free, InUse: alloc - free}
}

func newBufferPool(numaNode int) api.BufferPool {
	return &heapBufferPool{}
}
