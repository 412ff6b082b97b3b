// File: internal/txq/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-producer/single-consumer control frame queue: the lock-free ring
// shape of internal/concurrency, specialized from a generic item queue to
// fixed-size byte slots so the producer writes directly into a
// preallocated buffer instead of allocating a new value per control
// frame, matching the ring handle's own slot-reuse discipline.
package txq

import (
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
)

// Queue implements api.ControlQueue over a fixed ring of byte slots. Only
// one goroutine may call the write side and only one (possibly different)
// goroutine may call the read side.
type Queue struct {
	mask  uint64
	slots [][]byte
	lens  []int

	// head is owned by the consumer, tail by the producer. Both are
	// plain atomics so the producer's publish (tail store) happens-before
	// the consumer's observe (tail load), and vice versa for head -- the
	// acquire/release pair publication requires (sync/atomic gives sequential
	// consistency on this platform, a stronger guarantee than required).
	head uint64
	tail uint64

	dropped atomic.Uint64

	writePos uint64 // slot reserved by the in-flight WriteSlot, valid until WriteCommit
	readPos  uint64 // slot reserved by the in-flight ReadSlot, valid until ReadNext
}

var _ api.ControlQueue = (*Queue)(nil)

// New creates a queue with capacity K (rounded up to a power of two) and
// slotSize bytes per control frame (MTU-sized).
func New(capacity, slotSize int) *Queue {
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &Queue{mask: uint64(size - 1), slots: make([][]byte, size), lens: make([]int, size)}
	for i := range q.slots {
		q.slots[i] = make([]byte, slotSize)
	}
	return q
}

// WriteSlot returns the next free slot to fill, or false if the ring is
// full (every slot between head and tail is committed-but-unread).
func (q *Queue) WriteSlot() ([]byte, bool) {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if tail-head >= uint64(len(q.slots)) {
		q.dropped.Add(1)
		return nil, false
	}
	q.writePos = tail
	return q.slots[tail&q.mask], true
}

// WriteCommit publishes the slot reserved by the last WriteSlot call with
// length n bytes. The atomic store of tail is the release: the consumer's
// subsequent load of tail happens-after this write is visible.
func (q *Queue) WriteCommit(n int) {
	q.lens[q.writePos&q.mask] = n
	atomic.StoreUint64(&q.tail, q.writePos+1)
}

// ReadSlot returns the next committed, unread slot, or false if the
// producer has nothing published yet.
func (q *Queue) ReadSlot() ([]byte, bool) {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if head >= tail {
		return nil, false
	}
	q.readPos = head
	idx := head & q.mask
	return q.slots[idx][:q.lens[idx]], true
}

// ReadNext releases the slot returned by the last ReadSlot call, making it
// available to the producer again.
func (q *Queue) ReadNext() {
	atomic.StoreUint64(&q.head, q.readPos+1)
}

// Len reports committed, unread slots.
func (q *Queue) Len() int {
	return int(atomic.LoadUint64(&q.tail) - atomic.LoadUint64(&q.head))
}

// Dropped reports WriteSlot calls that found the ring full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
