// File: internal/capture/async.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AsyncTap decouples the tick goroutine from the capture file: Push copies
// the frame into a pooled buffer and enqueues it; a single writer goroutine
// drains the queue into the underlying sink. Capture stays serialized by
// one writer while the hot path never touches the encoder or the file.

package capture

import (
	"sync"
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/concurrency"
	"github.com/rtbrick/bngblaster-core/pool"
)

// captureRecord is one queued frame, or a flush boundary marker when buf
// is the zero Buffer and flush is set.
type captureRecord struct {
	buf        api.Buffer
	n          int
	sec, nsec  int64
	ifaceIndex int
	dir        api.DirectionFlag
	flush      bool
}

// AsyncTap implements api.CaptureSink in front of another sink (normally a
// *Tap). Frame copies come from a fixed-size slab pool over NUMA-pooled
// backing buffers, so the steady state allocates nothing.
type AsyncTap struct {
	sink    api.CaptureSink
	q       *concurrency.LockFreeQueue[captureRecord]
	bufs    api.BufferPool
	snapLen int

	kick    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
	dropped atomic.Uint64
	lastErr atomic.Pointer[error]
}

var _ api.CaptureSink = (*AsyncTap)(nil)

// NewAsync wraps sink with a queue of queueDepth records. Frames longer
// than snapLen are truncated to it, matching the interface description
// block's snap length. numaNode picks where the copy buffers live.
func NewAsync(sink api.CaptureSink, queueDepth, snapLen, numaNode int) *AsyncTap {
	np := pool.NewNUMAPool(numaNode, snapLen, numaNode >= 0)
	slab := pool.NewSlabPool(snapLen,
		func(size, node int) api.Buffer {
			return api.Buffer{Data: np.Get(), NUMA: node}
		},
		func(b api.Buffer) {
			np.Put(b.Data[:cap(b.Data)])
		})
	t := &AsyncTap{
		sink:    sink,
		q:       concurrency.NewLockFreeQueue[captureRecord](queueDepth),
		bufs:    slab,
		snapLen: snapLen,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	t.wg.Add(1)
	go t.writeLoop()
	return t
}

// Push copies buf and enqueues it for the writer goroutine. A full queue
// drops the frame and counts it; capture loss must never stall the tick.
func (t *AsyncTap) Push(timestampSec, timestampNsec int64, buf []byte, ifaceIndex int, dir api.DirectionFlag) {
	if t.stopped.Load() {
		return
	}
	n := len(buf)
	if n > t.snapLen {
		n = t.snapLen
	}
	cp := t.bufs.Get(t.snapLen, -1)
	copy(cp.Data[:n], buf[:n])
	rec := captureRecord{buf: cp, n: n, sec: timestampSec, nsec: timestampNsec, ifaceIndex: ifaceIndex, dir: dir}
	if !t.q.Enqueue(rec) {
		t.dropped.Add(1)
		t.bufs.Put(cp)
		return
	}
	t.wake()
}

// Flush enqueues a boundary marker so the underlying sink flushes after
// everything pushed before it has been written.
func (t *AsyncTap) Flush() {
	if t.stopped.Load() {
		return
	}
	if t.q.Enqueue(captureRecord{flush: true}) {
		t.wake()
	}
}

// FlushErr requests a flush and reports the most recent asynchronous write
// error, if any has occurred since the last call.
func (t *AsyncTap) FlushErr() error {
	t.Flush()
	if p := t.lastErr.Swap(nil); p != nil {
		return *p
	}
	return nil
}

// Dropped reports frames lost to a full queue.
func (t *AsyncTap) Dropped() uint64 { return t.dropped.Load() }

// Close stops the writer after draining everything already queued, flushes
// the underlying sink, and returns its final flush error.
func (t *AsyncTap) Close() error {
	if !t.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(t.done)
	t.wg.Wait()
	t.drain()
	return t.sink.FlushErr()
}

func (t *AsyncTap) wake() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

func (t *AsyncTap) writeLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case <-t.kick:
			t.drain()
		}
	}
}

func (t *AsyncTap) drain() {
	for {
		rec, ok := t.q.Dequeue()
		if !ok {
			return
		}
		if rec.flush {
			if err := t.sink.FlushErr(); err != nil {
				t.lastErr.Store(&err)
			}
			continue
		}
		t.sink.Push(rec.sec, rec.nsec, rec.buf.Data[:rec.n], rec.ifaceIndex, rec.dir)
		t.bufs.Put(rec.buf)
	}
}
