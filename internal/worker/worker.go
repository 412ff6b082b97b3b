// File: internal/worker/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Optional per-ring worker goroutines. When a worker owns a ring, the
// main scheduler never touches it: the ring is goroutine-local.
//
// The two sides are deliberately asymmetric: the RX worker free-runs with
// a two-speed sleep backoff and never touches a timer wheel; the TX worker
// wraps a private, single-goroutine internal/timer.Wheel and lets the
// periodic egress job drive pacing.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rtbrick/bngblaster-core/internal/timer"
)

// Backoff intervals: idle when RxClaim/TxReserve found nothing, active
// right after a productive iteration.
const (
	idleBackoff   = 100 * time.Microsecond
	activeBackoff = 1 * time.Microsecond
)

// PinFunc pins the calling goroutine's OS thread to a CPU/NUMA node;
// tests inject a no-op, production wires the affinity package's shim.
type PinFunc func(numaNode, cpuID int)

// RXWorker free-runs an ingress job in its own goroutine, never touching a
// timer wheel.
type RXWorker struct {
	active atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewRXWorker starts a goroutine that calls job(now) on every iteration,
// backing off idleBackoff when job reports zero frames processed and
// activeBackoff otherwise. cpuID < 0 skips pinning.
func NewRXWorker(job func(nowNanos int64) (processed int), pin PinFunc, cpuID, numaNode int) *RXWorker {
	w := &RXWorker{done: make(chan struct{})}
	w.active.Store(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if cpuID >= 0 && pin != nil {
			pin(numaNode, cpuID)
		}
		for w.active.Load() {
			n := job(time.Now().UnixNano())
			backoff := idleBackoff
			if n > 0 {
				backoff = activeBackoff
			}
			select {
			case <-w.done:
				return
			case <-time.After(backoff):
			}
		}
	}()
	return w
}

// Stop sets active=false with release semantics and joins the goroutine
//. Idempotent.
func (w *RXWorker) Stop() {
	if w.active.CompareAndSwap(true, false) {
		close(w.done)
	}
	w.wg.Wait()
}

// TXWorker wraps a private timer wheel driving a single periodic egress
// job, distinct from the RX worker's free-running loop.
type TXWorker struct {
	active atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
	wheel  *timer.Wheel
}

// NewTXWorker starts a goroutine running its own timer wheel with one
// non-resettable periodic job at the given interval (the original's
// `reset = false` egress timer, avoiding interval drift). resolution bounds
// how often the wheel is ticked between deadlines.
func NewTXWorker(job func(nowNanos int64), intervalNanos int64, resolution time.Duration, pin PinFunc, cpuID, numaNode int) *TXWorker {
	w := &TXWorker{done: make(chan struct{}), wheel: timer.New()}
	w.active.Store(true)
	w.wheel.AddPeriodic("tx", 0, intervalNanos, false, job)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if cpuID >= 0 && pin != nil {
			pin(numaNode, cpuID)
		}
		for w.active.Load() {
			sleep := w.wheel.Tick(time.Now().UnixNano())
			wait := resolution
			if sleep > 0 && time.Duration(sleep) < wait {
				wait = time.Duration(sleep)
			}
			select {
			case <-w.done:
				return
			case <-time.After(wait):
			}
		}
	}()
	return w
}

// Stop is the TXWorker analogue of RXWorker.Stop.
func (w *TXWorker) Stop() {
	if w.active.CompareAndSwap(true, false) {
		close(w.done)
	}
	w.wg.Wait()
}
