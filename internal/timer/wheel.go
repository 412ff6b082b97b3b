// File: internal/timer/wheel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-precision, single-goroutine timer wheel: a container/heap priority
// queue of jobs, pumped by whoever owns the goroutine, serving as the
// engine's root scheduler.
//
// One Wheel belongs to exactly one goroutine: either the main cooperative
// loop, or a single worker's private egress timer. Cross-goroutine
// mutation is a programming error, not a runtime-checked one, matching the
// "inter-thread timer mutation is forbidden" contract.

package timer

import (
	"container/heap"
	"fmt"

	"github.com/rtbrick/bngblaster-core/api"
)

// job is one scheduled callback, ordered by deadline in the heap.
type job struct {
	name       string
	deadline   int64 // absolute monotonic nanoseconds
	interval   int64 // 0 for one-shot
	resettable bool
	fn         api.JobFunc
	index      int  // heap index, maintained by container/heap
	canceled   bool
}

// Cancel implements api.Cancelable and api.TimerHandle.
func (j *job) Cancel() error {
	j.canceled = true
	return nil
}

// Done and Err are not meaningful for a synchronous timer-wheel job; the
// wheel owns completion, so these report immediate completion once
// canceled. Kept only to satisfy api.Cancelable for callers that hold a
// handle generically.
func (j *job) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (j *job) Err() error {
	if j.canceled {
		return fmt.Errorf("timer %q: canceled", j.name)
	}
	return nil
}

func (j *job) Name() string { return j.name }

// jobHeap is a min-heap on deadline.
type jobHeap []*job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, k int) bool  { return h[i].deadline < h[k].deadline }
func (h jobHeap) Swap(i, k int) {
	h[i], h[k] = h[k], h[i]
	h[i].index = i
	h[k].index = k
}
func (h *jobHeap) Push(x any) {
	j := x.(*job)
	j.index = len(*h)
	*h = append(*h, j)
}
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}

// Wheel is a monotonic, single-goroutine cooperative scheduler.
type Wheel struct {
	q jobHeap
}

var _ api.Wheel = (*Wheel)(nil)

// New creates an empty timer wheel.
func New() *Wheel {
	w := &Wheel{q: make(jobHeap, 0, 64)}
	heap.Init(&w.q)
	return w
}

// AddPeriodic registers a recurring job.
func (w *Wheel) AddPeriodic(name string, initialDelayNanos, intervalNanos int64, resettable bool, fn api.JobFunc) (api.TimerHandle, error) {
	if intervalNanos <= 0 {
		return nil, fmt.Errorf("timer %q: interval must be positive", name)
	}
	j := &job{name: name, deadline: initialDelayNanos, interval: intervalNanos, resettable: resettable, fn: fn}
	heap.Push(&w.q, j)
	return j, nil
}

// AddOneShot registers a single-fire job.
func (w *Wheel) AddOneShot(name string, delayNanos int64, fn api.JobFunc) (api.TimerHandle, error) {
	j := &job{name: name, deadline: delayNanos, interval: 0, fn: fn}
	heap.Push(&w.q, j)
	return j, nil
}

// Cancel removes a job from the wheel. Already-fired callbacks complete.
func (w *Wheel) Cancel(h api.TimerHandle) error {
	j, ok := h.(*job)
	if !ok {
		return api.ErrInvalidArgument
	}
	j.canceled = true
	if j.index >= 0 && j.index < len(w.q) && w.q[j.index] == j {
		heap.Remove(&w.q, j.index)
	}
	return nil
}

// Tick runs all jobs whose deadline has passed, in non-decreasing deadline
// order, and returns the duration until the next deadline (0 if none
// pending). Each fired callback receives nowNanos, the tick's own
// timestamp, not a fresh clock read, so every frame produced in this tick
// shares it.
func (w *Wheel) Tick(nowNanos int64) int64 {
	for w.q.Len() > 0 {
		next := w.q[0]
		if next.deadline > nowNanos {
			return next.deadline - nowNanos
		}
		heap.Pop(&w.q)
		if next.canceled {
			continue
		}
		next.fn(nowNanos)
		if next.interval > 0 && !next.canceled {
			if next.resettable {
				next.deadline = nowNanos + next.interval
			} else {
				// Schedule relative to the original deadline to avoid
				// drift accumulating from jitter in Tick's caller.
				next.deadline += next.interval
				if next.deadline <= nowNanos {
					next.deadline = nowNanos + next.interval
				}
			}
			heap.Push(&w.q, next)
		}
	}
	return 0
}

// Len reports the number of pending jobs, used by tests and by workers
// deciding whether to park.
func (w *Wheel) Len() int { return w.q.Len() }
