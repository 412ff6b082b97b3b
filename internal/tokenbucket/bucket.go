// File: internal/tokenbucket/bucket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-stream pacing primitive. Not safe for concurrent use: a
// bucket belongs to exactly one stream, consulted only by the goroutine
// running that stream's egress ring, the same single-writer discipline the
// rest of this package follows.

package tokenbucket

import "github.com/rtbrick/bngblaster-core/api"

// Bucket implements api.TokenBucket. tokens, capacity, and rate are held in
// double precision so fractional debt survives across calls without
// rounding jitter.
type Bucket struct {
	tokens   float64
	capacity float64
	ratePPS  float64
	last     int64
}

var _ api.TokenBucket = (*Bucket)(nil)

// New creates a bucket starting full, matching a stream's initial burst
// allowance being immediately available at bring-up. A bucket with a zero
// rate starts empty regardless of capacity/burst: a zero rate never
// refills, and a zero-rate stream must never admit, burst or not.
func New(ratePPS, capacity float64, nowNanos int64) *Bucket {
	tokens := capacity
	if ratePPS == 0 {
		tokens = 0
	}
	return &Bucket{tokens: tokens, capacity: capacity, ratePPS: ratePPS, last: nowNanos}
}

// Refill tops up tokens for elapsed time without consuming. now is clamped to last
// if it would otherwise run the clock backwards, keeping the bucket
// monotonic in the face of a jittery caller.
func (b *Bucket) Refill(nowNanos int64) {
	if nowNanos < b.last {
		nowNanos = b.last
	}
	elapsed := nowNanos - b.last
	b.last = nowNanos
	if elapsed == 0 {
		return
	}
	b.tokens += float64(elapsed) * b.ratePPS / 1e9
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// Consume refills first, then admits n packets iff enough tokens remain.
// A bucket with rate_pps=0 never admits, regardless of burst: it starts at
// zero tokens (New) and Refill's elapsed*rate term is always zero, so
// tokens can never rise above zero. A bucket with capacity=0 only admits
// at the instant tokens happen to reach ≥ n, which for capacity=0 never
// happens since Refill caps tokens at capacity.
func (b *Bucket) Consume(n int, nowNanos int64) bool {
	b.Refill(nowNanos)
	if b.tokens < float64(n) {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// Tokens returns the current token count for observability and tests.
func (b *Bucket) Tokens() float64 { return b.tokens }
