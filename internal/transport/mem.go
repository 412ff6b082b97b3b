// File: internal/transport/mem.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-process pair transport: two api.Transport endpoints cross-connected by
// lock-free rings, standing in for a wire. Each direction is a strict
// single-producer/single-consumer ring (one side's egress tick produces,
// the other side's ingress tick consumes), which is exactly the ownership
// RingBuffer requires. Works on every platform and needs no privileges,
// so it backs package tests and the loopback demo.

package transport

import (
	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/concurrency"
)

// memEndpoint is one side of a pair: Send enqueues onto out, Recv drains in.
type memEndpoint struct {
	out    *concurrency.RingBuffer[[]byte]
	in     *concurrency.RingBuffer[[]byte]
	closed bool
}

var _ api.Transport = (*memEndpoint)(nil)

// NewMemPair returns two connected endpoints: frames sent on a come out of
// b's Recv and vice versa. depth is the per-direction ring capacity and
// must be a power of two.
func NewMemPair(depth uint64) (a, b api.Transport) {
	ab := concurrency.NewRingBuffer[[]byte](depth)
	ba := concurrency.NewRingBuffer[[]byte](depth)
	return &memEndpoint{out: ab, in: ba}, &memEndpoint{out: ba, in: ab}
}

// NewMemLoopback returns a single endpoint whose sent frames come back on
// its own Recv, for single-interface tests.
func NewMemLoopback(depth uint64) api.Transport {
	ring := concurrency.NewRingBuffer[[]byte](depth)
	return &memEndpoint{out: ring, in: ring}
}

// Send copies each frame (the caller reuses its ring slot immediately after
// the batch returns) and enqueues it. A full ring drops the remainder of
// the batch, the in-process stand-in for a saturated device queue.
func (m *memEndpoint) Send(buffers [][]byte) error {
	if m.closed {
		return api.ErrTransportClosed
	}
	for _, b := range buffers {
		cp := make([]byte, len(b))
		copy(cp, b)
		if !m.out.Enqueue(cp) {
			return api.ErrResourceExhausted
		}
	}
	return nil
}

// Recv drains whatever the peer has sent since the last call.
func (m *memEndpoint) Recv() ([][]byte, error) {
	if m.closed {
		return nil, api.ErrTransportClosed
	}
	var out [][]byte
	for {
		b, ok := m.in.Dequeue()
		if !ok {
			return out, nil
		}
		out = append(out, b)
	}
}

func (m *memEndpoint) Close() error {
	m.closed = true
	return nil
}

func (m *memEndpoint) Features() api.TransportFeatures {
	return api.TransportFeatures{
		Batch:        true,
		LockFree:     true,
		SharedMemory: true,
		OS:           []string{"any"},
	}
}
