// File: internal/ringio/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-direction, per-interface ring handle: a fixed-size arena of frame
// slots, each in exactly one of the three PACKET_MMAP ownership states,
// backed by an api.Transport for the actual kernel hand-off. The arena
// plays the role of the kernel/user mapped buffer; Transport plays the
// syscall boundary (poll/sendto/recvmsg) that moves bytes across it.

package ringio

import (
	"fmt"
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/pool"
)

// slot is one frame buffer plus its ownership/state metadata. Only the
// owning goroutine touches status outside of construction; it is an
// atomic.Uint32 so debug probes can read it without racing.
type slot struct {
	status  atomic.Uint32
	buf     []byte
	length  int
	vlanTCI uint16
	vlanTPID uint16
}

// Ring implements api.RingHandle over an in-process frame arena.
type Ring struct {
	iface      string
	direction  api.Direction
	mode       api.Mode
	frameSize  int
	frameCount int
	slots      []slot
	cursor     int // claim/reserve cursor, single-goroutine owned
	fillCursor int // RX refill cursor, trails cursor by at most frameCount
	queued     int // SEND_REQUEST slots awaiting NotifyKernel

	backing   []api.Buffer // arena storage, one per slot, released on Close
	transport api.Transport
	closed    bool

	packets        atomic.Uint64
	bytes          atomic.Uint64
	noBuffer       atomic.Uint64
	polled         atomic.Uint64
	unknown        atomic.Uint64
	protocolErrors atomic.Uint64
	ioErrors       atomic.Uint64
}

var _ api.RingHandle = (*Ring)(nil)

// Config carries the allocation geometry for Open.
type Config struct {
	Iface      string
	Direction  api.Direction
	Mode       api.Mode
	FrameSize  int
	FrameCount int
	NUMANode   int // preferred NUMA node for the frame arena; -1 for system default
	Transport  api.Transport
}

// Open allocates the frame arena and binds it to a transport. FrameCount
// is used as given, with no rounding: cursor advancement uses modulo
// arithmetic, so a count that is not a power of two works as well.
func Open(cfg Config) (*Ring, error) {
	if cfg.FrameSize <= 0 || cfg.FrameCount <= 0 {
		return nil, fmt.Errorf("ringio: open %q: %w", cfg.Iface, api.ErrInvalidArgument)
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("ringio: open %q: %w", cfg.Iface, api.ErrRingBindFailed)
	}
	r := &Ring{
		iface:      cfg.Iface,
		direction:  cfg.Direction,
		mode:       cfg.Mode,
		frameSize:  cfg.FrameSize,
		frameCount: cfg.FrameCount,
		slots:      make([]slot, cfg.FrameCount),
		backing:    make([]api.Buffer, cfg.FrameCount),
		transport:  cfg.Transport,
	}
	initial := uint32(api.SlotKernel)
	if cfg.Direction == api.DirectionEgress {
		initial = uint32(api.SlotUser)
	}
	numaPool := pool.DefaultManager().GetPool(cfg.NUMANode)
	for i := range r.slots {
		buf := numaPool.Get(cfg.FrameSize, cfg.NUMANode)
		r.backing[i] = buf
		r.slots[i].buf = buf.Bytes()
		r.slots[i].status.Store(initial)
	}
	return r, nil
}

// Direction reports the ring's fixed direction.
func (r *Ring) Direction() api.Direction { return r.direction }

// Cursor reports the current claim/reserve position.
func (r *Ring) Cursor() int { return r.cursor }

// Queued reports frames filled but not yet notified to the kernel.
func (r *Ring) Queued() int { return r.queued }

// RxClaim returns the current slot's frame view iff it is USER-owned
// (filled and ready to read). It never blocks and never spins; an empty
// slot is the caller's cue to Poll and return for this tick.
func (r *Ring) RxClaim() (api.FrameView, bool) {
	s := &r.slots[r.cursor]
	if api.SlotState(s.status.Load())&api.SlotUser == 0 {
		return api.FrameView{}, false
	}
	return api.FrameView{
		Buf:      s.buf[:s.length],
		VLANTCI:  s.vlanTCI,
		VLANTPID: s.vlanTPID,
	}, true
}

// RxRelease returns the current slot to KERNEL ownership (empty, eligible
// for refill) and advances the cursor. Must only be called after a
// successful RxClaim in the same tick; the frame view it returned must not
// be used afterward.
func (r *Ring) RxRelease() {
	r.slots[r.cursor].status.Store(uint32(api.SlotKernel))
	r.packets.Add(1)
	r.bytes.Add(uint64(r.slots[r.cursor].length))
	r.cursor = (r.cursor + 1) % r.frameCount
}

// TxReserve returns the current slot's writable view iff it is USER-owned
// (free). Writers fill Buf up to its capacity and call TxCommit with the
// number of bytes actually written.
func (r *Ring) TxReserve() (api.FrameView, bool) {
	s := &r.slots[r.cursor]
	if api.SlotState(s.status.Load())&api.SlotUser == 0 {
		r.noBuffer.Add(1)
		return api.FrameView{}, false
	}
	return api.FrameView{Buf: s.buf[:cap(s.buf)]}, true
}

// TxCommit marks the current slot SEND_REQUEST with length n, advances the
// cursor, and increments the queued count. It must be called at most once
// per TxReserve.
func (r *Ring) TxCommit(n int) {
	s := &r.slots[r.cursor]
	s.length = n
	s.status.Store(uint32(api.SlotSendRequest))
	r.packets.Add(1)
	r.bytes.Add(uint64(n))
	r.queued++
	r.cursor = (r.cursor + 1) % r.frameCount
}

// Poll nudges the transport: for an ingress ring it pulls newly arrived
// frames into empty KERNEL slots; for an egress ring, with write=true, it
// is a no-op hint that the caller intends to call NotifyKernel shortly
// (the real syscall-level non-blocking poll a kernel-backed transport
// issues lives inside Transport itself; here it just counts). It never
// loops — at most one refill/poll attempt per call.
func (r *Ring) Poll(write bool) {
	r.polled.Add(1)
	if write || r.direction != api.DirectionIngress {
		return
	}
	bufs, err := r.transport.Recv()
	if err != nil {
		r.ioErrors.Add(1)
		return
	}
	for _, b := range bufs {
		if !r.fillNext(b) {
			break
		}
	}
}

// fillNext copies one received frame into the next empty KERNEL slot,
// transitioning it to USER. Returns false if the ring has no empty slots
// (backpressure: the rest of this poll's frames are dropped, counted as
// no_buffer, matching a saturated kernel ring).
func (r *Ring) fillNext(b []byte) bool {
	for attempts := 0; attempts < r.frameCount; attempts++ {
		s := &r.slots[r.fillCursor]
		if api.SlotState(s.status.Load()) == api.SlotKernel {
			n := copy(s.buf, b)
			s.length = n
			s.status.Store(uint32(api.SlotUser))
			r.fillCursor = (r.fillCursor + 1) % r.frameCount
			return true
		}
		r.fillCursor = (r.fillCursor + 1) % r.frameCount
	}
	r.noBuffer.Add(1)
	return false
}

// NotifyKernel hands every SEND_REQUEST slot to the transport in one
// batched call. On success each flushed slot returns to USER (free) and
// queued resets to zero; on failure queued is left untouched so the next
// tick retries the same backlog, and io_errors is incremented.
func (r *Ring) NotifyKernel() error {
	if r.queued == 0 {
		return nil
	}
	batch := make([][]byte, 0, r.queued)
	idx := make([]int, 0, r.queued)
	for i := range r.slots {
		if api.SlotState(r.slots[i].status.Load()) == api.SlotSendRequest {
			batch = append(batch, r.slots[i].buf[:r.slots[i].length])
			idx = append(idx, i)
		}
	}
	if err := r.transport.Send(batch); err != nil {
		r.ioErrors.Add(1)
		return fmt.Errorf("ringio: notify kernel on %q: %w", r.iface, err)
	}
	for _, i := range idx {
		r.slots[i].status.Store(uint32(api.SlotUser))
	}
	r.queued = 0
	return nil
}

// Stats returns a snapshot of this ring's counters.
func (r *Ring) Stats() api.RingStats {
	return api.RingStats{
		Packets:        r.packets.Load(),
		Bytes:          r.bytes.Load(),
		NoBuffer:       r.noBuffer.Load(),
		Polled:         r.polled.Load(),
		Unknown:        r.unknown.Load(),
		ProtocolErrors: r.protocolErrors.Load(),
		IOErrors:       r.ioErrors.Load(),
	}
}

// MarkUnknown and MarkProtocolError let the RX dispatcher attribute
// decode outcomes to this ring's counters without exposing the atomics
// themselves.
func (r *Ring) MarkUnknown()       { r.unknown.Add(1) }
func (r *Ring) MarkProtocolError() { r.protocolErrors.Add(1) }

// Close releases the transport and returns the arena's buffers to their pool.
// Idempotent.
func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for _, b := range r.backing {
		b.Release()
	}
	return r.transport.Close()
}
