// File: internal/txsched/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TX scheduler: the egress tick body. Refills every stream's token
// bucket, drains the control queue first, then draws from the stream
// table under token-bucket discipline, and commits frames to the ring.
// Control priority is a one-way ratchet: once the control queue is
// observed empty it is not rechecked until the next tick.
package txsched

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/core/protocol"
	"github.com/rtbrick/bngblaster-core/internal/streams"
)

// Scheduler drives one egress ring's TX tick.
type Scheduler struct {
	ring           api.RingHandle
	ctrlq          api.ControlQueue
	table          api.StreamTable
	pending        *streams.PendingQueue // nil disables off-tick admission
	streamBurst    atomic.Int64
	capture        api.CaptureSink // nil disables the tap
	ifaceIndex     int
	includeStreams bool
}

// Config wires a Scheduler to its collaborators.
type Config struct {
	Ring           api.RingHandle
	ControlQueue   api.ControlQueue
	Table          api.StreamTable
	// Pending, if set, is drained into Table at the top of every Run before
	// the refill/control/stream phases, letting other goroutines add or
	// remove streams (via Pending.Enqueue/EnqueueRemove) without touching
	// Table directly off the tick goroutine.
	Pending        *streams.PendingQueue
	StreamBurst    int // default 32
	IfaceIndex     int // capture interface block this ring's frames attribute to
	Capture        api.CaptureSink
	IncludeStreams bool
}

// New constructs a Scheduler. StreamBurst defaults to 32 if cfg.StreamBurst
// is zero.
func New(cfg Config) *Scheduler {
	burst := cfg.StreamBurst
	if burst == 0 {
		burst = 32
	}
	s := &Scheduler{
		ring:           cfg.Ring,
		ctrlq:          cfg.ControlQueue,
		table:          cfg.Table,
		pending:        cfg.Pending,
		capture:        cfg.Capture,
		ifaceIndex:     cfg.IfaceIndex,
		includeStreams: cfg.IncludeStreams,
	}
	s.streamBurst.Store(int64(burst))
	return s
}

// SetStreamBurst changes the per-tick stream budget
// without interrupting an in-flight tick; Run always reads the current
// value at the top of drainStreams. Used by internal/iface to apply a
// control.LinkConfigStore reload in place of restarting the interface.
func (s *Scheduler) SetStreamBurst(burst int) {
	if burst <= 0 {
		return
	}
	s.streamBurst.Store(int64(burst))
}

// Run executes one full egress tick and returns the
// number of control and stream frames committed, for tests and metrics.
func (s *Scheduler) Run(tickNanos int64) (ctrlSent, streamSent int, err error) {
	if s.pending != nil {
		s.pending.Drain(s.table)
	}
	s.refillAll(tickNanos)

	outOfSlots := false
	ctrlSent = s.drainControl(tickNanos, &outOfSlots)
	if !outOfSlots {
		streamSent = s.drainStreams(tickNanos, ctrlSent, &outOfSlots)
	}

	if s.ring.Queued() > 0 {
		err = s.ring.NotifyKernel()
	}
	if s.capture != nil && (ctrlSent > 0 || (streamSent > 0 && s.includeStreams)) {
		s.capture.Flush()
	}
	return ctrlSent, streamSent, err
}

// refillAll batch-refills every stream bound to this ring.
func (s *Scheduler) refillAll(tickNanos int64) {
	for _, st := range s.table.Streams() {
		st.Bucket().Refill(tickNanos)
	}
}

// drainControl is Phase A: while a control slot is available and the ring
// has a free slot, copy the control payload across and commit. Once the
// control queue is observed empty, it is not rechecked again this tick.
func (s *Scheduler) drainControl(tickNanos int64, outOfSlots *bool) int {
	sent := 0
	for {
		payload, ok := s.ctrlq.ReadSlot()
		if !ok {
			return sent
		}
		view, ok := s.ring.TxReserve()
		if !ok {
			s.ring.Poll(true)
			*outOfSlots = true
			return sent
		}
		n := copy(view.Buf, payload)
		// Control frames are always captured on TX.
		s.tap(view.Buf[:n], tickNanos)
		s.ring.TxCommit(n)
		s.ctrlq.ReadNext()
		sent++
	}
}

// drainStreams is Phase B: round-robin over eligible streams. The stream
// burst bounds the total number of frames committed to this ring in the
// tick, control included, so alreadySent (Phase A's count) is folded into
// the same per-tick counter rather than starting Phase B's budget fresh.
func (s *Scheduler) drainStreams(tickNanos int64, alreadySent int, outOfSlots *bool) int {
	sent := 0
	burst := int(s.streamBurst.Load())
	for alreadySent+sent < burst {
		view, ok := s.ring.TxReserve()
		if !ok {
			s.ring.Poll(true)
			*outOfSlots = true
			return sent
		}
		stream, ok := s.table.NextEligible(tickNanos)
		if !ok {
			return sent
		}
		n := s.materialize(view, stream, tickNanos)
		// Stream frames are only captured on TX when includeStreams is
		// set.
		if s.includeStreams {
			s.tap(view.Buf[:n], tickNanos)
		}
		s.ring.TxCommit(n)
		sent++
	}
	return sent
}

// materialize copies stream's template into view and applies the three
// per-packet mutations: sequence number, timestamp, and checksum
// recomputed only over the mutated region. The template itself is never
// mutated — only the copy in view.
func (s *Scheduler) materialize(view api.FrameView, stream api.Stream, tickNanos int64) int {
	tmpl := stream.Template()
	n := copy(view.Buf, tmpl)
	m := stream.Mutation()

	if m.SequenceOffset >= 0 && m.SequenceOffset+8 <= n {
		binary.BigEndian.PutUint64(view.Buf[m.SequenceOffset:], stream.NextSequence())
	}
	if m.TimestampOffset >= 0 && m.TimestampOffset+16 <= n {
		binary.BigEndian.PutUint64(view.Buf[m.TimestampOffset:], uint64(tickNanos/1e9))
		binary.BigEndian.PutUint64(view.Buf[m.TimestampOffset+8:], uint64(tickNanos%1e9))
	}
	if m.ChecksumOffset >= 0 && m.ChecksumOffset+2 <= n && m.ChecksumEnd <= n && m.ChecksumStart < m.ChecksumEnd {
		view.Buf[m.ChecksumOffset] = 0
		view.Buf[m.ChecksumOffset+1] = 0
		sum := protocol.InternetChecksum(view.Buf[m.ChecksumStart:m.ChecksumEnd])
		binary.BigEndian.PutUint16(view.Buf[m.ChecksumOffset:], sum)
	}
	return n
}

// tap copies the committed frame to capture on the way out, applying the
// asymmetric TX predicate: control
// frames are always captured; stream frames only when includeStreams is
// set. The caller distinguishes the two by which drain phase invoked it,
// so tap itself just takes the decided buffer; see the two call sites.
func (s *Scheduler) tap(buf []byte, tickNanos int64) {
	if s.capture == nil {
		return
	}
	s.capture.Push(tickNanos/1e9, tickNanos%1e9, buf, s.ifaceIndex, api.CaptureOutbound)
}
