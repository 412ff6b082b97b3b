// File: internal/dispatch/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RX dispatcher: drains an ingress ring once per tick, resolves the
// outer Ethernet/VLAN framing (including QinQ-strip reassembly), forwards
// recognized frames to the protocol stack, taps capture,
// and updates per-ring counters. One Dispatcher is bound to exactly one
// ingress ring and runs on whichever goroutine drives that ring's tick
// (main cooperative loop or a dedicated RX worker).
package dispatch

import (
	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/core/protocol"
)

// Dispatcher runs the ingress tick against one ring.
type Dispatcher struct {
	iface          string
	ifaceIndex     int
	ring           api.RingHandle
	stack          api.ProtocolStack
	capture        api.CaptureSink
	includeStreams bool
}

// Config wires a Dispatcher to its ring, protocol stack, and capture sink.
type Config struct {
	Iface          string
	IfaceIndex     int
	Ring           api.RingHandle
	Stack          api.ProtocolStack
	Capture        api.CaptureSink // nil disables the tap
	IncludeStreams bool
}

// New constructs a Dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		iface:          cfg.Iface,
		ifaceIndex:     cfg.IfaceIndex,
		ring:           cfg.Ring,
		stack:          cfg.Stack,
		capture:        cfg.Capture,
		includeStreams: cfg.IncludeStreams,
	}
}

// Run drains every USER-owned slot currently on the ring as of tickNanos,
// the timer's own tick timestamp. It returns
// the number of frames processed, mainly for tests and worker back-off
// tuning.
func (d *Dispatcher) Run(tickNanos int64) int {
	sec := tickNanos / 1e9
	nsec := tickNanos % 1e9
	tapped := false
	n := 0

	for {
		view, ok := d.ring.RxClaim()
		if !ok {
			d.ring.Poll(false)
			break
		}
		n++
		d.process(view, sec, nsec, &tapped)
		d.ring.RxRelease()
	}

	if tapped {
		d.capture.Flush()
	}
	return n
}

// process resolves one frame's Ethernet/VLAN framing, classifies it, and
// dispatches or counts it accordingly.
func (d *Dispatcher) process(view api.FrameView, sec, nsec int64, tapped *bool) {
	hdr, err := protocol.DecodeEthernet(view.Buf)
	if err != nil {
		d.ring.MarkProtocolError()
		if d.capture != nil {
			d.tap(view, sec, nsec)
			*tapped = true
		}
		return
	}
	d.resolveQinQStrip(&hdr, view)
	hdr.TimestampSec, hdr.TimestampNsec = sec, nsec

	synthetic := d.stack.IsSynthetic(hdr)
	if d.capture != nil && (!synthetic || d.includeStreams) {
		d.tap(view, sec, nsec)
		*tapped = true
	}

	switch d.stack.Classify(hdr) {
	case api.ProtocolSuccess:
		d.stack.Deliver(d.iface, hdr)
	case api.UnknownProtocol:
		d.ring.MarkUnknown()
	default:
		d.ring.MarkProtocolError()
	}
}

// resolveQinQStrip reassembles the outer/inner VLAN view when the kernel
// (or emulated kernel side) already stripped one tag and reported it out of
// band on the frame view, rather than leaving it on the wire.
func (d *Dispatcher) resolveQinQStrip(hdr *api.EthernetHeader, view api.FrameView) {
	if view.VLANTCI == 0 && view.VLANTPID == 0 {
		return
	}
	if hdr.VLANOuterTPID != 0 && hdr.VLANOuter != view.VLANTCI&0x0FFF {
		hdr.VLANInner = hdr.VLANOuter
		hdr.VLANInnerPrio = hdr.VLANOuterPrio
		hdr.VLANInnerTPID = hdr.VLANOuterTPID
	}
	hdr.VLANOuter = view.VLANTCI & 0x0FFF
	hdr.VLANOuterPrio = uint8(view.VLANTCI >> 13)
	hdr.VLANOuterTPID = view.VLANTPID
	hdr.QinQ = view.VLANTPID == protocol.EtherTypeQinQ1 || view.VLANTPID == protocol.EtherTypeQinQ2
}

func (d *Dispatcher) tap(view api.FrameView, sec, nsec int64) {
	d.capture.Push(sec, nsec, view.Buf, d.ifaceIndex, api.CaptureInbound)
}
