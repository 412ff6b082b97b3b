// Package api
// Author: momentics
//
// Stream, token bucket, and control-queue contracts.

package api

// TokenBucket is a per-stream pacing primitive. Resolution is
// packets; fractional debt is preserved across calls.
type TokenBucket interface {
	// Consume refills first, then admits n packets if enough tokens are
	// available. now is clamped to the last refill time if it would
	// otherwise run backwards.
	Consume(n int, nowNanos int64) bool
	// Refill tops up tokens without consuming, used for the TX scheduler's
	// batch refill pass.
	Refill(nowNanos int64)
	// Tokens returns the current token count (for tests/observability).
	Tokens() float64
}

// BuildResult is the outcome of asking the (out-of-scope) protocol layer to
// materialize a control or stream frame.
type BuildResult int

const (
	BuildSuccess BuildResult = iota
	BuildNone
	BuildError
)

// ClassifyResult is the RX dispatcher's three-way protocol outcome: whether the decoded EtherType is one the protocol layer handles,
// unrecognized, or the frame itself was too malformed to classify.
type ClassifyResult int

const (
	ProtocolSuccess ClassifyResult = iota
	UnknownProtocol
	ProtocolDecodeError
)

// ProtocolStack is the external collaborator that encodes/decodes the
// subscriber and IGP protocols this engine only schedules traffic for
//.
type ProtocolStack interface {
	// BuildControl materializes the next queued control frame into buf,
	// returning the number of bytes written.
	BuildControl(ifaceName string, buf []byte) (int, BuildResult)
	// BuildStream materializes one packet of the given stream into buf.
	BuildStream(stream Stream, buf []byte) (int, BuildResult)
	// Deliver hands a decoded Ethernet header to the protocol dispatcher.
	// Its return value is ignored by the caller.
	Deliver(ifaceName string, eth EthernetHeader)
	// Classify reports whether eth's EtherType is recognized, unknown, or
	// malformed, driving the RX dispatcher's unknown/protocol_errors
	// counters.
	Classify(eth EthernetHeader) ClassifyResult
	// IsSynthetic reports whether eth originated from this process's own
	// stream generator looping back on ingress, gating the capture tap's
	// asymmetric RX predicate.
	IsSynthetic(eth EthernetHeader) bool
}

// MutationDescriptor locates the per-packet fields the stream materializer
// overwrites in an otherwise-immutable template. An offset of -1 disables that mutation.
type MutationDescriptor struct {
	SequenceOffset  int // 8 bytes, big-endian uint64
	TimestampOffset int // 16 bytes: sec then nsec, big-endian uint64 each
	ChecksumOffset  int // 2 bytes: the checksum field itself
	ChecksumStart   int // start of the region the checksum covers
	ChecksumEnd     int // end (exclusive) of the region the checksum covers
}

// Stream is a configured synthetic flow bound to an egress ring.
type Stream interface {
	Name() string
	RatePPS() float64
	Burst() float64
	Template() []byte
	Bucket() TokenBucket
	// NextSequence increments and returns the 64-bit per-stream sequence
	// counter.
	NextSequence() uint64
	// Mutation reports where the materializer writes per-packet fields.
	Mutation() MutationDescriptor
}

// StreamTable selects the next eligible stream for one ring.
type StreamTable interface {
	// NextEligible advances the rotating cursor up to one full loop,
	// returning the first stream whose bucket admits one packet.
	NextEligible(nowNanos int64) (Stream, bool)
	// Add registers a stream in insertion order.
	Add(s Stream)
	// Remove unregisters a stream by name.
	Remove(name string)
	// Streams returns the streams in round-robin insertion order.
	Streams() []Stream
}

// EthernetHeader is the narrow, decoded view the RX dispatcher hands to the
// protocol layer. Full Ethernet/IGP/subscriber decoding is an
// external collaborator; this is only the outer/inner VLAN tag view the
// ring dispatcher itself must resolve (QinQ stripping).
type EthernetHeader struct {
	DstMAC        [6]byte
	SrcMAC        [6]byte
	Payload       []byte
	VLANOuter     uint16
	VLANOuterPrio uint8
	VLANOuterTPID uint16
	VLANInner     uint16
	VLANInnerPrio uint8
	VLANInnerTPID uint16
	QinQ          bool
	EtherType     uint16
	TimestampSec  int64
	TimestampNsec int64
}
