// File: internal/streams/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Configured synthetic flows bound to an egress ring.

package streams

import (
	"sync/atomic"

	"github.com/rtbrick/bngblaster-core/api"
)

// Stream implements api.Stream: a pre-built template frame, its token
// bucket, and a monotonically incrementing per-packet sequence counter.
type Stream struct {
	name     string
	ratePPS  float64
	burst    float64
	template []byte
	bucket   api.TokenBucket
	mutation api.MutationDescriptor
	sequence atomic.Uint64
}

var _ api.Stream = (*Stream)(nil)

// New constructs a stream. bucket is injected rather than built here so
// callers can choose the pacing implementation (normally
// internal/tokenbucket.New). mutation describes where the TX scheduler's
// materializer writes the sequence/timestamp/checksum fields into a copy
// of template; pass an api.MutationDescriptor with every offset set to -1
// to disable all three (an offset of 0 is a valid position).
func New(name string, ratePPS, burst float64, template []byte, bucket api.TokenBucket, mutation api.MutationDescriptor) *Stream {
	return &Stream{name: name, ratePPS: ratePPS, burst: burst, template: template, bucket: bucket, mutation: mutation}
}

func (s *Stream) Name() string            { return s.name }
func (s *Stream) RatePPS() float64        { return s.ratePPS }
func (s *Stream) Burst() float64          { return s.burst }
func (s *Stream) Template() []byte        { return s.template }
func (s *Stream) Bucket() api.TokenBucket { return s.bucket }
func (s *Stream) Mutation() api.MutationDescriptor { return s.mutation }

// NextSequence increments and returns the per-stream packet sequence,
// used by the TX scheduler's per-packet mutation of the template.
func (s *Stream) NextSequence() uint64 { return s.sequence.Add(1) }
