package txsched_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/streams"
	"github.com/rtbrick/bngblaster-core/internal/tokenbucket"
	"github.com/rtbrick/bngblaster-core/internal/txq"
	"github.com/rtbrick/bngblaster-core/internal/txsched"
)

// benchRing is a counting egress ring with one reusable slot, so the
// benchmark measures the scheduler, not slice growth in the fake.
type benchRing struct {
	buf       []byte
	committed uint64
	queued    int
}

func (r *benchRing) RxClaim() (api.FrameView, bool)    { return api.FrameView{}, false }
func (r *benchRing) RxRelease()                        {}
func (r *benchRing) TxReserve() (api.FrameView, bool)  { return api.FrameView{Buf: r.buf}, true }
func (r *benchRing) TxCommit(int) {
	r.committed++
	r.queued++
}
func (r *benchRing) Poll(bool) {}
func (r *benchRing) NotifyKernel() error {
	r.queued = 0
	return nil
}
func (r *benchRing) Cursor() int              { return 0 }
func (r *benchRing) Queued() int              { return r.queued }
func (r *benchRing) Stats() api.RingStats     { return api.RingStats{} }
func (r *benchRing) MarkUnknown()             {}
func (r *benchRing) MarkProtocolError()       {}
func (r *benchRing) Direction() api.Direction { return api.DirectionEgress }
func (r *benchRing) Close() error             { return nil }

// BenchmarkEgressTick measures a steady-state egress tick: 64 streams at
// saturating rates round-robining onto a free ring.
func BenchmarkEgressTick(b *testing.B) {
	ring := &benchRing{buf: make([]byte, 2048)}
	table := streams.NewTable()
	for i := 0; i < 64; i++ {
		name := string(rune('a'+i%26)) + string(rune('0'+i/26))
		table.Add(streams.New(name, 1e9, 64, make([]byte, 256),
			tokenbucket.New(1e9, 64, 0), noMutation))
	}
	sched := txsched.New(txsched.Config{
		Ring: ring, ControlQueue: txq.New(8, 64), Table: table, StreamBurst: 32,
	})
	b.ReportAllocs()
	now := int64(0)
	for i := 0; i < b.N; i++ {
		now += 1_000_000
		sched.Run(now)
	}
	if ring.committed == 0 {
		b.Fatal("no frames committed")
	}
}
