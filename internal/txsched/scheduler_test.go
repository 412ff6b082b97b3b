package txsched_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/streams"
	"github.com/rtbrick/bngblaster-core/internal/tokenbucket"
	"github.com/rtbrick/bngblaster-core/internal/txq"
	"github.com/rtbrick/bngblaster-core/internal/txsched"
)

var noMutation = api.MutationDescriptor{SequenceOffset: -1, TimestampOffset: -1, ChecksumOffset: -1}

// fakeEgressRing is a minimal free-running egress ring: every slot starts
// USER-owned (free) and TxCommit just counts, in the same hand-rolled
// style as the fakes used elsewhere in this tree.
type fakeEgressRing struct {
	slots     int
	committed [][]byte
	noBuf     int
	queued    int
	notified  int
	failNotify bool
	ioErrors  int
}

func (r *fakeEgressRing) RxClaim() (api.FrameView, bool)    { return api.FrameView{}, false }
func (r *fakeEgressRing) RxRelease()                        {}
func (r *fakeEgressRing) TxReserve() (api.FrameView, bool) {
	if len(r.committed)+r.queued >= r.slots {
		r.noBuf++
		return api.FrameView{}, false
	}
	return api.FrameView{Buf: make([]byte, 1500)}, true
}
func (r *fakeEgressRing) TxCommit(n int) {
	r.committed = append(r.committed, make([]byte, n))
	r.queued++
}
func (r *fakeEgressRing) Poll(bool) {}
func (r *fakeEgressRing) NotifyKernel() error {
	r.notified++
	if r.failNotify {
		r.ioErrors++
		return api.ErrRingClosed
	}
	r.queued = 0
	return nil
}
func (r *fakeEgressRing) Cursor() int             { return 0 }
func (r *fakeEgressRing) Queued() int             { return r.queued }
func (r *fakeEgressRing) Stats() api.RingStats    { return api.RingStats{} }
func (r *fakeEgressRing) MarkUnknown()            {}
func (r *fakeEgressRing) MarkProtocolError()      {}
func (r *fakeEgressRing) Direction() api.Direction { return api.DirectionEgress }
func (r *fakeEgressRing) Close() error            { return nil }

func TestControlPriority(t *testing.T) {
	ring := &fakeEgressRing{slots: 100}
	q := txq.New(8, 64)
	for i := 0; i < 5; i++ {
		buf, _ := q.WriteSlot()
		q.WriteCommit(copy(buf, []byte{byte(i)}))
	}
	table := streams.NewTable()
	table.Add(streams.New("s", 10000, 32, make([]byte, 100), tokenbucket.New(10000, 32, 0), noMutation))

	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: q, Table: table, StreamBurst: 32})
	ctrlSent, streamSent, err := sched.Run(0)
	if err != nil {
		t.Fatal(err)
	}
	if ctrlSent != 5 {
		t.Fatalf("ctrlSent = %d, want 5", ctrlSent)
	}
	if streamSent != 27 {
		t.Fatalf("streamSent = %d, want 27 (32-5)", streamSent)
	}
	if ring.notified != 1 {
		t.Fatalf("notified %d times, want 1", ring.notified)
	}
}

func TestBackpressureNoBuffer(t *testing.T) {
	ring := &fakeEgressRing{slots: 0}
	q := txq.New(4, 64)
	table := streams.NewTable()
	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: q, Table: table, StreamBurst: 32})

	ctrlSent, streamSent, err := sched.Run(0)
	if err != nil {
		t.Fatal(err)
	}
	if ctrlSent != 0 || streamSent != 0 {
		t.Fatalf("expected zero frames produced, got ctrl=%d stream=%d", ctrlSent, streamSent)
	}
}

func TestTokenStarvationTwoStreamsOnePacketEach(t *testing.T) {
	ring := &fakeEgressRing{slots: 1000}
	q := txq.New(4, 64)
	table := streams.NewTable()
	// Buckets start full: each has exactly 1
	// token of burst allowance available, consumed on the first
	// admission. Run(0) refills nothing at tick 0, so after one packet
	// each neither stream is eligible and Phase B stops well short of
	// the 100-frame burst.
	table.Add(streams.New("a", 5000, 1, make([]byte, 64), tokenbucket.New(5000, 1, 0), noMutation))
	table.Add(streams.New("b", 5000, 1, make([]byte, 64), tokenbucket.New(5000, 1, 0), noMutation))

	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: q, Table: table, StreamBurst: 100})
	_, streamSent, err := sched.Run(0)
	if err != nil {
		t.Fatal(err)
	}
	if streamSent != 2 {
		t.Fatalf("streamSent = %d, want 2", streamSent)
	}
}

func TestNotifyFailureRetainsQueued(t *testing.T) {
	ring := &fakeEgressRing{slots: 10, failNotify: true}
	q := txq.New(4, 64)
	buf, _ := q.WriteSlot()
	q.WriteCommit(copy(buf, []byte{1}))
	table := streams.NewTable()
	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: q, Table: table})

	_, _, err := sched.Run(0)
	if err == nil {
		t.Fatal("expected notify error to propagate")
	}
	if ring.queued == 0 {
		t.Fatal("expected queued to be retained after failed notify")
	}
}

// TestBackpressureRetainsQueuedAndNotifies: ring fully
// SEND_REQUEST at tick start still issues NotifyKernel and resets queued
// on success, even though zero new frames are produced.
func TestBackpressureRetainsQueuedAndNotifies(t *testing.T) {
	ring := &fakeEgressRing{slots: 4, queued: 4} // every slot already SEND_REQUEST
	q := txq.New(4, 64)
	table := streams.NewTable()
	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: q, Table: table, StreamBurst: 32})

	ctrlSent, streamSent, err := sched.Run(0)
	if err != nil {
		t.Fatal(err)
	}
	if ctrlSent != 0 || streamSent != 0 {
		t.Fatalf("expected zero frames, got ctrl=%d stream=%d", ctrlSent, streamSent)
	}
	if ring.notified != 1 {
		t.Fatalf("notified %d times, want 1", ring.notified)
	}
	if ring.queued != 0 {
		t.Fatalf("queued = %d, want 0 after successful notify", ring.queued)
	}
	if ring.noBuf == 0 {
		t.Fatal("expected no_buffer to be incremented")
	}
}

func TestDefaultStreamBurst(t *testing.T) {
	table := streams.NewTable()
	table.Add(streams.New("s", 1_000_000_000, 1000, make([]byte, 64), tokenbucket.New(1_000_000_000, 1000, 0), noMutation))
	sched := txsched.New(txsched.Config{Ring: &fakeEgressRing{slots: 1000}, ControlQueue: txq.New(4, 64), Table: table})
	if sched == nil {
		t.Fatal("expected non-nil scheduler")
	}
	if _, streamSent, err := sched.Run(0); err != nil || streamSent != 32 {
		t.Fatalf("Run() = (_, %d, %v), want (_, 32, nil) with the default stream burst", streamSent, err)
	}
}

func TestPendingQueueDrainedAtTopOfRun(t *testing.T) {
	ring := &fakeEgressRing{slots: 1000}
	table := streams.NewTable()
	pending := streams.NewPendingQueue()
	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: txq.New(4, 64), Table: table, Pending: pending, StreamBurst: 32})

	pending.Enqueue(streams.New("s", 1_000_000_000, 1000, make([]byte, 64), tokenbucket.New(1_000_000_000, 1000, 0), noMutation))
	if _, streamSent, err := sched.Run(0); err != nil || streamSent == 0 {
		t.Fatalf("Run() = (_, %d, %v), want at least one stream frame from the pending add", streamSent, err)
	}
	if pending.Len() != 0 {
		t.Fatalf("pending.Len() = %d, want 0 after Run drains it", pending.Len())
	}
}

func TestSetStreamBurstTakesEffectOnNextTick(t *testing.T) {
	ring := &fakeEgressRing{slots: 1000}
	table := streams.NewTable()
	table.Add(streams.New("s", 1_000_000_000, 1000, make([]byte, 64), tokenbucket.New(1_000_000_000, 1000, 0), noMutation))
	sched := txsched.New(txsched.Config{Ring: ring, ControlQueue: txq.New(4, 64), Table: table, StreamBurst: 4})

	if _, streamSent, err := sched.Run(0); err != nil || streamSent != 4 {
		t.Fatalf("Run() = (_, %d, %v), want (_, 4, nil) before reload", streamSent, err)
	}

	sched.SetStreamBurst(10)
	if _, streamSent, err := sched.Run(0); err != nil || streamSent != 10 {
		t.Fatalf("Run() = (_, %d, %v), want (_, 10, nil) after SetStreamBurst", streamSent, err)
	}

	// A non-positive burst is ignored, not applied.
	sched.SetStreamBurst(0)
	if _, streamSent, err := sched.Run(0); err != nil || streamSent != 10 {
		t.Fatalf("Run() = (_, %d, %v), want (_, 10, nil): SetStreamBurst(0) must be a no-op", streamSent, err)
	}
}
