package ringio_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/ringio"
)

// fakeTransport is an in-memory stand-in for a kernel transport, letting
// tests drive Recv() results and inspect Send() batches deterministically.
type fakeTransport struct {
	recvQueue [][]byte
	sent      [][][]byte
	sendErr   error
	closed    bool
}

func (f *fakeTransport) Send(buffers [][]byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	cp := make([][]byte, len(buffers))
	for i, b := range buffers {
		cp[i] = append([]byte(nil), b...)
	}
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) Recv() ([][]byte, error) {
	out := f.recvQueue
	f.recvQueue = nil
	return out, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) Features() api.TransportFeatures {
	return api.TransportFeatures{Batch: true}
}

func TestEgressReserveCommitNotify(t *testing.T) {
	ft := &fakeTransport{}
	r, err := ringio.Open(ringio.Config{
		Iface: "eth0", Direction: api.DirectionEgress, Mode: api.ModeSharedRing,
		FrameSize: 128, FrameCount: 4, Transport: ft,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	view, ok := r.TxReserve()
	if !ok {
		t.Fatal("expected a free slot on a fresh egress ring")
	}
	n := copy(view.Buf, []byte("hello"))
	r.TxCommit(n)
	if r.Queued() != 1 {
		t.Fatalf("expected queued=1, got %d", r.Queued())
	}
	if err := r.NotifyKernel(); err != nil {
		t.Fatalf("NotifyKernel() error: %v", err)
	}
	if r.Queued() != 0 {
		t.Fatalf("expected queued=0 after notify, got %d", r.Queued())
	}
	if len(ft.sent) != 1 || len(ft.sent[0]) != 1 || string(ft.sent[0][0]) != "hello" {
		t.Fatalf("unexpected sent batch: %+v", ft.sent)
	}
	// slot must be free again for reuse.
	if _, ok := r.TxReserve(); !ok {
		t.Fatal("expected slot to be free again after notify")
	}
}

func TestEgressSaturationCountsNoBuffer(t *testing.T) {
	ft := &fakeTransport{}
	r, err := ringio.Open(ringio.Config{
		Iface: "eth0", Direction: api.DirectionEgress, Mode: api.ModeSharedRing,
		FrameSize: 64, FrameCount: 2, Transport: ft,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	for i := 0; i < 2; i++ {
		v, ok := r.TxReserve()
		if !ok {
			t.Fatalf("slot %d: expected free slot before commit", i)
		}
		r.TxCommit(copy(v.Buf, []byte("x")))
	}
	if _, ok := r.TxReserve(); ok {
		t.Fatal("expected no free slot once all are SEND_REQUEST")
	}
	if r.Stats().NoBuffer == 0 {
		t.Fatal("expected no_buffer to be incremented")
	}
}

func TestIngressClaimReleaseRoundTrip(t *testing.T) {
	ft := &fakeTransport{recvQueue: [][]byte{[]byte("frame-a"), []byte("frame-b")}}
	r, err := ringio.Open(ringio.Config{
		Iface: "eth0", Direction: api.DirectionIngress, Mode: api.ModeSharedRing,
		FrameSize: 64, FrameCount: 4, Transport: ft,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, ok := r.RxClaim(); ok {
		t.Fatal("expected no frame before any poll")
	}
	r.Poll(false)
	view, ok := r.RxClaim()
	if !ok {
		t.Fatal("expected a frame after poll refilled the ring")
	}
	if string(view.Buf) != "frame-a" {
		t.Fatalf("unexpected frame content: %q", view.Buf)
	}
	r.RxRelease()
	view, ok = r.RxClaim()
	if !ok || string(view.Buf) != "frame-b" {
		t.Fatalf("expected frame-b next, got ok=%v buf=%q", ok, view.Buf)
	}
	r.RxRelease()
	if stats := r.Stats(); stats.Packets != 2 {
		t.Fatalf("expected 2 packets counted, got %d", stats.Packets)
	}
}

func TestNotifyKernelRetainsQueuedOnFailure(t *testing.T) {
	ft := &fakeTransport{sendErr: api.ErrResourceExhausted}
	r, err := ringio.Open(ringio.Config{
		Iface: "eth0", Direction: api.DirectionEgress, Mode: api.ModeSharedRing,
		FrameSize: 64, FrameCount: 2, Transport: ft,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	v, _ := r.TxReserve()
	r.TxCommit(copy(v.Buf, []byte("x")))
	if err := r.NotifyKernel(); err == nil {
		t.Fatal("expected NotifyKernel to propagate transport error")
	}
	if r.Queued() != 1 {
		t.Fatalf("expected queued to be retained on failure, got %d", r.Queued())
	}
	if r.Stats().IOErrors == 0 {
		t.Fatal("expected io_errors to be incremented")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	r, err := ringio.Open(ringio.Config{
		Iface: "eth0", Direction: api.DirectionEgress, Mode: api.ModeSharedRing,
		FrameSize: 64, FrameCount: 2, Transport: ft,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if !ft.closed {
		t.Fatal("expected underlying transport to be closed")
	}
}
