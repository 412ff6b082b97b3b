package capture_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/capture"
)

// recordingSink counts pushes and flushes without encoding anything.
type recordingSink struct {
	mu      sync.Mutex
	frames  [][]byte
	flushes int
}

func (r *recordingSink) Push(sec, nsec int64, buf []byte, ifaceIndex int, dir api.DirectionFlag) {
	r.mu.Lock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	r.frames = append(r.frames, cp)
	r.mu.Unlock()
}

func (r *recordingSink) Flush() { r.FlushErr() }

func (r *recordingSink) FlushErr() error {
	r.mu.Lock()
	r.flushes++
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) snapshot() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames), r.flushes
}

func TestAsyncDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	at := capture.NewAsync(sink, 64, 128, -1)

	for i := 0; i < 10; i++ {
		at.Push(int64(i), 0, []byte{byte(i), 1, 2, 3}, 0, api.CaptureInbound)
	}
	at.Flush()
	if err := at.Close(); err != nil {
		t.Fatal(err)
	}

	frames, flushes := sink.snapshot()
	if frames != 10 {
		t.Fatalf("frames = %d, want 10", frames)
	}
	if flushes == 0 {
		t.Fatal("expected at least one downstream flush")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, f := range sink.frames {
		if f[0] != byte(i) {
			t.Fatalf("frame %d out of order: leading byte %d", i, f[0])
		}
	}
}

func TestAsyncTruncatesToSnapLen(t *testing.T) {
	sink := &recordingSink{}
	at := capture.NewAsync(sink, 16, 32, -1)
	at.Push(0, 0, make([]byte, 100), 0, api.CaptureOutbound)
	if err := at.Close(); err != nil {
		t.Fatal(err)
	}
	frames, _ := sink.snapshot()
	if frames != 1 {
		t.Fatalf("frames = %d, want 1", frames)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.frames[0]) != 32 {
		t.Fatalf("frame length = %d, want snaplen 32", len(sink.frames[0]))
	}
}

func TestAsyncFullQueueDropsAndCounts(t *testing.T) {
	// blockedSink parks the writer so the queue stays full.
	release := make(chan struct{})
	sink := &blockedSink{release: release}
	at := capture.NewAsync(sink, 2, 64, -1)

	// First push parks the writer; the rest overflow the 2-slot queue.
	for i := 0; i < 8; i++ {
		at.Push(0, 0, []byte{1}, 0, api.CaptureInbound)
	}
	if at.Dropped() == 0 {
		t.Fatal("expected dropped frames on a full queue")
	}
	close(release)
	if err := at.Close(); err != nil {
		t.Fatal(err)
	}
}

type blockedSink struct {
	release <-chan struct{}
	once    sync.Once
}

func (b *blockedSink) Push(int64, int64, []byte, int, api.DirectionFlag) {
	b.once.Do(func() { <-b.release })
}
func (b *blockedSink) Flush()          {}
func (b *blockedSink) FlushErr() error { return nil }

func TestAsyncInFrontOfRealTap(t *testing.T) {
	var buf bytes.Buffer
	tap, err := capture.New(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tap.AddInterface("eth0", 256); err != nil {
		t.Fatal(err)
	}
	at := capture.NewAsync(tap, 64, 256, -1)
	at.Push(1, 500, make([]byte, 60), 0, api.CaptureInbound)
	at.Flush()

	deadline := time.Now().Add(time.Second)
	for buf.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := at.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("nothing reached the pcap writer")
	}
}
