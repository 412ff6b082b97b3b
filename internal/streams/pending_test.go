package streams_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/internal/streams"
)

func TestPendingQueueDrainAppliesAddsInOrder(t *testing.T) {
	pq := streams.NewPendingQueue()
	pq.Enqueue(mkStream("a", 1e9, 10))
	pq.Enqueue(mkStream("b", 1e9, 10))
	if got := pq.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2 before Drain", got)
	}

	tbl := streams.NewTable()
	pq.Drain(tbl)

	if got := pq.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0 after Drain", got)
	}
	names := make(map[string]bool)
	for _, s := range tbl.Streams() {
		names[s.Name()] = true
	}
	if !names["a"] || !names["b"] {
		t.Fatalf("expected both a and b in table after Drain, got %v", tbl.Streams())
	}
	if s := tbl.Streams(); s[0].Name() != "a" || s[1].Name() != "b" {
		t.Fatalf("table order after Drain = %v, want [a b]", s)
	}
}

func TestPendingQueueDrainAppliesRemove(t *testing.T) {
	pq := streams.NewPendingQueue()
	tbl := streams.NewTable()
	tbl.Add(mkStream("a", 1e9, 10))

	pq.EnqueueRemove("a")
	pq.Drain(tbl)

	if len(tbl.Streams()) != 0 {
		t.Fatalf("expected table empty after draining a remove, got %v", tbl.Streams())
	}
}

func TestPendingQueueDrainIsEmptyNoOp(t *testing.T) {
	pq := streams.NewPendingQueue()
	tbl := streams.NewTable()
	pq.Drain(tbl) // must not panic on an empty queue
	if len(tbl.Streams()) != 0 {
		t.Fatal("expected no streams after draining an empty queue")
	}
}
