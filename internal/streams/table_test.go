package streams_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/streams"
	"github.com/rtbrick/bngblaster-core/internal/tokenbucket"
)

var noMutation = api.MutationDescriptor{SequenceOffset: -1, TimestampOffset: -1, ChecksumOffset: -1}

func mkStream(name string, ratePPS, burst float64) *streams.Stream {
	return streams.New(name, ratePPS, burst, []byte("template"), tokenbucket.New(ratePPS, burst, 0), noMutation)
}

func TestRoundRobinAdvancesCursorPastReturned(t *testing.T) {
	tbl := streams.NewTable()
	tbl.Add(mkStream("a", 1e9, 10))
	tbl.Add(mkStream("b", 1e9, 10))
	tbl.Add(mkStream("c", 1e9, 10))

	first, ok := tbl.NextEligible(0)
	if !ok || first.Name() != "a" {
		t.Fatalf("expected a first, got %v ok=%v", first, ok)
	}
	second, ok := tbl.NextEligible(0)
	if !ok || second.Name() != "b" {
		t.Fatalf("expected b second, got %v ok=%v", second, ok)
	}
}

func TestNextEligibleSkipsStarvedStreams(t *testing.T) {
	tbl := streams.NewTable()
	starved := mkStream("starved", 0, 0)
	ready := mkStream("ready", 1e9, 10)
	tbl.Add(starved)
	tbl.Add(ready)

	got, ok := tbl.NextEligible(0)
	if !ok || got.Name() != "ready" {
		t.Fatalf("expected starved stream skipped, got %v ok=%v", got, ok)
	}
}

func TestNextEligibleReturnsFalseWhenAllStarved(t *testing.T) {
	tbl := streams.NewTable()
	tbl.Add(mkStream("a", 0, 0))
	tbl.Add(mkStream("b", 0, 0))
	if _, ok := tbl.NextEligible(0); ok {
		t.Fatal("expected no eligible stream when all are starved")
	}
}

func TestRemovePreservesOrder(t *testing.T) {
	tbl := streams.NewTable()
	tbl.Add(mkStream("a", 1e9, 10))
	tbl.Add(mkStream("b", 1e9, 10))
	tbl.Add(mkStream("c", 1e9, 10))
	tbl.Remove("b")
	names := []string{}
	for _, s := range tbl.Streams() {
		names = append(names, s.Name())
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Fatalf("unexpected order after remove: %v", names)
	}
}

func TestTokenStarvationScenario(t *testing.T) {
	// Two streams at 5000pps, burst=1, last refill 100us ago: each should
	// admit exactly one packet over 100 consecutive reservations.
	tbl := streams.NewTable()
	a := streams.New("a", 5000, 1, nil, tokenbucket.New(5000, 1, 0), noMutation)
	b := streams.New("b", 5000, 1, nil, tokenbucket.New(5000, 1, 0), noMutation)
	tbl.Add(a)
	tbl.Add(b)

	const nowNanos = 100_000 // 100us after construction
	sent := map[string]int{}
	for i := 0; i < 100; i++ {
		s, ok := tbl.NextEligible(nowNanos)
		if !ok {
			break
		}
		sent[s.Name()]++
	}
	if sent["a"] != 1 || sent["b"] != 1 {
		t.Fatalf("expected exactly 1 packet per stream under starvation, got %+v", sent)
	}
}
