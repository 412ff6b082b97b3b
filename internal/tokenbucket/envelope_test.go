package tokenbucket_test

import (
	"math/rand"
	"testing"

	"github.com/rtbrick/bngblaster-core/internal/tokenbucket"
)

// TestAdmissionEnvelope hammers a bucket with randomly spaced consults and
// checks the pacing contract over every window: packets admitted in any
// interval T never exceed burst + rate*T + 1.
func TestAdmissionEnvelope(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const (
		ratePPS = 5000.0
		burst   = 8.0
	)
	b := tokenbucket.New(ratePPS, burst, 0)

	var now int64
	start := now
	admitted := 0
	for i := 0; i < 100000; i++ {
		now += rng.Int63n(200_000) // up to 200us between consults
		if b.Consume(1, now) {
			admitted++
		}
		elapsed := float64(now-start) / 1e9
		limit := burst + ratePPS*elapsed + 1
		if float64(admitted) > limit {
			t.Fatalf("envelope violated at t=%dns: admitted %d > %.1f", now, admitted, limit)
		}
	}
	if admitted == 0 {
		t.Fatal("expected some admissions over the run")
	}
}

// TestAdmissionEnvelopeBackwardsClock repeats the envelope under a jittery
// clock that occasionally steps backwards; the monotonic clamp must keep
// the budget from inflating.
func TestAdmissionEnvelopeBackwardsClock(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := tokenbucket.New(1000, 2, 0)

	var now, maxSeen int64
	admitted := 0
	for i := 0; i < 50000; i++ {
		now += rng.Int63n(100_000) - 20_000 // sometimes negative
		if now > maxSeen {
			maxSeen = now
		}
		if b.Consume(1, now) {
			admitted++
		}
		limit := 2 + 1000*float64(maxSeen)/1e9 + 1
		if float64(admitted) > limit {
			t.Fatalf("envelope violated with backwards clock: %d > %.1f", admitted, limit)
		}
	}
}

func BenchmarkConsume(b *testing.B) {
	bucket := tokenbucket.New(1e6, 32, 0)
	now := int64(0)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		now += 1000
		bucket.Consume(1, now)
	}
}
