package timer_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/internal/timer"
)

func TestOneShotFiresOnce(t *testing.T) {
	w := timer.New()
	var fired int
	_, err := w.AddOneShot("once", 100, func(now int64) { fired++ })
	if err != nil {
		t.Fatalf("AddOneShot() error: %v", err)
	}
	w.Tick(50)
	if fired != 0 {
		t.Fatalf("fired before deadline: %d", fired)
	}
	w.Tick(150)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}
	w.Tick(250)
	if fired != 1 {
		t.Fatalf("one-shot refired: %d", fired)
	}
}

func TestPeriodicResettableReschedulesFromNow(t *testing.T) {
	w := timer.New()
	var ticks []int64
	_, err := w.AddPeriodic("p", 0, 100, true, func(now int64) { ticks = append(ticks, now) })
	if err != nil {
		t.Fatalf("AddPeriodic() error: %v", err)
	}
	w.Tick(0)
	w.Tick(350)
	if len(ticks) != 2 {
		t.Fatalf("expected 2 fires by t=350, got %d (%v)", len(ticks), ticks)
	}
}

func TestPeriodicNonResettableHoldsCadence(t *testing.T) {
	w := timer.New()
	var ticks []int64
	_, err := w.AddPeriodic("p", 0, 100, false, func(now int64) { ticks = append(ticks, now) })
	if err != nil {
		t.Fatalf("AddPeriodic() error: %v", err)
	}
	// A single tick far in the future must catch up on the fixed cadence
	// rather than collapsing to one fire, matching the egress worker's
	// periodic timer (not reset on each run).
	w.Tick(0)
	w.Tick(450)
	if len(ticks) < 4 {
		t.Fatalf("expected at least 4 fires by t=450 on fixed cadence, got %d (%v)", len(ticks), ticks)
	}
}

func TestCancelPreventsFutureFires(t *testing.T) {
	w := timer.New()
	var fired int
	h, err := w.AddPeriodic("p", 0, 50, true, func(now int64) { fired++ })
	if err != nil {
		t.Fatalf("AddPeriodic() error: %v", err)
	}
	w.Tick(50)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}
	if err := w.Cancel(h); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	w.Tick(1000)
	if fired != 1 {
		t.Fatalf("canceled timer refired: %d", fired)
	}
}

func TestTickReturnsSleepUntilNextDeadline(t *testing.T) {
	w := timer.New()
	if _, err := w.AddOneShot("a", 1000, func(int64) {}); err != nil {
		t.Fatalf("AddOneShot() error: %v", err)
	}
	sleep := w.Tick(200)
	if sleep != 800 {
		t.Fatalf("expected sleep of 800ns, got %d", sleep)
	}
}

func TestTickWithNoJobsReturnsZero(t *testing.T) {
	w := timer.New()
	if sleep := w.Tick(100); sleep != 0 {
		t.Fatalf("expected 0 sleep with no jobs, got %d", sleep)
	}
}
