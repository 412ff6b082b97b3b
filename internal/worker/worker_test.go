package worker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rtbrick/bngblaster-core/internal/worker"
)

func TestRXWorkerRunsAndStops(t *testing.T) {
	var calls atomic.Int64
	w := worker.NewRXWorker(func(int64) int {
		calls.Add(1)
		return 1 // stay on the fast backoff so the test completes quickly
	}, nil, -1, -1)

	time.Sleep(20 * time.Millisecond)
	w.Stop()

	if calls.Load() == 0 {
		t.Fatal("expected at least one job invocation")
	}
}

func TestTXWorkerRunsAndStops(t *testing.T) {
	var calls atomic.Int64
	w := worker.NewTXWorker(func(int64) {
		calls.Add(1)
	}, int64(time.Millisecond), time.Millisecond, nil, -1, -1)

	time.Sleep(30 * time.Millisecond)
	w.Stop()

	if calls.Load() == 0 {
		t.Fatal("expected at least one job invocation")
	}
}

func TestPinFuncInvokedWhenCPUSet(t *testing.T) {
	var pinnedCPU, pinnedNUMA int = -99, -99
	pin := func(numaNode, cpuID int) { pinnedNUMA, pinnedCPU = numaNode, cpuID }
	w := worker.NewRXWorker(func(int64) int { return 0 }, pin, 3, 1)
	time.Sleep(5 * time.Millisecond)
	w.Stop()
	if pinnedCPU != 3 || pinnedNUMA != 1 {
		t.Fatalf("pin not invoked with expected args: cpu=%d numa=%d", pinnedCPU, pinnedNUMA)
	}
}
