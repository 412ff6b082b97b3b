// File: internal/iface/interface.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Interface is the named logical link that ties the
// per-component pieces (C1-C8) together: two ring handles, a control queue,
// a stream table, the RX dispatcher and TX scheduler that run against them,
// and whichever scheduling driver actually invokes those two jobs.
// Nothing else in this tree constructs a working link end to end; every
// other package is a reusable part this one assembles.
package iface

import (
	"fmt"
	"runtime"
	"time"

	"github.com/rtbrick/bngblaster-core/affinity"
	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/control"
	"github.com/rtbrick/bngblaster-core/internal/dispatch"
	"github.com/rtbrick/bngblaster-core/internal/ringio"
	"github.com/rtbrick/bngblaster-core/internal/streams"
	"github.com/rtbrick/bngblaster-core/internal/txq"
	"github.com/rtbrick/bngblaster-core/internal/txsched"
	"github.com/rtbrick/bngblaster-core/internal/worker"
	"github.com/rtbrick/bngblaster-core/reactor"
)

// Config carries everything Open needs to bring one interface up.
type Config struct {
	Name       string
	IfaceIndex int
	Mode       api.Mode

	RxIntervalNanos int64
	TxIntervalNanos int64
	StreamBurst     int // default 32, applied by internal/txsched if zero

	FrameCount int
	FrameSize  int
	NUMANode   int // -1 for system default

	RxTransport api.Transport
	TxTransport api.Transport

	Stack          api.ProtocolStack
	Capture        api.CaptureSink // nil disables the tap entirely
	IncludeStreams bool

	ControlQueueCapacity int // power of two
	ControlSlotSize      int // MTU-sized

	// CPUID selects the core a worker-mode interface's goroutines pin to
	// via the affinity package; -1 skips pinning.
	CPUID int

	// WorkerBackoffResolution bounds how long a TX worker's timer wheel
	// sleeps between deadlines; zero defaults to 1ms.
	WorkerBackoffResolution time.Duration

	// ConfigStore, if set, is watched for this interface's LinkConfig
	// (keyed by Name): a reload pushes a new stream_burst into the TX
	// scheduler without tearing the interface down.
	ConfigStore *control.LinkConfigStore

	// Metrics, if set, receives this interface's ring counters after every
	// TX tick. Debug, if set, gets per-interface packet-count probes plus
	// whatever platform probes control.RegisterPlatformProbes adds.
	Metrics *control.MetricsRegistry
	Debug   *control.DebugProbes
}

// Interface is one named logical link: its ring pair, the jobs that
// drive them, and whichever of the two scheduling models is active.
type Interface struct {
	cfg Config
	log *control.Logger

	rx *ringio.Ring
	tx *ringio.Ring

	ctrlq   *txq.Queue
	table   *streams.Table
	pending *streams.PendingQueue

	dispatcher *dispatch.Dispatcher
	scheduler  *txsched.Scheduler

	rxWorker *worker.RXWorker
	txWorker *worker.TXWorker

	reactor   reactor.Reactor
	reactDone chan struct{}
}

// Open allocates both ring handles, wires the stream table and control
// queue, and constructs the RX dispatcher and TX scheduler bound
// to them. It does not start anything: call RegisterCooperative or
// StartWorkers depending on which scheduling model this interface uses.
func Open(cfg Config, log *control.Logger) (*Interface, error) {
	if cfg.StreamBurst == 0 {
		cfg.StreamBurst = 32
	}
	if cfg.ControlQueueCapacity == 0 {
		cfg.ControlQueueCapacity = 256
	}
	if cfg.ControlSlotSize == 0 {
		cfg.ControlSlotSize = 1514
	}
	if cfg.WorkerBackoffResolution == 0 {
		cfg.WorkerBackoffResolution = time.Millisecond
	}

	rx, err := ringio.Open(ringio.Config{
		Iface: cfg.Name, Direction: api.DirectionIngress, Mode: cfg.Mode,
		FrameSize: cfg.FrameSize, FrameCount: cfg.FrameCount, NUMANode: cfg.NUMANode,
		Transport: cfg.RxTransport,
	})
	if err != nil {
		return nil, fmt.Errorf("iface %q: open rx ring: %w", cfg.Name, err)
	}
	tx, err := ringio.Open(ringio.Config{
		Iface: cfg.Name, Direction: api.DirectionEgress, Mode: cfg.Mode,
		FrameSize: cfg.FrameSize, FrameCount: cfg.FrameCount, NUMANode: cfg.NUMANode,
		Transport: cfg.TxTransport,
	})
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("iface %q: open tx ring: %w", cfg.Name, err)
	}

	ctrlq := txq.New(cfg.ControlQueueCapacity, cfg.ControlSlotSize)
	table := streams.NewTable()
	pending := streams.NewPendingQueue()

	disp := dispatch.New(dispatch.Config{
		Iface: cfg.Name, IfaceIndex: cfg.IfaceIndex, Ring: rx, Stack: cfg.Stack,
		Capture: cfg.Capture, IncludeStreams: cfg.IncludeStreams,
	})
	sched := txsched.New(txsched.Config{
		Ring: tx, ControlQueue: ctrlq, Table: table, Pending: pending, StreamBurst: cfg.StreamBurst,
		IfaceIndex: cfg.IfaceIndex, Capture: cfg.Capture, IncludeStreams: cfg.IncludeStreams,
	})

	i := &Interface{
		cfg: cfg, log: log,
		rx: rx, tx: tx,
		ctrlq: ctrlq, table: table, pending: pending,
		dispatcher: disp, scheduler: sched,
	}

	if cfg.ConfigStore != nil {
		cfg.ConfigStore.OnReload(cfg.Name, func(lc control.LinkConfig) {
			sched.SetStreamBurst(lc.StreamBurst)
		})
	}
	if cfg.Debug != nil {
		cfg.Debug.RegisterProbe(cfg.Name+".rx.packets", func() any { return i.rx.Stats().Packets })
		cfg.Debug.RegisterProbe(cfg.Name+".tx.packets", func() any { return i.tx.Stats().Packets })
		control.RegisterPlatformProbes(cfg.Debug)
	}

	return i, nil
}

// Name returns the interface's configured name.
func (i *Interface) Name() string { return i.cfg.Name }

// AddStream registers a synthetic traffic stream on this interface's egress
// ring. Safe to call from any goroutine: the request is
// marshaled through a PendingQueue and applied to the stream
// table at the top of the next TX tick, keeping Table.NextEligible's hot
// path single-goroutine owned and lock-free.
func (i *Interface) AddStream(s api.Stream) { i.pending.Enqueue(s) }

// RemoveStream unregisters a stream by name (same off-tick marshaling as
// AddStream).
func (i *Interface) RemoveStream(name string) { i.pending.EnqueueRemove(name) }

// ControlQueue exposes the SPSC control frame queue so the protocol
// layer's producer goroutine can enqueue control frames independently of
// which thread drives this interface's TX job.
func (i *Interface) ControlQueue() api.ControlQueue { return i.ctrlq }

// RXStats and TXStats expose the two rings' observable counters.
func (i *Interface) RXStats() api.RingStats { return i.rx.Stats() }
func (i *Interface) TXStats() api.RingStats { return i.tx.Stats() }

// RegisterCooperative wires this interface's RX and TX jobs into a shared,
// single-threaded timer wheel.
// The caller owns the wheel and drives its Tick loop; one wheel may serve
// many interfaces.
func (i *Interface) RegisterCooperative(wheel api.Wheel) error {
	if _, err := wheel.AddPeriodic(i.cfg.Name+"-rx", 0, i.cfg.RxIntervalNanos, true, func(tick int64) {
		i.dispatcher.Run(tick)
	}); err != nil {
		return fmt.Errorf("iface %q: register rx job: %w", i.cfg.Name, err)
	}
	// The egress job is non-resettable: it keeps its original schedule
	// under tick jitter instead of rebasing off each late fire, the same
	// asymmetry the TX worker's private wheel uses.
	if _, err := wheel.AddPeriodic(i.cfg.Name+"-tx", 0, i.cfg.TxIntervalNanos, false, func(tick int64) {
		if err := i.runTX(tick); err != nil && i.log != nil {
			i.log.Printf("tx tick: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("iface %q: register tx job: %w", i.cfg.Name, err)
	}
	return nil
}

// StartWorkers spins this interface's RX and TX jobs onto dedicated,
// CPU-pinned goroutines instead of a shared wheel. Pinning goes through
// the affinity package.
func (i *Interface) StartWorkers() {
	pin := func(_, cpuID int) {
		runtime.LockOSThread()
		if err := affinity.SetAffinity(cpuID); err != nil && i.log != nil {
			i.log.Printf("pin worker to cpu %d: %v", cpuID, err)
		}
	}
	i.rxWorker = worker.NewRXWorker(func(now int64) int {
		return i.dispatcher.Run(now)
	}, pin, i.cfg.CPUID, i.cfg.NUMANode)

	i.txWorker = worker.NewTXWorker(func(now int64) {
		if err := i.runTX(now); err != nil && i.log != nil {
			i.log.Printf("tx worker tick: %v", err)
		}
	}, i.cfg.TxIntervalNanos, i.cfg.WorkerBackoffResolution, pin, i.cfg.CPUID, i.cfg.NUMANode)
}

// StartReactor is the user-space-driver mode's alternative to StartWorkers'
// free-running nanosleep backoff: if this interface's rings are bound to an
// api.FDTransport, their descriptors are registered with an epoll reactor
// and the RX/TX jobs fire on readiness instead of polling blind. Interfaces whose transport
// does not expose a descriptor (the in-process fake, DPDK) fall back to
// StartWorkers silently — ModeUserSpaceDriver degrades, it does not fail.
func (i *Interface) StartReactor() error {
	r, err := reactor.NewReactor()
	if err != nil {
		return fmt.Errorf("iface %q: new reactor: %w", i.cfg.Name, err)
	}
	registered := false
	if fdt, ok := i.cfg.RxTransport.(api.FDTransport); ok {
		if fd, ok := fdt.RawFD(); ok {
			if err := r.Register(uintptr(fd), reactor.EventRead, func(uintptr, reactor.FDEventType) {
				i.dispatcher.Run(time.Now().UnixNano())
			}); err != nil {
				r.Close()
				return fmt.Errorf("iface %q: register rx fd: %w", i.cfg.Name, err)
			}
			registered = true
		}
	}
	if fdt, ok := i.cfg.TxTransport.(api.FDTransport); ok {
		if fd, ok := fdt.RawFD(); ok {
			if err := r.Register(uintptr(fd), reactor.EventWrite, func(uintptr, reactor.FDEventType) {
				if err := i.runTX(time.Now().UnixNano()); err != nil && i.log != nil {
					i.log.Printf("tx reactor tick: %v", err)
				}
			}); err != nil {
				r.Close()
				return fmt.Errorf("iface %q: register tx fd: %w", i.cfg.Name, err)
			}
			registered = true
		}
	}
	if !registered {
		r.Close()
		i.StartWorkers()
		return nil
	}

	i.reactor = r
	i.reactDone = make(chan struct{})
	go func() {
		for {
			select {
			case <-i.reactDone:
				return
			default:
			}
			if err := r.Poll(1); err != nil && i.log != nil {
				i.log.Printf("reactor poll: %v", err)
			}
		}
	}()
	return nil
}

// runTX drains refill/control/stream phases via the TX scheduler and, when
// a metrics registry is configured, records both rings' packet counts;
// errors from NotifyKernel are surfaced to the caller so the driver can
// decide whether to log them.
func (i *Interface) runTX(tickNanos int64) error {
	_, _, err := i.scheduler.Run(tickNanos)
	if i.cfg.Metrics != nil {
		i.cfg.Metrics.Set(i.cfg.Name+".tx.packets", i.tx.Stats().Packets)
		i.cfg.Metrics.Set(i.cfg.Name+".rx.packets", i.rx.Stats().Packets)
	}
	return err
}

// Close stops whichever driver is active and tears down both rings.
func (i *Interface) Close() error {
	if i.rxWorker != nil {
		i.rxWorker.Stop()
	}
	if i.txWorker != nil {
		i.txWorker.Stop()
	}
	if i.reactor != nil {
		close(i.reactDone)
		i.reactor.Close()
	}
	rxErr := i.rx.Close()
	txErr := i.tx.Close()
	if rxErr != nil {
		return rxErr
	}
	return txErr
}
