// File: engine/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Context is the process-wide composition root: it owns the shared timer
// wheel, the capture pipeline, the hot-reloadable link configuration, the
// metrics/debug registries, and every interface brought up through it.
// Components never read ambient globals after bring-up; everything they
// need is handed to them here.

package engine

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/control"
	"github.com/rtbrick/bngblaster-core/internal/capture"
	"github.com/rtbrick/bngblaster-core/internal/iface"
	"github.com/rtbrick/bngblaster-core/internal/timer"
	"github.com/rtbrick/bngblaster-core/internal/transport"
)

// Config holds process-wide defaults. Per-interface values in
// InterfaceConfig override the corresponding fields here.
type Config struct {
	FrameCount int
	FrameSize  int

	RxIntervalNanos int64
	TxIntervalNanos int64
	StreamBurst     int

	// NUMANode and CPUID zero-values mean "unpinned" (New maps 0 to -1), so
	// the run loop cannot be pinned to core 0 or node 0; an InterfaceConfig
	// CPUID of 0 is likewise replaced by this CPUID.
	NUMANode     int
	CPUID        int
	IOBufferSize int

	// CapturePath enables the pcap-NG capture pipeline when non-empty.
	CapturePath       string
	CaptureSnapLen    int
	CaptureQueueDepth int
	IncludeStreams    bool

	// TickResolution bounds how long the cooperative loop sleeps when the
	// wheel reports no earlier deadline.
	TickResolution time.Duration

	LogWriter io.Writer
}

// DefaultConfig returns a baseline configuration.
func DefaultConfig() Config {
	return Config{
		FrameCount:        256,
		FrameSize:         2048,
		RxIntervalNanos:   int64(time.Millisecond),
		TxIntervalNanos:   int64(time.Millisecond),
		StreamBurst:       32,
		NUMANode:          -1,
		CPUID:             -1,
		IOBufferSize:      2048,
		CaptureSnapLen:    2048,
		CaptureQueueDepth: 4096,
		TickResolution:    time.Millisecond,
		LogWriter:         os.Stderr,
	}
}

// InterfaceConfig describes one link to bring up.
type InterfaceConfig struct {
	Name  string
	Mode  api.Mode
	Stack api.ProtocolStack

	// RxTransport/TxTransport, when nil, are created through the transport
	// factory bound to Name (an AF_PACKET or io_uring socket on Linux).
	// Tests and the loopback demo pass in-process pair transports instead.
	RxTransport api.Transport
	TxTransport api.Transport

	// CPUID pins this interface's workers when Mode selects them; -1 (or
	// zero-value with engine CPUID -1) skips pinning.
	CPUID int

	RxIntervalNanos int64
	TxIntervalNanos int64
	StreamBurst     int
}

// Context is the engine facade.
type Context struct {
	cfg     Config
	log     *control.Logger
	wheel   *timer.Wheel
	links   *control.LinkConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	factory *transport.TransportFactory

	tap  *capture.Tap
	sink api.CaptureSink // async front of tap; nil when capture is off

	mu     sync.Mutex
	ifaces map[string]*iface.Interface
	nIface int

	running atomic.Bool
	stop    chan struct{}
	stopped chan struct{}
}

var _ api.GracefulShutdown = (*Context)(nil)

// New builds a Context. The capture file, when configured, is created here
// so AddInterface can register interface description blocks in order.
func New(cfg Config) (*Context, error) {
	def := DefaultConfig()
	if cfg.FrameCount == 0 {
		cfg.FrameCount = def.FrameCount
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.RxIntervalNanos == 0 {
		cfg.RxIntervalNanos = def.RxIntervalNanos
	}
	if cfg.TxIntervalNanos == 0 {
		cfg.TxIntervalNanos = def.TxIntervalNanos
	}
	if cfg.StreamBurst == 0 {
		cfg.StreamBurst = def.StreamBurst
	}
	if cfg.IOBufferSize == 0 {
		cfg.IOBufferSize = def.IOBufferSize
	}
	if cfg.NUMANode == 0 {
		cfg.NUMANode = -1
	}
	if cfg.CPUID == 0 {
		cfg.CPUID = -1
	}
	if cfg.CaptureSnapLen == 0 {
		cfg.CaptureSnapLen = def.CaptureSnapLen
	}
	if cfg.CaptureQueueDepth == 0 {
		cfg.CaptureQueueDepth = def.CaptureQueueDepth
	}
	if cfg.TickResolution == 0 {
		cfg.TickResolution = def.TickResolution
	}
	if cfg.LogWriter == nil {
		cfg.LogWriter = def.LogWriter
	}

	c := &Context{
		cfg:     cfg,
		log:     control.NewLogger(cfg.LogWriter, "engine"),
		wheel:   timer.New(),
		links:   control.NewLinkConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		ifaces:  make(map[string]*iface.Interface),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	c.factory = transport.NewTransportFactory(cfg.IOBufferSize, cfg.NUMANode)
	c.factory.Logger = control.NewLogger(cfg.LogWriter, "transport")

	if cfg.CapturePath != "" {
		f, err := os.Create(cfg.CapturePath)
		if err != nil {
			return nil, fmt.Errorf("engine: create capture file: %w", err)
		}
		tap, err := capture.New(f, nil)
		if err != nil {
			f.Close()
			return nil, err
		}
		c.tap = tap
		c.sink = capture.NewAsync(tap, cfg.CaptureQueueDepth, cfg.CaptureSnapLen, cfg.NUMANode)
	}
	return c, nil
}

// AddInterface opens one link and attaches it to whichever driver its mode
// selects: the shared cooperative wheel, dedicated workers, or the epoll
// reactor. Must not be called after Shutdown.
func (c *Context) AddInterface(ic InterfaceConfig) (*iface.Interface, error) {
	if ic.Name == "" {
		return nil, fmt.Errorf("engine: %w: interface name", api.ErrInvalidArgument)
	}
	if ic.RxIntervalNanos == 0 {
		ic.RxIntervalNanos = c.cfg.RxIntervalNanos
	}
	if ic.TxIntervalNanos == 0 {
		ic.TxIntervalNanos = c.cfg.TxIntervalNanos
	}
	if ic.StreamBurst == 0 {
		ic.StreamBurst = c.cfg.StreamBurst
	}
	if ic.CPUID == 0 {
		ic.CPUID = c.cfg.CPUID
	}

	rx, tx := ic.RxTransport, ic.TxTransport
	if rx == nil {
		t, err := c.factory.Create(ic.Name)
		if err != nil {
			return nil, err
		}
		rx = t
	}
	if tx == nil {
		t, err := c.factory.Create(ic.Name)
		if err != nil {
			rx.Close()
			return nil, err
		}
		tx = t
	}

	c.mu.Lock()
	if _, dup := c.ifaces[ic.Name]; dup {
		c.mu.Unlock()
		rx.Close()
		tx.Close()
		return nil, fmt.Errorf("engine: interface %q: %w", ic.Name, api.ErrAlreadyExists)
	}
	index := c.nIface
	c.nIface++
	c.mu.Unlock()

	if c.tap != nil {
		if err := c.tap.AddInterface(ic.Name, uint32(c.cfg.CaptureSnapLen)); err != nil {
			c.log.Printf("capture: add interface %q: %v", ic.Name, err)
		}
	}

	i, err := iface.Open(iface.Config{
		Name:            ic.Name,
		IfaceIndex:      index,
		Mode:            ic.Mode,
		RxIntervalNanos: ic.RxIntervalNanos,
		TxIntervalNanos: ic.TxIntervalNanos,
		StreamBurst:     ic.StreamBurst,
		FrameCount:      c.cfg.FrameCount,
		FrameSize:       c.cfg.FrameSize,
		NUMANode:        c.cfg.NUMANode,
		RxTransport:     rx,
		TxTransport:     tx,
		Stack:           ic.Stack,
		Capture:         c.sink,
		IncludeStreams:  c.cfg.IncludeStreams,
		CPUID:           ic.CPUID,
		ConfigStore:     c.links,
		Metrics:         c.metrics,
		Debug:           c.debug,
	}, c.log)
	if err != nil {
		return nil, err
	}

	switch ic.Mode {
	case api.ModeWorkerThread:
		i.StartWorkers()
	case api.ModeUserSpaceDriver:
		if err := i.StartReactor(); err != nil {
			i.Close()
			return nil, err
		}
	default:
		if err := i.RegisterCooperative(c.wheel); err != nil {
			i.Close()
			return nil, err
		}
	}

	c.mu.Lock()
	c.ifaces[ic.Name] = i
	c.mu.Unlock()
	c.links.Set(ic.Name, control.LinkConfig{
		StreamBurst:     ic.StreamBurst,
		RxIntervalNanos: ic.RxIntervalNanos,
		TxIntervalNanos: ic.TxIntervalNanos,
	})
	return i, nil
}

// Interface returns a previously added link by name.
func (c *Context) Interface(name string) (*iface.Interface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.ifaces[name]
	return i, ok
}

// SendControl copies frame into name's control queue. It returns false when
// the interface is unknown or the queue is full (the frame is dropped and
// counted there, as control producers must tolerate).
func (c *Context) SendControl(name string, frame []byte) bool {
	i, ok := c.Interface(name)
	if !ok {
		return false
	}
	q := i.ControlQueue()
	slot, ok := q.WriteSlot()
	if !ok {
		return false
	}
	n := copy(slot, frame)
	q.WriteCommit(n)
	return true
}

// Links exposes the hot-reloadable per-interface configuration store.
func (c *Context) Links() *control.LinkConfigStore { return c.links }

// Metrics returns a snapshot of the metrics registry.
func (c *Context) Metrics() map[string]any { return c.metrics.GetSnapshot() }

// Debug exposes the probe registry for diagnostics dumps.
func (c *Context) Debug() api.Debug { return c.debug }

// Run drives the shared timer wheel until Shutdown. It owns the calling
// goroutine: cooperative-mode interfaces' RX and TX jobs all run here, so
// the loop is pinned first when a CPU is configured.
func (c *Context) Run() error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: %w: already running", api.ErrAlreadyExists)
	}
	defer close(c.stopped)

	aff := newAffinityAdapter()
	if c.cfg.CPUID >= 0 {
		if err := aff.Pin(c.cfg.CPUID, c.cfg.NUMANode); err != nil {
			c.log.Printf("pin run loop to cpu %d: %v", c.cfg.CPUID, err)
		} else {
			defer aff.Unpin()
		}
	}

	start := time.Now()
	for {
		select {
		case <-c.stop:
			return nil
		default:
		}
		now := time.Since(start).Nanoseconds()
		sleep := c.wheel.Tick(now)
		wait := c.cfg.TickResolution
		if sleep > 0 && time.Duration(sleep) < wait {
			wait = time.Duration(sleep)
		}
		select {
		case <-c.stop:
			return nil
		case <-time.After(wait):
		}
	}
}

// Shutdown stops the run loop, tears down every interface, and closes the
// capture pipeline, flushing whatever it still buffers.
func (c *Context) Shutdown() error {
	var first error
	if c.running.Load() {
		select {
		case <-c.stop:
		default:
			close(c.stop)
		}
		<-c.stopped
	}

	c.mu.Lock()
	ifaces := make([]*iface.Interface, 0, len(c.ifaces))
	for _, i := range c.ifaces {
		ifaces = append(ifaces, i)
	}
	c.ifaces = make(map[string]*iface.Interface)
	c.mu.Unlock()

	for _, i := range ifaces {
		if err := i.Close(); err != nil && first == nil {
			first = err
		}
	}

	if async, ok := c.sink.(*capture.AsyncTap); ok {
		if err := async.Close(); err != nil && first == nil {
			first = err
		}
	}
	if c.tap != nil {
		if err := c.tap.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
