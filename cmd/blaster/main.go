// File: cmd/blaster/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Loopback traffic demo: brings up two emulated interfaces cross-connected
// in process (or one bound to a real NIC with -iface, which needs
// CAP_NET_RAW), paces a synthetic stream against a prioritized control
// frame, and dumps counters on exit. Optionally writes everything it moved
// to a pcap-NG file.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/engine"
	"github.com/rtbrick/bngblaster-core/internal/iface"
	"github.com/rtbrick/bngblaster-core/internal/streams"
	"github.com/rtbrick/bngblaster-core/internal/tokenbucket"
	"github.com/rtbrick/bngblaster-core/internal/transport"
)

// demoStack terminates received frames: IPv4 is "recognized", everything
// else counts as unknown on the ring.
type demoStack struct{}

func (demoStack) BuildControl(string, []byte) (int, api.BuildResult)    { return 0, api.BuildNone }
func (demoStack) BuildStream(api.Stream, []byte) (int, api.BuildResult) { return 0, api.BuildNone }
func (demoStack) Deliver(string, api.EthernetHeader)                    {}
func (demoStack) Classify(eth api.EthernetHeader) api.ClassifyResult {
	if eth.EtherType == 0x0800 {
		return api.ProtocolSuccess
	}
	return api.UnknownProtocol
}
func (demoStack) IsSynthetic(api.EthernetHeader) bool { return false }

func frameTemplate(payloadLen int) []byte {
	f := make([]byte, 14+payloadLen)
	copy(f[0:6], []byte{0x02, 0, 0, 0, 0, 2})
	copy(f[6:12], []byte{0x02, 0, 0, 0, 0, 1})
	f[12], f[13] = 0x08, 0x00
	return f
}

func main() {
	var (
		nic        = flag.String("iface", "", "bind to a real NIC instead of the in-process pair (needs CAP_NET_RAW)")
		capture    = flag.String("capture", "", "write a pcap-NG capture to this path")
		duration   = flag.Duration("duration", 3*time.Second, "how long to run")
		ratePPS    = flag.Float64("rate", 1000, "stream rate in packets per second")
		burst      = flag.Float64("burst", 32, "stream token bucket burst")
		workers    = flag.Bool("workers", false, "drive rings from dedicated worker goroutines")
		withStream = flag.Bool("include-streams", true, "capture stream frames, not just control")
	)
	flag.Parse()

	cfg := engine.DefaultConfig()
	cfg.CapturePath = *capture
	cfg.IncludeStreams = *withStream

	ctx, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	mode := api.ModeSharedRing
	if *workers {
		mode = api.ModeWorkerThread
	}

	var east, west *iface.Interface
	if *nic != "" {
		i, err := ctx.AddInterface(engine.InterfaceConfig{Name: *nic, Mode: mode, Stack: demoStack{}})
		if err != nil {
			log.Fatalf("bring up %s: %v", *nic, err)
		}
		east = i
	} else {
		eastTx, westRx := transport.NewMemPair(512)
		westTx, eastRx := transport.NewMemPair(512)
		ei, err := ctx.AddInterface(engine.InterfaceConfig{
			Name: "east", Mode: mode, Stack: demoStack{},
			RxTransport: eastRx, TxTransport: eastTx,
		})
		if err != nil {
			log.Fatalf("bring up east: %v", err)
		}
		wi, err := ctx.AddInterface(engine.InterfaceConfig{
			Name: "west", Mode: mode, Stack: demoStack{},
			RxTransport: westRx, TxTransport: westTx,
		})
		if err != nil {
			log.Fatalf("bring up west: %v", err)
		}
		east = ei
		west = wi
	}

	seqTracked := api.MutationDescriptor{SequenceOffset: 14, TimestampOffset: 22, ChecksumOffset: -1}
	east.AddStream(streams.New("bulk", *ratePPS, *burst, frameTemplate(64),
		tokenbucket.New(*ratePPS, *burst, 0), seqTracked))

	// One control frame ahead of the stream: it egresses first.
	ctx.SendControl(east.Name(), frameTemplate(20))

	go ctx.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-time.After(*duration):
	case s := <-sig:
		log.Printf("signal %v, shutting down", s)
	}

	if err := ctx.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}

	dump(east)
	if west != nil {
		dump(west)
	}
	fmt.Printf("metrics: %v\n", ctx.Metrics())
	if *capture != "" {
		if info, err := os.Stat(*capture); err == nil {
			fmt.Printf("capture: %s (%d bytes)\n", *capture, info.Size())
		}
	}
}

func dump(i *iface.Interface) {
	rx, tx := i.RXStats(), i.TXStats()
	fmt.Printf("%s rx: packets=%d bytes=%d unknown=%d errors=%d polled=%d\n",
		i.Name(), rx.Packets, rx.Bytes, rx.Unknown, rx.ProtocolErrors, rx.Polled)
	fmt.Printf("%s tx: packets=%d bytes=%d no_buffer=%d io_errors=%d\n",
		i.Name(), tx.Packets, tx.Bytes, tx.NoBuffer, tx.IOErrors)
}
