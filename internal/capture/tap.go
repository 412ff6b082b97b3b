// File: internal/capture/tap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Capture tap: an append-only writer against a process-wide pcap-NG
// buffer. Buffered writes are flushed at job boundaries only; flush
// failures are logged, never propagated to the caller. gopacket/pcapgo
// does the block encoding.
package capture

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/rtbrick/bngblaster-core/api"
)

// Tap serializes writes from however many interfaces share this process's
// single capture file; capture is process-wide by design.
type Tap struct {
	mu      sync.Mutex
	w       *pcapgo.NgWriter
	closer  io.Closer
	pending bool
	lastErr error
	logger  *log.Logger
}

var _ api.CaptureSink = (*Tap)(nil)

// New opens a capture tap writing pcap-NG to out. out is flushed, never
// closed, unless it also implements io.Closer and Close is called on the
// Tap itself.
func New(out io.Writer, logger *log.Logger) (*Tap, error) {
	w, err := pcapgo.NewNgWriter(out, layers.LinkTypeEthernet)
	if err != nil {
		return nil, fmt.Errorf("capture: open: %w", err)
	}
	closer, _ := out.(io.Closer)
	if logger == nil {
		logger = log.Default()
	}
	return &Tap{w: w, closer: closer, logger: logger}, nil
}

// AddInterface writes one Interface Description Block. Interfaces
// must be added in the same order their ifaceIndex is assigned by the
// engine, since pcap-NG identifies interfaces by sequential block order.
func (t *Tap) AddInterface(name string, snapLen uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.w.AddInterface(pcapgo.NgInterface{
		Name:                name,
		LinkType:            layers.LinkTypeEthernet,
		SnapLength:          snapLen,
		TimestampResolution: 9,
		OS:                  "bngblaster-core",
	})
	return err
}

// Push appends one frame. It never blocks and never
// propagates an encode error to the caller; a failure is remembered and
// surfaced on the next Flush/FlushErr.
func (t *Tap) Push(timestampSec, timestampNsec int64, buf []byte, ifaceIndex int, dir api.DirectionFlag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ci := gopacket.CaptureInfo{
		Timestamp:      time.Unix(timestampSec, timestampNsec),
		CaptureLength:  len(buf),
		Length:         len(buf),
		InterfaceIndex: ifaceIndex,
	}
	if err := t.w.WritePacket(ci, buf); err != nil {
		t.lastErr = fmt.Errorf("capture: write packet on iface %d: %w", ifaceIndex, err)
		return
	}
	t.pending = true
}

// Flush writes buffered blocks out. Failures are logged, not returned
//. Call FlushErr from the capture writer's own goroutine if the
// error itself is needed.
func (t *Tap) Flush() {
	if err := t.FlushErr(); err != nil {
		t.logger.Printf("capture: flush failed: %v", err)
	}
}

// FlushErr is Flush but surfaces the error.
func (t *Tap) FlushErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastErr != nil {
		err := t.lastErr
		t.lastErr = nil
		return err
	}
	if !t.pending {
		return nil
	}
	t.pending = false
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("capture: flush: %w", err)
	}
	return nil
}

// Close flushes and, if the underlying writer supports it, closes it.
func (t *Tap) Close() error {
	err := t.FlushErr()
	if t.closer != nil {
		if cerr := t.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
