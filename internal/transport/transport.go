// File: internal/transport/transport.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Factory and contract for creation of NUMA-aware, zero-copy, batch transports
// bound to a host network interface, abstracting the platform implementation
// behind unified methods.
//
// Compatible with the latest /pool and /internal/concurrency contracts.

package transport

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/control"
)

// TransportFactory produces api.Transport instances bound to a named
// interface, using the NUMA-aware BufferPoolManager and all required
// parameters.
type TransportFactory struct {
	IOBufferSize int
	NUMANode     int
	Logger       *control.Logger
}

// NewTransportFactory creates a factory for the preferred NUMA node and buffer size.
func NewTransportFactory(ioBufferSize, numaNode int) *TransportFactory {
	return &TransportFactory{
		IOBufferSize: ioBufferSize,
		NUMANode:     numaNode,
	}
}

// detectedTransportType stores the runtime-determined transport type
var detectedTransportType string
var transportTypeOnce sync.Once

// detectRuntimeTransportType performs runtime detection of the best available transport
func detectRuntimeTransportType() string {
	transportTypeOnce.Do(func() {
		if runtime.GOOS == "linux" && HasIoUringSupport() {
			detectedTransportType = "io_uring"
		} else {
			detectedTransportType = "default"
		}
	})
	return detectedTransportType
}

// Create builds a transport bound to iface using the correct platform
// implementation and NUMA node: the egress/ingress ring's kernel hand-off
// mechanism.
func (f *TransportFactory) Create(iface string) (api.Transport, error) {
	transportType := detectRuntimeTransportType()

	var impl api.Transport
	var err error

	switch transportType {
	case "io_uring":
		impl, err = newIoURingTransportInternal(iface, f.IOBufferSize, f.NUMANode)
		if err != nil {
			// If io_uring init fails, fall back to the default path.
			impl, err = newTransportInternal(iface, f.IOBufferSize, f.NUMANode)
		}
	default:
		impl, err = newTransportInternal(iface, f.IOBufferSize, f.NUMANode)
	}

	if err != nil {
		f.Logger.Printf("create transport on %q: %v", iface, err)
		return nil, fmt.Errorf("transport init on %q: %w", iface, err)
	}
	f.Logger.Printf("transport on %q ready", iface)
	return &safeWrapper{impl: impl}, nil
}

// safeWrapper synchronizes all external api.Transport calls, making transport thread-safe.
// This does not serialize I/O inside the transport but only API visibility.
type safeWrapper struct {
	impl api.Transport
	mu   sync.RWMutex
}

func (w *safeWrapper) Send(bufs [][]byte) error {
	w.mu.RLock()
	impl := w.impl
	w.mu.RUnlock()
	if impl == nil {
		return api.ErrTransportClosed
	}
	return impl.Send(bufs)
}
func (w *safeWrapper) Recv() ([][]byte, error) {
	w.mu.RLock()
	impl := w.impl
	w.mu.RUnlock()
	if impl == nil {
		return nil, api.ErrTransportClosed
	}
	return impl.Recv()
}
func (w *safeWrapper) Close() error {
	w.mu.Lock()
	impl := w.impl
	w.impl = nil
	w.mu.Unlock()
	if impl == nil {
		return nil
	}
	return impl.Close()
}
func (w *safeWrapper) Features() api.TransportFeatures {
	w.mu.RLock()
	impl := w.impl
	w.mu.RUnlock()
	if impl == nil {
		return api.TransportFeatures{}
	}
	return impl.Features()
}

// RawFD passes the wrapped transport's descriptor through so a factory-built
// transport still satisfies api.FDTransport for reactor registration.
func (w *safeWrapper) RawFD() (int, bool) {
	w.mu.RLock()
	impl := w.impl
	w.mu.RUnlock()
	if fdt, ok := impl.(api.FDTransport); ok {
		return fdt.RawFD()
	}
	return 0, false
}

var _ api.FDTransport = (*safeWrapper)(nil)
