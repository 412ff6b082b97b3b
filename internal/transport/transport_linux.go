// File: internal/transport/transport_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux transport: an AF_PACKET raw socket bound to a single interface,
// moving whole Ethernet frames out with one write per frame and in via
// RecvmsgBuffers.
// Ensures socket descriptor is properly closed on errors and when replacing implementation.

package transport

import (
	"fmt"
	"net"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/pool"
	"golang.org/x/sys/unix"
)

// linuxTransport implements api.Transport for Linux.
type linuxTransport struct {
	fd           int
	bufPool      api.BufferPool
	ioBufferSize int
	numaNode     int
	features     api.TransportFeatures
	closed       bool
}

// htons converts a 16-bit value from host to network byte order.
func htons(v uint16) uint16 { return (v << 8) | (v >> 8) }

// newTransportInternal opens an AF_PACKET/SOCK_RAW socket bound to iface
// and captures every ethertype (ETH_P_ALL).
func newTransportInternal(iface string, ioBufferSize, numaNode int) (api.Transport, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	link, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("resolve interface %q: %w", iface, err)
	}
	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  link.Index,
	}
	if err = unix.Bind(fd, addr); err != nil {
		return nil, fmt.Errorf("bind to %q: %w", iface, err)
	}

	bp := pool.NewBufferPoolManager().GetPool(numaNode)
	return &linuxTransport{
		fd:           fd,
		bufPool:      bp,
		ioBufferSize: ioBufferSize,
		numaNode:     numaNode,
		features: api.TransportFeatures{
			ZeroCopy:     true,
			Batch:        true,
			NUMAAware:    numaNode >= 0,
			LockFree:     true,
			SharedMemory: false,
			OS:           []string{"linux"},
		},
	}, nil
}

// Send writes each buffer to the bound socket as one frame.
func (lt *linuxTransport) Send(buffers [][]byte) error {
	if lt.closed {
		return api.ErrTransportClosed
	}
	for i, b := range buffers {
		if _, err := unix.Write(lt.fd, b); err != nil {
			return fmt.Errorf("partial send: %d/%d buffers: %w", i, len(buffers), err)
		}
	}
	return nil
}

// Recv reads up to maxBuffers via RecvmsgBuffers and returns slices trimmed to lengths.
func (lt *linuxTransport) Recv() ([][]byte, error) {
	if lt.closed {
		return nil, api.ErrTransportClosed
	}
	const maxBuffers = 16
	bufs := make([][]byte, maxBuffers)
	for i := range bufs {
		buf := lt.bufPool.Get(lt.ioBufferSize, lt.numaNode)
		bufs[i] = buf.Bytes()
	}
	n, _, _, _, err := unix.RecvmsgBuffers(lt.fd, bufs, nil, unix.MSG_DONTWAIT)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, nil
		}
		return nil, fmt.Errorf("RecvmsgBuffers: %w", err)
	}
	return bufs[:n], nil
}

// Close closes the socket and prevents further operations.
func (lt *linuxTransport) Close() error {
	if lt.closed {
		return nil
	}
	lt.closed = true
	return unix.Close(lt.fd)
}

// Features returns transport capabilities.
func (lt *linuxTransport) Features() api.TransportFeatures {
	return lt.features
}

// RawFD exposes the bound AF_PACKET socket for reactor-driven readiness
// polling in user-space-driver mode (api.FDTransport).
func (lt *linuxTransport) RawFD() (int, bool) {
	if lt.closed {
		return 0, false
	}
	return lt.fd, true
}

var _ api.FDTransport = (*linuxTransport)(nil)
