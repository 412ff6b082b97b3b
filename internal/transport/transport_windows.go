// File: internal/transport/transport_windows.go
//go:build windows
// +build windows

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows-native NUMA-aware batch transport using IOCP and overlapped
// WSASendto/WSARecvFrom. Windows exposes no AF_PACKET equivalent, so the
// link is a point-to-point UDP pseudo-wire carrying one Ethernet frame per
// datagram: the interface spec is "local[/peer]" UDP endpoints, and when
// no peer is configured it is learned from the first datagram received.
// Datagram framing keeps per-frame boundaries, which the ring requires.

package transport

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/concurrency"
	"github.com/rtbrick/bngblaster-core/pool"
)

const maxBatch = 32

type ioResult struct {
	bytes uint32
	err   error
}

type windowsTransport struct {
	recvMu sync.Mutex
	sendMu sync.Mutex

	socket       windows.Handle
	iocp         windows.Handle
	bufPool      api.BufferPool
	ioBufferSize int
	numaNode     int

	closed  bool
	closeMu sync.RWMutex

	peerMu sync.Mutex
	peer   windows.Sockaddr

	// Overlapped structures must be stable in memory.
	recvOverlapped windows.Overlapped
	sendOverlapped windows.Overlapped

	recvDone chan ioResult
	sendDone chan ioResult

	// One receive is kept armed at all times; pendingBuf is the buffer the
	// in-flight WSARecvFrom fills, fromAny where the sender address lands.
	pendingBuf api.Buffer
	recvFlags  uint32
	fromAny    windows.RawSockaddrAny
	fromLen    int32
}

// newTransportInternal creates the UDP pseudo-wire transport. iface is a
// "local[/peer]" endpoint spec ("192.0.2.1:9000/192.0.2.2:9000"); a bare
// NIC name is rejected, since raw link-layer access needs a capture driver
// this engine does not program.
func newTransportInternal(iface string, ioBufferSize, numaNode int) (api.Transport, error) {
	local, peer, err := parseWireSpec(iface)
	if err != nil {
		return nil, err
	}

	nodeCnt := concurrency.NUMANodes()
	node := numaNode
	if node < 0 || node >= nodeCnt {
		node = 0
	}

	sock, err := windows.Socket(windows.AF_INET, windows.SOCK_DGRAM, windows.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := windows.Bind(sock, local); err != nil {
		windows.Closesocket(sock)
		return nil, fmt.Errorf("bind to %q: %w", iface, err)
	}
	iocp, err := windows.CreateIoCompletionPort(sock, 0, 0, 0)
	if err != nil {
		windows.Closesocket(sock)
		return nil, fmt.Errorf("CreateIoCompletionPort: %w", err)
	}

	wt := &windowsTransport{
		socket:       sock,
		iocp:         iocp,
		bufPool:      pool.DefaultManager().GetPool(node),
		ioBufferSize: ioBufferSize,
		numaNode:     node,
		peer:         peer,
		recvDone:     make(chan ioResult, 1),
		sendDone:     make(chan ioResult, 1),
	}

	go wt.dispatchLoop()

	if err := wt.armRecv(); err != nil {
		wt.Close()
		return nil, fmt.Errorf("arm initial receive: %w", err)
	}
	return wt, nil
}

// parseWireSpec splits "local[/peer]" into resolved IPv4 socket addresses.
func parseWireSpec(spec string) (local, peer windows.Sockaddr, err error) {
	if !strings.Contains(spec, ":") {
		return nil, nil, fmt.Errorf("iface %q: link-layer capture unavailable, use a local[/peer] UDP wire spec: %w",
			spec, api.ErrNotSupported)
	}
	localSpec, peerSpec, hasPeer := strings.Cut(spec, "/")
	local, err = resolveUDP4(localSpec)
	if err != nil {
		return nil, nil, fmt.Errorf("local endpoint %q: %w", localSpec, err)
	}
	if hasPeer {
		peer, err = resolveUDP4(peerSpec)
		if err != nil {
			return nil, nil, fmt.Errorf("peer endpoint %q: %w", peerSpec, err)
		}
	}
	return local, peer, nil
}

func resolveUDP4(s string) (windows.Sockaddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", s)
	if err != nil {
		return nil, err
	}
	sa := &windows.SockaddrInet4{Port: addr.Port}
	if ip := addr.IP.To4(); ip != nil {
		copy(sa.Addr[:], ip)
	}
	return sa, nil
}

// dispatchLoop routes IOCP completions to the waiting send/recv sides.
func (wt *windowsTransport) dispatchLoop() {
	var bytesTransferred uint32
	var key uintptr
	var ol *windows.Overlapped
	for {
		err := windows.GetQueuedCompletionStatus(wt.iocp, &bytesTransferred, &key, &ol, windows.INFINITE)
		if ol == nil {
			if err != nil {
				return // IOCP closed
			}
			continue
		}
		res := ioResult{bytes: bytesTransferred, err: err}
		if ol == &wt.recvOverlapped {
			select {
			case wt.recvDone <- res:
			default:
			}
		} else if ol == &wt.sendOverlapped {
			select {
			case wt.sendDone <- res:
			default:
			}
		}
	}
}

// armRecv posts the next overlapped WSARecvFrom into a fresh pool buffer.
func (wt *windowsTransport) armRecv() error {
	buf := wt.bufPool.Get(wt.ioBufferSize, wt.numaNode)
	data := buf.Bytes()
	wsabuf := windows.WSABuf{Len: uint32(len(data)), Buf: &data[0]}

	wt.pendingBuf = buf
	wt.recvOverlapped = windows.Overlapped{}
	wt.recvFlags = 0
	wt.fromLen = int32(unsafe.Sizeof(wt.fromAny))

	var received uint32
	err := windows.WSARecvFrom(wt.socket, &wsabuf, 1, &received, &wt.recvFlags,
		&wt.fromAny, &wt.fromLen, &wt.recvOverlapped, nil)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return fmt.Errorf("WSARecvFrom: %w", err)
	}
	return nil
}

// learnPeer adopts the sender of the completed datagram when no peer was
// configured, turning the wire into a point-to-point link after the first
// frame arrives.
func (wt *windowsTransport) learnPeer() {
	wt.peerMu.Lock()
	defer wt.peerMu.Unlock()
	if wt.peer != nil {
		return
	}
	if sa, err := wt.fromAny.Sockaddr(); err == nil {
		wt.peer = sa
	}
}

// Recv drains every datagram completed since the last call, never blocking:
// a pending receive stays pending and is picked up next tick.
func (wt *windowsTransport) Recv() ([][]byte, error) {
	wt.recvMu.Lock()
	defer wt.recvMu.Unlock()

	wt.closeMu.RLock()
	if wt.closed {
		wt.closeMu.RUnlock()
		return nil, api.ErrTransportClosed
	}
	wt.closeMu.RUnlock()

	var out [][]byte
	for len(out) < maxBatch {
		select {
		case res := <-wt.recvDone:
			if res.err != nil {
				if err := wt.armRecv(); err != nil {
					return out, err
				}
				return out, fmt.Errorf("async recv error: %w", res.err)
			}
			wt.learnPeer()
			out = append(out, wt.pendingBuf.Bytes()[:res.bytes])
			if err := wt.armRecv(); err != nil {
				return out, err
			}
		default:
			return out, nil
		}
	}
	return out, nil
}

// Send transmits each frame as one datagram to the wire's peer.
func (wt *windowsTransport) Send(buffers [][]byte) error {
	wt.sendMu.Lock()
	defer wt.sendMu.Unlock()

	wt.closeMu.RLock()
	if wt.closed {
		wt.closeMu.RUnlock()
		return api.ErrTransportClosed
	}
	wt.closeMu.RUnlock()

	wt.peerMu.Lock()
	peer := wt.peer
	wt.peerMu.Unlock()
	if peer == nil {
		return fmt.Errorf("wire has no peer yet: %w", api.ErrNotFound)
	}

	for _, b := range buffers {
		if len(b) == 0 {
			continue
		}
		wsabuf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
		wt.sendOverlapped = windows.Overlapped{}

		select {
		case <-wt.sendDone: // drain stale
		default:
		}

		var sent uint32
		err := windows.WSASendto(wt.socket, &wsabuf, 1, &sent, 0, peer, &wt.sendOverlapped, nil)
		if err != nil && err != windows.ERROR_IO_PENDING {
			return fmt.Errorf("WSASendto: %w", err)
		}
		res := <-wt.sendDone
		if res.err != nil {
			return fmt.Errorf("async send error: %w", res.err)
		}
	}
	return nil
}

func (wt *windowsTransport) Close() error {
	wt.closeMu.Lock()
	defer wt.closeMu.Unlock()
	if !wt.closed {
		wt.closed = true
		windows.CancelIoEx(wt.socket, nil)
		windows.CloseHandle(wt.iocp) // wakes the dispatcher
		windows.Closesocket(wt.socket)
	}
	return nil
}

func (wt *windowsTransport) Features() api.TransportFeatures {
	return api.TransportFeatures{
		Batch:     true,
		NUMAAware: wt.numaNode >= 0,
		OS:        []string{"windows"},
	}
}
