// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the batch transport abstraction used below the ring handle: a
// socket-like object that moves whole frame batches in and out of the
// kernel, and the feature set a concrete implementation (PACKET_MMAP,
// io_uring, AF_PACKET raw socket, or a pure user-space driver stub)
// advertises to its caller.

package api

// TransportFeatures summarizes the capabilities of a Transport implementation.
type TransportFeatures struct {
	ZeroCopy     bool
	Batch        bool
	NUMAAware    bool
	LockFree     bool
	SharedMemory bool
	OS           []string
}

// Transport abstracts the underlying batch I/O primitive a RingHandle binds
// to. Implementations live in internal/transport and are selected by mode
// (shared-ring, worker-thread, raw-socket, user-space-driver).
type Transport interface {
	// Send transmits a batch of frames; implementations may submit them as
	// one syscall where the underlying mechanism supports it.
	Send(buffers [][]byte) error

	// Recv returns the next available batch of received frames.
	Recv() ([][]byte, error)

	// Close releases the transport's kernel resources (socket, mapping).
	Close() error

	// Features reports this transport's capability set.
	Features() TransportFeatures
}

// FDTransport is an optional Transport capability: implementations backed by
// a real OS descriptor (AF_PACKET socket, io_uring submission fd) expose it
// so the user-space-driver ring mode can register readiness with a reactor
// instead of the free-running poll/sleep loop. Transports with no descriptor
// of their own (the in-process pair transport, the DPDK stub) simply don't
// implement this interface; callers type-assert for it.
type FDTransport interface {
	Transport
	// RawFD returns the descriptor to register for readiness, or ok=false
	// if this instance has none yet (e.g. not opened).
	RawFD() (fd int, ok bool)
}
