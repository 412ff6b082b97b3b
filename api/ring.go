// Package api
// Author: momentics
//
// Fast, lock-free ring buffer contract for cross-thread data transfer, plus
// the shared-memory packet ring contract that sits
// between the engine and the kernel (or an emulated kernel side for modes
// that do not map real PACKET_MMAP memory).

package api

// Ring contract for high-performance, concurrent FIFO.
type Ring[T any] interface {
	// Enqueue adds item, returns false if buffer full.
	Enqueue(item T) bool

	// Dequeue removes and returns the oldest item, false if buffer empty.
	Dequeue() (T, bool)

	// Len returns number of items currently in buffer.
	Len() int

	// Cap returns fixed buffer capacity.
	Cap() int
}

// Direction identifies which half of a duplex link a ring serves.
type Direction int

const (
	DirectionIngress Direction = iota
	DirectionEgress
)

func (d Direction) String() string {
	if d == DirectionEgress {
		return "egress"
	}
	return "ingress"
}

// Mode selects the transport backing a RingHandle.
type Mode int

const (
	// ModeSharedRing maps a PACKET_MMAP-style ring directly with the kernel.
	ModeSharedRing Mode = iota
	// ModeWorkerThread runs RX/TX on a dedicated, CPU-pinned goroutine.
	ModeWorkerThread
	// ModeRawSocket falls back to a plain non-blocking raw socket, one
	// syscall per frame (used when PACKET_MMAP is unavailable).
	ModeRawSocket
	// ModeUserSpaceDriver drives an io_uring (or equivalent) submission
	// queue entirely in user space.
	ModeUserSpaceDriver
)

func (m Mode) String() string {
	switch m {
	case ModeWorkerThread:
		return "worker-thread"
	case ModeRawSocket:
		return "raw-socket"
	case ModeUserSpaceDriver:
		return "user-space-driver"
	default:
		return "shared-ring"
	}
}

// SlotState is the tri-state ownership of one ring slot.
type SlotState uint32

const (
	// SlotUser: ready for user to read (RX) or free for user to write (TX).
	SlotUser SlotState = 1 << iota
	// SlotKernel: owned by kernel, waiting for an incoming packet or transmitting.
	SlotKernel
	// SlotSendRequest: user has filled the slot, awaiting kernel pickup.
	SlotSendRequest
)

// FrameView is a scoped, non-retainable view into one ring slot. It must not
// be used after the matching RxRelease/TxCommit call.
type FrameView struct {
	Buf      []byte
	VLANTCI  uint16
	VLANTPID uint16
}

// RingStats holds the observable per-ring counters.
type RingStats struct {
	Packets        uint64
	Bytes          uint64
	NoBuffer       uint64
	Polled         uint64
	Unknown        uint64
	ProtocolErrors uint64
	IOErrors       uint64
}

// RingHandle is the per-direction, per-interface mapped circular frame
// buffer contract.
type RingHandle interface {
	// RxClaim returns a frame view iff the current slot is SlotUser; the
	// second result is false on an empty ring.
	RxClaim() (FrameView, bool)
	// RxRelease transitions the current slot USER->KERNEL and advances the
	// cursor modulo frame count.
	RxRelease()

	// TxReserve returns a writable frame view iff the current slot is
	// SlotUser (free).
	TxReserve() (FrameView, bool)
	// TxCommit sets the slot length, transitions USER->SEND_REQUEST, and
	// advances the cursor, incrementing the queued count.
	TxCommit(n int)

	// Poll issues a single non-blocking poll of the underlying descriptor.
	Poll(write bool)
	// NotifyKernel hands all SEND_REQUEST slots to the kernel in one call.
	NotifyKernel() error

	// Cursor returns the current slot index (0 <= cursor < frame count).
	Cursor() int
	// Queued returns the number of frames filled but not yet notified.
	Queued() int
	// Stats returns a snapshot of this ring's counters.
	Stats() RingStats
	// MarkUnknown attributes one RX frame to the unknown-protocol counter.
	MarkUnknown()
	// MarkProtocolError attributes one RX frame to the protocol-error
	// counter (malformed outer Ethernet/VLAN framing).
	MarkProtocolError()
	// Direction reports which half of the link this handle serves.
	Direction() Direction
	// Close releases the mapped buffer and descriptor.
	Close() error
}
