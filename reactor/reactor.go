// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// Package reactor provides the fd-readiness poll abstraction the
// user-space-driver ring mode uses instead of the free-running nanosleep
// backoff: a ring's socket fd is registered once, and Poll delivers
// readiness callbacks instead of the worker spinning RxClaim/TxReserve on
// every tick.

package reactor

// FDEventType is a bitmask of readiness conditions a registered fd can fire.
type FDEventType uint8

const (
	EventRead FDEventType = 1 << iota
	EventWrite
	EventError
)

// FDCallback is invoked with the fd that became ready and which events fired.
type FDCallback func(fd uintptr, events FDEventType)

// Reactor registers file descriptors for readiness notification and
// dispatches callbacks on Poll.
type Reactor interface {
	Register(fd uintptr, events FDEventType, cb FDCallback) error
	Unregister(fd uintptr) error
	Poll(timeoutMs int) error
	Close() error
}
