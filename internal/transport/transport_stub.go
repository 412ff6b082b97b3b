//go:build !linux && !windows
// +build !linux,!windows

// File: internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms with neither AF_PACKET nor the IOCP pseudo-wire:
// the default factory path reports unsupported. Callers there supply their
// own api.Transport (the in-process pair transport works everywhere).

package transport

import "github.com/rtbrick/bngblaster-core/api"

func newTransportInternal(iface string, ioBufferSize, numaNode int) (api.Transport, error) {
	return nil, api.ErrNotSupported
}
