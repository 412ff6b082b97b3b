// File: internal/transport/dpdk_transport_stub.go
//go:build !dpdk
// +build !dpdk

// Package transport provides a stub fallback when DPDK is unavailable.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// newDPDKTransport in stub always returns error.

package transport

import (
	"fmt"

	"github.com/rtbrick/bngblaster-core/api"
)

func newDPDKTransport(int) (api.Transport, error) {
	return nil, fmt.Errorf("DPDK transport not available (build tag 'dpdk' not enabled): %w", api.ErrNotSupported)
}

// NewDPDKTransport exposes the build-tag-selected DPDK constructor.
func NewDPDKTransport(ioBufferSize int) (api.Transport, error) {
	return newDPDKTransport(ioBufferSize)
}
