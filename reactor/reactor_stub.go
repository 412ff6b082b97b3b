//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without an epoll reactor.

package reactor

import "errors"

// NewReactor returns an error for unsupported platforms.
func NewReactor() (Reactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
