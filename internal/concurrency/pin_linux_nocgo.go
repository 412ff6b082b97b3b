//go:build linux && !cgo
// +build linux,!cgo

// Package concurrency
// Author: momentics <momentics@gmail.com>
//
// Stub implementation of PinCurrentThread for Linux when CGO is disabled.
// The CGO-based version (pin_linux.go) uses pthread_setaffinity_np and
// libnuma; without CGO the import "C" file is excluded from the build, so
// this variant, which only locks the OS thread, keeps the project
// compiling in pure-Go environments.

package concurrency

import "runtime"

// PinCurrentThread locks the calling goroutine to its OS thread; without
// CGO no CPU or NUMA affinity is set.
func PinCurrentThread(numaNode int, cpuID int) {
	runtime.LockOSThread()
}