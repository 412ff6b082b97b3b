//go:build !linux
// +build !linux

// internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// Platform-generic symbol for CPU/NUMA pinning dispatcher.
// Overridden on Linux by pin_linux.go's cgo implementation.

package concurrency

// PinCurrentThread pins the current OS thread to a given NUMA node and CPU core.
// On unsupported systems it is a no-op.
func PinCurrentThread(numaNode int, cpuID int) {}
