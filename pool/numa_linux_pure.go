//go:build linux && !cgo
// +build linux,!cgo

// File: pool/numa_linux_pure.go
// Author: momentics <momentics@gmail.com>
//
// Pure-Go fallback NUMA allocator for Linux builds with CGO disabled: plain
// heap allocation, no node pinning. Keeps createNUMAAllocator callable
// without requiring libnuma.

package pool

type pureNUMAAllocator struct{}

func newLinuxNUMAAllocator() NUMAAllocator {
	return &pureNUMAAllocator{}
}

func (pureNUMAAllocator) Alloc(size int, node int) ([]byte, error) {
	return make([]byte, size), nil
}

func (pureNUMAAllocator) Free(buf []byte) {}

func (pureNUMAAllocator) Nodes() (int, error) {
	return 1, nil
}
