// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Buffer pooling layer behind the per-slot frame buffers the packet engine
// allocates for each ring. Implements NUMA-aware pools on Linux (libnuma
// via cgo, plain heap allocation without it), a heap-backed pool on other
// platforms, and a fixed-size-class slab pool.
// All core methods are thread-safe or explicitly document the concurrency contract.
package pool
