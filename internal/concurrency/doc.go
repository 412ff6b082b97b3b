// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-performance concurrency primitives with NUMA-aware, lock-free
// support. Includes CPU/NUMA pinning and lock-free queues
// and ring buffers optimized for zero-copy packet I/O.
//
// The CGO-backed Linux implementation is optional via the cgo build tag;
// a pure-Go no-op fallback keeps the project building without it.
package concurrency
