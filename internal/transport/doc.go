// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unified cross-platform transport layer for the packet engine.
// Provides high-performance, NUMA-aware, zero-copy, batch-capable transport
// primitives strictly separated by build tags (linux/windows). All critical
// interfaces are designed for composability and downstream testability.

package transport
