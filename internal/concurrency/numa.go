// File: internal/concurrency/numa.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Exported NUMA topology queries, delegating to the per-platform
// platformNUMANodes/platformPreferredCPUID implementations selected by
// build tags in affinity_linux.go / affinity_linux_pure.go / affinity_other.go.

package concurrency

// NUMANodes reports the number of NUMA nodes visible to this process.
func NUMANodes() int { return platformNUMANodes() }

// PreferredCPUID returns a suggested CPU core index for the given NUMA node.
func PreferredCPUID(numaNode int) int { return platformPreferredCPUID(numaNode) }

// CurrentNUMANodeID returns the NUMA node the calling thread is currently running on.
func CurrentNUMANodeID() int { return platformCurrentNUMANodeID() }
