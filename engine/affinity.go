// File: engine/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"runtime"
	"sync"

	"github.com/rtbrick/bngblaster-core/affinity"
	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/internal/concurrency"
)

// affinityAdapter implements api.Affinity for the run loop's goroutine:
// NUMA placement through the concurrency package, CPU pinning through the
// affinity package's thread-affinity shim.
type affinityAdapter struct {
	mu     sync.Mutex
	desc   api.AffinityDescriptor
	locked bool
}

var _ api.Affinity = (*affinityAdapter)(nil)

func newAffinityAdapter() *affinityAdapter {
	return &affinityAdapter{desc: api.AffinityDescriptor{CPUID: -1, NUMAID: -1, Scope: api.ScopeGoroutine}}
}

// Pin locks the calling goroutine to its OS thread and binds that thread to
// cpuID (and numaID when >= 0). cpuID < 0 picks the platform's preferred
// core for numaID.
func (a *affinityAdapter) Pin(cpuID, numaID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cpuID < 0 {
		cpuID = concurrency.PreferredCPUID(numaID)
	}
	if !a.locked {
		runtime.LockOSThread()
		a.locked = true
	}
	concurrency.PinCurrentThread(numaID, cpuID)
	if err := affinity.SetAffinity(cpuID); err != nil {
		return err
	}
	a.desc = api.AffinityDescriptor{CPUID: cpuID, NUMAID: numaID, Scope: api.ScopeGoroutine, Pinned: true}
	return nil
}

// Unpin releases the OS-thread lock; the thread's mask reverts when the
// goroutine migrates.
func (a *affinityAdapter) Unpin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.locked {
		runtime.UnlockOSThread()
		a.locked = false
	}
	a.desc.Pinned = false
	return nil
}

// Get reports the effective binding.
func (a *affinityAdapter) Get() (cpuID, numaID int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cpuID, numaID = a.desc.CPUID, a.desc.NUMAID
	if !a.desc.Pinned {
		numaID = concurrency.CurrentNUMANodeID()
	}
	return cpuID, numaID, nil
}

func (a *affinityAdapter) Scope() api.AffinityScope { return a.desc.Scope }

func (a *affinityAdapter) ImmutableDescriptor() api.AffinityDescriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.desc
}
