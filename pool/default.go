package pool

import (
	"sync"

	"github.com/rtbrick/bngblaster-core/api"
)

var (
	defaultOnce sync.Once
	defaultMgr  *BufferPoolManager
)

// DefaultManager returns a process-wide BufferPoolManager so all components
// reuse the same NUMA-aware pools instead of fragmenting allocations.
func DefaultManager() *BufferPoolManager {
	defaultOnce.Do(func() {
		defaultMgr = NewBufferPoolManager()
	})
	return defaultMgr
}

// DefaultPool is a shortcut to fetch a buffer of size from the default
// manager's pool for numaPreferred.
func DefaultPool(size, numaPreferred int) api.Buffer {
	return DefaultManager().GetPool(numaPreferred).Get(size, numaPreferred)
}
