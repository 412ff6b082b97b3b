//go:build linux && !cgo
// +build linux,!cgo

// File: affinity/affinity_linux_pure.go
// Author: momentics <momentics@gmail.com>
//
// Pure-Go Linux implementation used when CGO is disabled: pins via
// sched_setaffinity on the calling thread instead of pthread_setaffinity_np.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets thread affinity to a given CPU without CGO.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity: %w", err)
	}
	return nil
}
