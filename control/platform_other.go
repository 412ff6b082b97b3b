//go:build !linux
// +build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// No platform-specific probes outside Linux.

package control

// RegisterPlatformProbes is a no-op on platforms without specific probes.
func RegisterPlatformProbes(dp *DebugProbes) {}
