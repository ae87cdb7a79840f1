//go:build !unix && !windows

package liveness

// Platforms without a process table query report every pid as alive so
// descriptors are never purged by mistake.
func processExists(pid int) bool { return true }
