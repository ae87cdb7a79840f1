// Package liveness answers whether a process id still names a running
// process on this machine.
//
// The check is query-only. On Unix it uses kill(pid, 0), which performs the
// existence and permission checks without delivering a signal. On Windows
// it opens the process with PROCESS_QUERY_LIMITED_INFORMATION and inspects
// its exit code.
//
// A recycled pid is reported alive: liveness is an OS-level fact, not an
// identity check.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package liveness
