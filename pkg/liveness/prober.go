package liveness

// Prober reports whether a process id refers to a running process.
// Implementations must not panic and must return false for ids that are
// invalid or already reaped.
type Prober interface {
	IsAlive(pid int) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(pid int) bool

// IsAlive calls f(pid).
func (f ProberFunc) IsAlive(pid int) bool { return f(pid) }

// OS probes processes through the operating system.
type OS struct{}

// IsAlive reports whether pid is a running process.
func (OS) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return processExists(pid)
}

// Default returns the operating system prober.
func Default() Prober { return OS{} }

// IsAlive probes pid with the operating system prober.
func IsAlive(pid int) bool { return OS{}.IsAlive(pid) }
