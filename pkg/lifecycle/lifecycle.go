package lifecycle

import "time"

// State is the lifecycle state of a host listener.
type State int

const (
	// StateUnbound: created, no socket yet.
	StateUnbound State = iota
	// StateBound: socket bound and descriptor published, loop not started.
	StateBound
	// StateAccepting: waiting for a client.
	StateAccepting
	// StateConnected: serving one client.
	StateConnected
	// StateStopped: socket closed. Terminal until the next Start.
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "Unbound"
	case StateBound:
		return "Bound"
	case StateAccepting:
		return "Accepting"
	case StateConnected:
		return "Connected"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Running reports whether a listener in this state owns a socket.
func (s State) Running() bool {
	return s == StateBound || s == StateAccepting || s == StateConnected
}

// EventHandler is called when lifecycle state changes.
type EventHandler interface {
	OnStateChange(previous, current State, reason string)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(previous, current State, reason string)

// OnStateChange calls f.
func (f EventHandlerFunc) OnStateChange(previous, current State, reason string) {
	f(previous, current, reason)
}

// Manager manages the lifecycle state machine of a listener.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanStart returns true if Start() can be called.
	CanStart() bool

	// CanStop returns true if Stop() can be called.
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error

	// WaitWithTimeout waits for all workers to finish with a timeout.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker increments the worker count.
	AddWorker()

	// WorkerDone decrements the worker count.
	WorkerDone()
}
