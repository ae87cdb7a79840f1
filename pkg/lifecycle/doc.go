// Package lifecycle provides the host listener state machine and the
// backoff used between reconnect attempts.
//
// # Usage
//
// Create a lifecycle manager:
//
//	manager := lifecycle.NewManager(logger, handler)
//
//	if !manager.CanStart() {
//	    return ErrAlreadyRunning
//	}
//
//	if err := manager.TransitionTo(lifecycle.StateBound, "bound"); err != nil {
//	    return err
//	}
//
//	// ... accept loop in a goroutine ...
//
//	// Graceful shutdown
//	if err := manager.WaitWithTimeout(5 * time.Second); err != nil {
//	    return ErrShutdownTimeout
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Unbound -> Bound, Stopped
//   - Bound -> Accepting, Stopped
//   - Accepting -> Connected, Stopped
//   - Connected -> Accepting, Stopped
//   - Stopped -> Bound
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
