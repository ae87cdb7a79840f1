package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning        = errors.New("not running")
	ErrAlreadyRunning    = errors.New("already running")
	ErrShutdownTimeout   = errors.New("shutdown timeout")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// transitions lists the allowed targets for each state. Stopped is reachable
// from every other state.
var transitions = map[State][]State{
	StateUnbound:   {StateBound, StateStopped},
	StateBound:     {StateAccepting, StateStopped},
	StateAccepting: {StateConnected, StateStopped},
	StateConnected: {StateAccepting, StateStopped},
	StateStopped:   {StateBound},
}

// DefaultManager implements Manager.
type DefaultManager struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       log.Logger
	eventHandler EventHandler
}

// NewManager creates a new lifecycle manager in StateUnbound.
func NewManager(logger log.Logger, handler EventHandler) *DefaultManager {
	return &DefaultManager{
		state:        StateUnbound,
		logger:       log.OrNoop(logger),
		eventHandler: handler,
	}
}

// State returns the current lifecycle state.
func (l *DefaultManager) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid.
func (l *DefaultManager) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !allowed(oldState, newState) {
		l.mu.Unlock()
		switch {
		case oldState == StateStopped && newState != StateBound:
			return fmt.Errorf("%w: %s -> %s", ErrNotRunning, oldState, newState)
		case oldState.Running() && newState == StateBound:
			return fmt.Errorf("%w: %s -> %s", ErrAlreadyRunning, oldState, newState)
		default:
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
		}
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventHandler != nil {
		l.eventHandler.OnStateChange(oldState, newState, reason)
	}

	l.logger.Debug("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if Start() can be called.
func (l *DefaultManager) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateUnbound || l.state == StateStopped
}

// CanStop returns true if Stop() can be called.
func (l *DefaultManager) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Running()
}

// SetCancel stores the cancel function for graceful shutdown.
func (l *DefaultManager) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers graceful shutdown.
func (l *DefaultManager) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *DefaultManager) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *DefaultManager) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *DefaultManager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
