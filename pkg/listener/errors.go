package listener

import (
	"errors"

	"github.com/nscrdesigns/houdini-mcp/pkg/lifecycle"
)

var (
	// ErrBindFailure is returned by Start when no port could be bound.
	ErrBindFailure = errors.New("listener: bind failed")

	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = errors.New("listener: invalid config")

	// ErrNotRunning is returned by Stop on a listener that is not running.
	ErrNotRunning = lifecycle.ErrNotRunning

	// ErrAlreadyRunning is returned by Start on a running listener.
	ErrAlreadyRunning = lifecycle.ErrAlreadyRunning
)
