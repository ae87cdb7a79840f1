package client

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnreachable means no connection could be established to the target.
	ErrUnreachable = errors.New("client: host unreachable")

	// ErrTimeout means no complete response arrived within the call timeout.
	ErrTimeout = errors.New("client: call timed out")

	// ErrConnectionLost means the connection was reset or closed mid-call.
	ErrConnectionLost = errors.New("client: connection lost")

	// ErrProtocol means the host sent something that is not a response.
	ErrProtocol = errors.New("client: protocol error")

	// ErrUnknownInstance is returned by ConnectTo for a port that no live
	// instance advertises.
	ErrUnknownInstance = errors.New("client: no live instance on port")

	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = errors.New("client: invalid config")

	// ErrClosed is returned by calls on a closed Manager.
	ErrClosed = errors.New("client: manager closed")
)

// CommandError is a well-formed error response from the host. The
// connection that produced it is still usable.
type CommandError struct {
	Type    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.Type, e.Message)
}

// IsRetryable reports whether err was a transport failure, after which the
// call may be retried on a fresh connection.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnreachable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionLost)
}

// Outcome classifies the result of a call for logging and metrics.
func Outcome(err error) string {
	var cmdErr *CommandError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &cmdErr):
		return "command_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrProtocol):
		return "protocol_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
