package client

import (
	"context"
	"net"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
)

// Dialer opens connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Observer is told about calls and dials. Used for metrics.
type Observer interface {
	OnCall(command, outcome string, duration time.Duration)
	OnDial(port int, err error)
}

// Option configures optional behavior of a Manager.
type Option func(*options)

type options struct {
	logger   log.Logger
	observer Observer
	dialer   Dialer
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		dialer: &net.Dialer{},
	}
}

// WithLogger sets a custom logger for structured logging.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithObserver sets a call observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}
