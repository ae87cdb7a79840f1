package listener

import (
	"github.com/nscrdesigns/houdini-mcp/pkg/lifecycle"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
)

// Observer is told about connections and framing failures. Used for metrics.
type Observer interface {
	OnConnectionOpened()
	OnConnectionClosed(reason string)
	OnFramingError(err error)
}

// Option configures optional behavior of a Listener.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler lifecycle.EventHandler
	observer     Observer
	plugins      []Plugin
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithEventHandler sets a handler for state changes.
// Events are called synchronously from whichever goroutine changes state.
func WithEventHandler(handler lifecycle.EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithObserver sets a connection observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithPlugin registers a plugin to be initialized when the listener starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
