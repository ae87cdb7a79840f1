package registrywatch

import "github.com/nscrdesigns/houdini-mcp/pkg/listener"

// WithRegistryWatch returns a listener Option that logs peer instances as
// they come and go.
//
// Usage:
//
//	l, err := listener.New(cfg, table, store,
//	    registrywatch.WithRegistryWatch(registrywatch.DefaultConfig()),
//	)
func WithRegistryWatch(cfg Config) listener.Option {
	return listener.WithPlugin(NewPlugin(cfg))
}
