package listener

import (
	"context"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
)

// Plugin extends a Listener with work that lives as long as it runs.
// Plugins are initialized in registration order after the descriptor is
// published, and shut down in reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to each plugin at start.
type PluginConfig struct {
	// Port is the bound port.
	Port int

	// Descriptor is what was published for this instance.
	Descriptor registry.Descriptor

	// Registry is the store the descriptor was published to.
	Registry Registry

	Logger log.Logger
}
