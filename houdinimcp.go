// Package houdinimcp connects automation clients to running Houdini
// sessions over a local socket.
//
// A host instance serves a command table on a localhost port and announces
// itself in a per-user registry directory. A client resolves the newest live
// instance from that registry and exchanges JSON envelopes with it.
//
// Example host:
//
//	table := dispatch.NewTable()
//	_ = table.HandleFunc("get_scene_info", sceneInfo)
//	host, err := houdinimcp.NewHost(houdinimcp.HostConfig{}, table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := host.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Stop()
//
// Example client:
//
//	c, err := houdinimcp.NewClient(houdinimcp.ClientConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//	info, err := c.Call(ctx, "get_scene_info", nil)
package houdinimcp

import (
	"github.com/nscrdesigns/houdini-mcp/pkg/client"
	"github.com/nscrdesigns/houdini-mcp/pkg/listener"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
)

// HostConfig configures a host listener. Zero values take defaults.
type HostConfig = listener.Config

// ClientConfig configures a client manager. Zero values take defaults.
type ClientConfig = client.Config

// Descriptor is the registry record of one running host instance.
type Descriptor = registry.Descriptor

// Host is a running host endpoint.
type Host = listener.Listener

// Client is a client connection manager.
type Client = client.Manager

// DefaultRegistry opens the per-user registry directory.
func DefaultRegistry(opts ...registry.Option) *registry.Store {
	return registry.NewStore(registry.DefaultDir(), opts...)
}

// NewHost creates a host serving dispatcher and publishing to the default
// registry.
func NewHost(cfg HostConfig, dispatcher listener.Dispatcher, opts ...listener.Option) (*Host, error) {
	return listener.New(cfg, dispatcher, DefaultRegistry(), opts...)
}

// NewClient creates a client that resolves instances from the default
// registry.
func NewClient(cfg ClientConfig, opts ...client.Option) (*Client, error) {
	return client.New(cfg, DefaultRegistry(), opts...)
}
