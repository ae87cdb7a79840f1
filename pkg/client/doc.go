// Package client talks to a host instance on behalf of an automation
// client. A Manager owns at most one connection, finds its target through
// the instance registry, checks a reused connection before trusting it, and
// throws the connection away on any transport failure so that the next call
// starts clean.
//
// # Usage
//
//	store := registry.NewStore(registry.DefaultDir())
//	m, err := client.New(client.Config{}, store, client.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	info, err := m.Call(ctx, "get_scene_info", nil)
//
// Calls are serialized: a Manager never has more than one request in
// flight.
//
// # Target resolution
//
// A port pinned with ConnectTo wins. Otherwise the newest live descriptor
// in the registry is used, and if there is none the configured default
// port.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package client
