// Package listener runs the host side of the protocol: it binds a local TCP
// port, advertises it in the instance registry, and serves one client
// connection at a time, answering each request with one response.
//
// # Usage
//
//	table := dispatch.NewTable()
//	// ... register commands ...
//
//	l, err := listener.New(listener.Config{HipName: "shot.hip"}, table,
//	    registry.NewStore(registry.DefaultDir()),
//	    listener.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := l.Start(ctx); err != nil {
//	    return err
//	}
//	defer l.Stop()
//
// When Config.Port is zero the listener takes the first free port of
// [PortRangeStart, PortRangeEnd]. Start returns only once the port is bound
// and the descriptor is published, so a client that scans the registry
// after Start returns will find it.
//
// # Lifecycle
//
// Unbound -> Bound -> Accepting <-> Connected, and Stopped from any state.
// See the lifecycle package.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package listener
