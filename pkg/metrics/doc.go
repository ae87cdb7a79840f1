// Package metrics exposes Prometheus instrumentation for hosts and clients.
//
// A *Metrics value implements the observer interfaces of the registry,
// dispatch, listener and client packages and the lifecycle event handler,
// so one value can be passed to every With*Observer option:
//
//	m := metrics.New(nil)
//	store := registry.NewStore(dir, registry.WithObserver(m))
//	table := dispatch.NewTable(dispatch.WithObserver(m))
//	l, _ := listener.New(cfg, table, store,
//	    listener.WithObserver(m),
//	    listener.WithEventHandler(m),
//	)
//	go metrics.Serve(ctx, ":9464", m, logger)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package metrics
