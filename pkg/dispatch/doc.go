// Package dispatch maps command names to handlers and turns every
// invocation into exactly one response envelope.
//
// Handlers are registered once, before the host starts accepting
// connections, and the table is sealed when the listener starts. A missing
// handler, a handler error and a handler panic all become error envelopes;
// nothing a handler does can take the connection down.
//
// # Usage
//
//	table := dispatch.NewTable(dispatch.WithLogger(logger))
//	_ = dispatch.Register(table, "get_node_info", func(ctx context.Context, p NodeParams) (NodeInfo, error) {
//	    ...
//	})
//	resp := table.Dispatch(ctx, req)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package dispatch
