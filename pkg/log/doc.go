// Package log provides the logging abstraction shared by the listener,
// client and registry packages.
//
// Components never import a logging library directly. They accept a
// [Logger] and default to [NewNoopLogger] so that embedding applications
// stay silent unless they opt in.
//
// # Usage
//
// Wrap a zerolog logger:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	l, err := listener.New(cfg, table, store, listener.WithLogger(logger))
//
// Derive a scoped logger that carries fields on every entry:
//
//	connLog := logger.With(log.String("conn", id), log.Int("port", 9877))
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
