package registrysweep

import "github.com/nscrdesigns/houdini-mcp/pkg/listener"

// WithRegistrySweep returns a listener Option that enables the sweep.
//
// Usage:
//
//	l, err := listener.New(cfg, table, store,
//	    registrysweep.WithRegistrySweep(registrysweep.Config{
//	        Interval:   30 * time.Second,
//	        RestoreOwn: true,
//	    }),
//	)
func WithRegistrySweep(cfg Config) listener.Option {
	return listener.WithPlugin(New(cfg))
}

// WithDefaultRegistrySweep enables the sweep with DefaultConfig.
func WithDefaultRegistrySweep() listener.Option {
	return WithRegistrySweep(DefaultConfig())
}
