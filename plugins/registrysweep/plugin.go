// Package registrysweep keeps the instance registry tidy while a host runs.
// It periodically purges descriptors left behind by crashed instances and
// restores the host's own descriptor if something deleted it.
package registrysweep

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/listener"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
)

// Plugin runs the sweep loop.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	interval       time.Duration
	runImmediately bool
	restoreOwn     bool

	// Runtime state
	reg    listener.Registry
	desc   registry.Descriptor
	logger log.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sweeps int
}

// Config holds configuration options for the sweep plugin.
type Config struct {
	// Interval is how often the registry is swept.
	// Default: 1 minute
	Interval time.Duration

	// RunImmediately runs a sweep as soon as the plugin starts.
	// Default: true
	RunImmediately bool

	// RestoreOwn republishes this host's descriptor when its file is missing.
	// Default: true
	RestoreOwn bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       time.Minute,
		RunImmediately: true,
		RestoreOwn:     true,
	}
}

// New creates a sweep plugin.
func New(cfg Config) *Plugin {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Plugin{
		interval:       cfg.Interval,
		runImmediately: cfg.RunImmediately,
		restoreOwn:     cfg.RestoreOwn,
		logger:         log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "registrysweep"
}

// Initialize starts the sweep loop.
func (p *Plugin) Initialize(ctx context.Context, cfg listener.PluginConfig) error {
	p.mu.Lock()
	p.reg = cfg.Registry
	p.desc = cfg.Descriptor
	p.logger = log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	p.mu.Unlock()

	if p.reg == nil {
		p.logger.Warn("registry sweep disabled: no registry configured")
		return nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("registry sweep started", log.Duration("interval", p.interval))

	p.wg.Add(1)
	go p.loop(sweepCtx)
	return nil
}

// Shutdown stops the sweep loop and waits for it to exit.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Sweeps reports how many sweeps have completed.
func (p *Plugin) Sweeps() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sweeps
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.sweepOnce(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepOnce(ctx)
		}
	}
}

// pather is implemented by registry.Store.
type pather interface {
	Path(port int) string
}

func (p *Plugin) sweepOnce(ctx context.Context) {
	p.mu.RLock()
	reg, desc := p.reg, p.desc
	p.mu.RUnlock()

	purged, err := reg.Prune(ctx)
	switch {
	case err != nil && ctx.Err() == nil:
		p.logger.Warn("registry sweep: prune failed", log.Err(err))
	case purged > 0:
		p.logger.Info("registry sweep: purged stale descriptors", log.Int("count", purged))
	}

	if p.restoreOwn && desc.Port > 0 && ctx.Err() == nil {
		p.restore(ctx, reg, desc)
	}

	p.mu.Lock()
	p.sweeps++
	p.mu.Unlock()
}

func (p *Plugin) restore(ctx context.Context, reg listener.Registry, desc registry.Descriptor) {
	pr, ok := reg.(pather)
	if !ok {
		return
	}
	_, err := os.Stat(pr.Path(desc.Port))
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err := reg.Publish(ctx, desc); err != nil {
		p.logger.Warn("registry sweep: restore descriptor failed", log.Port(desc.Port), log.Err(err))
		return
	}
	p.logger.Info("registry sweep: restored missing descriptor", log.Port(desc.Port))
}

var _ listener.Plugin = (*Plugin)(nil)
