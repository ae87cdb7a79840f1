package registrywatch

import (
	"context"
	"sync"

	"github.com/nscrdesigns/houdini-mcp/pkg/listener"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
)

// Plugin runs a Watcher inside a host and logs peers that appear or go away.
type Plugin struct {
	cfg Config

	mu      sync.Mutex
	self    int
	peers   map[int]registry.Descriptor
	logger  log.Logger
	watcher *Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPlugin creates the host plugin.
func NewPlugin(cfg Config) *Plugin {
	return &Plugin{cfg: cfg, peers: make(map[int]registry.Descriptor)}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "registrywatch"
}

// Initialize starts watching the registry the host published to.
func (p *Plugin) Initialize(ctx context.Context, cfg listener.PluginConfig) error {
	lister, ok := cfg.Registry.(Lister)
	logger := log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	if !ok {
		logger.Warn("registry watch disabled: registry cannot list instances")
		return nil
	}

	p.mu.Lock()
	p.self = cfg.Port
	p.logger = logger
	p.watcher = New(p.cfg, lister, p.onChange, logger)
	p.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.watcher.Run(watchCtx); err != nil {
			logger.Error("registry watch stopped", log.Err(err))
		}
	}()
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Peers returns the other live instances seen by the last scan.
func (p *Plugin) Peers() []registry.Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]registry.Descriptor, 0, len(p.peers))
	for _, d := range p.peers {
		out = append(out, d)
	}
	return out
}

func (p *Plugin) onChange(live []registry.Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[int]registry.Descriptor, len(live))
	for _, d := range live {
		if d.Port == p.self {
			continue
		}
		next[d.Port] = d
		if _, ok := p.peers[d.Port]; !ok {
			p.logger.Info("peer instance appeared", log.Port(d.Port), log.PID(d.PID),
				log.String("hip_name", d.HipName))
		}
	}
	for port := range p.peers {
		if _, ok := next[port]; !ok {
			p.logger.Info("peer instance gone", log.Port(port))
		}
	}
	p.peers = next
}

var _ listener.Plugin = (*Plugin)(nil)
