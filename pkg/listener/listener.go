package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nscrdesigns/houdini-mcp/pkg/lifecycle"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// Dispatcher turns a request into its response. *dispatch.Table satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req wire.Request) wire.Response
}

// sealer is implemented by dispatchers that can be frozen at start.
type sealer interface {
	Seal()
}

// Registry is the part of the instance registry the listener uses.
// *registry.Store satisfies it.
type Registry interface {
	Publish(ctx context.Context, d registry.Descriptor) error
	Unpublish(ctx context.Context, port int) error
	Prune(ctx context.Context) (int, error)
	Dir() string
}

// Listener is a host instance endpoint.
// Use New() to create one, then Start() to bind and serve.
type Listener struct {
	config     Config
	opts       options
	dispatcher Dispatcher
	registry   Registry
	lifecycle  *lifecycle.DefaultManager
	logger     log.Logger
	plugins    []Plugin

	mu   sync.Mutex
	ln   *net.TCPListener
	desc registry.Descriptor

	connMu sync.Mutex
	conn   net.Conn

	acceptErrs rate.Sometimes
	frameErrs  rate.Sometimes
}

// New creates a Listener in state Unbound.
// Returns an error if configuration is invalid.
func New(cfg Config, dispatcher Dispatcher, reg Registry, opts ...Option) (*Listener, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: nil dispatcher", ErrInvalidConfig)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Listener{
		config:     cfg,
		opts:       o,
		dispatcher: dispatcher,
		registry:   reg,
		lifecycle:  lifecycle.NewManager(o.logger, o.eventHandler),
		logger:     o.logger,
		plugins:    o.plugins,
		acceptErrs: rate.Sometimes{First: 3, Interval: 10 * time.Second},
		frameErrs:  rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}, nil
}

// Start binds a port, publishes the instance descriptor and starts serving
// in the background. It returns once the descriptor is visible.
// Canceling ctx stops the serve loop; Stop must still be called to release
// the port and remove the descriptor.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}

	if n, err := l.registry.Prune(ctx); err != nil {
		l.logger.Warn("stale descriptor sweep failed", log.Err(err))
	} else if n > 0 {
		l.logger.Info("removed stale descriptors", log.Int("count", n))
	}

	ln, err := l.bind()
	if err != nil {
		l.logger.Error("bind failed", log.Err(err))
		_ = l.lifecycle.TransitionTo(lifecycle.StateStopped, "bind failed")
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if err := l.lifecycle.TransitionTo(lifecycle.StateBound, "bound to "+strconv.Itoa(port)); err != nil {
		_ = ln.Close()
		return err
	}

	desc := registry.Descriptor{
		Port:       port,
		PID:        os.Getpid(),
		StartedAt:  time.Now().UTC(),
		HipFile:    l.config.HipFile,
		HipName:    l.config.HipName,
		AppVersion: l.config.AppVersion,
		Hostname:   l.config.Host,
	}
	if err := l.registry.Publish(ctx, desc); err != nil {
		_ = ln.Close()
		_ = l.lifecycle.TransitionTo(lifecycle.StateStopped, "publish failed")
		return fmt.Errorf("listener: publish descriptor: %w", err)
	}

	if s, ok := l.dispatcher.(sealer); ok {
		s.Seal()
	}

	runCtx, cancel := context.WithCancel(ctx)

	pluginCfg := PluginConfig{
		Port:       port,
		Descriptor: desc,
		Registry:   l.registry,
		Logger:     l.logger,
	}
	for i, p := range l.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			l.shutdownPlugins(l.plugins[:i])
			_ = l.registry.Unpublish(context.Background(), port)
			_ = ln.Close()
			_ = l.lifecycle.TransitionTo(lifecycle.StateStopped, "plugin init failed: "+p.Name())
			return err
		}
		l.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	l.ln = ln
	l.desc = desc
	l.lifecycle.SetCancel(cancel)

	if err := l.lifecycle.TransitionTo(lifecycle.StateAccepting, "serve loop started"); err != nil {
		cancel()
		return err
	}

	l.lifecycle.AddWorker()
	go func() {
		defer l.lifecycle.WorkerDone()
		l.run(runCtx, ln)
	}()

	l.logger.Info("listener started",
		log.Port(port),
		log.String("host", l.config.Host),
		log.String("registry", l.registry.Dir()),
	)
	return nil
}

// Stop removes the descriptor, closes the active connection and the
// listening socket, and waits for the serve loop to exit.
// Returns ErrNotRunning if the listener is not running, and
// lifecycle.ErrShutdownTimeout if the loop did not exit in time.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lifecycle.CanStop() {
		return ErrNotRunning
	}

	_ = l.registry.Unpublish(context.Background(), l.desc.Port)

	l.lifecycle.Cancel()
	l.closeConn()

	err := l.lifecycle.WaitWithTimeout(l.config.ShutdownTimeout)

	l.shutdownPlugins(l.plugins)

	if l.ln != nil {
		_ = l.ln.Close()
	}

	reason := "graceful shutdown"
	if err != nil {
		reason = "shutdown timeout"
	}
	_ = l.lifecycle.TransitionTo(lifecycle.StateStopped, reason)

	l.logger.Info("listener stopped", log.Port(l.desc.Port))
	return err
}

// shutdownPlugins shuts plugins down in reverse order.
func (l *Listener) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), l.config.ShutdownTimeout)
	defer cancel()

	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			l.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			l.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// State returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (l *Listener) State() lifecycle.State {
	return l.lifecycle.State()
}

// Port returns the bound port, or zero before the first successful Start.
func (l *Listener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.desc.Port
}

// Addr returns the listening address, or nil before the first successful Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Descriptor returns the published descriptor and whether the listener is
// currently running.
func (l *Listener) Descriptor() (registry.Descriptor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.desc, l.lifecycle.State().Running()
}

// bind listens on the explicit port, or on the first free port of the range.
func (l *Listener) bind() (*net.TCPListener, error) {
	if l.config.Port != 0 {
		ln, err := l.listen(l.config.Port)
		if err != nil {
			return nil, fmt.Errorf("%w: port %d: %v", ErrBindFailure, l.config.Port, err)
		}
		return ln, nil
	}

	var lastErr error
	for p := l.config.PortRangeStart; p <= l.config.PortRangeEnd; p++ {
		ln, err := l.listen(p)
		if err == nil {
			return ln, nil
		}
		lastErr = err
		l.logger.Debug("port unavailable", log.Port(p), log.Err(err))
	}
	return nil, fmt.Errorf("%w: all ports in range %d-%d are in use: %v",
		ErrBindFailure, l.config.PortRangeStart, l.config.PortRangeEnd, lastErr)
}

func (l *Listener) listen(port int) (*net.TCPListener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(l.config.Host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, fmt.Errorf("unexpected listener type %T", ln)
	}
	return tcp, nil
}

func (l *Listener) setConn(c net.Conn) {
	l.connMu.Lock()
	l.conn = c
	l.connMu.Unlock()
}

func (l *Listener) closeConn() {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
