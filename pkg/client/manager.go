package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/lifecycle"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// Lister lists live host instances, newest first. *registry.Store
// satisfies it.
type Lister interface {
	ListLive(ctx context.Context) ([]registry.Descriptor, error)
}

// Instance is a live host instance as seen by a Manager.
type Instance struct {
	registry.Descriptor

	// Connected is true for the instance the Manager is connected to.
	Connected bool `json:"connected"`
}

// Manager is the client side connection manager.
// It is safe for concurrent use; calls are executed one at a time.
type Manager struct {
	config Config
	lister Lister
	opts   options
	logger log.Logger

	mu     sync.Mutex
	conn   net.Conn
	enc    *wire.Encoder
	dec    *wire.Decoder
	closed bool

	// pinned is the port set by ConnectTo, zero when unpinned. current is
	// the port of the open connection, zero when there is none. Both are
	// read without mu by Instances and Target.
	pinned  atomic.Int64
	current atomic.Int64
}

// New creates a Manager. No connection is made until the first call.
func New(cfg Config, lister Lister, opts ...Option) (*Manager, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lister == nil {
		return nil, fmt.Errorf("%w: nil lister", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager{
		config: cfg,
		lister: lister,
		opts:   o,
		logger: o.logger,
	}, nil
}

// Call sends one command and returns the result of a success response.
// A well-formed error response is returned as *CommandError and leaves the
// connection open; any transport failure closes it.
func (m *Manager) Call(ctx context.Context, typ string, params any) (json.RawMessage, error) {
	req, err := wire.NewRequest(typ, params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	result, err := m.call(ctx, req)
	m.observeCall(typ, err, time.Since(start))
	return result, err
}

// CallInto is Call with the result decoded into R.
func CallInto[R any](ctx context.Context, m *Manager, typ string, params any) (R, error) {
	var out R
	raw, err := m.Call(ctx, typ, params)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s result: %v", ErrProtocol, typ, err)
	}
	return out, nil
}

// Instances lists the live host instances and marks the connected one.
func (m *Manager) Instances(ctx context.Context) ([]Instance, error) {
	live, err := m.lister.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	current := int(m.current.Load())
	out := make([]Instance, 0, len(live))
	for _, d := range live {
		out = append(out, Instance{Descriptor: d, Connected: current != 0 && d.Port == current})
	}
	return out, nil
}

// ConnectTo switches to the live instance on port. The current connection
// is closed, the port is pinned for later calls, and the probe command is
// sent once; its result is returned.
func (m *Manager) ConnectTo(ctx context.Context, port int) (json.RawMessage, error) {
	live, err := m.lister.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]int, 0, len(live))
	found := false
	for _, d := range live {
		available = append(available, d.Port)
		if d.Port == port {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %d (available: %v)", ErrUnknownInstance, port, available)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	m.drop("switching instance")
	m.pinned.Store(int64(port))
	m.logger.Info("pinned instance", log.Port(port))

	if err := m.dial(ctx, port); err != nil {
		return nil, err
	}

	req := wire.Request{Type: m.config.ProbeCommand}
	start := time.Now()
	resp, err := m.roundTrip(ctx, req)
	if err == nil && !resp.OK() {
		err = &CommandError{Type: req.Type, Message: resp.Message}
	}
	m.observeCall(req.Type, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result(resp), nil
}

// Target returns the pinned port if there is one, otherwise the port of the
// open connection, otherwise zero.
func (m *Manager) Target() int {
	if p := m.pinned.Load(); p != 0 {
		return int(p)
	}
	return int(m.current.Load())
}

// Close closes the connection. Later calls fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop("closed")
	m.closed = true
	return nil
}

func (m *Manager) call(ctx context.Context, req wire.Request) (json.RawMessage, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}

	resp, err := m.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &CommandError{Type: req.Type, Message: resp.Message}
	}
	return result(resp), nil
}

// ensure leaves m with a connection that is believed healthy.
func (m *Manager) ensure(ctx context.Context) error {
	if m.conn != nil {
		_, err := m.roundTrip(ctx, wire.Request{Type: m.config.ProbeCommand})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		m.logger.Info("connection failed health check, reconnecting", log.Err(err))
	}

	port := m.resolve(ctx)
	return m.dial(ctx, port)
}

// resolve picks the port to dial: pinned, newest live, then default.
func (m *Manager) resolve(ctx context.Context) int {
	if p := m.pinned.Load(); p != 0 {
		return int(p)
	}
	live, err := m.lister.ListLive(ctx)
	if err != nil {
		m.logger.Warn("registry scan failed, using default port", log.Err(err))
		return m.config.DefaultPort
	}
	if len(live) > 0 {
		return live[0].Port
	}
	return m.config.DefaultPort
}

func (m *Manager) dial(ctx context.Context, port int) error {
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(port))
	backoff := lifecycle.NewBackoff(m.config.BackoffInitial, m.config.BackoffMax)

	var lastErr error
	for attempt := 1; attempt <= m.config.DialAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, m.config.DialTimeout)
		conn, err := m.opts.dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if m.opts.observer != nil {
			m.opts.observer.OnDial(port, err)
		}
		if err == nil {
			m.conn = conn
			m.enc = wire.NewEncoder(conn)
			m.dec = wire.NewDecoder(conn, wire.WithMaxMessageBytes(m.config.MaxMessageBytes))
			m.current.Store(int64(port))
			m.logger.Info("connected", log.Port(port), log.Int("attempt", attempt))
			return nil
		}

		lastErr = err
		m.logger.Debug("dial failed", log.Port(port), log.Int("attempt", attempt), log.Err(err))
		if attempt == m.config.DialAttempts || ctx.Err() != nil {
			break
		}
		if err := backoff.Wait(ctx); err != nil {
			break
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrUnreachable, addr, lastErr)
}

// roundTrip writes req and reads one response on the open connection. On
// any transport or framing failure the connection is dropped.
func (m *Manager) roundTrip(ctx context.Context, req wire.Request) (wire.Response, error) {
	conn := m.conn
	if conn == nil {
		return wire.Response{}, fmt.Errorf("%w: not connected", ErrConnectionLost)
	}

	deadline := time.Now().Add(m.config.CallTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	// Cancellation unblocks the read by moving the deadline into the past.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := m.enc.Encode(req); err != nil {
		return wire.Response{}, m.fail(ctx, req.Type, err)
	}

	raw, err := m.dec.Next()
	if err != nil {
		return wire.Response{}, m.fail(ctx, req.Type, err)
	}

	resp, err := wire.ParseResponse(raw)
	if err != nil {
		return wire.Response{}, m.fail(ctx, req.Type, err)
	}
	return resp, nil
}

// fail drops the connection and maps err to the client taxonomy.
func (m *Manager) fail(ctx context.Context, typ string, err error) error {
	var mapped error
	switch {
	case ctx.Err() != nil:
		mapped = fmt.Errorf("client: %s: %w", typ, ctx.Err())
	case errors.Is(err, wire.ErrNoData), errors.Is(err, wire.ErrTimeout), isTimeout(err):
		mapped = fmt.Errorf("%w: %s after %v", ErrTimeout, typ, m.config.CallTimeout)
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, wire.ErrProtocol), errors.Is(err, wire.ErrTooLarge):
		mapped = fmt.Errorf("%w: %s: %w", ErrProtocol, typ, err)
	default:
		mapped = fmt.Errorf("%w: %s: %w", ErrConnectionLost, typ, err)
	}
	m.drop(mapped.Error())
	return mapped
}

func (m *Manager) drop(reason string) {
	if m.conn == nil {
		return
	}
	_ = m.conn.Close()
	m.logger.Info("connection closed", log.Int64("port", m.current.Load()), log.String("reason", reason))
	m.conn = nil
	m.enc = nil
	m.dec = nil
	m.current.Store(0)
}

func (m *Manager) observeCall(typ string, err error, d time.Duration) {
	outcome := Outcome(err)
	if m.opts.observer != nil {
		m.opts.observer.OnCall(typ, outcome, d)
	}
	if err != nil {
		m.logger.Debug("call failed", log.Command(typ), log.String("outcome", outcome), log.Err(err))
	}
}

func result(resp wire.Response) json.RawMessage {
	if len(resp.Result) == 0 {
		return json.RawMessage("null")
	}
	return resp.Result
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
