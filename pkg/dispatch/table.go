package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// Registration errors.
var (
	ErrSealed      = errors.New("dispatch: table is sealed")
	ErrDuplicate   = errors.New("dispatch: command already registered")
	ErrInvalidName = errors.New("dispatch: invalid command name")
)

// Observer is told about every dispatched command.
type Observer interface {
	OnDispatch(command, status string, duration time.Duration)
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger for handler faults.
func WithLogger(l log.Logger) Option {
	return func(t *Table) {
		t.logger = log.OrNoop(l)
	}
}

// WithObserver registers a dispatch observer.
func WithObserver(o Observer) Option {
	return func(t *Table) {
		t.observer = o
	}
}

// Table is the command table of a host.
type Table struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	sealed   bool

	logger   log.Logger
	observer Observer
}

// NewTable returns an empty, unsealed table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		handlers: make(map[string]Handler),
		logger:   log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle registers h under name.
func (t *Table) Handle(name string, h Handler) error {
	if name == "" || h == nil {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("%w: cannot add %s", ErrSealed, name)
	}
	if _, ok := t.handlers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	t.handlers[name] = h
	return nil
}

// HandleFunc registers fn under name.
func (t *Table) HandleFunc(name string, fn func(ctx context.Context, params json.RawMessage) (any, error)) error {
	if fn == nil {
		return fmt.Errorf("%w: %q has no handler", ErrInvalidName, name)
	}
	return t.Handle(name, HandlerFunc(fn))
}

// Seal freezes the table. It is safe to call more than once.
func (t *Table) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (t *Table) Sealed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sealed
}

// Commands returns the registered command names in sorted order.
func (t *Table) Commands() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	t.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Dispatch runs the handler for req.Type and returns its response envelope.
// It never panics.
func (t *Table) Dispatch(ctx context.Context, req wire.Request) (resp wire.Response) {
	start := time.Now()
	defer func() {
		if t.observer != nil {
			t.observer.OnDispatch(req.Type, resp.Status, time.Since(start))
		}
	}()

	t.mu.RLock()
	h, ok := t.handlers[req.Type]
	t.mu.RUnlock()
	if !ok {
		t.logger.Debug("unknown command", log.Command(req.Type))
		return wire.Failuref("Unknown command type: %s", req.Type)
	}

	result, err := t.invoke(ctx, req, h)
	if err != nil {
		t.logger.Warn("command failed", log.Command(req.Type), log.Err(err))
		return wire.Failure(err.Error())
	}

	resp, err = wire.Success(result)
	if err != nil {
		t.logger.Error("command result not encodable", log.Command(req.Type), log.Err(err))
		return wire.Failure(err.Error())
	}
	return resp
}

func (t *Table) invoke(ctx context.Context, req wire.Request, h Handler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("command panicked", log.Command(req.Type), log.Any("panic", r))
			result = nil
			err = fmt.Errorf("%v", r)
		}
	}()

	params := req.Params
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return h.Handle(ctx, params)
}
