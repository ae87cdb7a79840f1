package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one command. params is always a JSON object.
type Handler interface {
	Handle(ctx context.Context, params json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, params json.RawMessage) (any, error) {
	return f(ctx, params)
}

// Register adds a handler whose params are decoded into P. Fields in the
// request that P does not declare are rejected.
func Register[P, R any](t *Table, name string, fn func(ctx context.Context, params P) (R, error)) error {
	return t.Handle(name, HandlerFunc(func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if err := decodeParams(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid params for %s: %w", name, err)
		}
		return fn(ctx, p)
	}))
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
