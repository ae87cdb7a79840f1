package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) OnDispatch(command, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, command+":"+status)
}

type nodeParams struct {
	Path string `json:"path"`
}

type nodeInfo struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

func request(t *testing.T, raw string) wire.Request {
	t.Helper()
	req, err := wire.ParseRequest(json.RawMessage(raw))
	require.NoError(t, err)
	return req
}

func TestTable_UnknownCommand(t *testing.T) {
	called := false
	table := NewTable()
	require.NoError(t, table.HandleFunc("get_scene_info", func(context.Context, json.RawMessage) (any, error) {
		called = true
		return nil, nil
	}))

	resp := table.Dispatch(context.Background(), request(t, `{"type":"noop_probe"}`))

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"Unknown command type: noop_probe"}`, string(data))
	assert.False(t, called)
}

func TestTable_TypedRegistration(t *testing.T) {
	table := NewTable()
	require.NoError(t, Register(table, "get_node_info", func(_ context.Context, p nodeParams) (nodeInfo, error) {
		return nodeInfo{Path: p.Path, Type: "geo"}, nil
	}))

	resp := table.Dispatch(context.Background(), request(t, `{"type":"get_node_info","params":{"path":"/obj/geo1"}}`))
	require.True(t, resp.OK(), resp.Message)
	assert.JSONEq(t, `{"path":"/obj/geo1","type":"geo"}`, string(resp.Result))
}

func TestTable_RejectsUnknownParams(t *testing.T) {
	table := NewTable()
	require.NoError(t, Register(table, "get_node_info", func(_ context.Context, p nodeParams) (nodeInfo, error) {
		return nodeInfo{Path: p.Path}, nil
	}))

	resp := table.Dispatch(context.Background(), request(t, `{"type":"get_node_info","params":{"path":"/obj","bogus":1}}`))
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "bogus")
}

func TestTable_HandlerError(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.HandleFunc("delete_node", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("Node not found: /obj/missing")
	}))

	resp := table.Dispatch(context.Background(), request(t, `{"type":"delete_node"}`))
	assert.Equal(t, wire.Failure("Node not found: /obj/missing"), resp)
}

func TestTable_HandlerPanic(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.HandleFunc("explode", func(context.Context, json.RawMessage) (any, error) {
		panic("kaboom")
	}))

	var resp wire.Response
	require.NotPanics(t, func() {
		resp = table.Dispatch(context.Background(), request(t, `{"type":"explode"}`))
	})
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "kaboom")
}

func TestTable_UnencodableResult(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.HandleFunc("weird", func(context.Context, json.RawMessage) (any, error) {
		return make(chan int), nil
	}))

	resp := table.Dispatch(context.Background(), request(t, `{"type":"weird"}`))
	assert.Equal(t, wire.StatusError, resp.Status)
}

func TestTable_NilResult(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.HandleFunc("save_hip", func(context.Context, json.RawMessage) (any, error) {
		return nil, nil
	}))

	resp := table.Dispatch(context.Background(), request(t, `{"type":"save_hip"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","result":null}`, string(data))
}

func TestTable_Registration(t *testing.T) {
	noop := func(context.Context, json.RawMessage) (any, error) { return nil, nil }

	table := NewTable()
	require.NoError(t, table.HandleFunc("b", noop))
	require.NoError(t, table.HandleFunc("a", noop))

	assert.ErrorIs(t, table.HandleFunc("a", noop), ErrDuplicate)
	assert.ErrorIs(t, table.HandleFunc("", noop), ErrInvalidName)
	assert.ErrorIs(t, table.Handle("c", nil), ErrInvalidName)
	assert.Equal(t, []string{"a", "b"}, table.Commands())

	table.Seal()
	table.Seal()
	assert.True(t, table.Sealed())
	assert.ErrorIs(t, table.HandleFunc("c", noop), ErrSealed)
	assert.ErrorIs(t, Register(table, "d", func(context.Context, struct{}) (int, error) { return 1, nil }), ErrSealed)
}

func TestTable_Observer(t *testing.T) {
	obs := &recordingObserver{}
	table := NewTable(WithObserver(obs))
	require.NoError(t, table.HandleFunc("ok", func(context.Context, json.RawMessage) (any, error) { return 1, nil }))

	table.Dispatch(context.Background(), request(t, `{"type":"ok"}`))
	table.Dispatch(context.Background(), request(t, `{"type":"nope"}`))

	assert.Equal(t, []string{"ok:success", "nope:error"}, obs.events)
}

func TestTable_ExactlyOneResponse(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.HandleFunc("ok", func(context.Context, json.RawMessage) (any, error) { return "x", nil }))
	require.NoError(t, table.HandleFunc("err", func(context.Context, json.RawMessage) (any, error) { return nil, errors.New("e") }))
	require.NoError(t, table.HandleFunc("panic", func(context.Context, json.RawMessage) (any, error) { panic(errors.New("p")) }))

	for _, typ := range []string{"ok", "err", "panic", "missing"} {
		resp := table.Dispatch(context.Background(), wire.Request{Type: typ})
		assert.Contains(t, []string{wire.StatusSuccess, wire.StatusError}, resp.Status, typ)
	}
}
