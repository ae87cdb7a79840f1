package hostcmds

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscrdesigns/houdini-mcp/pkg/dispatch"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

func newTable(t *testing.T) *dispatch.Table {
	t.Helper()
	table := dispatch.NewTable()
	require.NoError(t, Register(table, Info{HipFile: "/shots/010.hip", HipName: "010.hip", AppVersion: "20.5.278"}))
	return table
}

func dispatchJSON(t *testing.T, table *dispatch.Table, raw string) wire.Response {
	t.Helper()
	req, err := wire.ParseRequest([]byte(raw))
	require.NoError(t, err)
	return table.Dispatch(context.Background(), req)
}

func TestRegister_Commands(t *testing.T) {
	table := newTable(t)
	assert.Equal(t, []string{Echo, Fail, GetSceneInfo, ListCommands, Ping, Sleep}, table.Commands())

	err := Register(table, Info{})
	assert.ErrorIs(t, err, dispatch.ErrDuplicate)
}

func TestGetSceneInfo(t *testing.T) {
	table := newTable(t)
	resp := dispatchJSON(t, table, `{"type":"get_scene_info"}`)
	require.True(t, resp.OK(), resp.Message)

	var info SceneInfo
	require.NoError(t, json.Unmarshal(resp.Result, &info))
	assert.Equal(t, "010.hip", info.HipName)
	assert.Equal(t, "/shots/010.hip", info.HipFile)
	assert.Equal(t, "20.5.278", info.AppVersion)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.GreaterOrEqual(t, info.UptimeSeconds, 0.0)
}

func TestGetSceneInfo_DefaultName(t *testing.T) {
	table := dispatch.NewTable()
	require.NoError(t, Register(table, Info{}))
	resp := dispatchJSON(t, table, `{"type":"get_scene_info"}`)
	require.True(t, resp.OK())
	assert.Contains(t, string(resp.Result), `"hip_name":"untitled.hip"`)
}

func TestPing(t *testing.T) {
	resp := dispatchJSON(t, newTable(t), `{"type":"ping","params":{}}`)
	require.True(t, resp.OK())
	assert.Contains(t, string(resp.Result), `"pong":true`)
}

func TestEcho(t *testing.T) {
	resp := dispatchJSON(t, newTable(t), `{"type":"echo","params":{"a":[1,2,{"b":"ü"}]}}`)
	require.True(t, resp.OK())
	assert.JSONEq(t, `{"a":[1,2,{"b":"ü"}]}`, string(resp.Result))
}

func TestFail(t *testing.T) {
	table := newTable(t)

	resp := dispatchJSON(t, table, `{"type":"fail","params":{"message":"boom"}}`)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Equal(t, "boom", resp.Message)

	resp = dispatchJSON(t, table, `{"type":"fail"}`)
	assert.Equal(t, "requested failure", resp.Message)
}

func TestSleep(t *testing.T) {
	table := newTable(t)

	resp := dispatchJSON(t, table, `{"type":"sleep","params":{"seconds":0.01}}`)
	require.True(t, resp.OK(), resp.Message)
	var res SleepResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	assert.GreaterOrEqual(t, res.Slept, 0.01)

	resp = dispatchJSON(t, table, `{"type":"sleep","params":{"seconds":-1}}`)
	assert.False(t, resp.OK())

	resp = dispatchJSON(t, table, `{"type":"sleep","params":{"second":1}}`)
	assert.False(t, resp.OK(), "unknown params field is rejected")
}

func TestSleep_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := sleep(ctx, SleepParams{Seconds: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListCommands(t *testing.T) {
	resp := dispatchJSON(t, newTable(t), `{"type":"list_commands"}`)
	require.True(t, resp.OK())
	var names []string
	require.NoError(t, json.Unmarshal(resp.Result, &names))
	assert.Contains(t, names, Ping)
	assert.Len(t, names, 6)
}
