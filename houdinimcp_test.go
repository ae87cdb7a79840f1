package houdinimcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscrdesigns/houdini-mcp/pkg/dispatch"
)

func TestDefaultRegistry(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))

	store := DefaultRegistry()
	assert.NotEmpty(t, store.Dir())
}

func TestNewHostAndClient(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("LOCALAPPDATA", filepath.Join(home, "appdata"))

	host, err := NewHost(HostConfig{}, dispatch.NewTable())
	require.NoError(t, err)
	_, running := host.Descriptor()
	assert.False(t, running)

	c, err := NewClient(ClientConfig{})
	require.NoError(t, err)
	defer c.Close()

	instances, err := c.Instances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, instances)
}
