package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nscrdesigns/houdini-mcp/pkg/liveness"
)

// fakeProber reports pids in the alive set as running.
type fakeProber struct {
	mu    sync.Mutex
	alive map[int]bool
	calls int
}

func newFakeProber(pids ...int) *fakeProber {
	p := &fakeProber{alive: make(map[int]bool)}
	for _, pid := range pids {
		p.alive[pid] = true
	}
	return p
}

func (p *fakeProber) IsAlive(pid int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.alive[pid]
}

func (p *fakeProber) kill(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.alive, pid)
}

type countingObserver struct {
	mu     sync.Mutex
	scans  int
	purged []int
}

func (o *countingObserver) OnScan(live, skipped int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scans++
}

func (o *countingObserver) OnStalePurged(d Descriptor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.purged = append(o.purged, d.Port)
}

func ports(ds []Descriptor) []int {
	out := make([]int, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Port)
	}
	return out
}

func TestStore_PublishAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir, WithProber(newFakeProber(100)))

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d := Descriptor{
		Port:       9900,
		PID:        100,
		StartedAt:  started,
		HipFile:    "/proj/shot.hip",
		HipName:    "shot.hip",
		AppVersion: "20.5.278",
		Hostname:   "localhost",
	}
	require.NoError(t, store.Publish(ctx, d))

	assert.FileExists(t, filepath.Join(dir, "houdini_9900.json"))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 9900, live[0].Port)
	assert.True(t, live[0].StartedAt.Equal(started))
	assert.Equal(t, "shot.hip", live[0].HipName)
	assert.Equal(t, "20.5.278", live[0].AppVersion)
}

func TestStore_PublishWritesSnakeCase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: os.Getpid(), StartedAt: time.Now().UTC()}))

	raw, err := os.ReadFile(store.Path(9877))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "port")
	assert.Contains(t, m, "pid")
	assert.Contains(t, m, "started_at")
}

func TestStore_PublishReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir, WithProber(newFakeProber(1, 2)))

	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 1, StartedAt: time.Now()}))
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 2, StartedAt: time.Now()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 2, live[0].PID)
}

func TestStore_PublishRejectsInvalidPort(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, port := range []int{0, -1, 70000} {
		err := store.Publish(context.Background(), Descriptor{Port: port, PID: 1})
		assert.ErrorIs(t, err, ErrInvalidDescriptor, "port %d", port)
	}
}

func TestStore_OrderNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), WithProber(newFakeProber(1, 2, 3)))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 1, StartedAt: base}))
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9878, PID: 2, StartedAt: base.Add(time.Second)}))
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9879, PID: 3, StartedAt: base.Add(-time.Hour)}))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9878, 9877, 9879}, ports(live))
}

func TestStore_SameStartTimeOrdersByPort(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), WithProber(newFakeProber(1, 2)))

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 1, StartedAt: at}))
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9878, PID: 2, StartedAt: at}))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9878, 9877}, ports(live))
}

func TestStore_StaleDescriptorPurged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	obs := &countingObserver{}
	store := NewStore(dir, WithProber(newFakeProber()), WithObserver(obs))

	// Written directly, as a crashed host would have left it.
	stale := `{"port": 9877, "pid": 31337, "started_at": "2025-01-01T00:00:00+00:00"}`
	path := filepath.Join(dir, "houdini_9877.json")
	require.NoError(t, os.WriteFile(path, []byte(stale), 0o600))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
	assert.NoFileExists(t, path)
	assert.Equal(t, []int{9877}, obs.purged)
}

func TestStore_PruneCountsPurged(t *testing.T) {
	ctx := context.Background()
	prober := newFakeProber(1, 2, 3)
	store := NewStore(t.TempDir(), WithProber(prober))

	for i, port := range []int{9877, 9878, 9879} {
		require.NoError(t, store.Publish(ctx, Descriptor{Port: port, PID: i + 1, StartedAt: time.Now()}))
	}
	prober.kill(1)
	prober.kill(3)

	n, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9878}, ports(live))
}

func TestStore_ListLiveIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), WithProber(newFakeProber(1, 2)))

	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 1, StartedAt: time.Now()}))
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9878, PID: 2, StartedAt: time.Now()}))

	first, err := store.ListLive(ctx)
	require.NoError(t, err)
	second, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ports(first), ports(second))
}

func TestStore_SkipsUnparseableAndForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir, WithProber(newFakeProber(1)))

	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 1, StartedAt: time.Now()}))

	halfWritten := filepath.Join(dir, "houdini_9878.json")
	require.NoError(t, os.WriteFile(halfWritten, []byte(`{"port": 98`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "houdini_9879.json.123.tmp"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`hello`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "houdini_abc.json"), []byte(`{"port":1,"pid":1}`), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "houdini_1.json"), 0o700))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9877}, ports(live))
	assert.FileExists(t, halfWritten, "unparseable files are skipped, not deleted")
}

func TestStore_PidlessDescriptorKept(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	prober := newFakeProber()
	store := NewStore(dir, WithProber(prober))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "houdini_9877.json"),
		[]byte(`{"port": 9877, "started_at": "2025-01-01T00:00:00Z"}`), 0o600))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9877}, ports(live))
	assert.Zero(t, prober.calls)
}

func TestStore_CamelCaseStartedAt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir, WithProber(newFakeProber(5)))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "houdini_9877.json"),
		[]byte(`{"port": 9877, "pid": 5, "startedAt": "2025-06-01T10:00:00Z"}`), 0o600))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), live[0].StartedAt.UTC())
}

func TestStore_OffsetlessStartedAt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir, WithProber(newFakeProber(5)))

	livePath := filepath.Join(dir, "houdini_9877.json")
	deadPath := filepath.Join(dir, "houdini_9878.json")
	require.NoError(t, os.WriteFile(livePath,
		[]byte(`{"port": 9877, "pid": 5, "started_at": "2024-05-01T12:00:00.123456"}`), 0o600))
	require.NoError(t, os.WriteFile(deadPath,
		[]byte(`{"port": 9878, "pid": 6, "started_at": "2024-05-01T12:00:00"}`), 0o600))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 9877, live[0].Port)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC), live[0].StartedAt)
	assert.FileExists(t, livePath)
	assert.NoFileExists(t, deadPath)
}

func TestStore_UnparseableStartedAtStillProbed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir, WithProber(newFakeProber(5)))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "houdini_9877.json"),
		[]byte(`{"port": 9877, "pid": 5, "started_at": "yesterday"}`), 0o600))
	deadPath := filepath.Join(dir, "houdini_9878.json")
	require.NoError(t, os.WriteFile(deadPath,
		[]byte(`{"port": 9878, "pid": 6, "started_at": 1714564800}`), 0o600))

	live, err := store.ListLive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 9877, live[0].Port)
	assert.True(t, live[0].StartedAt.IsZero())
	assert.NoFileExists(t, deadPath)
}

func TestStore_MissingDirIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does", "not", "exist"))
	live, err := store.ListLive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestStore_UnpublishIgnoresMissing(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), WithProber(newFakeProber(1)))

	assert.NoError(t, store.Unpublish(ctx, 9877))

	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9877, PID: 1, StartedAt: time.Now()}))
	assert.NoError(t, store.Unpublish(ctx, 9877))
	assert.NoFileExists(t, store.Path(9877))
	assert.NoError(t, store.Unpublish(ctx, 9877))
}

func TestStore_Lookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), WithProber(newFakeProber(1)))
	require.NoError(t, store.Publish(ctx, Descriptor{Port: 9880, PID: 1, StartedAt: time.Now()}))

	d, ok, err := store.Lookup(ctx, 9880)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, d.PID)

	_, ok, err = store.Lookup(ctx, 9881)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConcurrentPublishAndScan(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), WithProber(liveness.ProberFunc(func(int) bool { return true })))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			d := Descriptor{Port: 9877 + i%3, PID: 1, StartedAt: time.Now(), HipFile: fmt.Sprintf("/p/%d.hip", i)}
			if err := store.Publish(ctx, d); err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		live, err := store.ListLive(ctx)
		require.NoError(t, err)
		for _, d := range live {
			assert.NotZero(t, d.Port)
			assert.NotEmpty(t, d.HipFile, "readers must never observe a torn descriptor")
		}
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errs:
		t.Fatalf("publish failed: %v", err)
	default:
	}
}

func TestDirFor(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	got := dirFor("linux", env(map[string]string{"XDG_DATA_HOME": "/data"}))
	assert.Equal(t, filepath.Join("/data", "houdinimcp", "instances"), got)

	got = dirFor("darwin", env(nil))
	assert.Contains(t, got, filepath.Join(".local", "share", "houdinimcp", "instances"))

	got = dirFor("windows", env(map[string]string{"LOCALAPPDATA": `C:\Users\me\AppData\Local`}))
	assert.Equal(t, filepath.Join(`C:\Users\me\AppData\Local`, "HoudiniMCP", "instances"), got)
}
