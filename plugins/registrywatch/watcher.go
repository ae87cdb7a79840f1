// Package registrywatch reports changes to the set of live instances by
// watching the registry directory with fsnotify.
package registrywatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
)

// Lister returns the live instances. Implemented by registry.Store.
type Lister interface {
	ListLive(ctx context.Context) ([]registry.Descriptor, error)
	Dir() string
}

// ChangeFunc receives the full live set after every change.
type ChangeFunc func(live []registry.Descriptor)

// Config holds configuration options for a Watcher.
type Config struct {
	// DebounceDelay is how long to wait after the last file event before
	// rescanning.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// ResyncInterval forces a rescan even without file events, so instances
	// that die without cleaning up are noticed.
	// Default: 5 seconds
	ResyncInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  100 * time.Millisecond,
		ResyncInterval: 5 * time.Second,
	}
}

// Watcher emits the live set whenever it changes.
type Watcher struct {
	lister   Lister
	onChange ChangeFunc
	logger   log.Logger
	debounce time.Duration
	resync   time.Duration

	mu   sync.Mutex
	last []registry.Descriptor
	seen bool
}

// New creates a Watcher. onChange is called from the Run goroutine.
func New(cfg Config, lister Lister, onChange ChangeFunc, logger log.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = 5 * time.Second
	}
	return &Watcher{
		lister:   lister,
		onChange: onChange,
		logger:   log.OrNoop(logger),
		debounce: cfg.DebounceDelay,
		resync:   cfg.ResyncInterval,
	}
}

// Run watches until ctx is done. The current live set is reported once at
// start; after that onChange fires only when the set differs from the
// previous report.
func (w *Watcher) Run(ctx context.Context) error {
	dir := w.lister.Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("registrywatch: create dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registrywatch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("registrywatch: watch %s: %w", dir, err)
	}

	w.refresh(ctx)

	resync := time.NewTicker(w.resync)
	defer resync.Stop()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			fire = debounce.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("registry watcher error", log.Err(err))

		case <-fire:
			fire = nil
			w.refresh(ctx)

		case <-resync.C:
			w.refresh(ctx)
		}
	}
}

// Last returns the most recently reported live set.
func (w *Watcher) Last() []registry.Descriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]registry.Descriptor, len(w.last))
	copy(out, w.last)
	return out
}

func (w *Watcher) refresh(ctx context.Context) {
	live, err := w.lister.ListLive(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("registry watcher: scan failed", log.Err(err))
		}
		return
	}

	w.mu.Lock()
	changed := !w.seen || !sameSet(w.last, live)
	w.last = live
	w.seen = true
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(live)
	}
}

// relevant filters out temp files written during an atomic publish.
func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if !strings.HasPrefix(name, "houdini_") || !strings.HasSuffix(name, ".json") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func sameSet(a, b []registry.Descriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Port != b[i].Port || a[i].PID != b[i].PID || !a[i].StartedAt.Equal(b[i].StartedAt) ||
			a[i].HipFile != b[i].HipFile {
			return false
		}
	}
	return true
}
