package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nscrdesigns/houdini-mcp/pkg/liveness"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
)

const (
	filePrefix = "houdini_"
	fileSuffix = ".json"
)

// Observer is notified about registry scans. Used for metrics.
type Observer interface {
	OnScan(live, skipped int)
	OnStalePurged(d Descriptor)
}

// Store is the registry directory. It is safe for concurrent use by
// multiple goroutines and multiple processes.
type Store struct {
	dir      string
	prober   liveness.Prober
	logger   log.Logger
	observer Observer
}

// Option configures a Store.
type Option func(*Store)

// WithProber replaces the operating system liveness prober.
func WithProber(p liveness.Prober) Option {
	return func(s *Store) {
		s.prober = p
	}
}

// WithLogger sets the logger used for purge and skip messages.
func WithLogger(l log.Logger) Option {
	return func(s *Store) {
		s.logger = log.OrNoop(l)
	}
}

// WithObserver registers a scan observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// NewStore creates a Store rooted at dir. The directory is created lazily
// on the first Publish.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		prober: liveness.Default(),
		logger: log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the registry directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the descriptor file path for port.
func (s *Store) Path(port int) string {
	return filepath.Join(s.dir, fileName(port))
}

// Publish writes d atomically, replacing any descriptor for the same port.
// The data is written to a temp file in the registry directory, synced and
// renamed into place, so readers see either the old or the new file.
func (s *Store) Publish(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrRegistryIO, err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode descriptor: %w", err)
	}

	path := s.Path(d.Port)
	tmp, err := os.CreateTemp(s.dir, fileName(d.Port)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrRegistryIO, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write temp: %v", ErrRegistryIO, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync temp: %v", ErrRegistryIO, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close temp: %v", ErrRegistryIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename: %v", ErrRegistryIO, err)
	}

	s.logger.Info("registry: descriptor published",
		log.Port(d.Port),
		log.PID(d.PID),
		log.String("path", path),
	)
	return nil
}

// Unpublish removes the descriptor for port. Failures, including a file
// that is already gone, are ignored.
func (s *Store) Unpublish(ctx context.Context, port int) error {
	path := s.Path(port)
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("registry: unpublish failed", log.Port(port), log.Err(err))
		}
		return nil
	}
	s.logger.Info("registry: descriptor removed", log.Port(port), log.String("path", path))
	return nil
}

// ListLive returns every descriptor whose process is alive, newest first.
// Descriptors of dead processes are deleted as a side effect. Files that
// cannot be read or parsed are skipped for this scan only.
func (s *Store) ListLive(ctx context.Context) ([]Descriptor, error) {
	live, _, err := s.scan(ctx)
	return live, err
}

// Lookup returns the live descriptor for port, if there is one.
func (s *Store) Lookup(ctx context.Context, port int) (Descriptor, bool, error) {
	live, err := s.ListLive(ctx)
	if err != nil {
		return Descriptor{}, false, err
	}
	for _, d := range live {
		if d.Port == port {
			return d, true, nil
		}
	}
	return Descriptor{}, false, nil
}

// Prune runs a scan for its purge side effect and reports how many stale
// descriptors were deleted.
func (s *Store) Prune(ctx context.Context) (int, error) {
	_, purged, err := s.scan(ctx)
	return purged, err
}

func (s *Store) scan(ctx context.Context) ([]Descriptor, int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("%w: read dir: %v", ErrRegistryIO, err)
	}

	byPort := make(map[int]Descriptor, len(entries))
	skipped, purged := 0, 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, purged, err
		}
		if e.IsDir() || !isDescriptorName(e.Name()) {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		d, err := readDescriptor(path)
		if err != nil {
			// Most likely a writer that has not renamed yet, or a foreign file.
			skipped++
			s.logger.Debug("registry: skipping unreadable descriptor",
				log.String("path", path), log.Err(err))
			continue
		}

		if d.PID > 0 && !s.prober.IsAlive(d.PID) {
			purged++
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				s.logger.Debug("registry: stale descriptor removal failed",
					log.String("path", path), log.Err(rmErr))
			}
			s.logger.Info("registry: purged stale descriptor",
				log.Port(d.Port), log.PID(d.PID), log.String("path", path))
			if s.observer != nil {
				s.observer.OnStalePurged(d)
			}
			continue
		}

		if prev, ok := byPort[d.Port]; ok && !newer(d, prev) {
			continue
		}
		byPort[d.Port] = d
	}

	live := make([]Descriptor, 0, len(byPort))
	for _, d := range byPort {
		live = append(live, d)
	}
	sort.Slice(live, func(i, j int) bool { return newer(live[i], live[j]) })

	if s.observer != nil {
		s.observer.OnScan(len(live), skipped)
	}
	return live, purged, nil
}

// newer orders by StartedAt descending, then port descending.
func newer(a, b Descriptor) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.After(b.StartedAt)
	}
	return a.Port > b.Port
}

func readDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, err
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func fileName(port int) string {
	return filePrefix + strconv.Itoa(port) + fileSuffix
}

func isDescriptorName(name string) bool {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	return err == nil
}
