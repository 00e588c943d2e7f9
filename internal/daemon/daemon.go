// Package daemon keeps a workspace current while files change and serves
// queries against it over a unix socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"rindex/internal/logging"
	"rindex/internal/resolver"
	"rindex/internal/workspace"
)

// Daemon watches workspace roots and re-indexes changed R files.
type Daemon struct {
	ws       *workspace.Workspace
	resolver *resolver.Resolver
	watcher  *fsnotify.Watcher
	cfg      Config

	mu      sync.RWMutex
	filters []*workspace.FileFilter

	debounceMap map[string]*time.Timer
	debounceMu  sync.Mutex

	startedAt time.Time
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// Status represents the current state of the daemon
type Status struct {
	Running      bool      `json:"running"`
	PID          int       `json:"pid"`
	StartedAt    time.Time `json:"started_at"`
	Roots        []string  `json:"roots"`
	Contexts     int       `json:"contexts"`
	TotalWatches int       `json:"total_watches"`
}

// Config holds daemon configuration
type Config struct {
	DebounceMs int
	SocketPath string
	Include    []string
}

// DefaultConfig returns the default daemon configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 300,
		SocketPath: DefaultSocketPath(),
	}
}

// New creates a daemon over ws. res may be nil to skip package resolution.
func New(ws *workspace.Workspace, res *resolver.Resolver, cfg Config, logger *slog.Logger) (*Daemon, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = DefaultConfig().DebounceMs
	}

	return &Daemon{
		ws:          ws,
		resolver:    res,
		watcher:     watcher,
		cfg:         cfg,
		debounceMap: make(map[string]*time.Timer),
		cancel:      func() {},
		logger:      logger,
	}, nil
}

// AddRoot indexes root and watches its directories.
func (d *Daemon) AddRoot(ctx context.Context, root string) error {
	filter, err := workspace.NewFileFilter(root, d.cfg.Include)
	if err != nil {
		return err
	}
	if _, err := d.ws.IndexDir(ctx, filter); err != nil {
		return err
	}

	d.mu.Lock()
	d.filters = append(d.filters, filter)
	d.mu.Unlock()

	return d.watchTree(filter, filter.Root())
}

// maxWatchesPerRoot limits file watchers to prevent file descriptor exhaustion
const maxWatchesPerRoot = 1000

// watchTree adds watches for dir and every directory below it. Failing to
// watch dir itself is an error; subdirectories that cannot be watched are
// logged and skipped.
func (d *Daemon) watchTree(filter *workspace.FileFilter, dir string) error {
	count := 0
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != filter.Root() && filter.SkipDir(path) {
			return filepath.SkipDir
		}
		if count >= maxWatchesPerRoot {
			d.logger.Warn("reached max watches limit", "limit", maxWatchesPerRoot, "root", filter.Root())
			return filepath.SkipAll
		}
		if err := d.watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			d.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	d.logger.Debug("added watches", "count", count, "dir", dir)
	return err
}

// Run serves until ctx is cancelled or Stop is called. It starts the IPC
// server when a socket path is configured and the resolver when one is set.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	d.cancel = cancel
	d.startedAt = time.Now()
	d.mu.Unlock()

	var wg sync.WaitGroup
	if d.cfg.SocketPath != "" {
		ipcServer, err := NewIPCServer(d.cfg.SocketPath, d)
		if err != nil {
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
		defer ipcServer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			ipcServer.Serve(ctx)
		}()
	}

	if d.resolver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.resolver.Run(ctx)
		}()
	}

	d.logger.Info("daemon started", "pid", os.Getpid(), "roots", len(d.roots()))
	d.watcherLoop(ctx)

	d.logger.Info("daemon shutting down")
	cancel()
	d.watcher.Close()
	d.stopTimers()
	wg.Wait()
	return nil
}

// Stop signals the daemon to shut down
func (d *Daemon) Stop() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.cancel()
}

// Status returns the current daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	started := d.startedAt
	d.mu.RUnlock()

	return Status{
		Running:      true,
		PID:          os.Getpid(),
		StartedAt:    started,
		Roots:        d.roots(),
		Contexts:     len(d.ws.Contexts()),
		TotalWatches: len(d.watcher.WatchList()),
	}
}

// Search runs q against the workspace.
func (d *Daemon) Search(q workspace.Query) ([]workspace.Result, error) {
	return d.ws.Search(q)
}

// Reindex re-reads path, or every root containing it when it is a
// directory.
func (d *Daemon) Reindex(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		_, err := d.ws.IndexFile(path)
		return err
	}

	filter := d.filterFor(path)
	if filter == nil {
		return fmt.Errorf("%s is not under a watched root", path)
	}
	_, err = d.ws.IndexDir(ctx, filter)
	return err
}

func (d *Daemon) roots() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.filters))
	for _, f := range d.filters {
		out = append(out, f.Root())
	}
	return out
}

// filterFor returns the filter of the root containing path.
func (d *Daemon) filterFor(path string) *workspace.FileFilter {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, f := range d.filters {
		if f.Contains(path) {
			return f
		}
	}
	return nil
}

// watcherLoop handles fsnotify events
func (d *Daemon) watcherLoop(ctx context.Context) {
	debounce := time.Duration(d.cfg.DebounceMs) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(event, debounce)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent processes a file system event with per-file debouncing
func (d *Daemon) handleEvent(event fsnotify.Event, debounce time.Duration) {
	filter := d.filterFor(event.Name)
	if filter == nil {
		return
	}

	// New directories get watched and scanned; files may have been written
	// before the watch existed.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !filter.SkipDir(event.Name) {
				if err := d.watchTree(filter, event.Name); err != nil {
					d.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
				d.scanDir(filter, event.Name)
			}
			return
		}
	}

	if !filter.Include(event.Name) {
		return
	}

	path := event.Name
	d.debounceMu.Lock()
	if timer, ok := d.debounceMap[path]; ok {
		timer.Stop()
	}
	d.debounceMap[path] = time.AfterFunc(debounce, func() {
		d.debounceMu.Lock()
		delete(d.debounceMap, path)
		d.debounceMu.Unlock()

		d.refresh(path)
	})
	d.debounceMu.Unlock()
}

// refresh re-indexes path, or drops it when it no longer exists.
func (d *Daemon) refresh(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	n, err := d.ws.IndexFile(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if d.ws.Remove(abs) {
			d.logger.Info("removed", "path", abs)
		}
	case err != nil:
		d.logger.Warn("reindex failed", "path", abs, "error", err)
	default:
		d.logger.Info("reindexed", "path", abs, "items", n)
	}
}

func (d *Daemon) scanDir(filter *workspace.FileFilter, dir string) {
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != dir && filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter.Include(path) {
			d.refresh(path)
		}
		return nil
	})
}

func (d *Daemon) stopTimers() {
	d.debounceMu.Lock()
	defer d.debounceMu.Unlock()

	for path, timer := range d.debounceMap {
		timer.Stop()
		delete(d.debounceMap, path)
	}
}
