package calib

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	attrs "github.com/goliatone/go-attrs"
)

// Watcher invalidates owners' cached calibration tables when the backing
// files change on disk, so the next access reloads them.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   attrs.Logger
	debounce time.Duration

	mu      sync.Mutex
	targets map[string][]watchTarget // absolute path → subscribers
	pending map[string]struct{}
	dirs    map[string]int // watched directory → refcount
}

type watchTarget struct {
	derived *Derived
	owner   attrs.Owner
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger attrs.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long to wait for further writes before
// invalidating. Default 100ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a Watcher. Call Start to begin processing and Close
// when done.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fsw,
		logger:   attrs.NopLogger(),
		debounce: 100 * time.Millisecond,
		targets:  make(map[string][]watchTarget),
		pending:  make(map[string]struct{}),
		dirs:     make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Watch registers owner's table-backed derived attribute for invalidation
// when path changes. Editors replace files rather than write in place, so
// the parent directory is watched and events filtered by name.
func (w *Watcher) Watch(path string, derived *Derived, owner attrs.Owner) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.targets[abs] = append(w.targets[abs], watchTarget{derived: derived, owner: owner})
	return nil
}

// Unwatch removes every subscription for path.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.targets[abs]; !ok {
		return nil
	}
	delete(w.targets, abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		return w.watcher.Remove(dir)
	}
	return nil
}

// Start processes filesystem events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("calib: watch error", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	if _, ok := w.targets[abs]; ok {
		w.pending[abs] = struct{}{}
	}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	var targets []watchTarget
	var paths []string
	for path := range w.pending {
		targets = append(targets, w.targets[path]...)
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	for _, t := range targets {
		t.derived.Invalidate(t.owner)
	}
	for _, path := range paths {
		w.logger.Debug("calib: invalidated table", "path", path)
	}
}
