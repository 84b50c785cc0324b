// Package watch re-runs analysis when files under a root change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"
)

// DefaultDebounce is how long the tree must be quiet before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// Filter decides which directories are watched and which files trigger a
// re-run. Paths are slash-separated and relative to the root.
type Filter interface {
	SkipDir(rel string) bool
	Include(rel string) bool
}

// ChangeFunc is called with the relative paths changed since the last run.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher monitors a tree and calls its ChangeFunc once per burst of
// changes. Runs never overlap; changes arriving during a run are batched
// into the next one.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	filter    Filter
	debounce  time.Duration
	logger    *slog.Logger
	onChange  ChangeFunc
	now       func() time.Time

	mu         sync.Mutex
	pending    map[string]struct{}
	lastChange time.Time
	running    bool
	runs       conc.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for root.
func New(root string, filter Filter, opts ...Option) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsWatcher: fsWatcher,
		root:      absRoot,
		filter:    filter,
		debounce:  DefaultDebounce,
		logger:    slog.Default(),
		now:       time.Now,
		pending:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnChange sets the function called after each burst of changes.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.onChange = fn
}

// addTree watches dir and every directory below it that the filter keeps.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Warn("skipping unwatchable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := w.rel(path); w.filter != nil && w.filter.SkipDir(rel) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Start watches until ctx is done. It blocks, and does not return while a
// ChangeFunc is still running.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	defer w.runs.Wait()

	ticker := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-ticker.C:
			if changed := w.takeReady(); changed != nil {
				w.runs.Go(func() { w.run(ctx, changed) })
			}
		}
	}
}

// handleEvent records a relevant change. New directories are watched;
// removals and renames count because they can orphan other files.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	rel := w.rel(event.Name)

	if event.Op&fsnotify.Create != 0 {
		if info, err := fsStat(event.Name); err == nil && info.IsDir() {
			if w.filter == nil || !w.filter.SkipDir(rel) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watching new directory failed", "path", rel, "error", err)
				}
				w.mark(rel)
			}
			return
		}
	}

	if w.filter != nil && !w.filter.Include(rel) {
		return
	}
	w.mark(rel)
}

func (w *Watcher) mark(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[rel] = struct{}{}
	w.lastChange = w.now()
}

// takeReady returns the pending changes once the tree has been quiet for
// the debounce period and no run is in progress.
func (w *Watcher) takeReady() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || len(w.pending) == 0 || w.now().Sub(w.lastChange) < w.debounce {
		return nil
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	w.pending = make(map[string]struct{})
	w.running = true
	return changed
}

func (w *Watcher) run(ctx context.Context, changed []string) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()
	if w.onChange != nil {
		w.onChange(ctx, changed)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the watched directories, sorted.
func (w *Watcher) WatchedDirs() []string {
	dirs := w.fsWatcher.WatchList()
	sort.Strings(dirs)
	return dirs
}
