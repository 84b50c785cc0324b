package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsFilter watches everything except node_modules and triggers on .js files.
type jsFilter struct{}

func (jsFilter) SkipDir(rel string) bool {
	return rel == "node_modules" || strings.HasPrefix(rel, "node_modules/")
}

func (jsFilter) Include(rel string) bool {
	return strings.HasSuffix(rel, ".js")
}

func newTestWatcher(t *testing.T, root string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(root, jsFilter{}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNew(t *testing.T) {
	root := t.TempDir()

	w := newTestWatcher(t, root)
	assert.Equal(t, DefaultDebounce, w.debounce)

	w = newTestWatcher(t, root, WithDebounce(time.Second))
	assert.Equal(t, time.Second, w.debounce)

	w = newTestWatcher(t, root, WithDebounce(-time.Second))
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestHandleEventFilters(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "a.js"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "b.js"), Op: fsnotify.Remove})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "c.js"), Op: fsnotify.Chmod})

	assert.Len(t, w.pending, 2)
	assert.Contains(t, w.pending, "a.js")
	assert.Contains(t, w.pending, "b.js")
}

func TestHandleEventWatchesNewDirectory(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	dir := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(dir, 0o755))
	w.handleEvent(fsnotify.Event{Name: dir, Op: fsnotify.Create})
	assert.Contains(t, w.WatchedDirs(), dir)

	skipped := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(skipped, 0o755))
	w.handleEvent(fsnotify.Event{Name: skipped, Op: fsnotify.Create})
	assert.NotContains(t, w.WatchedDirs(), skipped)
}

func TestTakeReadyDebounces(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, WithDebounce(time.Second))

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	assert.Nil(t, w.takeReady())

	w.mark("b.js")
	w.mark("a.js")
	assert.Nil(t, w.takeReady(), "still inside the quiet period")

	clock = clock.Add(2 * time.Second)
	assert.Equal(t, []string{"a.js", "b.js"}, w.takeReady())
	assert.Empty(t, w.pending)

	// no new batch while a run is in progress
	w.mark("c.js")
	clock = clock.Add(2 * time.Second)
	assert.Nil(t, w.takeReady())

	w.run(context.Background(), nil)
	assert.Equal(t, []string{"c.js"}, w.takeReady())
}

func TestStartReportsChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))

	w := newTestWatcher(t, root, WithDebounce(50*time.Millisecond))

	var (
		mu    sync.Mutex
		seen  []string
		calls atomic.Int32
	)
	w.OnChange(func(_ context.Context, changed []string) {
		mu.Lock()
		seen = append(seen, changed...)
		mu.Unlock()
		calls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool {
		return len(w.WatchedDirs()) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, w.WatchedDirs(), filepath.Join(root, "node_modules"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.js"), []byte("export const a = 1\n"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Contains(t, seen, "src/a.js")
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartWaitsForRunningChange(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, WithDebounce(20*time.Millisecond))

	started := make(chan struct{})
	var (
		once     sync.Once
		finished atomic.Bool
	)
	w.OnChange(func(ctx context.Context, _ []string) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return len(w.WatchedDirs()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("1\n"), 0o644))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("change was not reported")
	}
	cancel()

	select {
	case <-done:
		assert.True(t, finished.Load(), "Start returned before the change handler finished")
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartMissingRoot(t *testing.T) {
	w := newTestWatcher(t, filepath.Join(t.TempDir(), "missing"))
	err := w.Start(context.Background())
	assert.Error(t, err)
}
