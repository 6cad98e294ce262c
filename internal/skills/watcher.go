package skills

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers Loader.Reload whenever a SKILL.md bundle is added,
// removed, or edited under any of the loader's directories, the same way the
// channel manager's InstanceLoader reloads from cache-invalidation events —
// here the invalidation signal is the filesystem itself.
type Watcher struct {
	loader *Loader
	fsw    *fsnotify.Watcher
	done   chan struct{}
}

// NewWatcher creates (but does not start) a filesystem watcher over the
// loader's bundle directories and their immediate subdirectories.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create skills watcher: %w", err)
	}

	w := &Watcher{loader: loader, fsw: fsw, done: make(chan struct{})}
	for _, dir := range loader.Dirs() {
		w.watchDir(dir)
	}
	return w, nil
}

func (w *Watcher) watchDir(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		slog.Debug("skills watcher: directory not watchable", "dir", dir, "error", err)
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = w.fsw.Add(filepath.Join(dir, e.Name()))
		}
	}
}

// Start begins the watch loop in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	go w.loop(ctx)
	return nil
}

// loop debounces bursts of filesystem events (an editor's save-as-temp-
// then-rename can fire several) into a single reload.
func (w *Watcher) loop(ctx context.Context) {
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			w.loader.Reload()
			for _, dir := range w.loader.Dirs() {
				w.watchDir(dir)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("skills watcher error", "error", err)
		}
	}
}

// Stop halts the watch loop and releases the underlying OS watch handles.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsw.Close()
}
