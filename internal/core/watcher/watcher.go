// # internal/core/watcher/watcher.go
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"implementor/internal/shared/observability"
	"implementor/internal/shared/util"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports debounced changes to a fixed set of files. Parent
// directories are watched so editors that save by replacing the file are
// still seen.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	files      map[string]bool
	onChange   func([]string)
	callbackMu sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool

	stop      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

func NewWatcher(debounce time.Duration, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		files:     make(map[string]bool),
		onChange:  onChange,
		pending:   make(map[string]time.Time),
		stop:      make(chan struct{}),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch adds files to the watch set and starts the event loop on the first
// call. The loop ends when ctx is done or Close is called.
func (w *Watcher) Watch(ctx context.Context, files []string) error {
	dirs := make(map[string]bool)
	w.pendingMu.Lock()
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.pendingMu.Unlock()
			return err
		}
		abs = filepath.Clean(abs)
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	w.pendingMu.Unlock()

	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}

	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run(ctx)
	})
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			name := filepath.Clean(event.Name)
			if !w.isWatched(name) {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				w.scheduleChange(name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)

		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) isWatched(path string) bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return w.files[path]
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	if w.closed {
		w.pendingMu.Unlock()
		return
	}
	paths := util.SortedStringKeys(w.pending)
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// Close stops the event loop and waits for it and any running callback.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.pendingMu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pendingMu.Unlock()

		close(w.stop)
		err = w.fsWatcher.Close()
		w.wg.Wait()

		// wait out a callback that was already running
		w.callbackMu.Lock()
		w.callbackMu.Unlock()
	})
	return err
}
