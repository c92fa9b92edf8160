// Package watcher observes filesystem events under indexed roots and
// schedules incremental index updates.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/extract"
	"github.com/rememex/rememex-cli/internal/ignore"
	"github.com/rememex/rememex-cli/internal/logger"
)

// Indexer is the subset of the indexer the watcher drives.
type Indexer interface {
	IndexFile(ctx context.Context, path string) error
	RemoveFile(ctx context.Context, path string) error
}

// Config tunes the watcher.
type Config struct {
	// Debounce coalesces event bursts per path. Defaults to 500ms.
	Debounce time.Duration

	// MaxBackoff caps the busy-indexer requeue delay. Events still
	// rejected at the cap are dropped. Defaults to 8s.
	MaxBackoff time.Duration
}

// Watcher consumes platform filesystem notifications, debounces them
// per path and forwards the survivors to the indexer.
type Watcher struct {
	indexer Indexer
	cfg     Config
	fs      *fsnotify.Watcher

	mu       sync.Mutex
	matchers map[string]*ignore.Matcher // root -> matcher
	timers   map[string]*time.Timer     // path -> debounce timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher driving the given indexer.
func New(indexer Indexer, cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 8 * time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		indexer:  indexer,
		cfg:      cfg,
		fs:       fsw,
		matchers: make(map[string]*ignore.Matcher),
		timers:   make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts observing a root and all its non-ignored subdirectories.
func (w *Watcher) Watch(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	matcher := ignore.NewMatcher(root)
	w.mu.Lock()
	w.matchers[root] = matcher
	w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Watch walk error at %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if matcher.SkipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			logger.Warn("Watch %s: %v", path, err)
		}
		return nil
	})
}

// Close stops the event loop and releases the platform watcher.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return err
}

// loop is the event pump. Raw notifications are reduced to per-path
// debounced dispatches; a rename surfaces as a remove of the old path
// and a create of the new one.
func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := event.Name
	root, matcher := w.ownerRoot(path)
	if root == "" {
		return
	}

	// New directories are not covered by the recursive Add at Watch time
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !matcher.SkipDir(path) {
				if err := w.fs.Add(path); err != nil {
					logger.Warn("Watch %s: %v", path, err)
				}
			}
			return
		}
	}

	if matcher.Excluded(path) {
		return
	}
	w.schedule(path, w.cfg.Debounce)
}

// ownerRoot finds the watched root containing path.
func (w *Watcher) ownerRoot(path string) (string, *ignore.Matcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root, matcher := range w.matchers {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || filepath.IsAbs(rel) {
			continue
		}
		if len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
			continue
		}
		return root, matcher
	}
	return "", nil
}

// schedule (re)arms the debounce timer for a path.
func (w *Watcher) schedule(path string, delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(delay, func() {
		w.dispatch(path, w.cfg.Debounce)
	})
}

// dispatch forwards a settled path to the indexer. The file's presence
// on disk decides between upsert and delete, which also covers renames.
// A busy indexer requeues the path with exponential backoff until the
// cap; the periodic rescan recovers anything dropped there.
func (w *Watcher) dispatch(path string, backoff time.Duration) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = w.indexer.IndexFile(w.ctx, path)
	} else {
		err = w.indexer.RemoveFile(w.ctx, path)
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBusy):
		next := backoff * 2
		if next > w.cfg.MaxBackoff {
			logger.Warn("Indexer busy, dropping %s", path)
			return
		}
		logger.Debug("Indexer busy, requeueing %s in %v", path, next)
		w.requeue(path, next)
	case errors.Is(err, extract.ErrUnsupported), errors.Is(err, domain.ErrOutsideRoot):
	default:
		logger.Warn("Watcher update for %s: %v", path, err)
	}
}

// requeue rearms a path after a busy rejection, preserving the grown
// backoff instead of the base debounce.
func (w *Watcher) requeue(path string, backoff time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(backoff, func() {
		w.dispatch(path, backoff)
	})
}
