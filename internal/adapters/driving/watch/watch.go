// Package watch reloads the similarity engine when the consolidated corpus
// or the catalog changes on local disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/clipsearch/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Reloader swaps in freshly loaded state.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher triggers a reload after any watched file is created, written
// or renamed into place. Bursts of events collapse into one reload.
type Watcher struct {
	reloader Reloader
	debounce time.Duration
	files    map[string]struct{}

	// reloaded is signalled after every reload attempt. Tests only.
	reloaded chan error
}

// New creates a watcher for the given file paths. The files need not
// exist yet, but their directories are created if missing.
func New(reloader Reloader, debounce time.Duration, files ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		reloader: reloader,
		debounce: debounce,
		files:    make(map[string]struct{}, len(files)),
	}
	for _, f := range files {
		w.files[filepath.Clean(f)] = struct{}{}
	}
	return w
}

// Run watches until ctx is cancelled. Reload failures are logged and the
// previous state keeps serving.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("Watching %s", dir)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				logger.Debug("Change detected: %s", event)
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			err := w.reloader.Reload(ctx)
			if err != nil {
				logger.Warn("Reload failed, keeping previous corpus: %v", err)
			} else {
				logger.Info("Corpus reloaded")
			}
			if w.reloaded != nil {
				w.reloaded <- err
			}
		}
	}
}

// relevant reports whether event touches a watched file in a way that
// can change its content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.files[filepath.Clean(event.Name)]; !ok {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
