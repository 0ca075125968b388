package recon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher kicks the engine as soon as the status report is rewritten,
// instead of waiting out the remainder of the poll interval. OpenVPN
// replaces the file on every status flush, so the parent directory is
// watched rather than the file itself.
type Watcher struct {
	path   string
	engine *Engine
}

func NewWatcher(path string, engine *Engine) *Watcher {
	return &Watcher{path: path, engine: engine}
}

func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Info("Watching status report", "path", w.path)

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.engine.Kick()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Status watcher error", "error", err)
		}
	}
}
