package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses the burst of events an editor produces
// when saving a file.
const DefaultWatchDebounce = 150 * time.Millisecond

// Watcher reloads a scene file whenever it changes.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
}

// NewWatcher creates a watcher for the scene file at path.
func NewWatcher(path string, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{path: filepath.Clean(path), debounce: DefaultWatchDebounce, logger: logger}
}

// SetDebounce overrides the reload debounce window.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Watch calls fn with the freshly loaded scene once at start and again
// after every change, until ctx is cancelled. Load errors are passed to fn
// and do not stop watching. The containing directory is watched so that
// editors replacing the file by rename are noticed.
func (w *Watcher) Watch(ctx context.Context, fn func(*Scene, error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	fn(Load(w.path))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("scene changed", "path", w.path, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-fire:
			fire = nil
			fn(Load(w.path))
		}
	}
}
