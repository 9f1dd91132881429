// Package scriptfile loads a script from disk and follows later edits to
// it, so the script can be written in any external editor.
package scriptfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// Load reads the whole file as the script text.
func Load(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("scriptfile: read %s: %w", path, err)
	}
	return string(b), nil
}

// Sink receives the new file contents. The session's EditScript fits.
type Sink func(text string) error

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher pushes the file's contents to a sink whenever it is saved.
type Watcher struct {
	path     string
	sink     Sink
	log      *logger.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, sink Sink, log *logger.Logger, opts ...Option) *Watcher {
	w := &Watcher{path: filepath.Clean(path), sink: sink, log: log, debounce: DefaultDebounce}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file so editors that save via rename keep working.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scriptfile: create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("scriptfile: watch %s: %w", dir, err)
	}
	w.log.Info("watching script file %s", w.path)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("scriptfile: watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	text, err := Load(w.path)
	if err != nil {
		w.log.Warn("%v", err)
		return
	}
	if err := w.sink(text); err != nil {
		if errors.Is(err, domain.ErrWrongMode) {
			w.log.Info("script file changed during playback; edit ignored")
			return
		}
		w.log.Error("scriptfile: apply %s: %v", w.path, err)
		return
	}
	w.log.Debug("script reloaded from %s (%d bytes)", w.path, len(text))
}
