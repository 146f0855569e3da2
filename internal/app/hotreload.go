package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"moldura/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher watches a template file and calls back once the file has
// been quiet for the debounce interval after a change. The containing
// directory is watched so editors that save by rename are still seen.
type TemplateWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
	onChange func(path string) // Called from a background goroutine
}

// NewTemplateWatcher creates a watcher for path.
func NewTemplateWatcher(path string, debounce time.Duration) (*TemplateWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("template watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("template watcher: %w", err)
	}
	return &TemplateWatcher{
		path:     abs,
		debounce: debounce,
		watcher:  w,
	}, nil
}

// OnChange sets the callback. Use appropriate synchronization if it touches
// the UI.
func (tw *TemplateWatcher) OnChange(callback func(path string)) {
	tw.mu.Lock()
	tw.onChange = callback
	tw.mu.Unlock()
}

// Path returns the watched file.
func (tw *TemplateWatcher) Path() string {
	return tw.path
}

// Start begins watching in a background goroutine.
func (tw *TemplateWatcher) Start() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.stopCh != nil {
		return
	}
	tw.stopCh = make(chan struct{})
	tw.doneCh = make(chan struct{})
	go tw.watchLoop(tw.stopCh, tw.doneCh)
}

// Stop ends watching and releases the watcher. The watcher cannot be
// restarted.
func (tw *TemplateWatcher) Stop() {
	tw.mu.Lock()
	stop, done := tw.stopCh, tw.doneCh
	tw.stopCh = nil
	tw.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	tw.watcher.Close()
}

func (tw *TemplateWatcher) watchLoop(stop, done chan struct{}) {
	defer close(done)
	log := logging.Logger()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != tw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(tw.debounce)
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("template watcher error", slog.Any("err", err))
		case <-timer.C:
			tw.mu.Lock()
			fn := tw.onChange
			tw.mu.Unlock()
			log.Info("template changed on disk", slog.String("path", tw.path))
			if fn != nil {
				fn(tw.path)
			}
		}
	}
}
