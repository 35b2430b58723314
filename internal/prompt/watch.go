package prompt

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/copilot-ai/copilot/internal/logging"
)

// Watcher reloads the registry when prompt YAML files change on disk.
// Reloads are debounced: editors typically emit bursts of events per save.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
}

// NewWatcher creates a watcher over the registry's prompt directory.
// Returns nil when the registry has no directory configured.
func NewWatcher(registry *Registry) (*Watcher, error) {
	if registry.dir == "" {
		return nil, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(registry.dir); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		registry: registry,
		watcher:  w,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// Stop ends watching and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var timer *time.Timer
	reload := func() {
		if err := w.registry.Reload(); err != nil {
			logging.Error().Err(err).Msg("prompt reload failed")
		}
	}

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".yaml") && !strings.HasSuffix(ev.Name, ".yml") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("prompt watcher error")
		}
	}
}
