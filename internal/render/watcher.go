package render

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"synthfeed/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onChange after the watched file settles following a change.
// It watches the parent directory so atomic replace-by-rename is seen.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    func(ctx context.Context) error
	pending     bool
	lastEvent   time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Renders       int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// NewWatcher creates a watcher for path. debounce <= 0 uses 300ms.
func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context) error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:     fw,
		path:        abs,
		onChange:    onChange,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Render("Watcher: watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryRender).Error("Watcher: error closing watcher: %v", err)
	}
	logging.Render("Watcher: stopped")
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryRender).Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	default:
		return
	}
	logging.RenderDebug("Watcher: %s event for %s", eventType, event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventType = eventType
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	if !w.pending || time.Since(w.lastEvent) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	err := w.onChange(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		logging.Get(logging.CategoryRender).Warn("Watcher: re-render failed: %v", err)
		w.stats.Errors++
		return
	}
	w.stats.Renders++
}
