package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DEBOUNCE_SECS = 5

// InboxWatcher monitors the inbox path for new files. Create events are
// debounced so a burst of files (a camera card dump, a finished download)
// triggers one import sweep instead of one per file.
type InboxWatcher struct {
	watcher       *fsnotify.Watcher
	watchPath     string
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopChan      chan struct{}
	handler       func(context.Context)
}

// NewInboxWatcher creates a file system watcher that invokes handler after
// each debounced burst of new files.
func NewInboxWatcher(handler func(context.Context)) *InboxWatcher {
	return &InboxWatcher{handler: handler}
}

// Start begins watching the inbox path for new files.
func (w *InboxWatcher) Start(ctx context.Context, watchPath string) error {
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(watchPath); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.watchPath = watchPath
	w.stopChan = make(chan struct{})
	w.running = true

	go w.watchLoop(ctx)

	slog.Info("InboxWatcher.Start: watching inbox", "path", watchPath)
	return nil
}

// Stop stops the inbox watcher.
func (w *InboxWatcher) Stop() {
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if !w.running {
		return
	}

	slog.Info("InboxWatcher.Stop: stopping inbox watcher")
	w.running = false
	close(w.stopChan)

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.watcher.Close()
}

// Running reports whether the watcher is active.
func (w *InboxWatcher) Running() bool {
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	return w.running
}

// watchLoop processes file system events
func (w *InboxWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("InboxWatcher: file watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			w.Stop()
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *InboxWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create != fsnotify.Create {
		return
	}
	// Editors and download clients drop dotfiles and partials; skip them.
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".tmp") {
		return
	}

	slog.Debug("InboxWatcher: detected new file", "file", event.Name)

	// Start or reset the debounce timer.
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if !w.running {
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(DEBOUNCE_SECS*time.Second, func() {
		slog.Info("InboxWatcher: inbox settled, triggering import sweep", "path", w.watchPath)
		w.handler(ctx)
	})
}
