// Package watch re-runs validation whenever the watched tree changes.
// It is a local convenience loop around the batch pipeline; each rerun is
// a fresh, stateless invocation.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"apitrace/internal/logging"
)

// DefaultDebounce batches rapid editor saves into one rerun.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a callback after filesystem changes settle.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	onChange func(ctx context.Context)
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Watcher over root. onChange runs once at start and again
// after every settled batch of changes.
func New(root string, onChange func(ctx context.Context)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsw,
		root:     root,
		debounce: DefaultDebounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start registers the directory tree and launches the event loop.
// Non-blocking; Stop or context cancellation ends the loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	logging.Watch("watching %s", w.root)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

// addTree registers root and every non-hidden subdirectory. fsnotify
// watches are not recursive, so each directory needs its own watch.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") && name != "." && path != root {
			return filepath.SkipDir
		}
		if name == "node_modules" || name == "__pycache__" {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Watch("could not watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// Initial run before any event arrives.
	w.onChange(ctx)

	var timer *time.Timer
	var timerCh <-chan time.Time
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
			logging.WatchDebug("event: %s %s", event.Op, event.Name)
			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			w.onChange(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Watch("watch error: %v", err)
		}
	}
}
