package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// FSNotifyWatcher watches a single folder using native filesystem notifications.
// Subdirectories are not followed and dotfiles are ignored.
type FSNotifyWatcher struct {
	logger  *slog.Logger
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	events  chan ports.FileChangeEvent
	wg      sync.WaitGroup
	stopped bool
	stopCh  chan struct{}
}

// NewFSNotifyWatcher creates a new notification-based folder watcher
func NewFSNotifyWatcher(logger *slog.Logger) *FSNotifyWatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &FSNotifyWatcher{
		logger: logger.With("component", "fsnotify_watcher"),
		events: make(chan ports.FileChangeEvent, 32),
		stopCh: make(chan struct{}),
	}
}

// Watch starts watching dir for changes
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileChangeEvent, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || w.watcher != nil {
		return nil, errors.New("watcher already used")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(absDir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", absDir, err)
	}
	w.watcher = fw

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx, absDir, fw)
	}()

	return w.events, nil
}

// Stop stops the watcher and closes the event channel
func (w *FSNotifyWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	fw := w.watcher
	w.mu.Unlock()

	var err error
	if fw != nil {
		err = fw.Close()
	}
	w.wg.Wait()
	close(w.events)

	return err
}

func (w *FSNotifyWatcher) loop(ctx context.Context, dir string, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watch error", slog.String("folder", dir), slog.String("error", err.Error()))

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			event, relevant := translate(dir, ev)
			if !relevant {
				continue
			}

			select {
			case w.events <- event:
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		}
	}
}

// translate maps an fsnotify event to a change event for a direct child of dir
func translate(dir string, ev fsnotify.Event) (ports.FileChangeEvent, bool) {
	path := filepath.Clean(ev.Name)
	if filepath.Dir(path) != dir || strings.HasPrefix(filepath.Base(path), ".") {
		return ports.FileChangeEvent{}, false
	}

	event := ports.FileChangeEvent{Path: path, Timestamp: time.Now()}
	switch {
	case ev.Has(fsnotify.Remove):
		event.Type = ports.Deleted
	case ev.Has(fsnotify.Rename):
		event.Type = ports.Renamed
	case ev.Has(fsnotify.Create):
		event.Type = ports.Created
	case ev.Has(fsnotify.Write):
		event.Type = ports.Modified
	default:
		// Chmod only
		return ports.FileChangeEvent{}, false
	}
	return event, true
}

var _ ports.FolderWatcher = (*FSNotifyWatcher)(nil)
