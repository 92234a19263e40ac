package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// PollingWatcher implements folder watching by periodically listing the folder.
// It serves filesystems where native notifications are unreliable (network shares,
// some sync clients).
type PollingWatcher struct {
	interval  time.Duration
	logger    *slog.Logger
	fileInfos map[string]FileInfo
	events    chan ports.FileChangeEvent
	mu        sync.Mutex
	wg        sync.WaitGroup
	started   bool
	stopped   bool
	stopCh    chan struct{}
}

// FileInfo stores information about a file
type FileInfo struct {
	Size     int64
	ModTime  time.Time
	Checksum string
}

// NewPollingWatcher creates a new polling-based folder watcher
func NewPollingWatcher(interval time.Duration, logger *slog.Logger) *PollingWatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &PollingWatcher{
		interval:  interval,
		logger:    logger.With("component", "polling_watcher"),
		fileInfos: make(map[string]FileInfo),
		events:    make(chan ports.FileChangeEvent, 32),
		stopCh:    make(chan struct{}),
	}
}

// Watch starts polling dir for changes
func (w *PollingWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileChangeEvent, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return nil, errors.New("watcher already used")
	}
	w.started = true
	w.mu.Unlock()

	// Initial snapshot; changes are reported relative to it
	snapshot, err := w.listDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}
	for path, info := range snapshot {
		w.fileInfos[path] = info
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx, absDir)
	}()

	return w.events, nil
}

// Stop stops the watcher and closes the event channel
func (w *PollingWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)

	return nil
}

// pollLoop continuously polls for folder changes
func (w *PollingWatcher) pollLoop(ctx context.Context, dir string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			changes, err := w.checkForChanges(dir)
			if err != nil {
				w.logger.Warn("Poll failed", slog.String("folder", dir), slog.String("error", err.Error()))
				continue
			}

			for _, event := range changes {
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
}

// checkForChanges diffs the folder listing against the previous poll
func (w *PollingWatcher) checkForChanges(dir string) ([]ports.FileChangeEvent, error) {
	current, err := w.listDir(dir)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var changes []ports.FileChangeEvent

	for path, info := range current {
		old, exists := w.fileInfos[path]
		if !exists {
			info.Checksum = w.checksumOrEmpty(path)
			w.fileInfos[path] = info
			changes = append(changes, ports.FileChangeEvent{Path: path, Type: ports.Created, Timestamp: now})
			continue
		}

		// Skip the checksum if size and modification time are unchanged
		if old.Size == info.Size && old.ModTime.Equal(info.ModTime) {
			continue
		}

		info.Checksum = w.checksumOrEmpty(path)
		w.fileInfos[path] = info
		if old.Checksum == "" || info.Checksum == "" || old.Checksum != info.Checksum {
			changes = append(changes, ports.FileChangeEvent{Path: path, Type: ports.Modified, Timestamp: now})
		}
	}

	for path := range w.fileInfos {
		if _, ok := current[path]; !ok {
			delete(w.fileInfos, path)
			changes = append(changes, ports.FileChangeEvent{Path: path, Type: ports.Deleted, Timestamp: now})
		}
	}

	return changes, nil
}

// listDir stats the visible regular files directly inside dir
func (w *PollingWatcher) listDir(dir string) (map[string]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	infos := make(map[string]FileInfo, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos[filepath.Join(dir, entry.Name())] = FileInfo{
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
	}
	return infos, nil
}

func (w *PollingWatcher) checksumOrEmpty(path string) string {
	sum, err := calculateChecksum(path)
	if err != nil {
		return ""
	}
	return sum
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 - path comes from listing the watched folder
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

var _ ports.FolderWatcher = (*PollingWatcher)(nil)
