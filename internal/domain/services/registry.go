package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// RegistryListener is notified after the file list is rebuilt from a watch event
type RegistryListener = ports.FolderListener

// FileRegistry keeps an ordered, de-duplicated listing of the presentation
// files in one folder and follows the folder through a FolderWatcher.
type FileRegistry struct {
	newWatcher ports.FolderWatcherFactory
	debounce   time.Duration
	logger     *slog.Logger

	mu        sync.RWMutex
	folder    string
	files     []entities.PresentationFile
	current   int
	listeners []RegistryListener

	watchMu     sync.Mutex
	watcher     ports.FolderWatcher
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewFileRegistry creates an empty registry. newWatcher may be nil, in which
// case folders are scanned but never watched.
func NewFileRegistry(newWatcher ports.FolderWatcherFactory, debounce time.Duration, logger *slog.Logger) *FileRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileRegistry{
		newWatcher: newWatcher,
		debounce:   debounce,
		logger:     logger.With("service", "file_registry"),
		current:    -1,
	}
}

// OnChange registers a listener for watch-driven rescans
func (r *FileRegistry) OnChange(listener RegistryListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// SetFolder replaces the watched folder, rescans it synchronously and starts watching it
func (r *FileRegistry) SetFolder(dir string) {
	r.stopWatch()

	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	files := r.scan(dir)

	r.mu.Lock()
	r.folder = dir
	r.files = files
	r.current = -1
	r.mu.Unlock()

	r.logger.Info("Folder set",
		slog.String("folder", dir),
		slog.Int("files", len(files)),
	)

	r.startWatch(dir)
}

// Clear stops watching and forgets the folder
func (r *FileRegistry) Clear() {
	r.stopWatch()

	r.mu.Lock()
	r.folder = ""
	r.files = nil
	r.current = -1
	r.mu.Unlock()
}

// Close stops the folder watch, keeping the current listing
func (r *FileRegistry) Close() {
	r.stopWatch()
}

// Folder returns the watched folder, or "" when none is set
func (r *FileRegistry) Folder() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.folder
}

// ListFiles returns a snapshot of the ordered listing
func (r *FileRegistry) ListFiles() []entities.PresentationFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.files)
}

// Count returns the number of listed files
func (r *FileRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// CurrentIndex returns the cursor, -1 when nothing is selected
func (r *FileRegistry) CurrentIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// IndexOf returns the position of path in the listing, or -1
func (r *FileRegistry) IndexOf(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOfLocked(filepath.Clean(path))
}

// Lookup returns the entry for path without moving the cursor
func (r *FileRegistry) Lookup(path string) (entities.PresentationFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOfLocked(filepath.Clean(path))
	if i < 0 {
		return entities.PresentationFile{}, false
	}
	return r.files[i], true
}

// SelectByPath moves the cursor to path
func (r *FileRegistry) SelectByPath(path string) (entities.PresentationFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfLocked(filepath.Clean(path))
	if i < 0 {
		return entities.PresentationFile{}, false
	}
	r.current = i
	return r.files[i], true
}

// SelectByIndex moves the cursor to index i
func (r *FileRegistry) SelectByIndex(i int) (entities.PresentationFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.files) {
		return entities.PresentationFile{}, false
	}
	r.current = i
	return r.files[i], true
}

// Advance moves the cursor forward, wrapping from the last file to the first
func (r *FileRegistry) Advance() (entities.PresentationFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.files)
	if n == 0 {
		return entities.PresentationFile{}, false
	}
	r.current = (r.current + 1) % n
	return r.files[r.current], true
}

// Retreat moves the cursor backward, wrapping from the first file to the last
func (r *FileRegistry) Retreat() (entities.PresentationFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.files)
	if n == 0 {
		return entities.PresentationFile{}, false
	}
	if r.current <= 0 {
		r.current = n - 1
	} else {
		r.current--
	}
	return r.files[r.current], true
}

// PeekNext returns the file after the cursor, wrapping, without moving it
func (r *FileRegistry) PeekNext() (entities.PresentationFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.files)
	if n == 0 {
		return entities.PresentationFile{}, false
	}
	return r.files[(r.current+1)%n], true
}

// PeekPrev returns the file before the cursor, wrapping, without moving it
func (r *FileRegistry) PeekPrev() (entities.PresentationFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.files)
	if n == 0 {
		return entities.PresentationFile{}, false
	}
	if r.current <= 0 {
		return r.files[n-1], true
	}
	return r.files[r.current-1], true
}

// FileAt returns the file at index i without moving the cursor
func (r *FileRegistry) FileAt(i int) (entities.PresentationFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.files) {
		return entities.PresentationFile{}, false
	}
	return r.files[i], true
}

// ValidateExists checks the filesystem directly, independent of the listing
func (r *FileRegistry) ValidateExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && isDocument(path, info)
}

// isDocument accepts regular files and Keynote package directories
func isDocument(path string, info os.FileInfo) bool {
	if info.Mode().IsRegular() {
		return true
	}
	return info.IsDir() && entities.IsPackageDocument(path)
}

func (r *FileRegistry) indexOfLocked(path string) int {
	for i := range r.files {
		if r.files[i].Path == path {
			return i
		}
	}
	return -1
}

// scan lists dir and returns the matching files sorted by name. Errors are
// logged and yield an empty listing.
func (r *FileRegistry) scan(dir string) []entities.PresentationFile {
	files := []entities.PresentationFile{}
	if dir == "" {
		return files
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Error("Folder scan failed",
			slog.String("folder", dir),
			slog.String("error", err.Error()),
		)
		return files
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entities.IsPresentationPath(name) {
			continue
		}

		path := filepath.Join(dir, name)
		if _, dup := seen[path]; dup {
			continue
		}

		info, err := os.Stat(path)
		if err != nil || !isDocument(path, info) {
			continue
		}
		seen[path] = struct{}{}

		appType, _ := entities.AppTypeForPath(name)
		files = append(files, entities.PresentationFile{
			Name:      name,
			Path:      path,
			Extension: filepath.Ext(name),
			Size:      info.Size(),
			Modified:  info.ModTime(),
			Type:      appType,
		})
	}

	sortByName(files)
	return files
}

// sortByName orders files with locale-aware collation, then by path for ties
func sortByName(files []entities.PresentationFile) {
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(files, func(a, b entities.PresentationFile) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		if a.Path < b.Path {
			return -1
		}
		if a.Path > b.Path {
			return 1
		}
		return 0
	})
}

func (r *FileRegistry) startWatch(dir string) {
	if r.newWatcher == nil || dir == "" {
		return
	}

	watcher := r.newWatcher()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		cancel()
		r.logger.Error("Failed to watch folder",
			slog.String("folder", dir),
			slog.String("error", err.Error()),
		)
		return
	}

	done := make(chan struct{})

	r.watchMu.Lock()
	r.watcher = watcher
	r.watchCancel = cancel
	r.watchDone = done
	r.watchMu.Unlock()

	go func() {
		defer close(done)
		r.handleEvents(ctx, dir, events)
	}()
}

func (r *FileRegistry) stopWatch() {
	r.watchMu.Lock()
	watcher, cancel, done := r.watcher, r.watchCancel, r.watchDone
	r.watcher, r.watchCancel, r.watchDone = nil, nil, nil
	r.watchMu.Unlock()

	if watcher == nil {
		return
	}

	cancel()
	if err := watcher.Stop(); err != nil {
		r.logger.Warn("Failed to stop folder watcher", slog.String("error", err.Error()))
	}
	<-done
}

// handleEvents coalesces change events for matching files into debounced rescans
func (r *FileRegistry) handleEvents(ctx context.Context, dir string, events <-chan ports.FileChangeEvent) {
	removed := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if !entities.IsPresentationPath(event.Path) {
				continue
			}

			r.logger.Debug("Folder change detected",
				slog.String("path", event.Path),
				slog.String("type", event.Type.String()),
			)

			if event.Type.IsRemoval() {
				removed[filepath.Clean(event.Path)] = struct{}{}
			}

			if r.debounce <= 0 {
				r.rescan(dir, removed)
				removed = make(map[string]struct{})
				continue
			}

			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			r.rescan(dir, removed)
			removed = make(map[string]struct{})
		}
	}
}

// rescan rebuilds the listing for dir, keeping the cursor on the selected file
// unless that file was removed
func (r *FileRegistry) rescan(dir string, removed map[string]struct{}) {
	files := r.scan(dir)

	r.mu.Lock()
	if r.folder != dir {
		r.mu.Unlock()
		return
	}

	selected := ""
	if r.current >= 0 && r.current < len(r.files) {
		selected = r.files[r.current].Path
	}

	r.files = files
	r.current = -1
	if _, gone := removed[selected]; selected != "" && !gone {
		r.current = r.indexOfLocked(selected)
	}

	snapshot := slices.Clone(files)
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	r.logger.Info("Folder rescanned",
		slog.String("folder", dir),
		slog.Int("files", len(files)),
	)

	for _, listener := range listeners {
		listener(dir, snapshot)
	}
}

// Ensure FileRegistry implements ports.FileCatalog
var _ ports.FileCatalog = (*FileRegistry)(nil)
