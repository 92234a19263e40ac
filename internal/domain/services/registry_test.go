package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// fakeWatcher hands its event channel to the test instead of touching the filesystem
type fakeWatcher struct {
	mu      sync.Mutex
	events  chan ports.FileChangeEvent
	dir     string
	stopped bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan ports.FileChangeEvent, 16)}
}

func (w *fakeWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileChangeEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dir = dir
	return w.events, nil
}

func (w *fakeWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	return nil
}

func (w *fakeWatcher) emit(path string, changeType ports.ChangeType) {
	w.events <- ports.FileChangeEvent{Path: path, Type: changeType, Timestamp: time.Now()}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("deck"), 0o600))
	}
}

func names(files []entities.PresentationFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestFileRegistry_SetFolder(t *testing.T) {
	t.Run("lists matching files sorted by name", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "c.ppt", "a.key", "b.pptx", "notes.txt", ".hidden.key")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pptx"), 0o755))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "plain"), 0o755))

		registry := NewFileRegistry(nil, 0, nil)
		registry.SetFolder(dir)

		files := registry.ListFiles()
		require.Len(t, files, 3)
		assert.Equal(t, []string{"a.key", "b.pptx", "c.ppt"}, names(files))
		assert.Equal(t, entities.AppTypeKeynote, files[0].Type)
		assert.Equal(t, entities.AppTypePowerPoint, files[1].Type)
		assert.Equal(t, entities.AppTypePowerPoint, files[2].Type)
		assert.Equal(t, filepath.Join(dir, "a.key"), files[0].Path)
		assert.Equal(t, ".key", files[0].Extension)
		assert.Equal(t, int64(4), files[0].Size)
		assert.Equal(t, -1, registry.CurrentIndex())
		assert.Equal(t, dir, registry.Folder())
	})

	t.Run("lists keynote package directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "a.pptx")
		bundle := filepath.Join(dir, "Bundle.key")
		require.NoError(t, os.Mkdir(bundle, 0o755))
		writeFiles(t, bundle, "index.apxl")

		registry := NewFileRegistry(nil, 0, nil)
		registry.SetFolder(dir)

		files := registry.ListFiles()
		require.Len(t, files, 2)
		assert.Equal(t, []string{"a.pptx", "Bundle.key"}, names(files))
		assert.Equal(t, bundle, files[1].Path)
		assert.Equal(t, entities.AppTypeKeynote, files[1].Type)
	})

	t.Run("ordering ignores case", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "Beta.key", "alpha.pptx", "Gamma.ppt")

		registry := NewFileRegistry(nil, 0, nil)
		registry.SetFolder(dir)

		assert.Equal(t, []string{"alpha.pptx", "Beta.key", "Gamma.ppt"}, names(registry.ListFiles()))
	})

	t.Run("unreadable folder yields empty list", func(t *testing.T) {
		registry := NewFileRegistry(nil, 0, nil)
		registry.SetFolder(filepath.Join(t.TempDir(), "missing"))

		assert.Empty(t, registry.ListFiles())
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("resets cursor and replaces watcher", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "a.key", "b.key")

		var watchers []*fakeWatcher
		registry := NewFileRegistry(func() ports.FolderWatcher {
			w := newFakeWatcher()
			watchers = append(watchers, w)
			return w
		}, 0, nil)

		registry.SetFolder(dir)
		_, ok := registry.SelectByIndex(1)
		require.True(t, ok)

		registry.SetFolder(dir)

		assert.Equal(t, -1, registry.CurrentIndex())
		require.Len(t, watchers, 2)
		assert.True(t, watchers[0].stopped)
		assert.False(t, watchers[1].stopped)
		assert.Equal(t, dir, watchers[1].dir)

		registry.Close()
		assert.True(t, watchers[1].stopped)
	})

	t.Run("listing is a snapshot", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "a.key")

		registry := NewFileRegistry(nil, 0, nil)
		registry.SetFolder(dir)

		files := registry.ListFiles()
		files[0].Name = "mutated"
		assert.Equal(t, "a.key", registry.ListFiles()[0].Name)
	})
}

func TestFileRegistry_Cursor(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.key", "b.pptx", "c.ppt")

	registry := NewFileRegistry(nil, 0, nil)
	registry.SetFolder(dir)

	t.Run("select by path and index", func(t *testing.T) {
		file, ok := registry.SelectByPath(filepath.Join(dir, "b.pptx"))
		require.True(t, ok)
		assert.Equal(t, "b.pptx", file.Name)
		assert.Equal(t, 1, registry.CurrentIndex())

		file, ok = registry.SelectByIndex(2)
		require.True(t, ok)
		assert.Equal(t, "c.ppt", file.Name)

		_, ok = registry.SelectByIndex(3)
		assert.False(t, ok)
		_, ok = registry.SelectByPath(filepath.Join(dir, "zzz.key"))
		assert.False(t, ok)
		assert.Equal(t, 2, registry.CurrentIndex())
	})

	t.Run("advance is circular", func(t *testing.T) {
		for start := 0; start < 3; start++ {
			_, ok := registry.SelectByIndex(start)
			require.True(t, ok)
			for i := 0; i < 3; i++ {
				_, ok := registry.Advance()
				require.True(t, ok)
			}
			assert.Equal(t, start, registry.CurrentIndex())
		}
	})

	t.Run("retreat wraps from first to last", func(t *testing.T) {
		_, ok := registry.SelectByIndex(0)
		require.True(t, ok)

		file, ok := registry.Retreat()
		require.True(t, ok)
		assert.Equal(t, 2, registry.CurrentIndex())
		assert.Equal(t, "c.ppt", file.Name)
	})

	t.Run("empty registry", func(t *testing.T) {
		empty := NewFileRegistry(nil, 0, nil)
		_, ok := empty.Advance()
		assert.False(t, ok)
		_, ok = empty.Retreat()
		assert.False(t, ok)
	})

	t.Run("peek leaves cursor alone", func(t *testing.T) {
		_, ok := registry.SelectByIndex(2)
		require.True(t, ok)

		file, ok := registry.PeekNext()
		require.True(t, ok)
		assert.Equal(t, "a.key", file.Name)

		file, ok = registry.PeekPrev()
		require.True(t, ok)
		assert.Equal(t, "b.pptx", file.Name)

		file, ok = registry.FileAt(0)
		require.True(t, ok)
		assert.Equal(t, "a.key", file.Name)
		_, ok = registry.FileAt(3)
		assert.False(t, ok)

		assert.Equal(t, 2, registry.CurrentIndex())
	})

	t.Run("peek without a selection", func(t *testing.T) {
		fresh := NewFileRegistry(nil, 0, nil)
		fresh.SetFolder(dir)
		require.Equal(t, -1, fresh.CurrentIndex())

		next, ok := fresh.PeekNext()
		require.True(t, ok)
		assert.Equal(t, "a.key", next.Name)
		prev, ok := fresh.PeekPrev()
		require.True(t, ok)
		assert.Equal(t, "c.ppt", prev.Name)

		empty := NewFileRegistry(nil, 0, nil)
		_, ok = empty.PeekNext()
		assert.False(t, ok)
		_, ok = empty.PeekPrev()
		assert.False(t, ok)
	})

	t.Run("lookup leaves cursor alone", func(t *testing.T) {
		_, ok := registry.SelectByIndex(0)
		require.True(t, ok)

		file, ok := registry.Lookup(filepath.Join(dir, "c.ppt"))
		require.True(t, ok)
		assert.Equal(t, "c.ppt", file.Name)
		assert.Equal(t, 0, registry.CurrentIndex())
	})
}

func TestFileRegistry_ValidateExists(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.key")

	registry := NewFileRegistry(nil, 0, nil)
	assert.True(t, registry.ValidateExists(filepath.Join(dir, "a.key")))
	assert.False(t, registry.ValidateExists(filepath.Join(dir, "b.key")))
	assert.False(t, registry.ValidateExists(dir))

	bundle := filepath.Join(dir, "Bundle.key")
	require.NoError(t, os.Mkdir(bundle, 0o755))
	assert.True(t, registry.ValidateExists(bundle))
}

func TestFileRegistry_Clear(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.key")

	watcher := newFakeWatcher()
	registry := NewFileRegistry(func() ports.FolderWatcher { return watcher }, 0, nil)
	registry.SetFolder(dir)
	registry.SelectByIndex(0)

	registry.Clear()

	assert.Empty(t, registry.ListFiles())
	assert.Equal(t, -1, registry.CurrentIndex())
	assert.Equal(t, "", registry.Folder())
	assert.True(t, watcher.stopped)
}

func TestFileRegistry_WatchEvents(t *testing.T) {
	setup := func(t *testing.T, debounce time.Duration) (string, *FileRegistry, *fakeWatcher, chan []entities.PresentationFile) {
		dir := t.TempDir()
		writeFiles(t, dir, "a.key", "b.pptx")

		watcher := newFakeWatcher()
		registry := NewFileRegistry(func() ports.FolderWatcher { return watcher }, debounce, nil)
		registry.SetFolder(dir)
		t.Cleanup(registry.Close)

		changes := make(chan []entities.PresentationFile, 8)
		registry.OnChange(func(folder string, files []entities.PresentationFile) {
			changes <- files
		})
		return dir, registry, watcher, changes
	}

	waitChange := func(t *testing.T, changes chan []entities.PresentationFile) []entities.PresentationFile {
		t.Helper()
		select {
		case files := <-changes:
			return files
		case <-time.After(2 * time.Second):
			t.Fatal("registry did not rescan")
			return nil
		}
	}

	t.Run("added file triggers rescan", func(t *testing.T) {
		dir, registry, watcher, changes := setup(t, 0)

		writeFiles(t, dir, "c.ppt")
		watcher.emit(filepath.Join(dir, "c.ppt"), ports.Created)

		files := waitChange(t, changes)
		assert.Equal(t, []string{"a.key", "b.pptx", "c.ppt"}, names(files))
		assert.Equal(t, 3, registry.Count())
	})

	t.Run("non matching files are ignored", func(t *testing.T) {
		dir, registry, watcher, changes := setup(t, 0)

		writeFiles(t, dir, "readme.md")
		watcher.emit(filepath.Join(dir, "readme.md"), ports.Created)
		writeFiles(t, dir, "c.ppt")
		watcher.emit(filepath.Join(dir, "c.ppt"), ports.Created)

		waitChange(t, changes)
		assert.Empty(t, changes)
		assert.Equal(t, 3, registry.Count())
	})

	t.Run("removing the selected file clears the cursor", func(t *testing.T) {
		dir, registry, watcher, changes := setup(t, 0)
		_, ok := registry.SelectByPath(filepath.Join(dir, "b.pptx"))
		require.True(t, ok)

		require.NoError(t, os.Remove(filepath.Join(dir, "b.pptx")))
		watcher.emit(filepath.Join(dir, "b.pptx"), ports.Deleted)

		files := waitChange(t, changes)
		assert.Equal(t, []string{"a.key"}, names(files))
		assert.Equal(t, -1, registry.CurrentIndex())
	})

	t.Run("removing another file keeps the selection", func(t *testing.T) {
		dir, registry, watcher, changes := setup(t, 0)
		_, ok := registry.SelectByPath(filepath.Join(dir, "b.pptx"))
		require.True(t, ok)

		require.NoError(t, os.Remove(filepath.Join(dir, "a.key")))
		watcher.emit(filepath.Join(dir, "a.key"), ports.Deleted)

		waitChange(t, changes)
		assert.Equal(t, 0, registry.CurrentIndex())
	})

	t.Run("bursts are debounced into one rescan", func(t *testing.T) {
		dir, registry, watcher, changes := setup(t, 50*time.Millisecond)

		writeFiles(t, dir, "c.ppt", "d.key")
		watcher.emit(filepath.Join(dir, "c.ppt"), ports.Created)
		watcher.emit(filepath.Join(dir, "d.key"), ports.Created)
		watcher.emit(filepath.Join(dir, "d.key"), ports.Modified)

		files := waitChange(t, changes)
		assert.Len(t, files, 4)
		assert.Never(t, func() bool { return len(changes) > 0 }, 150*time.Millisecond, 10*time.Millisecond)
		assert.Equal(t, 4, registry.Count())
	})
}
