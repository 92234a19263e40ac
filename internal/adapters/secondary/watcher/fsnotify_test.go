package watcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

func TestTranslate(t *testing.T) {
	dir := "/decks"

	tests := []struct {
		name     string
		event    fsnotify.Event
		expected ports.ChangeType
		relevant bool
	}{
		{"create", fsnotify.Event{Name: "/decks/a.key", Op: fsnotify.Create}, ports.Created, true},
		{"write", fsnotify.Event{Name: "/decks/a.key", Op: fsnotify.Write}, ports.Modified, true},
		{"remove", fsnotify.Event{Name: "/decks/a.key", Op: fsnotify.Remove}, ports.Deleted, true},
		{"rename", fsnotify.Event{Name: "/decks/a.key", Op: fsnotify.Rename}, ports.Renamed, true},
		{"chmod only", fsnotify.Event{Name: "/decks/a.key", Op: fsnotify.Chmod}, 0, false},
		{"dotfile", fsnotify.Event{Name: "/decks/.a.key", Op: fsnotify.Create}, 0, false},
		{"nested", fsnotify.Event{Name: "/decks/sub/a.key", Op: fsnotify.Create}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, relevant := translate(dir, tt.event)
			assert.Equal(t, tt.relevant, relevant)
			if tt.relevant {
				assert.Equal(t, tt.expected, event.Type)
				assert.Equal(t, tt.event.Name, event.Path)
			}
		})
	}
}

func TestFSNotifyWatcher(t *testing.T) {
	t.Run("reports new files", func(t *testing.T) {
		dir := t.TempDir()

		watcher := NewFSNotifyWatcher(nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer func() { _ = watcher.Stop() }()

		events, err := watcher.Watch(ctx, dir)
		require.NoError(t, err)

		path := filepath.Join(dir, "talk.pptx")
		writeFile(t, path, "deck")

		event := nextEvent(t, events)
		assert.Equal(t, path, event.Path)
		assert.Contains(t, []ports.ChangeType{ports.Created, ports.Modified}, event.Type)
	})

	t.Run("missing folder", func(t *testing.T) {
		watcher := NewFSNotifyWatcher(nil)
		_, err := watcher.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("stop closes channel", func(t *testing.T) {
		watcher := NewFSNotifyWatcher(nil)
		events, err := watcher.Watch(context.Background(), t.TempDir())
		require.NoError(t, err)

		require.NoError(t, watcher.Stop())
		_, ok := <-events
		assert.False(t, ok)
	})
}

func TestNewFactory(t *testing.T) {
	poll := NewFactory(entities.WatcherConfig{Mode: entities.WatcherModePoll, IntervalMs: 100}, nil)()
	assert.IsType(t, &PollingWatcher{}, poll)

	native := NewFactory(entities.WatcherConfig{}, nil)()
	assert.IsType(t, &FSNotifyWatcher{}, native)

}
