package ports

import (
	"context"
	"time"
)

// FolderWatcher watches a single directory (non-recursively) for changes
type FolderWatcher interface {
	// Watch starts watching dir and returns a channel of change events
	Watch(ctx context.Context, dir string) (<-chan FileChangeEvent, error)
	// Stop stops the watcher and closes the event channel
	Stop() error
}

// FolderWatcherFactory creates a fresh watcher for each watched folder
type FolderWatcherFactory func() FolderWatcher

// FileChangeEvent represents a file change event
type FileChangeEvent struct {
	Path      string
	Type      ChangeType
	Timestamp time.Time
}

// ChangeType represents the type of file change
type ChangeType int

const (
	// Modified indicates the file was modified
	Modified ChangeType = iota
	// Created indicates the file was created
	Created
	// Deleted indicates the file was deleted
	Deleted
	// Renamed indicates the file was renamed away
	Renamed
)

// String returns the string representation of ChangeType
func (c ChangeType) String() string {
	switch c {
	case Modified:
		return "modified"
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// IsRemoval reports whether the path no longer exists under its old name
func (c ChangeType) IsRemoval() bool {
	return c == Deleted || c == Renamed
}
