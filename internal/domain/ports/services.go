package ports

import (
	"context"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

// FolderListener is notified after the watched folder's file list is rebuilt
type FolderListener func(folder string, files []entities.PresentationFile)

// FileCatalog is the read side of the file registry used by the protocol layer
type FileCatalog interface {
	// Folder returns the watched folder, or "" when none is set
	Folder() string

	// ListFiles returns a snapshot of the ordered file list
	ListFiles() []entities.PresentationFile

	// OnChange registers a listener for watch-triggered rescans
	OnChange(listener FolderListener)
}

// SessionService drives the single active presentation session.
//
// Open operations never fail with an error; the outcome is carried in the
// returned FileOpenResult. Commands return ErrNoPresentation when nothing is open.
type SessionService interface {
	SetFolder(dir string)
	ClearFolder()

	OpenFile(ctx context.Context, path string) entities.FileOpenResult
	OpenNextFile(ctx context.Context) entities.FileOpenResult
	OpenPrevFile(ctx context.Context) entities.FileOpenResult
	OpenFileByIndex(ctx context.Context, index int) entities.FileOpenResult

	StartPresentation(ctx context.Context) error
	StopPresentation(ctx context.Context) error
	ClosePresentation(ctx context.Context) error
	NextSlide(ctx context.Context) error
	PrevSlide(ctx context.Context) error

	// GetStatus returns the composite status snapshot
	GetStatus(ctx context.Context) entities.Status

	// GetSlideList returns the slides of the open presentation
	GetSlideList(ctx context.Context) ([]entities.SlideSummary, error)
}
