package ports

import (
	"context"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

// Driver automates one presentation application.
//
// Write operations report failures as errors. Read operations never fail:
// GetCurrentSlideInfo returns entities.DefaultSlideInfo and GetSlideNotes
// returns "" whenever the application cannot be queried.
type Driver interface {
	// Type returns the application type this driver handles
	Type() entities.AppType

	OpenFile(ctx context.Context, path string) (entities.OpenResult, error)
	StartPresentation(ctx context.Context) error
	StopPresentation(ctx context.Context) error
	ClosePresentation(ctx context.Context) error
	NextSlide(ctx context.Context) error
	PrevSlide(ctx context.Context) error

	GetCurrentSlideInfo(ctx context.Context) entities.SlideInfo
	GetSlideNotes(ctx context.Context, slideNumber int) string
}

// SlideLister is implemented by drivers that can enumerate slides with titles
type SlideLister interface {
	GetSlideList(ctx context.Context) ([]entities.SlideSummary, error)
}

// SlideJumper is implemented by drivers that can jump directly to a slide
type SlideJumper interface {
	GoToSlide(ctx context.Context, slideNumber int) error
}

// LivePoller is implemented by drivers whose slide position is worth polling
// while a slideshow runs, instead of relying on the cached value
type LivePoller interface {
	LivePolling() bool
}

// DriverCatalog resolves the driver for an application type
type DriverCatalog interface {
	DriverFor(appType entities.AppType) (Driver, bool)
}
