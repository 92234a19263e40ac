package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// SessionManager owns the single active (driver, file) pairing and its cached
// slide state. Every operation holds the session lock until its cache refresh
// has landed, so driver calls are never interleaved.
type SessionManager struct {
	registry *FileRegistry
	drivers  ports.DriverCatalog
	notes    ports.NotesRenderer
	timeout  time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	driver     ports.Driver
	file       *entities.PresentationFile
	presenting bool
	slideIndex int // 0-based
	total      int
	notesText  string
	notesHTML  string
}

// NewSessionManager creates a session manager. notes may be nil.
func NewSessionManager(
	registry *FileRegistry,
	drivers ports.DriverCatalog,
	notes ports.NotesRenderer,
	timeout time.Duration,
	logger *slog.Logger,
) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SessionManager{
		registry: registry,
		drivers:  drivers,
		notes:    notes,
		timeout:  timeout,
		logger:   logger.With("service", "session"),
	}
}

// Registry returns the file registry backing this session
func (s *SessionManager) Registry() *FileRegistry {
	return s.registry
}

// SetFolder switches the watched folder and drops any open session
func (s *SessionManager) SetFolder(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.SetFolder(dir)
	s.resetLocked()
}

// ClearFolder forgets the watched folder and drops any open session
func (s *SessionManager) ClearFolder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Clear()
	s.resetLocked()
}

// HasSession reports whether a presentation is open
func (s *SessionManager) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver != nil
}

// OpenFile opens path with the driver matching its type. On any failure the
// previous session is left untouched.
func (s *SessionManager) OpenFile(ctx context.Context, path string) entities.FileOpenResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ctx, path)
}

// OpenNextFile opens the file after the registry cursor. The cursor moves only
// when the open succeeds.
func (s *SessionManager) OpenNextFile(ctx context.Context) entities.FileOpenResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.registry.PeekNext()
	if !ok {
		return failure("", entities.ErrEmptyRegistry)
	}
	return s.openLocked(ctx, file.Path)
}

// OpenPrevFile opens the file before the registry cursor, moving it on success
func (s *SessionManager) OpenPrevFile(ctx context.Context) entities.FileOpenResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.registry.PeekPrev()
	if !ok {
		return failure("", entities.ErrEmptyRegistry)
	}
	return s.openLocked(ctx, file.Path)
}

// OpenFileByIndex opens the file at index, selecting it on success
func (s *SessionManager) OpenFileByIndex(ctx context.Context, index int) entities.FileOpenResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.registry.FileAt(index)
	if !ok {
		return failure("", fmt.Errorf("%w %d", entities.ErrIndexOutOfRange, index))
	}
	return s.openLocked(ctx, file.Path)
}

func (s *SessionManager) openLocked(ctx context.Context, path string) entities.FileOpenResult {
	if !s.registry.ValidateExists(path) {
		return failure(path, fmt.Errorf("%w: %s", entities.ErrFileNotFound, path))
	}

	file, ok := s.registry.Lookup(path)
	if !ok {
		return failure(path, fmt.Errorf("%w in presentation folder: %s", entities.ErrFileNotFound, path))
	}

	driver, ok := s.drivers.DriverFor(file.Type)
	if !ok {
		return failure(path, fmt.Errorf("%w: %s", entities.ErrUnsupportedType, file.Type))
	}

	result, err := callDriver(ctx, s.timeout, "open file", func(ctx context.Context) (entities.OpenResult, error) {
		return driver.OpenFile(ctx, file.Path)
	})
	if err != nil {
		s.logger.Error("Failed to open presentation",
			slog.String("path", file.Path),
			slog.String("driver", string(file.Type)),
			slog.String("error", err.Error()),
		)
		return failure(path, err)
	}
	if !result.Success {
		return entities.FileOpenResult{Success: false, Message: result.Message, FilePath: path}
	}

	s.resetLocked()
	s.driver = driver
	s.file = &file
	s.registry.SelectByPath(file.Path)

	if err := s.refreshLocked(ctx); err != nil {
		s.logger.Warn("Slide info unavailable after open", slog.String("error", err.Error()))
	}

	s.logger.Info("Presentation opened",
		slog.String("path", file.Path),
		slog.String("driver", string(file.Type)),
		slog.Int("total_slides", s.total),
	)

	message := result.Message
	if message == "" {
		message = "Opened " + file.Name
	}
	return entities.FileOpenResult{Success: true, Message: message, FilePath: path}
}

// StartPresentation starts the slideshow of the open presentation
func (s *SessionManager) StartPresentation(ctx context.Context) error {
	return s.command(ctx, "start presentation", ports.Driver.StartPresentation, func() {
		s.presenting = true
	})
}

// StopPresentation ends the slideshow, keeping the document open
func (s *SessionManager) StopPresentation(ctx context.Context) error {
	return s.command(ctx, "stop presentation", ports.Driver.StopPresentation, func() {
		s.presenting = false
	})
}

// NextSlide advances one slide
func (s *SessionManager) NextSlide(ctx context.Context) error {
	return s.command(ctx, "next slide", ports.Driver.NextSlide, nil)
}

// PrevSlide goes back one slide
func (s *SessionManager) PrevSlide(ctx context.Context) error {
	return s.command(ctx, "previous slide", ports.Driver.PrevSlide, nil)
}

// ClosePresentation closes the document and resets the session
func (s *SessionManager) ClosePresentation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return entities.ErrNoPresentation
	}

	driver := s.driver
	if _, err := callDriver(ctx, s.timeout, "close presentation", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, driver.ClosePresentation(ctx)
	}); err != nil {
		return fmt.Errorf("close presentation: %w", err)
	}

	s.resetLocked()
	s.logger.Info("Presentation closed")
	return nil
}

// command runs a state-changing driver operation, records its effect with
// after, then refreshes the slide cache
func (s *SessionManager) command(ctx context.Context, op string, call func(ports.Driver, context.Context) error, after func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return entities.ErrNoPresentation
	}

	driver := s.driver
	_, err := callDriver(ctx, s.timeout, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(driver, ctx)
	})
	if err != nil {
		s.logger.Error("Driver command failed",
			slog.String("command", op),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if after != nil {
		after()
	}

	if err := s.refreshLocked(ctx); err != nil {
		s.logger.Warn("Slide info refresh failed",
			slog.String("command", op),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// refreshLocked re-reads slide position, count and notes from the driver.
// Notes failures degrade to an empty string.
func (s *SessionManager) refreshLocked(ctx context.Context) error {
	driver := s.driver
	if driver == nil {
		return nil
	}

	info, err := callDriver(ctx, s.timeout, "slide info", func(ctx context.Context) (entities.SlideInfo, error) {
		return driver.GetCurrentSlideInfo(ctx), nil
	})
	if err != nil {
		return err
	}
	s.applySlideInfoLocked(ctx, info)
	return nil
}

func (s *SessionManager) applySlideInfoLocked(ctx context.Context, info entities.SlideInfo) {
	s.slideIndex = max(info.CurrentSlide-1, 0)
	s.total = max(info.TotalSlides, 0)

	driver := s.driver
	notes, err := callDriver(ctx, s.timeout, "slide notes", func(ctx context.Context) (string, error) {
		return driver.GetSlideNotes(ctx, info.CurrentSlide), nil
	})
	if err != nil {
		s.logger.Debug("Slide notes unavailable", slog.String("error", err.Error()))
		notes = ""
	}

	s.notesText = notes
	s.notesHTML = ""
	if s.notes != nil && notes != "" {
		s.notesHTML = s.notes.Render(notes)
	}
}

// GetStatus returns the composite session snapshot. While a slideshow runs on
// a driver that supports live polling, the slide position is read from the
// application instead of the cache.
func (s *SessionManager) GetStatus(ctx context.Context) entities.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver != nil && s.presenting && supportsLivePolling(s.driver) {
		driver := s.driver
		info, err := callDriver(ctx, s.timeout, "live slide info", func(ctx context.Context) (entities.SlideInfo, error) {
			return driver.GetCurrentSlideInfo(ctx), nil
		})
		switch {
		case err != nil:
			s.logger.Debug("Live slide poll failed", slog.String("error", err.Error()))
		case info.TotalSlides > 0 && (info.CurrentSlide-1 != s.slideIndex || info.TotalSlides != s.total):
			s.applySlideInfoLocked(ctx, info)
		}
	}

	status := entities.Status{
		IsPresenting:   s.presenting,
		CurrentSlide:   s.slideIndex + 1,
		TotalSlides:    s.total,
		SlideNotes:     s.notesText,
		SlideNotesHTML: s.notesHTML,
		Folder:         s.registry.Folder(),
		FileCount:      s.registry.Count(),
	}

	if s.file != nil {
		status.CurrentFile = &entities.CurrentFile{
			Name:  s.file.Name,
			Path:  s.file.Path,
			Type:  s.file.Type,
			Index: s.registry.IndexOf(s.file.Path),
		}
	}

	if s.driver != nil {
		driverType := s.driver.Type()
		status.DriverType = &driverType
	}

	return status
}

// GetSlideList returns the slides of the open presentation, synthesizing
// placeholders when the driver cannot list them
func (s *SessionManager) GetSlideList(ctx context.Context) ([]entities.SlideSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return nil, entities.ErrNoPresentation
	}

	if lister, ok := s.driver.(ports.SlideLister); ok {
		slides, err := callDriver(ctx, s.timeout, "slide list", lister.GetSlideList)
		if err == nil {
			return slides, nil
		}
		s.logger.Warn("Slide list unavailable, using placeholders", slog.String("error", err.Error()))
	}

	return entities.PlaceholderSlides(s.total), nil
}

func (s *SessionManager) resetLocked() {
	s.driver = nil
	s.file = nil
	s.presenting = false
	s.slideIndex = 0
	s.total = 0
	s.notesText = ""
	s.notesHTML = ""
}

func supportsLivePolling(d ports.Driver) bool {
	poller, ok := d.(ports.LivePoller)
	return ok && poller.LivePolling()
}

func failure(path string, err error) entities.FileOpenResult {
	return entities.FileOpenResult{Success: false, Message: err.Error(), FilePath: path}
}

type callResult[T any] struct {
	value T
	err   error
}

// callDriver runs fn with a hard deadline. A call that outlives the deadline
// keeps running in the background; only the caller stops waiting.
func callDriver[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- callResult[T]{value: zero, err: fmt.Errorf("%s: driver panic: %v", op, r)}
			}
		}()
		value, err := fn(ctx)
		done <- callResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%s: %w", op, entities.ErrDriverTimeout)
		}
		return zero, ctx.Err()
	}
}

// Ensure SessionManager implements ports.SessionService
var _ ports.SessionService = (*SessionManager)(nil)
