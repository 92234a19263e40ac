package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// KeynoteDriver automates Apple Keynote
type KeynoteDriver struct {
	scriptDriver
}

// NewKeynoteDriver creates a Keynote driver
func NewKeynoteDriver(runner ScriptRunner, livePoll bool, logger *slog.Logger) *KeynoteDriver {
	return &KeynoteDriver{scriptDriver: newScriptDriver(runner, entities.AppTypeKeynote, "Keynote", livePoll, logger)}
}

// OpenFile opens path in Keynote and brings it to the front
func (d *KeynoteDriver) OpenFile(ctx context.Context, path string) (entities.OpenResult, error) {
	script := fmt.Sprintf(`tell application "Keynote"
	activate
	set theDoc to open (POSIX file %s)
	return name of theDoc
end tell`, quote(path))

	name, err := d.runner.Run(ctx, script)
	if err != nil {
		return entities.OpenResult{}, fmt.Errorf("Keynote open: %w", err)
	}
	return entities.OpenResult{Success: true, Message: "Opened in Keynote", AppDocumentName: name}, nil
}

// StartPresentation plays the front document from the current slide
func (d *KeynoteDriver) StartPresentation(ctx context.Context) error {
	return d.exec(ctx, "start", `tell application "Keynote"
	activate
	start front document from current slide of front document
end tell`)
}

// StopPresentation ends the slideshow
func (d *KeynoteDriver) StopPresentation(ctx context.Context) error {
	return d.exec(ctx, "stop", `tell application "Keynote" to stop front document`)
}

// ClosePresentation closes the front document without saving
func (d *KeynoteDriver) ClosePresentation(ctx context.Context) error {
	return d.exec(ctx, "close", `tell application "Keynote" to close front document saving no`)
}

// NextSlide advances one build or slide
func (d *KeynoteDriver) NextSlide(ctx context.Context) error {
	return d.exec(ctx, "next", `tell application "Keynote" to show next`)
}

// PrevSlide goes back one build or slide
func (d *KeynoteDriver) PrevSlide(ctx context.Context) error {
	return d.exec(ctx, "previous", `tell application "Keynote" to show previous`)
}

// GoToSlide jumps to slideNumber (1-based)
func (d *KeynoteDriver) GoToSlide(ctx context.Context, slideNumber int) error {
	return d.exec(ctx, "go to slide", fmt.Sprintf(`tell application "Keynote"
	tell front document to set current slide to slide %d
end tell`, slideNumber))
}

// GetCurrentSlideInfo returns the current position, or the default when Keynote cannot answer
func (d *KeynoteDriver) GetCurrentSlideInfo(ctx context.Context) entities.SlideInfo {
	return d.slideInfo(ctx, `tell application "Keynote"
	if not (exists front document) then return "1" & (ASCII character 31) & "0"
	tell front document
		return ((slide number of current slide) as text) & (ASCII character 31) & ((count of slides) as text)
	end tell
end tell`)
}

// GetSlideNotes returns the presenter notes of slideNumber, or "" when unavailable
func (d *KeynoteDriver) GetSlideNotes(ctx context.Context, slideNumber int) string {
	return d.notes(ctx, fmt.Sprintf(`tell application "Keynote"
	tell front document to return presenter notes of slide %d
end tell`, slideNumber))
}

// GetSlideList returns every slide with its title and presenter notes
func (d *KeynoteDriver) GetSlideList(ctx context.Context) ([]entities.SlideSummary, error) {
	out, err := d.runner.Run(ctx, `tell application "Keynote"
	set output to ""
	tell front document
		repeat with s in slides
			set theTitle to ""
			try
				set theTitle to object text of default title item of s
			end try
			set output to output & ((slide number of s) as text) & (ASCII character 31) & theTitle & (ASCII character 31) & (presenter notes of s) & (ASCII character 30)
		end repeat
	end tell
	return output
end tell`)
	if err != nil {
		return nil, fmt.Errorf("Keynote slide list: %w", err)
	}
	return parseSlideList(out), nil
}

var (
	_ ports.Driver      = (*KeynoteDriver)(nil)
	_ ports.SlideLister = (*KeynoteDriver)(nil)
	_ ports.SlideJumper = (*KeynoteDriver)(nil)
	_ ports.LivePoller  = (*KeynoteDriver)(nil)
)
