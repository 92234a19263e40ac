package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// PowerPointDriver automates Microsoft PowerPoint for Mac
type PowerPointDriver struct {
	scriptDriver
}

// NewPowerPointDriver creates a PowerPoint driver
func NewPowerPointDriver(runner ScriptRunner, livePoll bool, logger *slog.Logger) *PowerPointDriver {
	return &PowerPointDriver{scriptDriver: newScriptDriver(runner, entities.AppTypePowerPoint, "PowerPoint", livePoll, logger)}
}

// OpenFile opens path in PowerPoint and brings it to the front
func (d *PowerPointDriver) OpenFile(ctx context.Context, path string) (entities.OpenResult, error) {
	script := fmt.Sprintf(`tell application "Microsoft PowerPoint"
	activate
	open (POSIX file %s)
	return name of active presentation
end tell`, quote(path))

	name, err := d.runner.Run(ctx, script)
	if err != nil {
		return entities.OpenResult{}, fmt.Errorf("PowerPoint open: %w", err)
	}
	return entities.OpenResult{Success: true, Message: "Opened in PowerPoint", AppDocumentName: name}, nil
}

// StartPresentation runs the slide show of the active presentation
func (d *PowerPointDriver) StartPresentation(ctx context.Context) error {
	return d.exec(ctx, "start", `tell application "Microsoft PowerPoint"
	activate
	run slide show slide show settings of active presentation
end tell`)
}

// StopPresentation exits the running slide show
func (d *PowerPointDriver) StopPresentation(ctx context.Context) error {
	return d.exec(ctx, "stop", `tell application "Microsoft PowerPoint"
	exit slide show slide show view of slide show window 1
end tell`)
}

// ClosePresentation closes the active presentation without saving
func (d *PowerPointDriver) ClosePresentation(ctx context.Context) error {
	return d.exec(ctx, "close", `tell application "Microsoft PowerPoint" to close active presentation saving no`)
}

// NextSlide advances the running slide show
func (d *PowerPointDriver) NextSlide(ctx context.Context) error {
	return d.exec(ctx, "next", `tell application "Microsoft PowerPoint"
	go to next slide slide show view of slide show window 1
end tell`)
}

// PrevSlide goes back in the running slide show
func (d *PowerPointDriver) PrevSlide(ctx context.Context) error {
	return d.exec(ctx, "previous", `tell application "Microsoft PowerPoint"
	go to previous slide slide show view of slide show window 1
end tell`)
}

// GoToSlide jumps the running slide show to slideNumber (1-based)
func (d *PowerPointDriver) GoToSlide(ctx context.Context, slideNumber int) error {
	return d.exec(ctx, "go to slide", fmt.Sprintf(`tell application "Microsoft PowerPoint"
	go to slide (slide show view of slide show window 1) number %d
end tell`, slideNumber))
}

// GetCurrentSlideInfo returns the slide show position, or the default when PowerPoint cannot answer
func (d *PowerPointDriver) GetCurrentSlideInfo(ctx context.Context) entities.SlideInfo {
	return d.slideInfo(ctx, `tell application "Microsoft PowerPoint"
	if (count of presentations) is 0 then return "1" & (ASCII character 31) & "0"
	set total to count of slides of active presentation
	if (count of slide show windows) is 0 then return "1" & (ASCII character 31) & (total as text)
	set current to slide index of slide of slide show view of slide show window 1
	return (current as text) & (ASCII character 31) & (total as text)
end tell`)
}

// GetSlideNotes returns the notes placeholder text of slideNumber, or "" when unavailable
func (d *PowerPointDriver) GetSlideNotes(ctx context.Context, slideNumber int) string {
	return d.notes(ctx, fmt.Sprintf(`tell application "Microsoft PowerPoint"
	set theSlide to slide %d of active presentation
	return content of text range of text frame of place holder 2 of notes page of theSlide
end tell`, slideNumber))
}

var (
	_ ports.Driver      = (*PowerPointDriver)(nil)
	_ ports.SlideJumper = (*PowerPointDriver)(nil)
	_ ports.LivePoller  = (*PowerPointDriver)(nil)
)
