package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

const (
	// fieldSep and recordSep split multi-value script output
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// scriptDriver holds what the AppleScript drivers share: running write
// scripts as fallible calls and read scripts with safe defaults.
type scriptDriver struct {
	runner   ScriptRunner
	appType  entities.AppType
	appName  string
	livePoll bool
	logger   *slog.Logger
}

func newScriptDriver(runner ScriptRunner, appType entities.AppType, appName string, livePoll bool, logger *slog.Logger) scriptDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return scriptDriver{
		runner:   runner,
		appType:  appType,
		appName:  appName,
		livePoll: livePoll,
		logger:   logger.With("component", "driver", "app", string(appType)),
	}
}

// Type returns the application type this driver handles
func (d *scriptDriver) Type() entities.AppType {
	return d.appType
}

// LivePolling reports whether slide position should be polled while presenting
func (d *scriptDriver) LivePolling() bool {
	return d.livePoll
}

// exec runs a write script, wrapping failures with the operation name
func (d *scriptDriver) exec(ctx context.Context, op, script string) error {
	if _, err := d.runner.Run(ctx, script); err != nil {
		return fmt.Errorf("%s %s: %w", d.appName, op, err)
	}
	return nil
}

// slideInfo runs a script printing "current<fieldSep>total" and degrades to the default
func (d *scriptDriver) slideInfo(ctx context.Context, script string) entities.SlideInfo {
	out, err := d.runner.Run(ctx, script)
	if err != nil {
		d.logger.Debug("Slide info unavailable", slog.String("error", err.Error()))
		return entities.DefaultSlideInfo()
	}
	return parseSlideInfo(out)
}

// notes runs a script printing the notes text and degrades to ""
func (d *scriptDriver) notes(ctx context.Context, script string) string {
	out, err := d.runner.Run(ctx, script)
	if err != nil {
		d.logger.Debug("Slide notes unavailable", slog.String("error", err.Error()))
		return ""
	}
	return out
}

func parseSlideInfo(out string) entities.SlideInfo {
	parts := strings.Split(out, fieldSep)
	if len(parts) != 2 {
		return entities.DefaultSlideInfo()
	}

	current, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	total, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || current < 1 || total < 0 {
		return entities.DefaultSlideInfo()
	}
	if total > 0 && current > total {
		current = total
	}
	return entities.SlideInfo{CurrentSlide: current, TotalSlides: total}
}

// parseSlideList reads records of "index<fieldSep>title<fieldSep>notes"
func parseSlideList(out string) []entities.SlideSummary {
	var slides []entities.SlideSummary
	for _, record := range strings.Split(out, recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 3)
		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		summary := entities.SlideSummary{Index: index, Title: fmt.Sprintf("Slide %d", index)}
		if len(fields) > 1 && strings.TrimSpace(fields[1]) != "" {
			summary.Title = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			summary.Notes = strings.TrimSpace(fields[2])
		}
		slides = append(slides, summary)
	}
	return slides
}
