package watcher

import (
	"log/slog"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// NewFactory returns a watcher factory for the configured mode
func NewFactory(cfg entities.WatcherConfig, logger *slog.Logger) ports.FolderWatcherFactory {
	if cfg.GetMode() == entities.WatcherModePoll {
		return func() ports.FolderWatcher {
			return NewPollingWatcher(cfg.GetInterval(), logger)
		}
	}
	return func() ports.FolderWatcher {
		return NewFSNotifyWatcher(logger)
	}
}
