package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

// DefaultPort is the control server port when nothing else is configured
const DefaultPort = 8765

// GetDefaultConfig returns the built-in default configuration
func GetDefaultConfig() *entities.Config {
	return &entities.Config{
		Server: entities.ServerConfig{
			Host:             "0.0.0.0",
			Port:             DefaultPort,
			ReadTimeout:      30,
			WriteTimeout:     30,
			ShutdownTimeout:  5,
			HeartbeatSeconds: 30,
			Environment:      "production",
			CORSOrigins:      []string{},
		},
		Folder: entities.FolderConfig{
			Path: "",
		},
		Watcher: entities.WatcherConfig{
			Mode:       entities.WatcherModeFSNotify,
			IntervalMs: 1000,
			DebounceMs: 300,
		},
		Drivers: entities.DriversConfig{
			TimeoutMs: 10000,
			Keynote: entities.DriverConfig{
				Enabled:  true,
				LivePoll: true,
			},
			PowerPoint: entities.DriverConfig{
				Enabled:  true,
				LivePoll: false,
			},
		},
		Auth: entities.AuthConfig{
			TokenFile: "",
		},
		Logging: entities.LoggingConfig{
			Level:      "info",
			Verbose:    false,
			JSONFormat: false,
			File:       "",
		},
	}
}

// getEnvInt returns an environment variable parsed as int
func getEnvInt(key string) (int, bool) {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue, true
		}
	}
	return 0, false
}

// getEnvBool returns an environment variable parsed as bool
func getEnvBool(key string) (bool, bool) {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue, true
		}
	}
	return false, false
}

// getEnvSlice returns a comma separated environment variable as a slice
func getEnvSlice(key string) ([]string, bool) {
	value := os.Getenv(key)
	if value == "" {
		return nil, false
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result, len(result) > 0
}
