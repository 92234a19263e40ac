package config

import (
	"os"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// ConfigMerger implements the ConfigMerger interface
type ConfigMerger struct{}

// NewConfigMerger creates a new configuration merger
func NewConfigMerger() *ConfigMerger {
	return &ConfigMerger{}
}

// Merge merges multiple configurations with later configs taking precedence
func (m *ConfigMerger) Merge(configs ...*entities.Config) *entities.Config {
	if len(configs) == 0 {
		return GetDefaultConfig()
	}

	result := deepCopy(configs[0])

	for i := 1; i < len(configs); i++ {
		if configs[i] != nil {
			m.mergeInto(result, configs[i])
		}
	}

	return result
}

// ApplyFlags applies CLI flag overrides to a configuration
func (m *ConfigMerger) ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config {
	result := deepCopy(config)

	if port, ok := flags["port"].(int); ok && port > 0 {
		result.Server.Port = port
	}

	if host, ok := flags["host"].(string); ok && host != "" {
		result.Server.Host = host
	}

	if folder, ok := flags["folder"].(string); ok && folder != "" {
		result.Folder.Path = folder
	}

	if mode, ok := flags["watch-mode"].(string); ok && mode != "" {
		result.Watcher.Mode = mode
	}

	if verbose, ok := flags["verbose"].(bool); ok && verbose {
		result.Logging.Verbose = true
	}

	if level, ok := flags["log-level"].(string); ok && level != "" {
		result.Logging.Level = level
	}

	if jsonLogs, ok := flags["log-json"].(bool); ok && jsonLogs {
		result.Logging.JSONFormat = true
	}

	return result
}

// ApplyEnvVars applies SLIDECTL_* environment variable overrides to a configuration
func (m *ConfigMerger) ApplyEnvVars(config *entities.Config) *entities.Config {
	result := deepCopy(config)

	// Server configuration from environment
	if host := os.Getenv("SLIDECTL_HOST"); host != "" {
		result.Server.Host = host
	}
	if port, ok := getEnvInt("SLIDECTL_PORT"); ok && port > 0 {
		result.Server.Port = port
	}
	if heartbeat, ok := getEnvInt("SLIDECTL_HEARTBEAT"); ok && heartbeat > 0 {
		result.Server.HeartbeatSeconds = heartbeat
	}
	if env := os.Getenv("SLIDECTL_ENV"); env != "" {
		result.Server.Environment = env
	}
	if origins, ok := getEnvSlice("SLIDECTL_CORS_ORIGINS"); ok {
		result.Server.CORSOrigins = origins
	}

	if folder := os.Getenv("SLIDECTL_FOLDER"); folder != "" {
		result.Folder.Path = folder
	}

	// Watcher configuration from environment
	if mode := os.Getenv("SLIDECTL_WATCH_MODE"); mode != "" {
		result.Watcher.Mode = mode
	}
	if interval, ok := getEnvInt("SLIDECTL_WATCH_INTERVAL"); ok && interval > 0 {
		result.Watcher.IntervalMs = interval
	}
	if debounce, ok := getEnvInt("SLIDECTL_WATCH_DEBOUNCE"); ok && debounce >= 0 {
		result.Watcher.DebounceMs = debounce
	}

	// Driver configuration from environment
	if timeout, ok := getEnvInt("SLIDECTL_DRIVER_TIMEOUT"); ok && timeout > 0 {
		result.Drivers.TimeoutMs = timeout
	}
	if live, ok := getEnvBool("SLIDECTL_KEYNOTE_LIVE_POLL"); ok {
		result.Drivers.Keynote.LivePoll = live
	}
	if live, ok := getEnvBool("SLIDECTL_POWERPOINT_LIVE_POLL"); ok {
		result.Drivers.PowerPoint.LivePoll = live
	}

	if tokenFile := os.Getenv("SLIDECTL_TOKEN_FILE"); tokenFile != "" {
		result.Auth.TokenFile = tokenFile
	}

	// Logging configuration from environment
	if level := os.Getenv("SLIDECTL_LOG_LEVEL"); level != "" {
		result.Logging.Level = level
	}
	if verbose, ok := getEnvBool("SLIDECTL_LOG_VERBOSE"); ok {
		result.Logging.Verbose = verbose
	}
	if jsonFormat, ok := getEnvBool("SLIDECTL_LOG_JSON"); ok {
		result.Logging.JSONFormat = jsonFormat
	}
	if file := os.Getenv("SLIDECTL_LOG_FILE"); file != "" {
		result.Logging.File = file
	}

	return result
}

// mergeInto merges source configuration into target configuration
func (m *ConfigMerger) mergeInto(target, source *entities.Config) {
	// Server config
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.Host != "" {
		target.Server.Host = source.Server.Host
	}
	if source.Server.ReadTimeout != 0 {
		target.Server.ReadTimeout = source.Server.ReadTimeout
	}
	if source.Server.WriteTimeout != 0 {
		target.Server.WriteTimeout = source.Server.WriteTimeout
	}
	if source.Server.ShutdownTimeout != 0 {
		target.Server.ShutdownTimeout = source.Server.ShutdownTimeout
	}
	if source.Server.HeartbeatSeconds != 0 {
		target.Server.HeartbeatSeconds = source.Server.HeartbeatSeconds
	}
	if source.Server.Environment != "" {
		target.Server.Environment = source.Server.Environment
	}
	if len(source.Server.CORSOrigins) > 0 {
		target.Server.CORSOrigins = append([]string(nil), source.Server.CORSOrigins...)
	}

	if source.Folder.Path != "" {
		target.Folder.Path = source.Folder.Path
	}

	// Watcher config
	if source.Watcher.Mode != "" {
		target.Watcher.Mode = source.Watcher.Mode
	}
	if source.Watcher.IntervalMs != 0 {
		target.Watcher.IntervalMs = source.Watcher.IntervalMs
	}
	if source.Watcher.DebounceMs != 0 {
		target.Watcher.DebounceMs = source.Watcher.DebounceMs
	}

	// Drivers config. TOML cannot distinguish false from unset, so the
	// loader decodes files over the defaults and booleans are always taken.
	if source.Drivers.TimeoutMs != 0 {
		target.Drivers.TimeoutMs = source.Drivers.TimeoutMs
	}
	target.Drivers.Keynote = source.Drivers.Keynote
	target.Drivers.PowerPoint = source.Drivers.PowerPoint

	if source.Auth.TokenFile != "" {
		target.Auth.TokenFile = source.Auth.TokenFile
	}

	// Logging config
	if source.Logging.Level != "" {
		target.Logging.Level = source.Logging.Level
	}
	target.Logging.Verbose = source.Logging.Verbose
	target.Logging.JSONFormat = source.Logging.JSONFormat
	if source.Logging.File != "" {
		target.Logging.File = source.Logging.File
	}
}

// deepCopy creates a deep copy of a configuration
func deepCopy(src *entities.Config) *entities.Config {
	if src == nil {
		return nil
	}

	dst := *src

	if src.Server.CORSOrigins != nil {
		dst.Server.CORSOrigins = make([]string, len(src.Server.CORSOrigins))
		copy(dst.Server.CORSOrigins, src.Server.CORSOrigins)
	}

	return &dst
}

// Ensure ConfigMerger implements ports.ConfigMerger
var _ ports.ConfigMerger = (*ConfigMerger)(nil)
