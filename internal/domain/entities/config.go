package entities

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Folder  FolderConfig  `toml:"folder" yaml:"folder"`
	Watcher WatcherConfig `toml:"watcher" yaml:"watcher"`
	Drivers DriversConfig `toml:"drivers" yaml:"drivers"`
	Auth    AuthConfig    `toml:"auth" yaml:"auth"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Folder.Validate(); err != nil {
		return fmt.Errorf("folder config: %w", err)
	}

	if err := c.Watcher.Validate(); err != nil {
		return fmt.Errorf("watcher config: %w", err)
	}

	if err := c.Drivers.Validate(); err != nil {
		return fmt.Errorf("drivers config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ServerConfig contains control server configuration
type ServerConfig struct {
	Host             string   `toml:"host" yaml:"host"`
	Port             int      `toml:"port" yaml:"port"`
	ReadTimeout      int      `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     int      `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout  int      `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	HeartbeatSeconds int      `toml:"heartbeat_seconds" yaml:"heartbeat_seconds"`
	Environment      string   `toml:"environment" yaml:"environment"`
	CORSOrigins      []string `toml:"cors_origins" yaml:"cors_origins"`
}

// Validate validates server configuration
func (s ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}

	if s.Host != "" {
		if ip := net.ParseIP(s.Host); ip == nil {
			if _, err := net.LookupHost(s.Host); err != nil {
				return fmt.Errorf("invalid host: %w", err)
			}
		}
	}

	if s.ReadTimeout < 0 {
		return errors.New("read timeout must be non-negative")
	}

	if s.WriteTimeout < 0 {
		return errors.New("write timeout must be non-negative")
	}

	if s.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must be non-negative")
	}

	if s.HeartbeatSeconds < 0 {
		return errors.New("heartbeat interval must be non-negative")
	}

	for _, origin := range s.CORSOrigins {
		if origin == "" {
			return errors.New("CORS origin cannot be empty")
		}
		if origin == "*" || (strings.HasPrefix(origin, "*.") && len(origin) > 2) {
			continue
		}
		if len(origin) < 7 || (!strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("invalid CORS origin format: %s (must start with http:// or https://)", origin)
		}
	}

	return nil
}

// GetReadTimeout returns the read timeout as a duration
func (s ServerConfig) GetReadTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a duration
func (s ServerConfig) GetWriteTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetShutdownTimeout returns the shutdown timeout as a duration
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetHeartbeatInterval returns how often idle connections are pinged
func (s ServerConfig) GetHeartbeatInterval() time.Duration {
	if s.HeartbeatSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.HeartbeatSeconds) * time.Second
}

// IsDevelopment returns true if the server is running in development mode
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development" || s.Environment == ""
}

// FolderConfig holds the watched presentation folder
type FolderConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// Validate validates folder configuration
func (f FolderConfig) Validate() error {
	if f.Path == "" {
		return nil
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return fmt.Errorf("folder %s: %w", f.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("folder %s is not a directory", f.Path)
	}

	return nil
}

// Watcher modes
const (
	WatcherModeFSNotify = "fsnotify"
	WatcherModePoll     = "poll"
)

// WatcherConfig contains folder watcher configuration
type WatcherConfig struct {
	Mode       string `toml:"mode" yaml:"mode"`
	IntervalMs int    `toml:"interval_ms" yaml:"interval_ms"`
	DebounceMs int    `toml:"debounce_ms" yaml:"debounce_ms"`
}

// Validate validates watcher configuration
func (w WatcherConfig) Validate() error {
	switch w.Mode {
	case "", WatcherModeFSNotify, WatcherModePoll:
	default:
		return fmt.Errorf("invalid watcher mode: %s (must be fsnotify or poll)", w.Mode)
	}

	if w.IntervalMs != 0 && w.IntervalMs < 50 {
		return errors.New("watcher interval must be at least 50ms")
	}

	if w.DebounceMs < 0 {
		return errors.New("debounce time must be non-negative")
	}

	return nil
}

// GetMode returns the watcher mode with default
func (w WatcherConfig) GetMode() string {
	if w.Mode == "" {
		return WatcherModeFSNotify
	}
	return w.Mode
}

// GetInterval returns the polling interval as a duration
func (w WatcherConfig) GetInterval() time.Duration {
	if w.IntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(w.IntervalMs) * time.Millisecond
}

// GetDebounce returns the rescan debounce as a duration
func (w WatcherConfig) GetDebounce() time.Duration {
	if w.DebounceMs < 0 {
		return 0
	}
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// DriverConfig configures a single application driver
type DriverConfig struct {
	Enabled  bool `toml:"enabled" yaml:"enabled"`
	LivePoll bool `toml:"live_poll" yaml:"live_poll"`
}

// DriversConfig configures the automation drivers
type DriversConfig struct {
	TimeoutMs  int          `toml:"timeout_ms" yaml:"timeout_ms"`
	Keynote    DriverConfig `toml:"keynote" yaml:"keynote"`
	PowerPoint DriverConfig `toml:"powerpoint" yaml:"powerpoint"`
}

// Validate validates driver configuration
func (d DriversConfig) Validate() error {
	if d.TimeoutMs < 0 {
		return errors.New("driver timeout must be non-negative")
	}
	return nil
}

// GetTimeout returns the hard deadline applied to every automation call
func (d DriversConfig) GetTimeout() time.Duration {
	if d.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// AuthConfig configures where the access token lives
type AuthConfig struct {
	TokenFile string `toml:"token_file" yaml:"token_file"`
}

// LogLevel represents logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `toml:"level" yaml:"level"`             // debug, info, warn, error
	Verbose    bool   `toml:"verbose" yaml:"verbose"`         // Enable verbose logging
	JSONFormat bool   `toml:"json_format" yaml:"json_format"` // Output logs in JSON format
	File       string `toml:"file" yaml:"file"`               // Log to file (optional)
}

// Validate validates logging configuration
func (l LoggingConfig) Validate() error {
	switch LogLevel(l.Level) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	case "":
		// Empty is okay, will use default
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l.Level)
	}

	if l.File != "" {
		if !filepath.IsAbs(l.File) {
			return errors.New("log file path must be absolute")
		}

		dir := filepath.Dir(l.File)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("log file directory does not exist: %s", dir)
		}
	}

	return nil
}

// GetLevel returns the log level with default
func (l LoggingConfig) GetLevel() LogLevel {
	if l.Verbose {
		return LogLevelDebug
	}
	if l.Level == "" {
		return LogLevelInfo
	}
	return LogLevel(l.Level)
}
