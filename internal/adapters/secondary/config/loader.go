package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// localNames are checked in order inside the working directory
var localNames = []string{"slidectl.toml", "slidectl.yaml", "slidectl.yml"}

// TOMLLoader implements the ConfigLoader interface using TOML files.
// Files ending in .yaml or .yml are decoded as YAML instead.
type TOMLLoader struct {
	globalPath string
	localNames []string
}

// NewTOMLLoader creates a new configuration loader
func NewTOMLLoader() *TOMLLoader {
	homeDir, _ := os.UserHomeDir()
	globalPath := filepath.Join(homeDir, ".config", "slidectl", "config.toml")

	return &TOMLLoader{
		globalPath: globalPath,
		localNames: localNames,
	}
}

// LoadGlobal loads the global configuration file
func (l *TOMLLoader) LoadGlobal(ctx context.Context) (*entities.Config, error) {
	if _, err := os.Stat(l.globalPath); os.IsNotExist(err) {
		// A YAML global config is honoured when present, otherwise defaults are written on first run
		yamlPath := strings.TrimSuffix(l.globalPath, filepath.Ext(l.globalPath)) + ".yaml"
		if _, err := os.Stat(yamlPath); err == nil {
			return l.loadConfig(yamlPath)
		}

		if err := l.CreateDefaults(ctx, l.globalPath); err != nil {
			return nil, fmt.Errorf("creating defaults: %w", err)
		}
	}

	return l.loadConfig(l.globalPath)
}

// LoadLocal loads a local configuration file from the specified directory
func (l *TOMLLoader) LoadLocal(ctx context.Context, dir string) (*entities.Config, error) {
	for _, name := range l.localNames {
		localPath := filepath.Join(dir, name)
		if _, err := os.Stat(localPath); err == nil {
			return l.loadConfig(localPath)
		}
	}

	return nil, nil // Local config is optional
}

// LoadFile loads an explicitly named configuration file, which must exist
func (l *TOMLLoader) LoadFile(ctx context.Context, path string) (*entities.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return l.loadConfig(path)
}

// CreateDefaults creates a default configuration file at the specified path
func (l *TOMLLoader) CreateDefaults(ctx context.Context, path string) error {
	if err := l.ensureConfigDir(path); err != nil {
		return err
	}

	defaults := GetDefaultConfig()

	file, err := os.Create(path) // #nosec G304 - path is controlled (global config path)
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if isYAML(path) {
		encoder := yaml.NewEncoder(file)
		encoder.SetIndent(2)
		defer func() { _ = encoder.Close() }()
		if err := encoder.Encode(defaults); err != nil {
			return fmt.Errorf("encoding config to %s: %w", path, err)
		}
		return nil
	}

	encoder := toml.NewEncoder(file)
	encoder.Indent = "  "

	if err := encoder.Encode(defaults); err != nil {
		return fmt.Errorf("encoding config to %s: %w", path, err)
	}

	return nil
}

// GetGlobalPath returns the path to the global configuration file
func (l *TOMLLoader) GetGlobalPath() string {
	return l.globalPath
}

// GetLocalPath returns the primary local configuration path for a directory
func (l *TOMLLoader) GetLocalPath(dir string) string {
	return filepath.Join(dir, l.localNames[0])
}

// loadConfig decodes a configuration file on top of the defaults and validates it.
// Keys absent from the file keep their default values.
func (l *TOMLLoader) loadConfig(path string) (*entities.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is from controlled sources (global/local/flag)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := GetDefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing YAML from %s: %w", path, err)
		}
	} else {
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing TOML from %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return config, nil
}

// ensureConfigDir ensures the configuration directory exists
func (l *TOMLLoader) ensureConfigDir(path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Ensure TOMLLoader implements ports.ConfigLoader
var _ ports.ConfigLoader = (*TOMLLoader)(nil)
