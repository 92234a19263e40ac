package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) (*TOMLLoader, string) {
	t.Helper()
	tmpDir := t.TempDir()
	return &TOMLLoader{
		globalPath: filepath.Join(tmpDir, "global", "config.toml"),
		localNames: localNames,
	}, tmpDir
}

func TestTOMLLoader_LoadGlobal(t *testing.T) {
	t.Run("creates config on first run", func(t *testing.T) {
		loader, _ := newTestLoader(t)

		config, err := loader.LoadGlobal(context.Background())
		require.NoError(t, err)
		require.NotNil(t, config)

		_, err = os.Stat(loader.GetGlobalPath())
		assert.NoError(t, err)

		assert.Equal(t, "0.0.0.0", config.Server.Host)
		assert.Equal(t, DefaultPort, config.Server.Port)
		assert.Equal(t, "fsnotify", config.Watcher.Mode)
		assert.True(t, config.Drivers.Keynote.LivePoll)
		assert.False(t, config.Drivers.PowerPoint.LivePoll)
	})

	t.Run("loads existing config", func(t *testing.T) {
		loader, _ := newTestLoader(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(loader.globalPath), 0o750))

		configContent := `
[server]
host = "127.0.0.1"
port = 9000

[watcher]
mode = "poll"
interval_ms = 250
`
		require.NoError(t, os.WriteFile(loader.globalPath, []byte(configContent), 0o600))

		config, err := loader.LoadGlobal(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1", config.Server.Host)
		assert.Equal(t, 9000, config.Server.Port)
		assert.Equal(t, "poll", config.Watcher.Mode)
		assert.Equal(t, 250, config.Watcher.IntervalMs)
		// keys missing from the file keep their defaults
		assert.Equal(t, 300, config.Watcher.DebounceMs)
		assert.True(t, config.Drivers.Keynote.LivePoll)
	})

	t.Run("prefers yaml sibling over writing defaults", func(t *testing.T) {
		loader, _ := newTestLoader(t)
		dir := filepath.Dir(loader.globalPath)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9100\n"), 0o600))

		config, err := loader.LoadGlobal(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 9100, config.Server.Port)

		_, err = os.Stat(loader.globalPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("invalid config fails", func(t *testing.T) {
		loader, _ := newTestLoader(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(loader.globalPath), 0o750))
		require.NoError(t, os.WriteFile(loader.globalPath, []byte("[server]\nport = 70000\n"), 0o600))

		_, err := loader.LoadGlobal(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}

func TestTOMLLoader_LoadLocal(t *testing.T) {
	t.Run("missing local config is not an error", func(t *testing.T) {
		loader, dir := newTestLoader(t)

		config, err := loader.LoadLocal(context.Background(), dir)
		assert.NoError(t, err)
		assert.Nil(t, config)
	})

	t.Run("loads toml", func(t *testing.T) {
		loader, dir := newTestLoader(t)
		content := "[drivers]\ntimeout_ms = 2500\n\n[drivers.powerpoint]\nenabled = true\nlive_poll = true\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "slidectl.toml"), []byte(content), 0o600))

		config, err := loader.LoadLocal(context.Background(), dir)
		require.NoError(t, err)
		require.NotNil(t, config)
		assert.Equal(t, 2500, config.Drivers.TimeoutMs)
		assert.True(t, config.Drivers.PowerPoint.LivePoll)
	})

	t.Run("loads yaml", func(t *testing.T) {
		loader, dir := newTestLoader(t)
		content := "logging:\n  level: debug\nwatcher:\n  debounce_ms: 50\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "slidectl.yaml"), []byte(content), 0o600))

		config, err := loader.LoadLocal(context.Background(), dir)
		require.NoError(t, err)
		require.NotNil(t, config)
		assert.Equal(t, "debug", config.Logging.Level)
		assert.Equal(t, 50, config.Watcher.DebounceMs)
	})

	t.Run("malformed toml fails", func(t *testing.T) {
		loader, dir := newTestLoader(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "slidectl.toml"), []byte("[server\nport="), 0o600))

		_, err := loader.LoadLocal(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing TOML")
	})
}

func TestTOMLLoader_LoadFile(t *testing.T) {
	loader, dir := newTestLoader(t)

	_, err := loader.LoadFile(context.Background(), filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  heartbeat_seconds: 5\n"), 0o600))

	config, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, config.Server.HeartbeatSeconds)
}

func TestTOMLLoader_CreateDefaults(t *testing.T) {
	for _, name := range []string{"config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			loader, dir := newTestLoader(t)
			path := filepath.Join(dir, "sub", name)

			require.NoError(t, loader.CreateDefaults(context.Background(), path))

			config, err := loader.LoadFile(context.Background(), path)
			require.NoError(t, err)
			defaults := GetDefaultConfig()
			assert.Equal(t, defaults.Server.Port, config.Server.Port)
			assert.Equal(t, defaults.Watcher, config.Watcher)
			assert.Equal(t, defaults.Drivers, config.Drivers)
			assert.Equal(t, defaults.Logging, config.Logging)
		})
	}
}

func TestTOMLLoader_GetPaths(t *testing.T) {
	loader := NewTOMLLoader()

	assert.Contains(t, loader.GetGlobalPath(), filepath.Join(".config", "slidectl", "config.toml"))
	assert.Equal(t, filepath.Join("/work", "slidectl.toml"), loader.GetLocalPath("/work"))
}
