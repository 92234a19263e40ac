package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidectl/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/token"
)

// writeConfig writes a config file that keeps tokens inside dir
func writeConfig(t *testing.T, dir string, port int) string {
	t.Helper()
	path := filepath.Join(dir, "slidectl.toml")
	content := fmt.Sprintf("[server]\nport = %d\n\n[auth]\ntoken_file = %q\n", port, filepath.Join(dir, "token.toml"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command with args and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// closedPort returns a local port with nothing listening on it
func closedPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func TestCollectFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("folder", "", "")
	cmd.Flags().Int("port", 0, "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().Bool("log-json", false, "")

	require.NoError(t, cmd.ParseFlags([]string{"--folder", "/talks", "--port", "9100", "--verbose"}))

	flags := collectFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"folder":  "/talks",
		"port":    9100,
		"verbose": true,
	}, flags)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, 9200)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", cfgPath, "")
	cmd.Flags().String("host", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--host", "127.0.0.1"}))
	cmd.SetContext(context.Background())

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, filepath.Join(dir, "token.toml"), cfg.Auth.TokenFile)
	assert.Equal(t, 30*time.Second, cfg.Server.GetHeartbeatInterval(), "unset keys keep defaults")
}

func TestApp_Run(t *testing.T) {
	dir := t.TempDir()
	decks := filepath.Join(dir, "decks")
	require.NoError(t, os.Mkdir(decks, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(decks, "keynote.key"), []byte("k"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(decks, "slides.pptx"), []byte("p"), 0o600))

	cfg := config.GetDefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Folder.Path = decks
	cfg.Watcher.Mode = "poll"
	cfg.Auth.TokenFile = filepath.Join(dir, "token.toml")

	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, &out) }()

	require.Eventually(t, a.server.IsRunning, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, a.registry.Count())

	resp, err := http.Get("http://" + a.server.Addr() + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.False(t, a.server.IsRunning())
	assert.Contains(t, out.String(), "Access token: "+a.tokens.Current())
	assert.Contains(t, out.String(), "(2 presentations)")
}

func TestRotateViaServer(t *testing.T) {
	t.Run("server rotates", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/token/rotate", r.URL.Path)
			assert.Equal(t, "Bearer OLDTOKEN", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"token":"NEWTOKEN"}`))
		}))
		defer ts.Close()

		rotated, err := rotateViaServer(context.Background(), ts.URL, "OLDTOKEN")
		require.NoError(t, err)
		assert.Equal(t, "NEWTOKEN", rotated)
	})

	t.Run("server refuses", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid or missing token"}`))
		}))
		defer ts.Close()

		_, err := rotateViaServer(context.Background(), ts.URL, "STALE")
		require.Error(t, err)
		assert.NotErrorIs(t, err, errServerUnavailable)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("no server", func(t *testing.T) {
		_, err := rotateViaServer(context.Background(), "http://127.0.0.1:"+strconv.Itoa(closedPort(t)), "X")
		assert.ErrorIs(t, err, errServerUnavailable)
	})
}

func TestTokenCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, closedPort(t))

	shown, err := execute(t, "token", "show", "--config", cfgPath)
	require.NoError(t, err)
	first := strings.TrimSpace(shown)
	assert.Len(t, first, token.Length)

	again, err := execute(t, "token", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, first, strings.TrimSpace(again), "token is persisted")

	rotated, err := execute(t, "token", "rotate", "--config", cfgPath)
	require.NoError(t, err)
	second := strings.TrimSpace(rotated)
	assert.Len(t, second, token.Length)
	assert.NotEqual(t, first, second)

	stored, err := token.NewFileStore(filepath.Join(dir, "token.toml"), nil).GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, second, stored)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "heartbeat_seconds: 30")

	_, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, 9300)

	out, err := execute(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "port = 9300")
	assert.Contains(t, out, "[drivers.keynote]")
}
