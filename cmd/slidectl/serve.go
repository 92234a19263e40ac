package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/fredcamaral/slidectl/internal/adapters/primary/http"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/config"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/driver"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/logging"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/notes"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/token"
	"github.com/fredcamaral/slidectl/internal/adapters/secondary/watcher"
	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/services"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the remote-control server",
	Long: `Start the WebSocket remote-control server.

Presentation files (.key, .ppt, .pptx, .pptm) in the watched folder are
listed to every connected control surface and kept up to date as files
are added or removed.

Example:
  slidectl serve --folder ~/Talks
  slidectl serve --folder ~/Talks --port 9000 --watch-mode poll`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Defaults come from config loading; flags only override when set
	serveCmd.Flags().StringP("folder", "f", "", "Presentation folder to watch (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().String("watch-mode", "", "Folder watch mode: fsnotify or poll (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	return a.run(cmd.Context(), cmd.OutOrStdout())
}

// app holds the wired server components
type app struct {
	config   *entities.Config
	registry *services.FileRegistry
	session  *services.SessionManager
	tokens   *token.FileStore
	server   *httpadapter.Server
	logger   *slog.Logger
}

// newApp wires the registry, drivers, session and control server from cfg
func newApp(cfg *entities.Config, logger *slog.Logger) (*app, error) {
	registry := services.NewFileRegistry(
		watcher.NewFactory(cfg.Watcher, logger.With("component", "watcher")),
		cfg.Watcher.GetDebounce(),
		logger,
	)

	catalog := driver.NewDefaultCatalog(cfg.Drivers, logger)
	session := services.NewSessionManager(registry, catalog, notes.NewRenderer(), cfg.Drivers.GetTimeout(), logger)
	tokens := newTokenStore(cfg)

	server, err := httpadapter.NewServer(cfg.Server, session, registry, tokens, logger)
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("creating control server: %w", err)
	}

	return &app{
		config:   cfg,
		registry: registry,
		session:  session,
		tokens:   tokens,
		server:   server,
		logger:   logger,
	}, nil
}

// run serves until ctx is cancelled, then shuts everything down
func (a *app) run(ctx context.Context, out io.Writer) error {
	if a.config.Folder.Path != "" {
		a.server.SetFolder(a.config.Folder.Path)
	}

	if err := a.server.Start(ctx); err != nil {
		a.registry.Close()
		return fmt.Errorf("starting server: %w", err)
	}

	printBanner(out, a.server.Addr(), a.server.Token(), a.registry.Folder(), a.registry.Count())

	<-ctx.Done()
	a.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetShutdownTimeout()+time.Second)
	defer cancel()

	a.registry.Close()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}

// printBanner tells the presenter where to point control surfaces
func printBanner(out io.Writer, addr, accessToken, folder string, files int) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		port = addr
	}

	fmt.Fprintf(out, "slidectl listening on %s\n", addr)
	for _, ip := range lanAddresses() {
		fmt.Fprintf(out, "  ws://%s\n", net.JoinHostPort(ip, port))
	}
	fmt.Fprintf(out, "Access token: %s\n", accessToken)
	if folder != "" {
		fmt.Fprintf(out, "Watching %s (%d presentations)\n", folder, files)
	} else {
		fmt.Fprintln(out, "No folder configured; use --folder to list presentations")
	}
}

// lanAddresses returns the non-loopback IPv4 addresses of this machine
func lanAddresses() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var ips []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		ips = append(ips, ipNet.IP.String())
	}
	return ips
}

// loadConfig resolves defaults, config files, SLIDECTL_* variables and flags
func loadConfig(cmd *cobra.Command) (*entities.Config, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	explicitPath, _ := cmd.Flags().GetString("config")

	svc := services.NewConfigService(config.NewTOMLLoader(), config.NewConfigMerger())
	cfg, err := svc.LoadConfig(cmd.Context(), workingDir, explicitPath, collectFlags(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// collectFlags returns the flags the user set explicitly, keyed by name
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range []string{"host", "folder", "watch-mode", "log-level"} {
		if fs.Changed(name) {
			if v, err := fs.GetString(name); err == nil {
				flags[name] = v
			}
		}
	}

	if fs.Changed("port") {
		if v, err := fs.GetInt("port"); err == nil {
			flags["port"] = v
		}
	}

	for _, name := range []string{"verbose", "log-json"} {
		if fs.Changed(name) {
			if v, err := fs.GetBool(name); err == nil {
				flags[name] = v
			}
		}
	}

	return flags
}

func newTokenStore(cfg *entities.Config) *token.FileStore {
	path := cfg.Auth.TokenFile
	if path == "" {
		path = token.DefaultPath()
	}
	return token.NewFileStore(path, nil)
}

func serverURL(cfg *entities.Config) string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.Port))
}
