package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/fredcamaral/slidectl/internal/adapters/secondary/monitoring"
	"github.com/fredcamaral/slidectl/internal/domain/entities"
	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// Server is the remote-control server. Control surfaces connect over
// WebSocket, authenticate with the shared token and issue commands against
// the single presentation session.
type Server struct {
	config  entities.ServerConfig
	session ports.SessionService
	files   ports.FileCatalog
	tokens  ports.TokenStore
	connMgr *ConnectionManager
	limiter *rateLimiter
	monitor *monitoring.Monitor
	clock   ports.TimeProvider
	logger  *slog.Logger

	// gate serializes command execution, the status snapshot taken after it
	// and the broadcast of that snapshot
	gate sync.Mutex

	tokenMu sync.RWMutex
	token   string

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	baseCtx  context.Context
	cancel   context.CancelFunc
	running  bool
}

// NewServer creates a control server. The access token is loaded (or created)
// from tokens immediately.
func NewServer(
	config entities.ServerConfig,
	session ports.SessionService,
	files ports.FileCatalog,
	tokens ports.TokenStore,
	logger *slog.Logger,
) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	token, err := tokens.GetOrCreate()
	if err != nil {
		return nil, fmt.Errorf("loading access token: %w", err)
	}

	clock := ports.NewRealTimeProvider()
	s := &Server{
		config:  config,
		session: session,
		files:   files,
		tokens:  tokens,
		connMgr: NewConnectionManager(clock, logger),
		limiter: newRateLimiter(),
		monitor: monitoring.NewMonitorWithClock(clock.Now),
		clock:   clock,
		logger:  logger.With("service", "control_server"),
		token:   token,
		baseCtx: context.Background(),
	}

	files.OnChange(func(folder string, list []entities.PresentationFile) {
		// the registry calls listeners from its watch goroutine
		go s.notifyFolderChanged(folder, list)
	})

	return s, nil
}

// SetTimeProvider replaces the clock used for heartbeats. Call before Start.
func (s *Server) SetTimeProvider(clock ports.TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
	s.connMgr.clock = clock
}

// Connections exposes the connection manager
func (s *Server) Connections() *ConnectionManager {
	return s.connMgr
}

// Metrics returns a snapshot of command and connection activity
func (s *Server) Metrics() monitoring.Metrics {
	return s.monitor.Snapshot()
}

// Token returns the current access token
func (s *Server) Token() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.token
}

// Start listens on the configured address and serves until Stop or ctx is done
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.baseCtx = runCtx
	s.cancel = cancel
	s.listener = listener

	heartbeat := s.config.GetHeartbeatInterval()
	go s.connMgr.Run(runCtx, heartbeat, pongWait(heartbeat))
	go s.limiter.cleanupRoutine(runCtx)

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.GetReadTimeout(),
		IdleTimeout:       60 * time.Second,
	}
	s.running = true

	go func() {
		s.logger.Info("Control server listening", slog.String("addr", listener.Addr().String()))
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Control server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop closes every connection and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New("server not running")
	}

	s.connMgr.CloseAll()
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.GetShutdownTimeout())
	defer cancel()

	s.running = false
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the listening address, or "" before Start
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler builds the HTTP routes
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoveryMiddleware, s.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.corsMiddleware().Handler, securityHeadersMiddleware, s.rateLimitMiddleware)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/token/rotate", s.handleRotateToken).Methods(http.MethodPost, http.MethodOptions)

	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/", s.handleWebSocket)

	return router
}

func (s *Server) corsMiddleware() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// RotateToken replaces the access token, tells every authenticated client and
// disconnects them. Unauthenticated connections stay open.
func (s *Server) RotateToken() (string, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	token, err := s.tokens.Regenerate()
	if err != nil {
		return "", fmt.Errorf("regenerating token: %w", err)
	}

	s.tokenMu.Lock()
	s.token = token
	s.tokenMu.Unlock()

	closed := s.connMgr.CloseAuthenticated(mustEncode(newTokenChanged()))
	s.logger.Info("Access token rotated", slog.Int("disconnected", closed))
	return token, nil
}

// SetFolder switches the watched folder and pushes the new listing and status
func (s *Server) SetFolder(dir string) {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.session.SetFolder(dir)
	s.connMgr.Broadcast(mustEncode(newFolderChanged(s.files.Folder(), s.files.ListFiles())))
	s.broadcastStatusLocked(s.runContext())
}

// notifyFolderChanged pushes a rescanned folder listing followed by a fresh status
func (s *Server) notifyFolderChanged(folder string, files []entities.PresentationFile) {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.connMgr.Broadcast(mustEncode(newFolderChanged(folder, files)))
	s.broadcastStatusLocked(s.runContext())
}

// broadcastStatusLocked sends a status snapshot to every authenticated client. Caller holds gate.
func (s *Server) broadcastStatusLocked(ctx context.Context) {
	status := s.session.GetStatus(ctx)
	s.connMgr.Broadcast(mustEncode(newStatus(status)))
}

func (s *Server) checkToken(candidate string) bool {
	s.tokenMu.RLock()
	current := s.token
	s.tokenMu.RUnlock()

	return current != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(current)) == 1
}

// runContext returns the context command handling runs under
func (s *Server) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

// Ensure Server implements ports.ControlServer
var _ ports.ControlServer = (*Server)(nil)
