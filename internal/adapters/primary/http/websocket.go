package http

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// pongWait is how long a connection may stay silent before it is considered dead
func pongWait(heartbeat time.Duration) time.Duration {
	return 2 * heartbeat
}

// createUpgrader creates a WebSocket upgrader with origin validation
func (s *Server) createUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.isValidOrigin(r)
		},
	}
}

// handleWebSocket upgrades the request and starts the connection's pumps
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.createUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	conn := NewConnection(uuid.New().String(), r.RemoteAddr, s.clock.Now())
	s.connMgr.Register(conn)
	s.monitor.RecordConnection()

	// Queued before the pumps start so it is always the first frame out
	s.connMgr.SendTo(conn, mustEncode(newHandshake()))

	heartbeat := s.config.GetHeartbeatInterval()
	go s.writePump(ws, conn, heartbeat)
	go s.readPump(ws, conn, heartbeat)
}

// readPump reads messages and handles them in arrival order
func (s *Server) readPump(ws *websocket.Conn, conn *Connection, heartbeat time.Duration) {
	defer func() {
		s.connMgr.Unregister(conn.ID)
		_ = ws.Close()
	}()

	wait := pongWait(heartbeat)
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(wait))
	ws.SetPongHandler(func(string) error {
		s.connMgr.Touch(conn)
		return ws.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error",
					slog.String("id", conn.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		s.connMgr.Touch(conn)
		_ = ws.SetReadDeadline(time.Now().Add(wait))
		s.handleMessage(s.runContext(), conn, message)
	}
}

// writePump writes queued messages and pings the peer every heartbeat
func (s *Server) writePump(ws *websocket.Conn, conn *Connection, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The queue was closed: by unregister, prune or token rotation
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isValidOrigin accepts native clients (no Origin), loopback and private
// network origins, and the configured origins
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid origin URL", slog.String("origin", origin))
		return false
	}

	if isLocalNetworkHost(originURL.Hostname()) {
		return true
	}

	if s.isAllowedOrigin(originURL) {
		return true
	}

	s.logger.Warn("WebSocket connection rejected: origin not allowed",
		slog.String("origin", originURL.String()),
		slog.Any("allowed_origins", s.config.CORSOrigins),
	)
	return false
}

// isAllowedOrigin matches the configured origins, supporting "*" and "*.domain"
func (s *Server) isAllowedOrigin(originURL *url.URL) bool {
	for _, allowed := range s.config.CORSOrigins {
		if allowed == "*" || originURL.String() == allowed {
			return true
		}

		if strings.HasPrefix(allowed, "*.") {
			domain := strings.TrimPrefix(allowed, "*")
			if strings.HasSuffix(originURL.Hostname(), domain) {
				return true
			}
		}
	}
	return false
}

// isLocalNetworkHost reports loopback names and addresses in private ranges
func isLocalNetworkHost(hostname string) bool {
	if hostname == "localhost" || strings.HasSuffix(hostname, ".local") {
		return true
	}

	ip := net.ParseIP(hostname)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
