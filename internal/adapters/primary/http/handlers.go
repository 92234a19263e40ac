package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fredcamaral/slidectl/internal/adapters/secondary/monitoring"
	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

// handleMessage parses and handles one inbound message. A panic while
// handling is contained to this message.
func (s *Server) handleMessage(ctx context.Context, conn *Connection, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered while handling message",
				slog.String("id", conn.ID),
				slog.Any("panic", r),
			)
			s.reply(conn, newError("Internal error while handling command"))
		}
	}()

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(conn, newError("Invalid message format"))
		return
	}
	if msg.Type == "" {
		s.reply(conn, newError("Invalid message: missing type"))
		return
	}

	switch {
	case msg.Type == MsgAuth:
		s.handleAuth(ctx, conn, msg)
		return
	case !conn.IsAuthenticated():
		s.reply(conn, newError("Authentication required"))
		return
	case msg.Type == MsgPing:
		s.reply(conn, newPong(s.clock.Now()))
		return
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	// the token may have been rotated while this message waited for the gate
	if !conn.IsAuthenticated() {
		s.reply(conn, newError("Authentication required"))
		return
	}

	s.dispatch(ctx, conn, msg)
}

// handleAuth checks the supplied token and, on success, promotes the
// connection and pushes the current status
func (s *Server) handleAuth(ctx context.Context, conn *Connection, msg ClientMessage) {
	s.gate.Lock()
	defer s.gate.Unlock()

	if msg.Token == nil || !s.checkToken(*msg.Token) {
		s.logger.Warn("Authentication failed", slog.String("remote", conn.RemoteAddr))
		s.reply(conn, newAuthResult(false, "Invalid token"))
		return
	}

	if !s.connMgr.Authenticate(conn.ID) {
		// connection was closed while waiting
		return
	}

	s.logger.Info("Client authenticated",
		slog.String("id", conn.ID),
		slog.String("remote", conn.RemoteAddr),
	)
	s.reply(conn, newAuthResult(true, "Authenticated"))
	s.reply(conn, newStatus(s.session.GetStatus(ctx)))
}

// dispatch runs an authenticated command. Caller holds gate.
func (s *Server) dispatch(ctx context.Context, conn *Connection, msg ClientMessage) {
	switch msg.Type {
	case MsgStatus:
		s.reply(conn, newStatus(s.session.GetStatus(ctx)))

	case MsgListFiles:
		s.reply(conn, newFileList(s.files.ListFiles()))

	case MsgOpenFile:
		if msg.FilePath == nil || *msg.FilePath == "" {
			s.reply(conn, newError("Missing filePath"))
			return
		}
		path := *msg.FilePath
		s.runOpen(ctx, conn, func(ctx context.Context) entities.FileOpenResult {
			return s.session.OpenFile(ctx, path)
		})

	case MsgNextFile:
		s.runOpen(ctx, conn, s.session.OpenNextFile)

	case MsgPrevFile:
		s.runOpen(ctx, conn, s.session.OpenPrevFile)

	case MsgOpenFileByIndex:
		if msg.Index == nil {
			s.reply(conn, newError("Missing index"))
			return
		}
		index := *msg.Index
		s.runOpen(ctx, conn, func(ctx context.Context) entities.FileOpenResult {
			return s.session.OpenFileByIndex(ctx, index)
		})

	case MsgSlideList:
		slides, err := s.session.GetSlideList(ctx)
		if err != nil {
			s.reply(conn, newError(userMessage(err)))
			return
		}
		s.reply(conn, newSlideList(slides))

	case MsgStart:
		s.runCommand(ctx, conn, msg.Type, s.session.StartPresentation)
	case MsgStop:
		s.runCommand(ctx, conn, msg.Type, s.session.StopPresentation)
	case MsgClose:
		s.runCommand(ctx, conn, msg.Type, s.session.ClosePresentation)
	case MsgNext:
		s.runCommand(ctx, conn, msg.Type, s.session.NextSlide)
	case MsgPrev:
		s.runCommand(ctx, conn, msg.Type, s.session.PrevSlide)

	default:
		s.reply(conn, newError("Unknown message type: "+msg.Type))
	}
}

// runCommand executes a session command, answers the issuer and on success
// broadcasts the resulting status to every authenticated client
func (s *Server) runCommand(ctx context.Context, conn *Connection, command string, op func(context.Context) error) {
	started := s.clock.Now()
	err := op(ctx)
	s.monitor.RecordCommand(s.clock.Since(started), err)

	if err != nil {
		s.logger.Warn("Command failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		s.reply(conn, newError(userMessage(err)))
		return
	}

	s.reply(conn, newCommandResult(command))
	s.broadcastStatusLocked(ctx)
}

// runOpen executes an open request, answers the issuer and broadcasts status
// when it succeeded
func (s *Server) runOpen(ctx context.Context, conn *Connection, open func(context.Context) entities.FileOpenResult) {
	started := s.clock.Now()
	result := open(ctx)

	var failure error
	if !result.Success {
		failure = errors.New(result.Message)
	}
	s.monitor.RecordCommand(s.clock.Since(started), failure)

	result.Message = capitalize(result.Message)
	s.reply(conn, newFileOpened(result))
	if result.Success {
		s.broadcastStatusLocked(ctx)
	}
}

func (s *Server) reply(conn *Connection, msg any) {
	s.connMgr.SendTo(conn, mustEncode(msg))
}

// userMessage renders an error for display on a control surface
func userMessage(err error) string {
	return capitalize(err.Error())
}

func capitalize(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// healthResponse is returned by GET /api/health
type healthResponse struct {
	Status        string             `json:"status"`
	Clients       int                `json:"clients"`
	Authenticated int                `json:"authenticated"`
	Folder        string             `json:"folder"`
	Metrics       monitoring.Metrics `json:"metrics"`
}

// handleHealth reports liveness and connection counts
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, authenticated := s.connMgr.Counts()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Clients:       total,
		Authenticated: authenticated,
		Folder:        s.files.Folder(),
		Metrics:       s.monitor.Snapshot(),
	})
}

// handleRotateToken rotates the token for a local caller presenting the current one
func (s *Server) handleRotateToken(w http.ResponseWriter, r *http.Request) {
	if !isLoopbackRequest(r) {
		s.handleError(w, errors.New("token rotation is only allowed from this machine"), http.StatusForbidden)
		return
	}

	bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || !s.checkToken(strings.TrimSpace(bearer)) {
		s.handleError(w, errors.New("invalid or missing token"), http.StatusUnauthorized)
		return
	}

	token, err := s.RotateToken()
	if err != nil {
		s.handleError(w, err, http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

// handleError writes a JSON error response
func (s *Server) handleError(w http.ResponseWriter, err error, status int) {
	s.logger.Warn("HTTP request failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	s.writeJSON(w, status, map[string]string{"error": userMessage(err)})
}

// isLoopbackRequest reports whether the peer address is a loopback address
func isLoopbackRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
