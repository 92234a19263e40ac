package http

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// sendBufferSize is the number of outbound messages queued per connection
const sendBufferSize = 64

// Connection is one client socket. Outbound messages are queued on Send and
// written by the connection's write pump.
type Connection struct {
	ID         string
	RemoteAddr string
	Send       chan []byte

	mu            sync.Mutex
	authenticated bool
	lastActivity  time.Time
	closed        bool
}

// NewConnection creates an unauthenticated connection
func NewConnection(id, remoteAddr string, now time.Time) *Connection {
	return &Connection{
		ID:           id,
		RemoteAddr:   remoteAddr,
		Send:         make(chan []byte, sendBufferSize),
		lastActivity: now,
	}
}

// IsAuthenticated reports whether the connection passed auth
func (c *Connection) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// LastActivity returns when the peer was last heard from
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Connection) touch(now time.Time) {
	c.mu.Lock()
	c.lastActivity = now
	c.mu.Unlock()
}

// enqueue queues payload without blocking. It reports false when the
// connection is closed or its buffer is full.
func (c *Connection) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// close revokes authentication and closes Send once. Messages already
// queued are still written.
func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authenticated = false
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ConnectionManager tracks live connections and fans messages out to them
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	clock       ports.TimeProvider
	logger      *slog.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(clock ports.TimeProvider, logger *slog.Logger) *ConnectionManager {
	if clock == nil {
		clock = ports.NewRealTimeProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		clock:       clock,
		logger:      logger.With("component", "connections"),
	}
}

// Register adds a connection
func (cm *ConnectionManager) Register(conn *Connection) {
	cm.mu.Lock()
	cm.connections[conn.ID] = conn
	cm.mu.Unlock()

	cm.logger.Debug("Client connected",
		slog.String("id", conn.ID),
		slog.String("remote", conn.RemoteAddr),
	)
}

// Unregister removes a connection and closes its queue. Unknown ids are ignored.
func (cm *ConnectionManager) Unregister(id string) {
	cm.mu.Lock()
	conn, ok := cm.connections[id]
	if ok {
		delete(cm.connections, id)
	}
	cm.mu.Unlock()

	if ok {
		conn.close()
		cm.logger.Debug("Client disconnected", slog.String("id", id))
	}
}

// Get returns the connection with id
func (cm *ConnectionManager) Get(id string) (*Connection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	conn, ok := cm.connections[id]
	return conn, ok
}

// Authenticate promotes a registered connection. There is no way back.
func (cm *ConnectionManager) Authenticate(id string) bool {
	cm.mu.RLock()
	conn, ok := cm.connections[id]
	cm.mu.RUnlock()
	if !ok {
		return false
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.closed {
		return false
	}
	conn.authenticated = true
	return true
}

// Touch records activity on a connection
func (cm *ConnectionManager) Touch(conn *Connection) {
	conn.touch(cm.clock.Now())
}

// SendTo queues payload for one connection without blocking
func (cm *ConnectionManager) SendTo(conn *Connection, payload []byte) bool {
	if ok := conn.enqueue(payload); !ok {
		cm.logger.Debug("Dropped message for client", slog.String("id", conn.ID))
		return false
	}
	return true
}

// Broadcast queues payload for every authenticated connection and returns how
// many accepted it. A full queue drops the message for that connection only.
func (cm *ConnectionManager) Broadcast(payload []byte) int {
	delivered := 0
	for _, conn := range cm.snapshot() {
		if !conn.IsAuthenticated() {
			continue
		}
		if cm.SendTo(conn, payload) {
			delivered++
		}
	}
	return delivered
}

// CloseAuthenticated queues payload for every authenticated connection, then
// closes and removes each of them. Returns the number of connections closed.
func (cm *ConnectionManager) CloseAuthenticated(payload []byte) int {
	cm.mu.Lock()
	var victims []*Connection
	for id, conn := range cm.connections {
		if conn.IsAuthenticated() {
			victims = append(victims, conn)
			delete(cm.connections, id)
		}
	}
	cm.mu.Unlock()

	for _, conn := range victims {
		if payload != nil && !conn.enqueue(payload) {
			cm.logger.Warn("Dropped close notice for client", slog.String("id", conn.ID))
		}
		conn.close()
	}
	return len(victims)
}

// CloseAll closes all connections
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	conns := cm.connections
	cm.connections = make(map[string]*Connection)
	cm.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// Counts returns the number of connections and how many are authenticated
func (cm *ConnectionManager) Counts() (total, authenticated int) {
	for _, conn := range cm.snapshot() {
		total++
		if conn.IsAuthenticated() {
			authenticated++
		}
	}
	return total, authenticated
}

// Run prunes connections that have been silent longer than staleAfter,
// checking every interval, until ctx is done.
func (cm *ConnectionManager) Run(ctx context.Context, interval, staleAfter time.Duration) {
	ticker := cm.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			cm.Prune(staleAfter)
		}
	}
}

// Prune closes connections idle for longer than staleAfter and returns how many were removed
func (cm *ConnectionManager) Prune(staleAfter time.Duration) int {
	pruned := 0
	for _, conn := range cm.snapshot() {
		if cm.clock.Since(conn.LastActivity()) > staleAfter {
			cm.logger.Info("Pruning unresponsive client",
				slog.String("id", conn.ID),
				slog.String("remote", conn.RemoteAddr),
			)
			cm.Unregister(conn.ID)
			pruned++
		}
	}
	return pruned
}

func (cm *ConnectionManager) snapshot() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conns := make([]*Connection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	return conns
}
