package monitoring

import (
	"math"
	"runtime"
	"sync"
	"time"
)

// Metrics is a point-in-time view of server activity
type Metrics struct {
	StartedAt      time.Time `json:"startedAt"`
	UptimeSeconds  int64     `json:"uptimeSeconds"`
	Commands       int64     `json:"commands"`
	FailedCommands int64     `json:"failedCommands"`
	AvgCommandMs   int64     `json:"avgCommandMs"`
	SlowestMs      int64     `json:"slowestCommandMs"`
	Connections    int64     `json:"connections"`
	Goroutines     int       `json:"goroutines"`
	HeapMB         int64     `json:"heapMb"`
}

// Monitor counts commands and connections and tracks how long driver
// commands take
type Monitor struct {
	mu          sync.RWMutex
	startedAt   time.Time
	now         func() time.Time
	commands    int64
	failed      int64
	avgCommand  time.Duration
	slowest     time.Duration
	connections int64
}

// NewMonitor creates a monitor whose uptime starts now
func NewMonitor() *Monitor {
	return NewMonitorWithClock(time.Now)
}

// NewMonitorWithClock creates a monitor reading time from now
func NewMonitorWithClock(now func() time.Time) *Monitor {
	return &Monitor{startedAt: now(), now: now}
}

// RecordCommand records one command and how long it took. A non-nil err
// counts it as failed.
func (m *Monitor) RecordCommand(duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands++
	if err != nil {
		m.failed++
	}

	if m.avgCommand == 0 {
		m.avgCommand = duration
	} else {
		// Exponential moving average
		alpha := 0.1
		m.avgCommand = time.Duration(float64(m.avgCommand)*(1-alpha) + float64(duration)*alpha)
	}

	m.slowest = max(m.slowest, duration)
}

// RecordConnection records an accepted WebSocket connection
func (m *Monitor) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections++
}

// Uptime returns the time since the monitor was created
func (m *Monitor) Uptime() time.Duration {
	return m.now().Sub(m.startedAt)
}

// Snapshot returns the current counters plus runtime memory figures
func (m *Monitor) Snapshot() Metrics {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	defer m.mu.RUnlock()

	return Metrics{
		StartedAt:      m.startedAt,
		UptimeSeconds:  int64(m.Uptime().Seconds()),
		Commands:       m.commands,
		FailedCommands: m.failed,
		AvgCommandMs:   m.avgCommand.Milliseconds(),
		SlowestMs:      m.slowest.Milliseconds(),
		Connections:    m.connections,
		Goroutines:     runtime.NumGoroutine(),
		HeapMB:         safeUint64ToInt64(memStats.HeapAlloc) / (1024 * 1024),
	}
}

// safeUint64ToInt64 converts uint64 to int64, capping at max int64 value
func safeUint64ToInt64(val uint64) int64 {
	if val > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(val)
}
