package usbrelay

import (
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks relay communication statistics. Counters are atomic so a
// monitoring goroutine may take snapshots while the driver runs.
type Metrics struct {
	// Connection Statistics
	ConnectionAttempts atomic.Int64
	ConnectionFailures atomic.Int64
	Disconnections     atomic.Int64
	DisconnectFailures atomic.Int64
	LastConnectTime    atomic.Int64 // Unix timestamp of last connect

	// Byte traffic
	BytesWritten atomic.Int64
	WriteErrors  atomic.Int64
	BytesRead    atomic.Int64
	ReadErrors   atomic.Int64
	ReadTimeouts atomic.Int64

	// Board identification
	Handshakes       atomic.Int64 // handshakes that identified a board
	HandshakeErrors  atomic.Int64
	UnknownBoards    atomic.Int64 // identify replies with an unknown code
	StateChanges     atomic.Int64
	PortsProbed      atomic.Int64
	PortsDiscovered  atomic.Int64
	LastErrorTime    atomic.Int64
	ConsecutiveFails atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Timestamp          time.Time `json:"timestamp"`
	ConnectionAttempts int64     `json:"connection_attempts"`
	ConnectionFailures int64     `json:"connection_failures"`
	Disconnections     int64     `json:"disconnections"`
	DisconnectFailures int64     `json:"disconnect_failures"`
	BytesWritten       int64     `json:"bytes_written"`
	WriteErrors        int64     `json:"write_errors"`
	BytesRead          int64     `json:"bytes_read"`
	ReadErrors         int64     `json:"read_errors"`
	ReadTimeouts       int64     `json:"read_timeouts"`
	Handshakes         int64     `json:"handshakes"`
	HandshakeErrors    int64     `json:"handshake_errors"`
	UnknownBoards      int64     `json:"unknown_boards"`
	StateChanges       int64     `json:"state_changes"`
	PortsProbed        int64     `json:"ports_probed"`
	PortsDiscovered    int64     `json:"ports_discovered"`
	ConsecutiveFails   int64     `json:"consecutive_failures"`
	ConnectionSuccess  float64   `json:"connection_success_rate"`
	LastConnectTime    time.Time `json:"last_connect_time"`
	LastErrorTime      time.Time `json:"last_error_time"`
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Timestamp:          time.Now(),
		ConnectionAttempts: m.ConnectionAttempts.Load(),
		ConnectionFailures: m.ConnectionFailures.Load(),
		Disconnections:     m.Disconnections.Load(),
		DisconnectFailures: m.DisconnectFailures.Load(),
		BytesWritten:       m.BytesWritten.Load(),
		WriteErrors:        m.WriteErrors.Load(),
		BytesRead:          m.BytesRead.Load(),
		ReadErrors:         m.ReadErrors.Load(),
		ReadTimeouts:       m.ReadTimeouts.Load(),
		Handshakes:         m.Handshakes.Load(),
		HandshakeErrors:    m.HandshakeErrors.Load(),
		UnknownBoards:      m.UnknownBoards.Load(),
		StateChanges:       m.StateChanges.Load(),
		PortsProbed:        m.PortsProbed.Load(),
		PortsDiscovered:    m.PortsDiscovered.Load(),
		ConsecutiveFails:   m.ConsecutiveFails.Load(),
		ConnectionSuccess:  m.calculateConnectionSuccessRate(),
	}
	if ts := m.LastConnectTime.Load(); ts > 0 {
		s.LastConnectTime = time.Unix(ts, 0)
	}
	if ts := m.LastErrorTime.Load(); ts > 0 {
		s.LastErrorTime = time.Unix(ts, 0)
	}
	return s
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.ConnectionAttempts, &m.ConnectionFailures, &m.Disconnections,
		&m.DisconnectFailures, &m.LastConnectTime, &m.BytesWritten,
		&m.WriteErrors, &m.BytesRead, &m.ReadErrors, &m.ReadTimeouts,
		&m.Handshakes, &m.HandshakeErrors, &m.UnknownBoards, &m.StateChanges,
		&m.PortsProbed, &m.PortsDiscovered, &m.LastErrorTime, &m.ConsecutiveFails,
	} {
		c.Store(0)
	}
}

func (m *Metrics) calculateConnectionSuccessRate() float64 {
	attempts := m.ConnectionAttempts.Load()
	if attempts == 0 {
		return 100.0
	}
	successes := attempts - m.ConnectionFailures.Load()
	return float64(successes) / float64(attempts) * 100
}

func (m *Metrics) recordFailure() {
	m.ConsecutiveFails.Inc()
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *Metrics) resetConsecutiveFailures() {
	m.ConsecutiveFails.Store(0)
}
