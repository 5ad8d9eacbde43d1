// Package usbrelay drives the 2, 4 and 8-relay USB boards that speak the
// single-byte 0x50/0x51 serial protocol.
//
// A Driver is not safe for concurrent use. Every operation blocks for the
// settle time the hardware needs before it returns.
package usbrelay

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Protocol timings. The boards latch slowly, so every write is followed by
// a fixed pause.
const (
	SettleDelay    = time.Millisecond
	IdentifyWait   = 200 * time.Millisecond
	ArmWait        = 10 * time.Millisecond
	StateWait      = 50 * time.Millisecond
	ReceiveTimeout = 500 * time.Millisecond
)

// Wire protocol bytes.
const (
	CmdIdentify byte = 0x50
	CmdArm      byte = 0x51
	CmdAllOff   byte = 0xFF

	ID2Relay byte = 0xAD
	ID4Relay byte = 0xAB
	ID8Relay byte = 0xAC
)

// allow tests to skip the protocol pauses
var sleep = time.Sleep

// State is the connection state of a Driver.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateIdentified
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Driver controls one relay board.
type Driver struct {
	portName   string
	baudRate   BaudRate
	relayCount int
	identified bool

	// requested is the last mask passed to SetMask; SetRelay edits it.
	requested    byte
	requestedSet bool

	conn *connection
	rx   *History
	tx   *History

	factory TransportFactory
	logger  zerolog.Logger
	metrics *Metrics
}

// connection holds the transport apart from the Driver so the runtime
// cleanup can close it without keeping the Driver reachable.
type connection struct {
	t Transport
}

// New creates a disconnected Driver.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid driver configuration: %w", err)
	}
	cfg = cfg.withDefaults()
	s := newSettings(cfg.Backend, opts)

	d := &Driver{
		portName:   cfg.PortName,
		baudRate:   DefaultBaudRate,
		relayCount: cfg.RelayCount,
		conn:       &connection{},
		rx:         NewHistory(HistorySize),
		tx:         NewHistory(HistorySize),
		factory:    s.factory,
		logger:     s.logger,
		metrics:    s.metrics,
	}
	runtime.AddCleanup(d, func(c *connection) {
		if c.t != nil {
			_ = c.t.Close()
		}
	}, d.conn)
	return d, nil
}

// Connect opens the port. Calling it on a connected Driver does nothing.
func (d *Driver) Connect() error {
	if d.conn.t != nil {
		return nil
	}
	d.metrics.ConnectionAttempts.Inc()

	t := d.factory()
	if err := t.Open(d.portName, d.baudRate); err != nil {
		_ = t.Close()
		return d.connectFailed(err)
	}
	sleep(SettleDelay)
	if !t.IsOpen() {
		_ = t.Close()
		return d.connectFailed(errors.New("port did not report open"))
	}

	d.conn.t = t
	d.metrics.LastConnectTime.Store(time.Now().Unix())
	d.metrics.resetConsecutiveFailures()
	d.logger.Info().Str("port", d.portName).Int("baud", d.baudRate.Int()).Msg("relay board connected")
	return nil
}

func (d *Driver) connectFailed(err error) error {
	d.metrics.ConnectionFailures.Inc()
	d.metrics.recordFailure()
	d.logger.Error().Err(err).Str("port", d.portName).Msg("relay board connect failed")
	return fmt.Errorf("%w: %s: %w", ErrConnect, d.portName, err)
}

// Disconnect closes the port. On a disconnected Driver it does nothing and
// returns nil. If the port still reports open afterwards the Driver keeps
// the transport so Disconnect can be retried.
func (d *Driver) Disconnect() error {
	t := d.conn.t
	if t == nil {
		return nil
	}

	closeErr := t.Close()
	if t.IsOpen() {
		d.metrics.DisconnectFailures.Inc()
		d.metrics.recordFailure()
		if closeErr != nil {
			return fmt.Errorf("%w: %s still open: %w", ErrDisconnect, d.portName, closeErr)
		}
		return fmt.Errorf("%w: %s still open", ErrDisconnect, d.portName)
	}
	if closeErr != nil {
		d.logger.Warn().Err(closeErr).Str("port", d.portName).Msg("error closing port")
	}

	d.conn.t = nil
	d.identified = false
	d.metrics.Disconnections.Inc()
	d.logger.Info().Str("port", d.portName).Msg("relay board disconnected")
	return nil
}

// Close implements io.Closer by disconnecting.
func (d *Driver) Close() error {
	return d.Disconnect()
}

// Connected reports whether the Driver holds an open transport.
func (d *Driver) Connected() bool {
	return d.conn.t != nil
}

// State reports the lifecycle state.
func (d *Driver) State() State {
	switch {
	case d.conn.t == nil:
		return StateDisconnected
	case d.identified:
		return StateIdentified
	default:
		return StateConnected
	}
}

// Send writes one byte and then waits for wait, whether or not the write
// succeeded. The byte is recorded in the transmit history before writing.
func (d *Driver) Send(b byte, wait time.Duration) error {
	t := d.conn.t
	if t == nil {
		return fmt.Errorf("%w: %w", ErrIO, ErrNotConnected)
	}

	d.tx.Push(b)
	err := t.WriteByte(b)
	sleep(wait)
	if err != nil {
		d.metrics.WriteErrors.Inc()
		d.metrics.recordFailure()
		return fmt.Errorf("%w: writing 0x%02X: %w", ErrIO, b, err)
	}

	d.metrics.BytesWritten.Inc()
	d.logger.Debug().Str("port", d.portName).Hex("tx", []byte{b}).Msg("sent")
	return nil
}

// Receive reads n bytes, waiting up to ReceiveTimeout for each. Bytes are
// pushed onto the receive history as they arrive; on failure the bytes
// already read stay there.
func (d *Driver) Receive(n int) error {
	t := d.conn.t
	if t == nil {
		return fmt.Errorf("%w: %w", ErrIO, ErrNotConnected)
	}

	for i := 0; i < n; i++ {
		b, err := t.ReadByteTimeout(ReceiveTimeout)
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				d.metrics.ReadTimeouts.Inc()
			} else {
				d.metrics.ReadErrors.Inc()
			}
			d.metrics.recordFailure()
			return fmt.Errorf("%w: reading byte %d of %d: %w", ErrIO, i+1, n, err)
		}
		d.rx.Push(b)
		d.metrics.BytesRead.Inc()
		d.logger.Debug().Str("port", d.portName).Hex("rx", []byte{b}).Msg("received")
	}
	return nil
}

// PortName returns the configured port.
func (d *Driver) PortName() string {
	return d.portName
}

// SetPortName changes the port used by the next Connect. An open
// connection is not affected.
func (d *Driver) SetPortName(name string) error {
	if err := validatePortName(name); err != nil {
		return err
	}
	d.portName = name
	return nil
}

// BaudRate returns the line speed, which the protocol fixes.
func (d *Driver) BaudRate() BaudRate {
	return d.baudRate
}

// RelayCount returns the detected board size, or the initial guess
// (RelayCountUnknown if none) before a successful InitBoard.
func (d *Driver) RelayCount() int {
	return d.relayCount
}

// LastReceived returns the most recently received byte.
func (d *Driver) LastReceived() byte {
	return d.rx.Latest()
}

// RxHistory returns the receive history, most recent first.
func (d *Driver) RxHistory() []byte {
	return d.rx.Bytes()
}

// TxHistory returns the transmit history, most recent first.
func (d *Driver) TxHistory() []byte {
	return d.tx.Bytes()
}

// Metrics returns the Driver's counters.
func (d *Driver) Metrics() *Metrics {
	return d.metrics
}
