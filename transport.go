package usbrelay

import (
	"errors"
	"fmt"
	"io"
	"time"

	gobug "go.bug.st/serial"
	"go.uber.org/atomic"
)

// Transport is a single-byte serial endpoint. A Driver owns exactly one
// Transport while it is connected.
type Transport interface {
	Open(name string, baud BaudRate) error
	Close() error
	IsOpen() bool
	WriteByte(b byte) error
	// ReadByteTimeout waits at most timeout for one byte and returns
	// ErrReadTimeout if none arrived.
	ReadByteTimeout(timeout time.Duration) (byte, error)
}

// TransportFactory creates an unopened Transport.
type TransportFactory func() Transport

// NewTransport returns an unopened Transport for backend. An empty backend
// selects BackendBugst.
func NewTransport(backend Backend) Transport {
	if backend == BackendTarm {
		return &tarmTransport{}
	}
	return &serialTransport{}
}

// allow tests to override external dependencies
var (
	openPort     = func(name string, mode *gobug.Mode) (portHandle, error) { return gobug.Open(name, mode) }
	getPortsList = gobug.GetPortsList
)

// portHandle is the subset of go.bug.st/serial.Port used by this package.
type portHandle interface {
	SetReadTimeout(timeout time.Duration) error
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

// serialTransport is the go.bug.st/serial backend. The boards use 8N1.
type serialTransport struct {
	handle      portHandle
	isOpen      atomic.Bool
	readTimeout time.Duration
}

func (t *serialTransport) Open(name string, baud BaudRate) (err error) {
	if t.isOpen.Load() && t.handle != nil {
		return nil
	}

	mode := &gobug.Mode{
		BaudRate: baud.Int(),
		DataBits: 8,
		Parity:   gobug.NoParity,
		StopBits: gobug.OneStopBit,
	}

	if t.handle, err = openPort(name, mode); err != nil {
		t.handle = nil
		return fmt.Errorf("opening serial port %s: %w", name, err)
	}

	if err = t.handle.SetReadTimeout(ReceiveTimeout); err != nil {
		return t.handleOpenError(err)
	}
	t.readTimeout = ReceiveTimeout

	t.isOpen.Store(true)
	return nil
}

func (t *serialTransport) Close() error {
	return t.closeHandle()
}

func (t *serialTransport) IsOpen() bool {
	return t.isOpen.Load() && t.handle != nil
}

func (t *serialTransport) WriteByte(b byte) error {
	if !t.IsOpen() {
		return ErrNotConnected
	}
	n, err := t.handle.Write([]byte{b})
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

func (t *serialTransport) ReadByteTimeout(timeout time.Duration) (byte, error) {
	if !t.IsOpen() {
		return 0, ErrNotConnected
	}
	if timeout != t.readTimeout {
		if err := t.handle.SetReadTimeout(timeout); err != nil {
			return 0, err
		}
		t.readTimeout = timeout
	}

	var buf [1]byte
	n, err := t.handle.Read(buf[:])
	if err != nil {
		return 0, err
	}
	// go.bug.st/serial reports a timeout as a zero-length read
	if n == 0 {
		return 0, ErrReadTimeout
	}
	return buf[0], nil
}

// handleOpenError closes the port and joins any error from closing with the original error
func (t *serialTransport) handleOpenError(err error) error {
	if e := t.closeHandle(); e != nil {
		err = errors.Join(err, e)
	}
	return err
}

// closeHandle releases the handle. The transport reports closed afterwards
// even if the OS close failed, since the handle is unusable either way.
func (t *serialTransport) closeHandle() error {
	h := t.handle
	t.handle = nil
	t.isOpen.Store(false)
	if h != nil {
		return h.Close()
	}
	return nil
}

// AvailablePorts lists the serial ports the OS reports.
func AvailablePorts() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
