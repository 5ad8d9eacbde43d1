package usbrelay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

var openTarmPort = func(cfg *serial.Config) (io.ReadWriteCloser, error) { return serial.OpenPort(cfg) }

// tarmTransport is the github.com/tarm/serial backend. tarm fixes the read
// timeout when the port is opened, so every read waits ReceiveTimeout
// regardless of the timeout passed to ReadByteTimeout.
type tarmTransport struct {
	port io.ReadWriteCloser
}

func (t *tarmTransport) Open(name string, baud BaudRate) error {
	if t.port != nil {
		return nil
	}
	p, err := openTarmPort(&serial.Config{
		Name:        name,
		Baud:        baud.Int(),
		ReadTimeout: ReceiveTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening serial port %s: %w", name, err)
	}
	t.port = p
	return nil
}

func (t *tarmTransport) Close() error {
	p := t.port
	t.port = nil
	if p != nil {
		return p.Close()
	}
	return nil
}

func (t *tarmTransport) IsOpen() bool {
	return t.port != nil
}

func (t *tarmTransport) WriteByte(b byte) error {
	if t.port == nil {
		return ErrNotConnected
	}
	n, err := t.port.Write([]byte{b})
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

func (t *tarmTransport) ReadByteTimeout(time.Duration) (byte, error) {
	if t.port == nil {
		return 0, ErrNotConnected
	}
	var buf [1]byte
	n, err := t.port.Read(buf[:])
	if n == 1 {
		return buf[0], nil
	}
	// posix builds surface an expired VTIME as io.EOF, windows as (0, nil)
	if err == nil || errors.Is(err, io.EOF) {
		return 0, ErrReadTimeout
	}
	return 0, err
}
