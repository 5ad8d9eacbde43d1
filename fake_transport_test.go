package usbrelay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFakeIO = errors.New("fake i/o error")

// fakeTransport records writes and replays scripted reads.
type fakeTransport struct {
	openErr    error
	neverOpens bool // Open succeeds but IsOpen stays false
	stuckOpen  bool // Close leaves IsOpen true
	failWrite  int  // 1-based write that fails, 0 for none

	open       bool
	opened     []string
	baud       BaudRate
	closeCalls int

	writes   []byte
	reads    []byte
	readErr  error // returned once reads run out; ErrReadTimeout if nil
	timeouts []time.Duration
}

func (f *fakeTransport) Open(name string, baud BaudRate) error {
	f.opened = append(f.opened, name)
	f.baud = baud
	if f.openErr != nil {
		return f.openErr
	}
	f.open = !f.neverOpens
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeCalls++
	if !f.stuckOpen {
		f.open = false
	}
	return nil
}

func (f *fakeTransport) IsOpen() bool { return f.open }

func (f *fakeTransport) WriteByte(b byte) error {
	f.writes = append(f.writes, b)
	if f.failWrite == len(f.writes) {
		return errFakeIO
	}
	return nil
}

func (f *fakeTransport) ReadByteTimeout(timeout time.Duration) (byte, error) {
	f.timeouts = append(f.timeouts, timeout)
	if len(f.reads) == 0 {
		if f.readErr != nil {
			return 0, f.readErr
		}
		return 0, ErrReadTimeout
	}
	b := f.reads[0]
	f.reads = f.reads[1:]
	return b, nil
}

// stubSleep replaces the protocol pauses and records them.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	prev := sleep
	sleep = func(d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleep = prev })
	return &waits
}

func newTestDriver(t *testing.T, relays int, ft *fakeTransport) *Driver {
	t.Helper()
	d, err := New(Config{PortName: "/dev/ttyACM0", RelayCount: relays},
		WithTransportFactory(func() Transport { return ft }))
	require.NoError(t, err)
	return d
}

// connectedDriver returns a connected Driver with sleeps stubbed out.
func connectedDriver(t *testing.T, relays int, ft *fakeTransport) *Driver {
	t.Helper()
	stubSleep(t)
	d := newTestDriver(t, relays, ft)
	require.NoError(t, d.Connect())
	return d
}
