package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Station-Manager/usbrelay"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	data := `{"driver":{"port_name":"/dev/ttyACM2","relay_count":4,"backend":"tarm"},"scanner":{"first":1,"last":8}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	fc, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM2", fc.Driver.PortName)
	require.Equal(t, 4, fc.Driver.RelayCount)
	require.Equal(t, usbrelay.BackendTarm, fc.Driver.Backend)
	require.Equal(t, 8, fc.Scanner.Last)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	fc, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, fileConfig{}, fc)
}

func TestLoadConfigBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "1", "true"} {
		on, err := parseOnOff(s)
		require.NoError(t, err)
		require.True(t, on, s)
	}
	for _, s := range []string{"off", "0", "false"} {
		on, err := parseOnOff(s)
		require.NoError(t, err)
		require.False(t, on, s)
	}
	_, err := parseOnOff("maybe")
	require.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	a := &app{json: true, out: &buf, logger: zerolog.Nop()}
	require.NoError(t, a.print([]string{"/dev/ttyACM0"}, "ignored"))
	require.Equal(t, "[\"/dev/ttyACM0\"]\n", buf.String())

	buf.Reset()
	a.json = false
	require.NoError(t, a.print(nil, "plain"))
	require.Equal(t, "plain\n", buf.String())
}

func TestRunRejectsUnknownScannerPlatform(t *testing.T) {
	var buf bytes.Buffer
	a := &app{
		cfg:     fileConfig{Scanner: usbrelay.ScannerConfig{GOOS: "plan9"}},
		metrics: &usbrelay.Metrics{},
		logger:  zerolog.Nop(),
		out:     &buf,
	}
	require.ErrorIs(t, a.run("scan", nil), usbrelay.ErrUnsupportedPlatform)
	require.ErrorIs(t, a.run("status", nil), usbrelay.ErrUnsupportedPlatform)
	require.NoError(t, a.close())
}

func TestNewLogger(t *testing.T) {
	_, closer, err := newLogger("debug", "")
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	_, _, err = newLogger("loud", "")
	require.Error(t, err)
}

// wireRecorder is a Transport that records writes and replays reads.
type wireRecorder struct {
	open   bool
	writes []byte
	reads  []byte
}

func (w *wireRecorder) Open(string, usbrelay.BaudRate) error { w.open = true; return nil }
func (w *wireRecorder) Close() error { w.open = false; return nil }
func (w *wireRecorder) IsOpen() bool { return w.open }

func (w *wireRecorder) WriteByte(b byte) error {
	w.writes = append(w.writes, b)
	return nil
}

func (w *wireRecorder) ReadByteTimeout(time.Duration) (byte, error) {
	if len(w.reads) == 0 {
		return 0, usbrelay.ErrReadTimeout
	}
	b := w.reads[0]
	w.reads = w.reads[1:]
	return b, nil
}

func newWiredApp(t *testing.T, relays int, w *wireRecorder) (*app, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	a := &app{
		cfg:     fileConfig{Driver: usbrelay.Config{PortName: "/dev/ttyACM0", RelayCount: relays}},
		metrics: &usbrelay.Metrics{},
		logger:  zerolog.Nop(),
		out:     &buf,
		factory: func() usbrelay.Transport { return w },
	}
	t.Cleanup(func() { require.NoError(t, a.close()) })
	return a, &buf
}

func TestStatusWithKnownRelayCountWritesNothing(t *testing.T) {
	w := &wireRecorder{reads: []byte{usbrelay.ID8Relay}}
	a, out := newWiredApp(t, 8, w)

	require.NoError(t, a.run("status", nil))
	require.Empty(t, w.writes)
	require.Equal(t, "/dev/ttyACM0: connected, 8 relays, mask unknown (no read-back, nothing set yet), on []\n", out.String())
}

func TestStatusWithoutRelayCountRunsHandshake(t *testing.T) {
	w := &wireRecorder{reads: []byte{usbrelay.ID8Relay}}
	a, out := newWiredApp(t, 0, w)

	require.NoError(t, a.run("status", nil))
	require.Equal(t, []byte{usbrelay.CmdIdentify, usbrelay.CmdArm, usbrelay.CmdAllOff}, w.writes)
	require.Contains(t, out.String(), "identified, 8 relays, mask 00000000, on []")
}

func TestInitAlwaysRunsHandshake(t *testing.T) {
	w := &wireRecorder{reads: []byte{usbrelay.ID4Relay}}
	a, _ := newWiredApp(t, 8, w)

	require.NoError(t, a.run("init", nil))
	require.Equal(t, []byte{usbrelay.CmdIdentify, usbrelay.CmdArm, usbrelay.CmdAllOff}, w.writes)
	require.Equal(t, 4, a.board.RelayCount())
}

func TestRelayWithKnownRelayCountWritesOneByte(t *testing.T) {
	w := &wireRecorder{}
	a, out := newWiredApp(t, 8, w)

	require.NoError(t, a.run("relay", []string{"2", "on"}))
	require.Equal(t, []byte{^byte(0b100)}, w.writes)
	require.Contains(t, out.String(), "mask 00000100, on [2]")
}

func TestStatusAfterInitOnTwoRelayBoard(t *testing.T) {
	w := &wireRecorder{reads: []byte{usbrelay.ID2Relay}}
	a, out := newWiredApp(t, 0, w)

	require.NoError(t, a.run("init", nil))
	require.Equal(t, "/dev/ttyACM0: identified, 2 relays, mask 00, on []\n", out.String())

	out.Reset()
	require.NoError(t, a.run("relay", []string{"1", "on"}))
	require.Equal(t, "/dev/ttyACM0: identified, 2 relays, mask 10, on [1]\n", out.String())
}

func TestShellConnectSkipsHandshake(t *testing.T) {
	require.True(t, slices.ContainsFunc(shellCommands, func(c struct{ name, help string }) bool {
		return c.name == "connect"
	}))

	w := &wireRecorder{reads: []byte{usbrelay.ID8Relay}}
	a, out := newWiredApp(t, 0, w)

	require.NoError(t, a.runShell("connect", nil))
	require.True(t, a.board.Connected())
	require.Empty(t, w.writes)
	require.Equal(t, "connected to /dev/ttyACM0\n", out.String())

	require.NoError(t, a.runShell("disconnect", nil))
	require.False(t, a.board.Connected())
	require.False(t, w.open)
}
