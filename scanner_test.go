package usbrelay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCandidateName(t *testing.T) {
	tests := []struct {
		goos string
		i    int
		want string
		ok   bool
	}{
		{"windows", 1, `\\.\COM1`, true},
		{"windows", 98, `\\.\COM98`, true},
		{"linux", 1, "/dev/ttyACM0", true},
		{"linux", 12, "/dev/ttyACM11", true},
		{"darwin", 1, "", false},
		{"plan9", 1, "", false},
	}

	for _, tt := range tests {
		got, ok := CandidateName(tt.goos, tt.i)
		require.Equal(t, tt.ok, ok, "%s/%d", tt.goos, tt.i)
		require.Equal(t, tt.want, got, "%s/%d", tt.goos, tt.i)
		if ok {
			require.True(t, isValidPortPattern(got), got)
		}
	}
}

// probeTransports hands out fakes that only open the listed names.
func probeTransports(available ...string) (TransportFactory, *[]*fakeTransport) {
	var made []*fakeTransport
	return func() Transport {
		ft := &fakeTransport{openErr: errors.New("no such device")}
		made = append(made, ft)
		return &probeFake{fakeTransport: ft, available: available}
	}, &made
}

type probeFake struct {
	*fakeTransport
	available []string
}

func (p *probeFake) Open(name string, baud BaudRate) error {
	for _, a := range p.available {
		if a == name {
			p.openErr = nil
		}
	}
	return p.fakeTransport.Open(name, baud)
}

func TestScanLinux(t *testing.T) {
	factory, made := probeTransports("/dev/ttyACM3", "/dev/ttyACM0")
	s, err := NewScanner(ScannerConfig{GOOS: "linux"}, WithTransportFactory(factory))
	require.NoError(t, err)

	found := s.Scan()
	require.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyACM3"}, found)
	require.Len(t, *made, DefaultLastIndex-DefaultFirstIndex+1)

	for _, ft := range *made {
		require.Equal(t, ProbeBaudRate, ft.baud)
		if ft.openErr == nil {
			require.Equal(t, 1, ft.closeCalls)
			require.False(t, ft.open)
		}
	}
}

func TestScanWindowsRange(t *testing.T) {
	factory, made := probeTransports(`\\.\COM5`)
	m := &Metrics{}
	s, err := NewScanner(ScannerConfig{GOOS: "windows", First: 3, Last: 6},
		WithTransportFactory(factory), WithMetrics(m))
	require.NoError(t, err)

	require.Equal(t, []string{`\\.\COM5`}, s.Scan())
	require.Len(t, *made, 4)
	require.Equal(t, `\\.\COM3`, (*made)[0].opened[0])
	require.EqualValues(t, 4, m.PortsProbed.Load())
	require.EqualValues(t, 1, m.PortsDiscovered.Load())
}

func TestScanNothingFound(t *testing.T) {
	factory, _ := probeTransports()
	s, err := NewScanner(ScannerConfig{GOOS: "linux", First: 1, Last: 3}, WithTransportFactory(factory))
	require.NoError(t, err)
	require.Empty(t, s.Scan())
}

func TestNewScannerUnsupportedPlatform(t *testing.T) {
	_, err := NewScanner(ScannerConfig{GOOS: "darwin"})
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestNewScannerBadRange(t *testing.T) {
	_, err := NewScanner(ScannerConfig{GOOS: "linux", First: 10, Last: 2})
	require.Error(t, err)
}

func TestAvailablePorts(t *testing.T) {
	prev := getPortsList
	t.Cleanup(func() { getPortsList = prev })

	getPortsList = func() ([]string, error) { return []string{"/dev/ttyACM0", "/dev/ttyUSB0"}, nil }
	ports, err := AvailablePorts()
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyUSB0"}, ports)

	getPortsList = func() ([]string, error) { return nil, errFakeIO }
	_, err = AvailablePorts()
	require.ErrorIs(t, err, errFakeIO)
}
