package usbrelay

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
)

// CandidateName returns the port name probed for index i on goos. Only
// windows and linux have a naming scheme.
func CandidateName(goos string, i int) (string, bool) {
	switch goos {
	case "windows":
		return windowsDevicePrefix + "COM" + strconv.Itoa(i), true
	case "linux":
		return "/dev/ttyACM" + strconv.Itoa(i-1), true
	default:
		return "", false
	}
}

// Scanner looks for ports that might have a relay board attached.
type Scanner struct {
	goos    string
	first   int
	last    int
	baud    BaudRate
	factory TransportFactory
	logger  zerolog.Logger
	metrics *Metrics
}

// NewScanner creates a Scanner. A zero ScannerConfig probes indices
// DefaultFirstIndex..DefaultLastIndex on the running platform.
func NewScanner(cfg ScannerConfig, opts ...Option) (*Scanner, error) {
	if err := ValidateScannerConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid scanner configuration: %w", err)
	}
	cfg = cfg.withDefaults()
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if _, ok := CandidateName(cfg.GOOS, cfg.First); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, cfg.GOOS)
	}
	s := newSettings(cfg.Backend, opts)

	return &Scanner{
		goos:    cfg.GOOS,
		first:   cfg.First,
		last:    cfg.Last,
		baud:    ProbeBaudRate,
		factory: s.factory,
		logger:  s.logger,
		metrics: s.metrics,
	}, nil
}

// Scan test-opens every candidate port and returns, in index order, the
// names that opened. A name in the result only means the open call
// succeeded; InitBoard tells whether a relay board is behind it.
func (s *Scanner) Scan() []string {
	var found []string
	for i := s.first; i <= s.last; i++ {
		name, _ := CandidateName(s.goos, i)
		if s.probe(name) {
			found = append(found, name)
		}
	}
	s.logger.Info().Strs("ports", found).Msg("relay port scan complete")
	return found
}

func (s *Scanner) probe(name string) bool {
	s.metrics.PortsProbed.Inc()
	t := s.factory()
	if err := t.Open(name, s.baud); err != nil {
		s.logger.Debug().Err(err).Str("port", name).Msg("probe failed")
		return false
	}
	if err := t.Close(); err != nil {
		s.logger.Warn().Err(err).Str("port", name).Msg("error closing probed port")
	}
	s.metrics.PortsDiscovered.Inc()
	return true
}
