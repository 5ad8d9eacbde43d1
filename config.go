package usbrelay

import (
	"github.com/rs/zerolog"
)

// Backend selects the serial library a Transport is built on.
type Backend string

const (
	// BackendBugst uses go.bug.st/serial. This is the default.
	BackendBugst Backend = "bugst"
	// BackendTarm uses github.com/tarm/serial.
	BackendTarm Backend = "tarm"
)

const (
	// RelayCountUnknown is the relay count of a driver that has not been
	// identified and was given no guess.
	RelayCountUnknown = 0

	// DefaultFirstIndex and DefaultLastIndex bound the Scanner's probe range.
	DefaultFirstIndex = 1
	DefaultLastIndex  = 98
)

// Config holds the settings for a Driver.
type Config struct {
	// PortName is the serial device, e.g. /dev/ttyACM0 or COM3.
	PortName string `json:"port_name" validate:"required,serialport"`

	// RelayCount is an initial guess of the board size. InitBoard replaces
	// it with the detected value.
	RelayCount int `json:"relay_count" validate:"oneof=0 2 4 8"`

	Backend Backend `json:"backend" validate:"omitempty,oneof=bugst tarm"`
}

// ScannerConfig holds the settings for a Scanner.
type ScannerConfig struct {
	// GOOS selects the candidate naming scheme. Empty means runtime.GOOS.
	GOOS string `json:"goos"`

	// First and Last bound the probed indices, both inclusive. Zero selects
	// the defaults.
	First int `json:"first" validate:"min=0,max=999"`
	Last  int `json:"last" validate:"omitempty,max=999,gtefield=First"`

	Backend Backend `json:"backend" validate:"omitempty,oneof=bugst tarm"`
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendBugst
	}
	return c
}

func (c ScannerConfig) withDefaults() ScannerConfig {
	if c.First == 0 {
		c.First = DefaultFirstIndex
	}
	if c.Last == 0 {
		c.Last = max(DefaultLastIndex, c.First)
	}
	if c.Backend == "" {
		c.Backend = BackendBugst
	}
	return c
}

// Option customises a Driver or Scanner.
type Option func(*settings)

type settings struct {
	logger  zerolog.Logger
	factory TransportFactory
	metrics *Metrics
}

func newSettings(backend Backend, opts []Option) settings {
	s := settings{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.factory == nil {
		s.factory = func() Transport { return NewTransport(backend) }
	}
	if s.metrics == nil {
		s.metrics = &Metrics{}
	}
	return s
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithTransportFactory replaces the backend selected in the config.
func WithTransportFactory(f TransportFactory) Option {
	return func(s *settings) { s.factory = f }
}

// WithMetrics shares a Metrics instance, e.g. between a Scanner and Driver.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}
