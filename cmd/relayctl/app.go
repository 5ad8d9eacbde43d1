package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Station-Manager/usbrelay"
)

// fileConfig is the layout of the -config file.
type fileConfig struct {
	Driver  usbrelay.Config        `json:"driver"`
	Scanner usbrelay.ScannerConfig `json:"scanner"`
}

func loadConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err = json.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// app holds one board session shared by the one-shot commands and the shell.
type app struct {
	cfg     fileConfig
	board   *usbrelay.Driver
	metrics *usbrelay.Metrics
	logger  zerolog.Logger
	json    bool
	out     io.Writer

	// factory overrides the configured backend when set.
	factory usbrelay.TransportFactory
}

// status is what the status command reports. Mask and On are empty until
// this session has set the relays or run the handshake, since the boards
// cannot be read back.
type status struct {
	Port    string                   `json:"port"`
	State   string                   `json:"state"`
	Relays  int                      `json:"relays"`
	Mask    string                   `json:"mask,omitempty"`
	On      []int                    `json:"on"`
	Tx      string                   `json:"tx_history"`
	Rx      string                   `json:"rx_history"`
	Metrics usbrelay.MetricsSnapshot `json:"metrics"`
}

func (a *app) options() []usbrelay.Option {
	opts := []usbrelay.Option{usbrelay.WithLogger(a.logger), usbrelay.WithMetrics(a.metrics)}
	if a.factory != nil {
		opts = append(opts, usbrelay.WithTransportFactory(a.factory))
	}
	return opts
}

func (a *app) scanner() (*usbrelay.Scanner, error) {
	return usbrelay.NewScanner(a.cfg.Scanner, a.options()...)
}

// connect creates the driver if needed, picking the first scanned port
// when none is configured, and opens the port without talking to the board.
func (a *app) connect() error {
	if a.board == nil {
		cfg := a.cfg.Driver
		if cfg.PortName == "" {
			s, err := a.scanner()
			if err != nil {
				return err
			}
			ports := s.Scan()
			if len(ports) == 0 {
				return errors.New("no relay board found, use -device")
			}
			cfg.PortName = ports[0]
		}
		board, err := usbrelay.New(cfg, a.options()...)
		if err != nil {
			return err
		}
		a.board = board
	}
	return a.board.Connect()
}

// open connects and runs the handshake when handshake is set or the relay
// count is still unknown. The handshake switches every relay off, so
// commands that only need the relay count skip it when -relays or the
// config file supplies one.
func (a *app) open(handshake bool) error {
	if err := a.connect(); err != nil {
		return err
	}
	if !handshake && a.board.RelayCount() != usbrelay.RelayCountUnknown {
		return nil
	}
	if err := a.board.InitBoard(); err != nil {
		return err
	}
	if a.board.State() != usbrelay.StateIdentified {
		a.logger.Warn().Str("port", a.board.PortName()).Msg("board did not identify itself")
	}
	return nil
}

func (a *app) close() error {
	if a.board == nil {
		return nil
	}
	return a.board.Disconnect()
}

// run executes one command.
func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "ports":
		ports, err := usbrelay.AvailablePorts()
		if err != nil {
			return err
		}
		return a.print(ports, strings.Join(ports, "\n"))
	case "scan":
		s, err := a.scanner()
		if err != nil {
			return err
		}
		ports := s.Scan()
		return a.print(ports, strings.Join(ports, "\n"))
	}

	if err := a.open(cmd == "init"); err != nil {
		return err
	}

	switch cmd {
	case "init", "status":
	case "set":
		if len(args) != 1 {
			return errors.New("usage: set MASK")
		}
		mask, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return fmt.Errorf("bad mask %q: %w", args[0], err)
		}
		if err = a.board.SetMask(byte(mask)); err != nil {
			return err
		}
	case "states":
		if len(args) == 0 {
			return errors.New("usage: states 1,0,...")
		}
		states, err := usbrelay.ParseStates(strings.Join(args, ","))
		if err != nil {
			return err
		}
		if err = a.board.SetStates(states); err != nil {
			return err
		}
	case "relay":
		if len(args) != 2 {
			return errors.New("usage: relay INDEX on|off")
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad relay index %q: %w", args[0], err)
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		if err = a.board.SetRelay(index, on); err != nil {
			return err
		}
	case "off":
		if err := a.board.AllOff(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return a.printStatus()
}

// runShell adds the session commands only the shell has.
func (a *app) runShell(cmd string, args []string) error {
	switch cmd {
	case "connect":
		if err := a.connect(); err != nil {
			return err
		}
		return a.print(a.board.PortName(), "connected to "+a.board.PortName())
	case "disconnect":
		return a.close()
	}
	return a.run(cmd, args)
}

func (a *app) printStatus() error {
	b := a.board
	n := b.RelayCount()
	st := status{
		Port:    b.PortName(),
		State:   b.State().String(),
		Relays:  n,
		On:      []int{},
		Tx:      fmt.Sprintf("% X", b.TxHistory()),
		Rx:      fmt.Sprintf("% X", b.RxHistory()),
		Metrics: a.metrics.Snapshot(),
	}

	mask, ok := b.Requested()
	if ok {
		st.Mask = usbrelay.FormatMask(mask)
		if n > 0 && n < 8 {
			st.Mask = st.Mask[8-n:]
		}
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				st.On = append(st.On, i)
			}
		}
	}

	shown := st.Mask
	if !ok {
		shown = "unknown (no read-back, nothing set yet)"
	}
	text := fmt.Sprintf("%s: %s, %d relays, mask %s, on %v", st.Port, st.State, st.Relays, shown, st.On)
	return a.print(st, text)
}

func (a *app) print(v any, text string) error {
	if !a.json {
		_, err := fmt.Fprintln(a.out, text)
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(out))
	return err
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("bad relay state %q (use on or off)", s)
}
