package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Station-Manager/usbrelay"
)

const usageText = `usage: relayctl [flags] COMMAND [ARGS]

commands:
  scan                 probe candidate ports for relay boards
  ports                list serial ports reported by the OS
  init                 connect, identify the board (switches every relay off)
  status               print the board status; the boards have no read-back,
                       so the relay mask is only known after init or a set
  set MASK             switch all relays from a bit mask (5, 0x81, 0b101)
  states 1,0,...       switch all relays, relay 0 first
  relay INDEX on|off   switch one relay; others follow the last mask set
                       in this session (all off in a fresh invocation)
  off                  switch every relay off
  shell                interactive session, adds connect and disconnect

flags:
`

func main() {
	device := flag.String("device", "", "serial device path (default: first scanned port)")
	relays := flag.Int("relays", 0, "relay count (2, 4 or 8); when set, only init runs the handshake")
	backend := flag.String("backend", "", "serial backend: bugst or tarm")
	configPath := flag.String("config", "", "JSON config file")
	jsonOut := flag.Bool("json", false, "print output as JSON")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "also write JSON logs to this rotated file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger, logCloser, err := newLogger(*logLevel, *logFile)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	defer logCloser.Close()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Driver.PortName = *device
		case "relays":
			cfg.Driver.RelayCount = *relays
		case "backend":
			cfg.Driver.Backend = usbrelay.Backend(*backend)
			cfg.Scanner.Backend = usbrelay.Backend(*backend)
		}
	})

	a := &app{
		cfg:     cfg,
		metrics: &usbrelay.Metrics{},
		logger:  logger,
		json:    *jsonOut,
		out:     os.Stdout,
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "shell" {
		sh := newShell(a)
		sh.Println("relayctl shell, type help for commands")
		sh.Run()
		sh.Close()
		err = a.close()
	} else {
		err = a.run(cmd, args)
		if closeErr := a.close(); err == nil {
			err = closeErr
		}
	}

	if err != nil {
		logger.Error().Err(err).Str("command", cmd).Msg("relayctl failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		logCloser.Close()
		os.Exit(1)
	}
}
