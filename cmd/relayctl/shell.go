package main

import (
	"fmt"

	"github.com/abiosoft/ishell"
)

const disconnectedPrompt = "[none] > "

var shellCommands = []struct {
	name, help string
}{
	{"scan", "probe candidate ports"},
	{"ports", "list ports reported by the OS"},
	{"init", "connect, identify the board and switch every relay off"},
	{"status", "show the relay state last set in this session (no read-back)"},
	{"set", "MASK  switch all relays from a bit mask (5, 0x81, 0b101)"},
	{"states", "0/1,...  switch all relays, relay 0 first"},
	{"relay", "INDEX on|off  switch one relay"},
	{"off", "switch every relay off"},
	{"connect", "open the port without the handshake"},
	{"disconnect", "close the port"},
}

// newShell builds an ishell session running commands against a.
func newShell(a *app) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt(disconnectedPrompt)

	for _, def := range shellCommands {
		name := def.name
		sh.AddCmd(&ishell.Cmd{
			Name: name,
			Help: def.help,
			Func: func(c *ishell.Context) {
				a.out = shellWriter{c}
				if err := a.runShell(name, c.Args); err != nil {
					c.Err(err)
				}
				updatePrompt(sh, a)
			},
		})
	}
	return sh
}

func updatePrompt(sh *ishell.Shell, a *app) {
	if a.board == nil || !a.board.Connected() {
		sh.SetPrompt(disconnectedPrompt)
		return
	}
	sh.SetPrompt(fmt.Sprintf("[%s %d] > ", a.board.PortName(), a.board.RelayCount()))
}

// shellWriter sends command output through the ishell context.
type shellWriter struct {
	c *ishell.Context
}

func (w shellWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}
