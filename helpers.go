package usbrelay

import (
	"fmt"
	"strings"
)

// windowsDevicePrefix is the Win32 device namespace prefix, required for
// COM10 and above.
const windowsDevicePrefix = `\\.\`

func validatePortName(portName string) error {
	// Security: Prevent path traversal attacks
	if strings.Contains(portName, "..") {
		return fmt.Errorf("%w: contains path traversal", ErrInvalidPortName)
	}

	// Security: Reject paths that don't look like serial ports
	if !isValidPortPattern(portName) {
		return fmt.Errorf("%w: %q doesn't match expected pattern", ErrInvalidPortName, portName)
	}
	return nil
}

func isValidPortPattern(portName string) bool {
	// Windows: COM1-COM999, optionally in the \\.\ namespace
	name := strings.TrimPrefix(portName, windowsDevicePrefix)
	if strings.HasPrefix(name, "COM") && len(name) >= 4 && len(name) <= 6 {
		return isDigits(name[3:])
	}
	// Unix/Linux: /dev/tty* or /dev/cu* (macOS)
	if strings.HasPrefix(portName, "/dev/tty") || strings.HasPrefix(portName, "/dev/cu") {
		return true
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
