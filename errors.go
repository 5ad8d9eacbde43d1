package usbrelay

import "errors"

// Error kinds returned by the driver. Operations wrap the underlying cause
// together with one of these, so errors.Is works for both.
var (
	ErrConnect    = errors.New("usbrelay: connect failed")
	ErrDisconnect = errors.New("usbrelay: disconnect failed")
	ErrIO         = errors.New("usbrelay: i/o failed")
)

var (
	ErrNotConnected        = errors.New("usbrelay: not connected")
	ErrReadTimeout         = errors.New("usbrelay: read timed out")
	ErrUnknownBoard        = errors.New("usbrelay: board variant unknown")
	ErrStateLength         = errors.New("usbrelay: state count does not match relay count")
	ErrRelayIndex          = errors.New("usbrelay: relay index out of range")
	ErrInvalidPortName     = errors.New("usbrelay: invalid port name")
	ErrUnsupportedPlatform = errors.New("usbrelay: platform has no candidate port names")
)
