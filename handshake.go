package usbrelay

import "fmt"

// boardVariants maps identify replies to relay counts.
var boardVariants = map[byte]int{
	ID2Relay: 2,
	ID4Relay: 4,
	ID8Relay: 8,
}

// InitBoard identifies the board and arms it. A recognised reply sets the
// relay count and is followed by CmdArm and CmdAllOff. An unrecognised reply
// is not an error: the relay count keeps its previous value and nothing
// else is sent.
//
// If a follow-up write fails the relay count may already have changed, so
// a failed InitBoard should be retried from the start.
func (d *Driver) InitBoard() error {
	d.identified = false

	if err := d.Send(CmdIdentify, IdentifyWait); err != nil {
		return d.handshakeFailed("identify", err)
	}
	if err := d.Receive(1); err != nil {
		return d.handshakeFailed("identify reply", err)
	}

	code := d.rx.Latest()
	n, ok := boardVariants[code]
	if !ok {
		d.metrics.UnknownBoards.Inc()
		d.logger.Warn().
			Str("port", d.portName).
			Hex("code", []byte{code}).
			Int("relays", d.relayCount).
			Msg("unrecognised board identify code, relay count unchanged")
		return nil
	}
	d.relayCount = n

	for _, b := range []byte{CmdArm, CmdAllOff} {
		if err := d.Send(b, ArmWait); err != nil {
			return d.handshakeFailed("arm", err)
		}
	}

	d.identified = true
	d.requested = 0
	d.requestedSet = true
	d.metrics.Handshakes.Inc()
	d.logger.Info().Str("port", d.portName).Int("relays", n).Msg("relay board identified")
	return nil
}

func (d *Driver) handshakeFailed(step string, err error) error {
	d.metrics.HandshakeErrors.Inc()
	d.logger.Error().Err(err).Str("port", d.portName).Str("step", step).Msg("relay board handshake failed")
	return fmt.Errorf("init board: %s: %w", step, err)
}
