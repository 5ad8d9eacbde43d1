package usbrelay

import "fmt"

// SetMask switches every relay at once: bit i of mask set means relay i on.
// 2-relay boards only use the low two bits.
func (d *Driver) SetMask(mask byte) error {
	if err := d.Send(encodingFor(d.relayCount).encode(mask), StateWait); err != nil {
		return err
	}
	d.requested = mask
	d.requestedSet = true
	d.metrics.StateChanges.Inc()
	return nil
}

// SetStates switches every relay from a per-relay list, relay 0 first. The
// list must have one entry per relay. It writes the same byte SetMask
// would for the equivalent mask.
func (d *Driver) SetStates(states []bool) error {
	if d.relayCount == RelayCountUnknown {
		return ErrUnknownBoard
	}
	if len(states) != d.relayCount {
		return fmt.Errorf("%w: got %d, board has %d", ErrStateLength, len(states), d.relayCount)
	}
	return d.SetMask(maskFromStates(states))
}

// SetRelay switches a single relay, leaving the others as last set.
func (d *Driver) SetRelay(index int, on bool) error {
	if d.relayCount == RelayCountUnknown {
		return ErrUnknownBoard
	}
	if index < 0 || index >= d.relayCount {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrRelayIndex, index, d.relayCount)
	}

	mask := d.requested
	if on {
		mask |= 1 << index
	} else {
		mask &^= 1 << index
	}
	return d.SetMask(mask)
}

// AllOff switches every relay off.
func (d *Driver) AllOff() error {
	return d.SetMask(0)
}

// Mask decodes the most recent transmitted byte as a relay mask, bit i set
// meaning relay i on. It does not query the board, and it decodes whatever
// was sent last: right after InitBoard that is CmdAllOff, which a 2-relay
// board's direct encoding reads as 0xFF although every relay is off. Use
// Requested for the state the driver asked for.
func (d *Driver) Mask() byte {
	return encodingFor(d.relayCount).decode(d.tx.Latest())
}

// Requested returns the mask last passed to SetMask, or 0 after a
// successful InitBoard. ok is false until one of those has happened on
// this Driver.
func (d *Driver) Requested() (mask byte, ok bool) {
	return d.requested, d.requestedSet
}
