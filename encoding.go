package usbrelay

import "strconv"

// encoding maps a relay mask (bit i set = relay i on) to the byte the board
// expects, and back.
type encoding interface {
	encode(mask byte) byte
	decode(wire byte) byte
}

// directEncoding is used by 2-relay boards: the low two bits are the relays
// and 1 means on.
type directEncoding struct{}

func (directEncoding) encode(mask byte) byte { return mask & 0b11 }
func (directEncoding) decode(wire byte) byte { return wire }

// invertedEncoding is used by 4 and 8-relay boards, which switch a relay on
// when its bit is 0.
type invertedEncoding struct{}

func (invertedEncoding) encode(mask byte) byte { return ^mask }
func (invertedEncoding) decode(wire byte) byte { return ^wire }

// encodingFor picks the encoding for a board with n relays. Anything but a
// 2-relay board, including one not yet identified, uses inverted logic.
func encodingFor(n int) encoding {
	if n == 2 {
		return directEncoding{}
	}
	return invertedEncoding{}
}

// maskFromStates folds per-relay states into a mask, highest relay first,
// so that bit i is states[i].
func maskFromStates(states []bool) byte {
	var mask byte
	for i := len(states) - 1; i >= 0; i-- {
		mask <<= 1
		if states[i] {
			mask |= 1
		}
	}
	return mask
}

// FormatMask renders b as eight binary digits, relay 7 first.
func FormatMask(b byte) string {
	s := strconv.FormatUint(uint64(b), 2)
	return "00000000"[len(s):] + s
}

// ParseStates reads a per-relay state list such as "1,0,0,1" or "1001"
// (relay 0 first).
func ParseStates(s string) ([]bool, error) {
	var states []bool
	for _, r := range s {
		switch r {
		case '1':
			states = append(states, true)
		case '0':
			states = append(states, false)
		case ',', ' ':
		default:
			return nil, &strconv.NumError{Func: "ParseStates", Num: s, Err: strconv.ErrSyntax}
		}
	}
	return states, nil
}
