package usbrelay

// HistorySize is the number of bytes each direction's history retains.
const HistorySize = 8

// History is a fixed-capacity byte history. Index 0 is the most recently
// pushed byte; pushing into a full history drops the oldest one. Every slot
// exists from the start and reads as zero until written.
type History struct {
	buf  []byte
	head int // slot holding index 0
}

// NewHistory returns a zeroed history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]byte, capacity)}
}

// Push stores b at index 0, shifting every other byte one slot older.
func (h *History) Push(b byte) {
	h.head--
	if h.head < 0 {
		h.head = len(h.buf) - 1
	}
	h.buf[h.head] = b
}

// At returns the byte i pushes ago. It panics if i is outside [0, Cap()).
func (h *History) At(i int) byte {
	if i < 0 || i >= len(h.buf) {
		panic("usbrelay: history index out of range")
	}
	return h.buf[(h.head+i)%len(h.buf)]
}

// Latest is shorthand for At(0).
func (h *History) Latest() byte {
	return h.buf[h.head]
}

// Cap returns the fixed number of slots.
func (h *History) Cap() int {
	return len(h.buf)
}

// Bytes returns a copy of the history, most recent first.
func (h *History) Bytes() []byte {
	out := make([]byte, len(h.buf))
	n := copy(out, h.buf[h.head:])
	copy(out[n:], h.buf[:h.head])
	return out
}
