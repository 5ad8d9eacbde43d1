package usbrelay

type BaudRate int

func (b BaudRate) Int() int {
	return int(b)
}

const (
	Baud9600   BaudRate = 9600
	Baud115200 BaudRate = 115200
)

const (
	// DefaultBaudRate is the only rate the relay boards speak.
	DefaultBaudRate = Baud9600

	// ProbeBaudRate is used by the Scanner when test-opening candidate ports.
	// USB CDC devices accept any rate, so the value only matters to real UARTs.
	ProbeBaudRate = Baud115200
)
