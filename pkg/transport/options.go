package transport

import (
	"fmt"
	"strings"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	tserial "github.com/tarm/serial"
	"go.bug.st/serial"
)

const (
	DriverBugst   = "bugst"
	DriverJacobsa = "jacobsa"
	DriverTarm    = "tarm"
)

// PortOptions describes how to open a serial port.
type PortOptions struct {
	Driver      string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	ReadTimeout time.Duration
}

// DefaultPortOptions matches the link used between the reader host and the
// lock brain.
func DefaultPortOptions() PortOptions {
	return PortOptions{
		Driver:      DriverBugst,
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		ReadTimeout: 10 * time.Millisecond,
	}
}

// Normalize validates the options and applies defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", DriverBugst:
		opts.Driver = DriverBugst
	case DriverJacobsa, DriverTarm:
		opts.Driver = driver
	default:
		return opts, fmt.Errorf("unsupported serial driver %q: expected %s, %s or %s", opts.Driver, DriverBugst, DriverJacobsa, DriverTarm)
	}

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Millisecond
	}

	return opts, nil
}

// SerialMode converts the options for go.bug.st/serial.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode, nil
}

// JacobsaOptions converts the options for github.com/jacobsa/go-serial.
// That driver only supports inter-character timeouts in 100ms steps, so the
// read timeout is rounded up.
func (o PortOptions) JacobsaOptions(path string) (jserial.OpenOptions, error) {
	opts, err := o.Normalize()
	if err != nil {
		return jserial.OpenOptions{}, err
	}

	timeoutMs := uint(opts.ReadTimeout / time.Millisecond)
	if timeoutMs < 100 {
		timeoutMs = 100
	}
	timeoutMs = (timeoutMs + 99) / 100 * 100

	options := jserial.OpenOptions{
		PortName:              path,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              uint(opts.DataBits),
		StopBits:              uint(opts.StopBits),
		MinimumReadSize:       0,
		InterCharacterTimeout: timeoutMs,
		ParityMode:            jserial.PARITY_NONE,
	}
	switch opts.Parity {
	case "E":
		options.ParityMode = jserial.PARITY_EVEN
	case "O":
		options.ParityMode = jserial.PARITY_ODD
	}

	return options, nil
}

// TarmConfig converts the options for github.com/tarm/serial.
func (o PortOptions) TarmConfig(path string) (*tserial.Config, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	return &tserial.Config{
		Name:        path,
		Baud:        opts.BaudRate,
		ReadTimeout: opts.ReadTimeout,
		Size:        byte(opts.DataBits),
		Parity:      tserial.Parity(opts.Parity[0]),
		StopBits:    tserial.StopBits(opts.StopBits),
	}, nil
}
