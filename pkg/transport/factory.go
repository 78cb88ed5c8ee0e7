package transport

import (
	"fmt"

	jserial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog/log"
	tserial "github.com/tarm/serial"
	"go.bug.st/serial"
)

// Open opens the serial port at path with the configured driver and wraps it
// as a Channel.
func Open(path string, opts PortOptions) (*PortChannel, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	var port Port
	switch opts.Driver {
	case DriverJacobsa:
		options, err := opts.JacobsaOptions(path)
		if err != nil {
			return nil, err
		}
		rwc, err := jserial.Open(options)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port: %w", err)
		}
		port = rwc
	case DriverTarm:
		cfg, err := opts.TarmConfig(path)
		if err != nil {
			return nil, err
		}
		p, err := tserial.OpenPort(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port: %w", err)
		}
		port = p
	default:
		mode, err := opts.SerialMode()
		if err != nil {
			return nil, err
		}
		p, err := serial.Open(path, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port: %w", err)
		}
		port = p
	}

	ch, err := NewPortChannel(port, opts.ReadTimeout)
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	log.Info().
		Str("port", path).
		Str("driver", opts.Driver).
		Int("baud", opts.BaudRate).
		Msg("Serial port opened")
	return ch, nil
}
