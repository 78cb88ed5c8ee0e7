// Package keypad provides the two-button code keypad.
package keypad

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

var ErrUnknownPin = errors.New("keypad: unknown GPIO pin")

// GPIO reads buttons wired between a pin and ground, using the internal
// pull-up. A pressed button reads low.
type GPIO struct {
	pins map[types.Button]gpio.PinIn
}

// OpenGPIO initialises the periph host and configures both button pins.
func OpenGPIO(button1, button2 string) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pins := make(map[types.Button]gpio.PinIn, 2)
	for b, name := range map[types.Button]string{types.Button1: button1, types.Button2: button2} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPin, name)
		}
		pins[b] = p
	}
	k, err := NewGPIO(pins)
	if err != nil {
		return nil, err
	}
	log.Info().Str("button1", button1).Str("button2", button2).Msg("Keypad ready")
	return k, nil
}

// NewGPIO configures already resolved pins as pulled-up inputs.
func NewGPIO(pins map[types.Button]gpio.PinIn) (*GPIO, error) {
	for b, p := range pins {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure button %d on %s: %w", b, p, err)
		}
	}
	return &GPIO{pins: pins}, nil
}

func (k *GPIO) ButtonPressed(b types.Button) bool {
	p, ok := k.pins[b]
	if !ok {
		return false
	}
	return p.Read() == gpio.Low
}
