package rfid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/go-pn532/transport/i2c"
	"github.com/ZaparooProject/go-pn532/transport/uart"
	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/lockutils"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

func newTransport(path string) (pn532.Transport, error) {
	if path == "" {
		return nil, ErrEmptyDevice
	}
	if strings.Contains(strings.ToLower(path), "i2c") {
		t, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport for %s: %w", path, err)
		}
		return t, nil
	}
	t, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport for %s: %w", path, err)
	}
	return t, nil
}

// ConnectPN532 opens and initialises the reader at path. Paths containing
// "i2c" use the I2C transport, anything else is treated as a UART.
func ConnectPN532(ctx context.Context, path string) (*PN532Source, error) {
	if path == "" {
		return nil, ErrEmptyDevice
	}
	device, err := pn532.ConnectDevice(path,
		pn532.WithTransportFactory(newTransport),
		pn532.WithConnectTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PN532 device: %w", err)
	}
	if err := device.InitContext(ctx); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("failed to initialise PN532 device: %w", err)
	}
	log.Info().Str("device", path).Msg("Connected to PN532 reader")
	return &PN532Source{device: device, path: path}, nil
}

// PollTag runs one detection cycle. An empty field is not an error.
func (s *PN532Source) PollTag(ctx context.Context) (types.Token, bool, error) {
	tag, err := s.device.DetectTag(ctx)
	if errors.Is(err, pn532.ErrNoTagDetected) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tag detection on %s failed: %w", s.path, err)
	}
	token := TokenFromTag(tag)
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *PN532Source) Close() error {
	return s.device.Close()
}

// TokenFromTag renders a detected tag's UID in the authorised list format.
func TokenFromTag(tag *pn532.DetectedTag) types.Token {
	if tag == nil || len(tag.UIDBytes) == 0 {
		return ""
	}
	return types.Token(lockutils.FormatUID(tag.UIDBytes))
}
