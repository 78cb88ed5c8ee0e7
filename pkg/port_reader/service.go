package port_reader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/transport"
)

func NewLinkReader(channel transport.Channel, framer *Framer) *LinkReader {
	return &LinkReader{
		channel: channel,
		framer:  framer,
	}
}

// Connect opens the serial device and returns a reader feeding framer.
func Connect(path string, opts transport.PortOptions, framer *Framer) (*LinkReader, error) {
	ch, err := transport.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect link reader: %w", err)
	}
	return NewLinkReader(ch, framer), nil
}

// Step reads whatever the channel has and appends it to the frame buffer.
// Read and decode failures are counted on the framer and never returned;
// the link is expected to recover on its own.
func (r *LinkReader) Step(_ context.Context) (bool, error) {
	data, err := r.channel.ReadAvailable()
	if err != nil {
		r.framer.counters.ReadErrors++
		log.Debug().Err(err).Uint64("read_errors", r.framer.counters.ReadErrors).Msg("Serial read failed")
		return false, nil
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := r.framer.Append(data); err != nil {
		log.Debug().Err(err).Int("bytes", len(data)).Msg("Discarded undecodable chunk")
	}
	return true, nil
}

// Framer returns the framer this reader feeds.
func (r *LinkReader) Framer() *Framer {
	return r.framer
}

func (r *LinkReader) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	log.Info().Msg("Disconnected from serial link")
	return nil
}
