package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/codec"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/lockutils"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/transport"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// New creates a poller with the intent set to lock. recorder may be nil.
func New(source Source, channel transport.Channel, authorised []types.Token, interval time.Duration, recorder Recorder) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	set := make(map[types.Token]struct{}, len(authorised))
	for _, t := range authorised {
		set[t] = struct{}{}
	}
	return &Poller{
		source:     source,
		channel:    channel,
		recorder:   recorder,
		authorised: set,
		interval:   interval,
		intent:     types.CommandLock,
	}
}

// Cycle polls the source once and writes exactly one packet.
func (p *Poller) Cycle(ctx context.Context) types.Packet {
	p.cycles++

	token, present, err := p.source.PollTag(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Tag read failed, treating as no tag")
		present = false
	}

	packet := types.Packet{Command: p.intent, Allow: types.AllowNoSignal}
	if present {
		if _, ok := p.authorised[token]; ok {
			p.intent = p.intent.Toggle()
			packet = types.Packet{Command: p.intent, Allow: types.AllowTrue}
		} else {
			packet.Allow = types.AllowFalse
		}
	}

	frame := codec.Encode(packet)
	crc := lockutils.FrameCRC(frame)
	if err := p.channel.Write(frame); err != nil {
		p.writeErrors++
		log.Error().Err(err).Uint64("write_errors", p.writeErrors).Msg("Failed to send packet")
	}

	if present {
		log.Info().
			Str("token", string(token)).
			Str("command", string(packet.Command)).
			Str("allow", packet.Allow.String()).
			Uint16("crc", crc).
			Msg("Tag scanned")
		p.record(token, packet, crc)
	} else {
		log.Trace().Str("command", string(packet.Command)).Uint16("crc", crc).Msg("Heartbeat sent")
	}
	return packet
}

func (p *Poller) record(token types.Token, packet types.Packet, crc uint16) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.RecordScan(types.AccessScan{
		Timestamp: time.Now().UTC(),
		Token:     token,
		Decision:  packet.Allow,
		Command:   packet.Command,
		FrameCRC:  crc,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to record access scan")
	}
}

// Run cycles on the configured interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Dur("interval", p.interval).Int("authorised", len(p.authorised)).Msg("Access poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Cycle(ctx)
		select {
		case <-ctx.Done():
			log.Info().Uint64("cycles", p.cycles).Msg("Access poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Intent returns the current lock intent.
func (p *Poller) Intent() types.Command {
	return p.intent
}

func (p *Poller) WriteErrors() uint64 {
	return p.writeErrors
}
