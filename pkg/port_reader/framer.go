package port_reader

import (
	"errors"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/codec"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/lockutils"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

var (
	ErrTransportRead = errors.New("port_reader: transport read failed")
	ErrFrameEncoding = errors.New("port_reader: data before end marker has no start marker")
)

func NewFramer(limits Limits) *Framer {
	return &Framer{limits: limits}
}

// Append adds a chunk of received bytes to the frame buffer.
// A chunk that is not valid text is counted as a read error and dropped
// whole. Line terminators are not kept.
func (f *Framer) Append(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if !utf8.Valid(raw) {
		f.counters.ReadErrors++
		return ErrTransportRead
	}
	for _, b := range raw {
		if b == '\r' || b == '\n' {
			continue
		}
		f.buffer = append(f.buffer, b)
	}
	return nil
}

// ExtractPackets moves every complete packet out of the frame buffer and
// onto the queue, in order. Spans that end in the end marker but do not begin
// with the start marker, and bodies that do not decode, are dropped and
// counted. It returns the number of packets queued.
func (f *Framer) ExtractPackets() int {
	start, queued := 0, 0
	buf := f.buffer

	for i := f.scanFrom; i+1 < len(buf); i++ {
		if buf[i] != codec.EndMarker[0] || buf[i+1] != codec.EndMarker[1] {
			continue
		}
		head := buf[start:i]
		start = i + len(codec.EndMarker)
		i = start - 1

		if len(head) < len(codec.StartMarker) ||
			head[0] != codec.StartMarker[0] || head[1] != codec.StartMarker[1] {
			f.counters.EncodeErrors++
			log.Debug().Str("head", string(head)).Err(ErrFrameEncoding).Msg("Dropped frame")
			continue
		}

		packet, err := codec.Decode(string(head[len(codec.StartMarker):]))
		if err != nil {
			f.counters.EncodeErrors++
			log.Debug().Err(err).Msg("Dropped packet")
			continue
		}
		f.queue = append(f.queue, packet)
		f.crcs = append(f.crcs, lockutils.FrameCRC(codec.Encode(packet)))
		queued++
	}

	if start > 0 {
		n := copy(f.buffer, f.buffer[start:])
		f.buffer = f.buffer[:n]
	}

	if f.limits.MaxBufferBytes > 0 && len(f.buffer) > f.limits.MaxBufferBytes {
		log.Warn().Int("bytes", len(f.buffer)).Msg("Frame buffer overflow, discarding")
		f.counters.EncodeErrors++
		f.buffer = f.buffer[:0]
	}

	// The last byte may be the first half of an end marker.
	f.scanFrom = max(len(f.buffer)-1, 0)
	return queued
}

// Next pops the oldest queued packet.
func (f *Framer) Next() (types.Packet, bool) {
	if len(f.queue) == 0 {
		return types.Packet{}, false
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	f.lastCRC = f.crcs[0]
	f.crcs = f.crcs[1:]
	return p, true
}

// Pending returns the number of queued packets.
func (f *Framer) Pending() int {
	return len(f.queue)
}

// Buffered returns the number of bytes waiting for an end marker.
func (f *Framer) Buffered() int {
	return len(f.buffer)
}

// Counters returns a copy of the error counters.
func (f *Framer) Counters() types.Counters {
	return f.counters
}

// LastCRC is the frame fingerprint of the packet most recently returned by Next.
func (f *Framer) LastCRC() uint16 {
	return f.lastCRC
}
