package port_reader

import (
	"github.com/NotCoffee418/rfid_bike_lock/pkg/transport"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// Limits bounds the frame buffer. Zero means unbounded.
type Limits struct {
	MaxBufferBytes int
}

func DefaultLimits() Limits {
	return Limits{}
}

// Framer recovers packets from the raw byte stream of the serial link.
// It owns the frame buffer and the packet queue. It is not safe for
// concurrent use; the scheduler serialises all access.
type Framer struct {
	buffer   []byte
	queue    []types.Packet
	crcs     []uint16
	counters types.Counters
	limits   Limits
	lastCRC  uint16
	// scanFrom is where the next end marker search resumes. Bytes before it
	// hold no end marker.
	scanFrom int
}

// LinkReader moves bytes from the transport channel into a framer.
type LinkReader struct {
	channel transport.Channel
	framer  *Framer
}
