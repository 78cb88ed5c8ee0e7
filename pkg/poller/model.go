package poller

import (
	"context"
	"time"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/transport"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// Source reports the tag currently in range, if any.
type Source interface {
	PollTag(ctx context.Context) (types.Token, bool, error)
}

// Recorder receives every cycle that saw a tag.
type Recorder interface {
	RecordScan(scan types.AccessScan) error
}

// Poller turns tag reads into lock packets on the serial link.
// Not safe for concurrent use; Run owns it.
type Poller struct {
	source     Source
	channel    transport.Channel
	recorder   Recorder
	authorised map[types.Token]struct{}
	interval   time.Duration

	intent      types.Command
	writeErrors uint64
	cycles      uint64
}

const DefaultInterval = 2 * time.Second
