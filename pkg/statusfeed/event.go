package statusfeed

import (
	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// EventFromSnapshot is the stored form of a received snapshot.
func EventFromSnapshot(s controller.Snapshot) types.LockEvent {
	return types.LockEvent{
		Timestamp: s.Timestamp,
		State:     s.State,
		Outcome:   string(s.Outcome),
		Indicator: s.Indicator,
		Command:   s.Command,
		FrameCRC:  s.FrameCRC,
		Counters:  s.Counters,
	}
}
