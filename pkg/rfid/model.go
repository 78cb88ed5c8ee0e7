package rfid

import (
	"errors"
	"sync"

	pn532 "github.com/ZaparooProject/go-pn532"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// DeviceStdin selects the line source reading tokens from standard input.
const DeviceStdin = "stdin"

var ErrEmptyDevice = errors.New("rfid: empty device path")

// PN532Source polls a PN532 reader for a single tag per call.
type PN532Source struct {
	device *pn532.Device
	path   string
}

// LineSource reports tokens written to it one line at a time.
// A queued token is reported by exactly one PollTag call.
type LineSource struct {
	mu      sync.Mutex
	pending []types.Token
	err     error
}
