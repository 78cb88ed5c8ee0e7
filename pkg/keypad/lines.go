package keypad

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// LineKeypad replays typed digits as button presses. Each queued press is
// reported down for one sample of its button and up for the next, so the
// controller sees exactly one press edge per digit.
type LineKeypad struct {
	mu    sync.Mutex
	queue []types.Button
	down  types.Button
	seen  bool
}

func NewLineKeypad() *LineKeypad {
	return &LineKeypad{}
}

// Press queues a press of b.
func (k *LineKeypad) Press(b types.Button) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = append(k.queue, b)
}

// Feed queues a press for every '1' or '2' read from r. Other bytes are
// ignored. Meant to run on its own goroutine.
func (k *LineKeypad) Feed(ctx context.Context, r io.Reader) {
	br := bufio.NewReader(r)
	for ctx.Err() == nil {
		c, err := br.ReadByte()
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Msg("Keypad input failed")
			}
			return
		}
		switch c {
		case '1':
			k.Press(types.Button1)
		case '2':
			k.Press(types.Button2)
		}
	}
}

// Reset drops queued presses and releases the current one.
func (k *LineKeypad) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = k.queue[:0]
	k.down = 0
	k.seen = false
}

func (k *LineKeypad) ButtonPressed(b types.Button) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.down == 0 && len(k.queue) > 0 {
		k.down = k.queue[0]
		k.queue = k.queue[1:]
		k.seen = false
	}
	if k.down != b {
		return false
	}
	if !k.seen {
		k.seen = true
		return true
	}
	k.down = 0
	return false
}
