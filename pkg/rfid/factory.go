package rfid

import (
	"context"
	"io"
	"os"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// Source is what the access poller polls every cycle.
type Source interface {
	PollTag(ctx context.Context) (types.Token, bool, error)
}

// Open returns the source named by device. DeviceStdin starts a LineSource
// fed from standard input, anything else is a PN532 device path. The returned
// closer releases the device and is never nil.
func Open(ctx context.Context, device string) (Source, io.Closer, error) {
	if device == DeviceStdin {
		src := NewLineSource()
		go src.Feed(ctx, os.Stdin)
		return src, nopCloser{}, nil
	}
	src, err := ConnectPN532(ctx, device)
	if err != nil {
		return nil, nil, err
	}
	return src, src, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
