// Package codec converts packets to and from the serial wire text.
//
// Wire form: M:<command>,<allow>:E followed by a newline.
package codec

import (
	"errors"
	"fmt"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

const (
	StartMarker = "M:"
	EndMarker   = ":E"
	Separator   = ','
)

var (
	ErrFieldCount     = errors.New("codec: packet must have a command and an allow field")
	ErrUnknownCommand = errors.New("codec: unknown command")
	ErrInvalidAllow   = errors.New("codec: allow must be true, false or empty")
)

// Error is returned for a packet body that cannot be decoded.
type Error struct {
	Raw string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Raw)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Encode renders a packet in wire form, including the trailing newline.
func Encode(p types.Packet) []byte {
	allow := p.Allow.String()
	buf := make([]byte, 0, len(StartMarker)+len(p.Command)+1+len(allow)+len(EndMarker)+1)
	buf = append(buf, StartMarker...)
	buf = append(buf, p.Command...)
	buf = append(buf, Separator)
	buf = append(buf, allow...)
	buf = append(buf, EndMarker...)
	buf = append(buf, '\n')
	return buf
}

// Decode parses a packet body, the text between the start and end markers.
// The body is split on the first comma only.
func Decode(raw string) (types.Packet, error) {
	sep := -1
	for i := 0; i < len(raw); i++ {
		if raw[i] == Separator {
			sep = i
			break
		}
	}
	if sep <= 0 {
		return types.Packet{}, &Error{Raw: raw, Err: ErrFieldCount}
	}

	cmd := types.Command(raw[:sep])
	if !cmd.Valid() {
		return types.Packet{}, &Error{Raw: raw, Err: ErrUnknownCommand}
	}

	var allow types.Allow
	switch raw[sep+1:] {
	case "true":
		allow = types.AllowTrue
	case "false":
		allow = types.AllowFalse
	case "":
		allow = types.AllowNoSignal
	default:
		return types.Packet{}, &Error{Raw: raw, Err: ErrInvalidAllow}
	}

	return types.Packet{Command: cmd, Allow: allow}, nil
}
