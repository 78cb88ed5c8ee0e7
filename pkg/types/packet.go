package types

import "fmt"

// Token is an identity token read from an RFID tag.
// Tokens are compared by exact value.
type Token string

// Command is the lock action requested by the host.
type Command string

const (
	CommandLock   Command = "lock"
	CommandUnlock Command = "unlock"
)

// Toggle returns the opposite command.
func (c Command) Toggle() Command {
	if c == CommandUnlock {
		return CommandLock
	}
	return CommandUnlock
}

func (c Command) Valid() bool {
	return c == CommandLock || c == CommandUnlock
}

// Allow is the access decision carried by a packet.
// AllowNoSignal is sent when no tag was presented during the cycle.
type Allow uint8

const (
	AllowNoSignal Allow = iota
	AllowTrue
	AllowFalse
)

// Wire text of the decision. No-signal is the empty string.
func (a Allow) String() string {
	switch a {
	case AllowTrue:
		return "true"
	case AllowFalse:
		return "false"
	default:
		return ""
	}
}

func (a Allow) MarshalText() ([]byte, error) {
	if a == AllowNoSignal {
		return []byte("none"), nil
	}
	return []byte(a.String()), nil
}

func (a *Allow) UnmarshalText(b []byte) error {
	switch string(b) {
	case "true":
		*a = AllowTrue
	case "false":
		*a = AllowFalse
	case "none", "":
		*a = AllowNoSignal
	default:
		return fmt.Errorf("unknown allow value %q", string(b))
	}
	return nil
}

// Packet is one decoded command from the serial link.
type Packet struct {
	Command Command `json:"command"`
	Allow   Allow   `json:"allow"`
}

// Button identifies a keypad button. Buttons map to the digits 1 and 2.
type Button uint8

const (
	Button1 Button = 1
	Button2 Button = 2
)

// Digit returns the keypad digit for the button.
func (b Button) Digit() byte {
	return '0' + byte(b)
}

// Direction of motor travel.
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Color of the lock indicator.
type Color uint8

const (
	ColorOff Color = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorDeny
)

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorDeny:
		return "deny"
	default:
		return "off"
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	for col := ColorOff; col <= ColorDeny; col++ {
		if col.String() == string(b) {
			*c = col
			return nil
		}
	}
	return fmt.Errorf("unknown color %q", string(b))
}
