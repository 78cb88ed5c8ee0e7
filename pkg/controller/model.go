package controller

import (
	"errors"
	"time"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

var ErrInvalidConfig = errors.New("controller: invalid config")

// Actuator drives the motor, the indicator light and the alarm.
type Actuator interface {
	Actuate(dir types.Direction, degrees float64) error
	SetIndicator(color types.Color) error
	SoundAlarm() error
}

// Display shows short status lines to the person at the lock.
type Display interface {
	Show(lines ...string)
}

// Keypad reports whether a button is currently held down.
type Keypad interface {
	ButtonPressed(id types.Button) bool
}

// KeypadResetter is implemented by keypads that buffer presses. Reset drops
// presses made before a code entry starts.
type KeypadResetter interface {
	Reset()
}

// Queue is the decoded packet queue filled by the port reader.
type Queue interface {
	ExtractPackets() int
	Next() (types.Packet, bool)
	Pending() int
	Counters() types.Counters
	LastCRC() uint16
}

// Observer receives a copy of the controller status after every change.
type Observer func(Snapshot)

// Outcome is the result of evaluating a packet.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeAwaitingCode    Outcome = "awaiting_code"
	OutcomeGranted         Outcome = "granted"
	OutcomeDenied          Outcome = "denied"
	OutcomeIncorrectCode   Outcome = "incorrect_code"
	OutcomeTooManyAttempts Outcome = "too_many_attempts"
	OutcomeTimedOut        Outcome = "timed_out"
	OutcomeActuatorFault   Outcome = "actuator_fault"
)

// Config holds the code confirmation and actuation settings.
type Config struct {
	// Keycode is the reference digit sequence, digits '1' and '2' only.
	// Its length is the maximum number of digits accepted per entry.
	Keycode      string
	MaxAttempts  int
	Degrees      float64
	EntryTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Keycode:     "1221",
		MaxAttempts: 3,
		Degrees:     60,
	}
}

// Snapshot is the observable controller status.
type Snapshot struct {
	Timestamp time.Time             `json:"timestamp"`
	State     types.ControllerState `json:"state"`
	Indicator types.Color           `json:"indicator"`
	Command   types.Command         `json:"command"`
	Outcome   Outcome               `json:"outcome"`
	Entered   int                   `json:"entered"`
	Attempts  int                   `json:"attempts"`
	Pending   int                   `json:"pending"`
	FrameCRC  uint16                `json:"frame_crc"`
	Counters  types.Counters        `json:"counters"`
}

// Controller is the lock state machine. All methods must be called from the
// scheduler goroutine.
type Controller struct {
	cfg      Config
	queue    Queue
	actuator Actuator
	display  Display
	keypad   Keypad
	observer Observer

	state     types.ControllerState
	prior     types.ControllerState
	indicator types.Color
	command   types.Command
	outcome   Outcome
	frameCRC  uint16

	entered    []byte
	attempts   int
	held       [2]bool
	entryStart time.Time
}
