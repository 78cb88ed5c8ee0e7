package types

import "fmt"

// ControllerState is the state of the lock controller.
type ControllerState uint8

const (
	StateLocked ControllerState = iota
	StateAwaitCode
	StateGrantedLocked
	StateGrantedUnlocked
	StateDenied
)

func (s ControllerState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateAwaitCode:
		return "await_code"
	case StateGrantedLocked:
		return "granted_locked"
	case StateGrantedUnlocked:
		return "granted_unlocked"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

func (s ControllerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseControllerState is the inverse of String.
func ParseControllerState(s string) (ControllerState, bool) {
	for st := StateLocked; st <= StateDenied; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateLocked, false
}

// Counters are diagnostic error counts kept by the packet framer.
// They only ever increase.
type Counters struct {
	ReadErrors   uint64 `json:"read_errors"`
	EncodeErrors uint64 `json:"encode_errors"`
}

func (s *ControllerState) UnmarshalText(b []byte) error {
	st, ok := ParseControllerState(string(b))
	if !ok {
		return fmt.Errorf("unknown controller state %q", string(b))
	}
	*s = st
	return nil
}
