package types

import "time"

// AccessScan is one poll cycle in which a tag was present.
type AccessScan struct {
	Timestamp time.Time `json:"timestamp"`
	Token     Token     `json:"token"`
	Decision  Allow     `json:"decision"`
	Command   Command   `json:"command"`
	FrameCRC  uint16    `json:"frame_crc"`
}

// LockEvent is a controller snapshot as stored by the monitor.
type LockEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	State     ControllerState `json:"state"`
	Outcome   string          `json:"outcome"`
	Indicator Color           `json:"indicator"`
	Command   Command         `json:"command"`
	FrameCRC  uint16          `json:"frame_crc"`
	Counters  Counters        `json:"counters"`
}
