package actuator

import (
	"errors"
	"io"
	"time"
)

var (
	ErrModbusNotConfigured = errors.New("modbus not configured")
	ErrModbusWriteFailed   = errors.New("modbus write failed")
	ErrHostUnreachable     = errors.New("no response")
)

// Holding registers of the motor/indicator unit.
const (
	RegDirection uint16 = 100
	RegAmount    uint16 = 101
	RegMove      uint16 = 102
	RegColor     uint16 = 110
	RegAlarm     uint16 = 120
)

type ModbusConfig struct {
	Host       string
	Port       int
	SlaveID    byte
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// SkipPing disables the ICMP reachability check, for units behind
	// networks that drop echo requests.
	SkipPing bool
}

func DefaultModbusConfig() ModbusConfig {
	return ModbusConfig{
		Port:       502,
		SlaveID:    1,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

type register struct {
	address uint16
	value   uint16
}

// registerWriter is the part of modbus.Client the actuator uses.
type registerWriter interface {
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

type dialFunc func(cfg ModbusConfig) (registerWriter, io.Closer, error)

type pingFunc func(host string) (bool, time.Duration, error)

// Modbus drives the lock unit over Modbus TCP. Every call opens its own
// connection; the unit is only touched a few times per access.
type Modbus struct {
	cfg   ModbusConfig
	dial  dialFunc
	ping  pingFunc
	sleep func(time.Duration)
}

// LogSink stands in for the lock unit on a bench setup.
type LogSink struct{}

// LogDisplay writes display lines to the log.
type LogDisplay struct{}
