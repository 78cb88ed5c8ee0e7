package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/pathing"
)

var ErrInvalidConfig = errors.New("invalid config")

var (
	ActiveAccessPollerConfig   *AccessPollerConfig
	ActiveLockControllerConfig *LockControllerConfig
	ActiveLockMonitorConfig    *LockMonitorConfig
)

func DefaultAccessPollerConfig() *AccessPollerConfig {
	return &AccessPollerConfig{
		SerialDevice:         "/dev/ttyUSB0",
		SerialDriver:         "bugst",
		Baudrate:             115200,
		PollIntervalMs:       2000,
		AuthorisedTokens:     []string{},
		RfidDevice:           "/dev/ttyAMA0",
		AuditEnabled:         true,
		AggregateIntervalMin: 60,
	}
}

func DefaultLockControllerConfig() *LockControllerConfig {
	return &LockControllerConfig{
		SerialDevice:     "/dev/ttyS0",
		SerialDriver:     "bugst",
		Baudrate:         115200,
		ReadTimeoutMs:    10,
		TickIntervalMs:   5,
		Keycode:          "1221",
		MaxAttempts:      3,
		ActuationDegrees: 60,
		ListenAddress:    "0.0.0.0",
		ListenPort:       9040,
		KeypadButton1Pin: "GPIO17",
		KeypadButton2Pin: "GPIO27",
		Actuator:         "log",
		ModbusPort:       502,
		ModbusSlaveId:    1,
	}
}

func DefaultLockMonitorConfig() *LockMonitorConfig {
	return &LockMonitorConfig{
		ControllerAPIHost: "localhost:9040",
		RedisChannel:      "rfid_bike_lock:events",
	}
}

func LoadAccessPollerConfig() error {
	cfg, err := LoadAccessPollerConfigFrom(pathing.GetConfigDir())
	if err != nil {
		return err
	}
	ActiveAccessPollerConfig = cfg
	return nil
}

func LoadLockControllerConfig() error {
	cfg, err := LoadLockControllerConfigFrom(pathing.GetConfigDir())
	if err != nil {
		return err
	}
	ActiveLockControllerConfig = cfg
	return nil
}

func LoadLockMonitorConfig() error {
	cfg, err := LoadLockMonitorConfigFrom(pathing.GetConfigDir())
	if err != nil {
		return err
	}
	ActiveLockMonitorConfig = cfg
	return nil
}

func LoadAccessPollerConfigFrom(dir string) (*AccessPollerConfig, error) {
	cfg := DefaultAccessPollerConfig()
	if err := loadOrCreate(filepath.Join(dir, "access_poller.toml"), cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func LoadLockControllerConfigFrom(dir string) (*LockControllerConfig, error) {
	cfg := DefaultLockControllerConfig()
	if err := loadOrCreate(filepath.Join(dir, "lock_controller.toml"), cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func LoadLockMonitorConfigFrom(dir string) (*LockMonitorConfig, error) {
	cfg := DefaultLockMonitorConfig()
	if err := loadOrCreate(filepath.Join(dir, "lock_monitor.toml"), cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// loadOrCreate decodes path into cfg. When the file does not exist the
// defaults already in cfg are written there instead. Keys missing from an
// existing file keep their default.
func loadOrCreate(path string, cfg any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfgFile, err := os.Create(path)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		return toml.NewEncoder(cfgFile).Encode(cfg)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	return nil
}

func validDriver(d string) bool {
	return d == "" || d == "bugst" || d == "jacobsa" || d == "tarm"
}

func (c *AccessPollerConfig) Validate() error {
	var errs []error
	if c.SerialDevice == "" {
		errs = append(errs, errors.New("serial_device is required"))
	}
	if !validDriver(c.SerialDriver) {
		errs = append(errs, fmt.Errorf("unknown serial_driver %q", c.SerialDriver))
	}
	if c.PollIntervalMs <= 0 {
		errs = append(errs, errors.New("poll_interval_ms must be positive"))
	}
	if c.RfidDevice == "" {
		errs = append(errs, errors.New("rfid_device is required"))
	}
	if c.AuditEnabled && c.AggregateIntervalMin <= 0 {
		errs = append(errs, errors.New("aggregate_interval_min must be positive"))
	}
	return joinInvalid(errs)
}

func (c *LockControllerConfig) Validate() error {
	var errs []error
	if c.SerialDevice == "" {
		errs = append(errs, errors.New("serial_device is required"))
	}
	if !validDriver(c.SerialDriver) {
		errs = append(errs, fmt.Errorf("unknown serial_driver %q", c.SerialDriver))
	}
	if c.ReadTimeoutMs < 0 || c.TickIntervalMs < 0 || c.MaxBufferBytes < 0 || c.CodeEntryTimeoutMs < 0 {
		errs = append(errs, errors.New("durations and limits must not be negative"))
	}
	if c.Keycode == "" || strings.Trim(c.Keycode, "12") != "" {
		errs = append(errs, fmt.Errorf("keycode %q must use digits 1 and 2 only", c.Keycode))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max_attempts must be positive"))
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen_port %d out of range", c.ListenPort))
	}
	switch c.Actuator {
	case "log":
	case "modbus":
		if c.ModbusHost == "" || c.ModbusPort == 0 {
			errs = append(errs, errors.New("modbus_host and modbus_port are required for the modbus actuator"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown actuator %q", c.Actuator))
	}
	if (c.KeypadButton1Pin == "") != (c.KeypadButton2Pin == "") {
		errs = append(errs, errors.New("set both keypad pins or neither"))
	}
	return joinInvalid(errs)
}

func (c *LockMonitorConfig) Validate() error {
	var errs []error
	if c.ControllerAPIHost == "" {
		errs = append(errs, errors.New("controller_api_host is required"))
	}
	if c.RedisAddress != "" && c.RedisChannel == "" {
		errs = append(errs, errors.New("redis_channel is required when redis_address is set"))
	}
	return joinInvalid(errs)
}

func joinInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}
