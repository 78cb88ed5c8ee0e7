package config

type AccessPollerConfig struct {
	SerialDevice string `toml:"serial_device"`
	// "bugst", "jacobsa" or "tarm"
	SerialDriver     string   `toml:"serial_driver"`
	Baudrate         uint     `toml:"baudrate"`
	PollIntervalMs   int      `toml:"poll_interval_ms"`
	AuthorisedTokens []string `toml:"authorised_tokens"`
	// PN532 device path, or "stdin" to read tokens from standard input
	RfidDevice           string `toml:"rfid_device"`
	AuditEnabled         bool   `toml:"audit_enabled"`
	AggregateIntervalMin int    `toml:"aggregate_interval_min"`
}

type LockControllerConfig struct {
	SerialDevice       string  `toml:"serial_device"`
	SerialDriver       string  `toml:"serial_driver"`
	Baudrate           uint    `toml:"baudrate"`
	ReadTimeoutMs      int     `toml:"read_timeout_ms"`
	TickIntervalMs     int     `toml:"tick_interval_ms"`
	MaxBufferBytes     int     `toml:"max_buffer_bytes"`
	Keycode            string  `toml:"keycode"`
	MaxAttempts        int     `toml:"max_attempts"`
	ActuationDegrees   float64 `toml:"actuation_degrees"`
	CodeEntryTimeoutMs int     `toml:"code_entry_timeout_ms"`
	ListenAddress      string  `toml:"listen_address"`
	ListenPort         int     `toml:"listen_port"`
	// Empty pins read the keypad from standard input
	KeypadButton1Pin string `toml:"keypad_button1_pin"`
	KeypadButton2Pin string `toml:"keypad_button2_pin"`
	// "modbus" or "log"
	Actuator      string `toml:"actuator"`
	ModbusHost    string `toml:"modbus_host"`
	ModbusPort    int    `toml:"modbus_port"`
	ModbusSlaveId uint8  `toml:"modbus_slave_id"`
}

type LockMonitorConfig struct {
	ControllerAPIHost string `toml:"controller_api_host"`
	// Leave empty to disable the Redis mirror
	RedisAddress string `toml:"redis_address"`
	RedisChannel string `toml:"redis_channel"`
}
