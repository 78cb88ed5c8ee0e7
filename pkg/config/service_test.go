package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileWritesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := LoadLockControllerConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultLockControllerConfig(), cfg)

	raw, err := os.ReadFile(filepath.Join(dir, "lock_controller.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `keycode = "1221"`)

	// second load reads the file that was just written
	again, err := LoadLockControllerConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `
serial_device = "/dev/ttyUSB1"
poll_interval_ms = 500
authorised_tokens = ["04:BA:1E:8A:FE:16:90", "DE:AD:BE:EF"]
rfid_device = "stdin"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access_poller.toml"), []byte(content), 0o644))

	cfg, err := LoadAccessPollerConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", cfg.SerialDevice)
	assert.Equal(t, 500, cfg.PollIntervalMs)
	assert.Equal(t, []string{"04:BA:1E:8A:FE:16:90", "DE:AD:BE:EF"}, cfg.AuthorisedTokens)
	assert.Equal(t, "stdin", cfg.RfidDevice)
	assert.Equal(t, uint(115200), cfg.Baudrate)
	assert.Equal(t, 60, cfg.AggregateIntervalMin)
}

func TestUnknownKeysAreRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lock_monitor.toml"), []byte("interpreter_api_host = \"x\"\n"), 0o644))

	_, err := LoadLockMonitorConfigFrom(dir)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "interpreter_api_host")
}

func TestMalformedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lock_monitor.toml"), []byte("controller_api_host = \n"), 0o644))

	_, err := LoadLockMonitorConfigFrom(dir)
	assert.Error(t, err)
}

func TestLockControllerValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *LockControllerConfig)
		valid  bool
	}{
		{name: "defaults", modify: func(*LockControllerConfig) {}, valid: true},
		{name: "keycode with other digits", modify: func(c *LockControllerConfig) { c.Keycode = "1231" }},
		{name: "empty keycode", modify: func(c *LockControllerConfig) { c.Keycode = "" }},
		{name: "zero attempts", modify: func(c *LockControllerConfig) { c.MaxAttempts = 0 }},
		{name: "unknown driver", modify: func(c *LockControllerConfig) { c.SerialDriver = "ftdi" }},
		{name: "modbus without host", modify: func(c *LockControllerConfig) { c.Actuator = "modbus" }},
		{
			name: "modbus with host",
			modify: func(c *LockControllerConfig) {
				c.Actuator = "modbus"
				c.ModbusHost = "192.168.1.50"
			},
			valid: true,
		},
		{name: "unknown actuator", modify: func(c *LockControllerConfig) { c.Actuator = "gpio" }},
		{name: "one keypad pin", modify: func(c *LockControllerConfig) { c.KeypadButton2Pin = "" }},
		{
			name: "stdin keypad",
			modify: func(c *LockControllerConfig) {
				c.KeypadButton1Pin = ""
				c.KeypadButton2Pin = ""
			},
			valid: true,
		},
		{name: "negative timeout", modify: func(c *LockControllerConfig) { c.CodeEntryTimeoutMs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultLockControllerConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestAccessPollerAndMonitorValidate(t *testing.T) {
	t.Parallel()

	p := DefaultAccessPollerConfig()
	require.NoError(t, p.Validate())
	p.PollIntervalMs = 0
	p.RfidDevice = ""
	err := p.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "poll_interval_ms")
	assert.ErrorContains(t, err, "rfid_device")

	m := DefaultLockMonitorConfig()
	require.NoError(t, m.Validate())
	m.RedisAddress = "localhost:6379"
	m.RedisChannel = ""
	assert.ErrorIs(t, m.Validate(), ErrInvalidConfig)
}

func TestLoadUsesConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RFIDLOCK_CONFIG_DIR", dir)

	require.NoError(t, LoadLockMonitorConfig())
	assert.Equal(t, "localhost:9040", ActiveLockMonitorConfig.ControllerAPIHost)
	assert.FileExists(t, filepath.Join(dir, "lock_monitor.toml"))
}
