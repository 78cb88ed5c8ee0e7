package pathing

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultDataDir   = "/var/lib/rfid_bike_lock"
	defaultConfigDir = "/etc/rfid_bike_lock"

	EnvDataDir   = "RFIDLOCK_DATA_DIR"
	EnvConfigDir = "RFIDLOCK_CONFIG_DIR"
)

// EnsureDirs creates the config and data directories if missing.
func EnsureDirs() error {
	for _, dir := range []string{GetConfigDir(), GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func GetAuditDbPath() string {
	return filepath.Join(GetDataDir(), "rfid-audit.db")
}

func GetDataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return defaultDataDir
}

func GetConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return defaultConfigDir
}
