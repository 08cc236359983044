package config

import (
	"os"
	"path/filepath"
)

// ConfigDirEnv overrides the directory that holds settings, logs and state.
const ConfigDirEnv = "ZEN_CONFIG_DIR"

// GetZenDir returns the zen configuration directory, ~/.config/zen by default.
func GetZenDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "zen")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "zen")
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetZenDir(), "settings.json")
}

// GetLogsDir returns the directory debug logs are written to.
func GetLogsDir() string {
	return filepath.Join(GetZenDir(), "logs")
}

// GetStateDir returns the directory for local state.
func GetStateDir() string {
	return filepath.Join(GetZenDir(), "state")
}

// GetHistoryPath returns the path to the download history database.
func GetHistoryPath() string {
	return filepath.Join(GetStateDir(), "history.db")
}

// GetLockPath returns the path of the poller lock file.
func GetLockPath() string {
	return filepath.Join(GetStateDir(), "poller.lock")
}
