package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all user-configurable client settings organized by category.
type Settings struct {
	General GeneralSettings `json:"general"`
	Server  ServerSettings  `json:"server"`
	Queue   QueueSettings   `json:"queue"`
	Logging LoggingSettings `json:"logging"`
}

// GeneralSettings contains download defaults and UI behavior.
type GeneralSettings struct {
	DefaultDownloadDir string `json:"default_download_dir"`
	DefaultFormat      string `json:"default_format"`
	AudioOnly          bool   `json:"audio_only"`
	ClipboardFallback  bool   `json:"clipboard_fallback"`
	Theme              int    `json:"theme"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// ServerSettings describes how to reach the download server.
type ServerSettings struct {
	Host           string        `json:"host"`
	Token          string        `json:"token"`
	RequestTimeout time.Duration `json:"request_timeout"`
	InfoTimeout    time.Duration `json:"info_timeout"`
}

// QueueSettings tunes queue polling and discovery.
type QueueSettings struct {
	PollInterval       time.Duration `json:"poll_interval"`
	SettleDelay        time.Duration `json:"settle_delay"`
	DiscoveryMaxVideos int           `json:"discovery_max_videos"`
}

// LoggingSettings controls structured logging and debug log files.
type LoggingSettings struct {
	Level             string `json:"level"`
	Format            string `json:"format"`
	LogRetentionCount int    `json:"log_retention_count"`
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "default_download_dir", Label: "Download Dir", Description: "Local directory retrieved files are saved to.", Type: "string"},
			{Key: "default_format", Label: "Default Format", Description: "Format id requested when none is given (e.g. best).", Type: "string"},
			{Key: "audio_only", Label: "Audio Only", Description: "Request audio-only downloads by default.", Type: "bool"},
			{Key: "clipboard_fallback", Label: "Clipboard Fallback", Description: "Read the URL from the clipboard when none is given.", Type: "bool"},
			{Key: "theme", Label: "App Theme", Description: "UI Theme (System, Light, Dark).", Type: "int"},
		},
		"Server": {
			{Key: "host", Label: "Host", Description: "Base URL of the download server.", Type: "string"},
			{Key: "token", Label: "Token", Description: "Bearer token sent with every request. Leave empty if the server is open.", Type: "string"},
			{Key: "request_timeout", Label: "Request Timeout", Description: "Timeout of ordinary API requests (e.g., 30s).", Type: "duration"},
			{Key: "info_timeout", Label: "Info Timeout", Description: "Deadline of the metadata request (e.g., 2m).", Type: "duration"},
		},
		"Queue": {
			{Key: "poll_interval", Label: "Poll Interval", Description: "How often the queue is refreshed while processing (e.g., 1s).", Type: "duration"},
			{Key: "settle_delay", Label: "Settle Delay", Description: "Pause before reloading after a batch enqueue (e.g., 500ms).", Type: "duration"},
			{Key: "discovery_max_videos", Label: "Discovery Limit", Description: "Maximum videos collected per discovery (1-500).", Type: "int"},
		},
		"Logging": {
			{Key: "level", Label: "Log Level", Description: "debug, info, warn or error.", Type: "string"},
			{Key: "format", Label: "Log Format", Description: "text or json.", Type: "string"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Server", "Queue", "Logging"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, "Downloads")

	return &Settings{
		General: GeneralSettings{
			DefaultDownloadDir: defaultDir,
			DefaultFormat:      "best",
			AudioOnly:          false,
			ClipboardFallback:  true,
			Theme:              ThemeAdaptive,
		},
		Server: ServerSettings{
			Host:           "http://127.0.0.1:5000",
			RequestTimeout: 30 * time.Second,
			InfoTimeout:    120 * time.Second,
		},
		Queue: QueueSettings{
			PollInterval:       time.Second,
			SettleDelay:        500 * time.Millisecond,
			DiscoveryMaxVideos: 50,
		},
		Logging: LoggingSettings{
			Level:             "info",
			Format:            "text",
			LogRetentionCount: 5,
		},
	}
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path, filling missing fields with defaults.
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // Start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(GetSettingsPath(), s)
}

// SaveSettingsTo writes s to path atomically.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}
