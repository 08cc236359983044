package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ZEN"

// Env holds overrides read from ZEN_* environment variables. Zero values
// leave the file setting in place.
type Env struct {
	Host         string        `split_words:"true"`
	Token        string        `split_words:"true"`
	LogLevel     string        `split_words:"true"`
	LogFormat    string        `split_words:"true"`
	DownloadDir  string        `split_words:"true"`
	PollInterval time.Duration `split_words:"true"`
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays ZEN_* environment variables on s.
func ApplyEnv(s *Settings) error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}

	if env.Host != "" {
		s.Server.Host = env.Host
	}
	if env.Token != "" {
		s.Server.Token = env.Token
	}
	if env.LogLevel != "" {
		s.Logging.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		s.Logging.Format = env.LogFormat
	}
	if env.DownloadDir != "" {
		s.General.DefaultDownloadDir = env.DownloadDir
	}
	if env.PollInterval > 0 {
		s.Queue.PollInterval = env.PollInterval
	}
	return nil
}

// Load reads the settings file, then .env, then ZEN_* variables, each
// layer overriding the previous one.
func Load() (*Settings, error) {
	settings, err := LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := ApplyEnv(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
