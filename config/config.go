// Package config loads the application config file. Timer durations are not
// here; they are user settings kept in the state store.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AppName        = "pomo-cli"
	configFileName = "config.yaml"
	stateFileName  = "state.json"
	logFileName    = "pomo.log"
)

// Config is the resolved application configuration.
type Config struct {
	DataDir      string
	LogLevel     slog.Level
	SaveInterval time.Duration
	Assistant    Assistant
}

// Assistant configures the reflection assistant backend.
type Assistant struct {
	Model        string
	APIKeyEnv    string
	Timeout      time.Duration
	HistoryLimit int
}

type yamlConfig struct {
	DataDir        string        `yaml:"data_dir"`
	LogLevel       string        `yaml:"log_level"`
	SaveIntervalMS int           `yaml:"save_interval_ms"`
	Assistant      yamlAssistant `yaml:"assistant"`
}

type yamlAssistant struct {
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HistoryLimit   int    `yaml:"history_limit"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel:     slog.LevelInfo,
		SaveInterval: time.Second,
		Assistant: Assistant{
			Model:        "gemini-2.0-flash",
			APIKeyEnv:    "GEMINI_API_KEY",
			Timeout:      30 * time.Second,
			HistoryLimit: 10,
		},
	}
}

// Load reads the config at path, or at DefaultPath when path is empty.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var fileData yamlConfig
	if err := yaml.Unmarshal(raw, &fileData); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	applyYAML(&cfg, fileData)
	return cfg, nil
}

// DefaultPath is <user config dir>/pomo-cli/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, AppName, configFileName), nil
}

// ResolveDataDir returns the configured data directory, falling back to
// <user config dir>/pomo-cli.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return expandHome(c.DataDir)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// StatePath is the state store file inside dataDir.
func StatePath(dataDir string) string {
	return filepath.Join(dataDir, stateFileName)
}

// LogPath is the log file inside dataDir.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, logFileName)
}

// APIKey reads the assistant key from the configured environment variable.
func (c Config) APIKey() string {
	if c.Assistant.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.Assistant.APIKeyEnv))
}

func applyYAML(cfg *Config, fileData yamlConfig) {
	if dir := strings.TrimSpace(fileData.DataDir); dir != "" {
		cfg.DataDir = dir
	}
	if level, ok := parseLevel(fileData.LogLevel); ok {
		cfg.LogLevel = level
	}
	if fileData.SaveIntervalMS >= 100 && fileData.SaveIntervalMS <= 60_000 {
		cfg.SaveInterval = time.Duration(fileData.SaveIntervalMS) * time.Millisecond
	}

	if m := strings.TrimSpace(fileData.Assistant.Model); m != "" {
		cfg.Assistant.Model = strings.TrimPrefix(m, "models/")
	}
	if env := strings.TrimSpace(fileData.Assistant.APIKeyEnv); env != "" {
		cfg.Assistant.APIKeyEnv = env
	}
	if s := fileData.Assistant.TimeoutSeconds; s > 0 && s <= 300 {
		cfg.Assistant.Timeout = time.Duration(s) * time.Second
	}
	if n := fileData.Assistant.HistoryLimit; n > 0 && n <= 100 {
		cfg.Assistant.HistoryLimit = n
	}
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
