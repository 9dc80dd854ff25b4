package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrMissingAPIKey is returned when an insight command runs without credentials.
var ErrMissingAPIKey = errors.New("anthropic API key not set")

// historical marker file watched by the original monitor
const defaultMarkerFile = "statsig/statsig.session_id.2656274335"

type Config struct {
	BaseDir      string        `toml:"base_dir"`
	MarkerFile   string        `toml:"marker_file"`
	DBPath       string        `toml:"db_path"`
	PollInterval string        `toml:"poll_interval"`
	WindowDays   int           `toml:"window_days"`
	LogLevel     string        `toml:"log_level"`
	Insight      InsightConfig `toml:"insight"`

	interval time.Duration
}

type InsightConfig struct {
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
	Timeout   string `toml:"timeout"`
}

// Default returns the configuration used when no config file exists.
func Default(home string) *Config {
	return &Config{
		BaseDir:      filepath.Join(home, ".claude"),
		MarkerFile:   defaultMarkerFile,
		DBPath:       filepath.Join(home, ".config", "csa", "csa.db"),
		PollInterval: "5s",
		WindowDays:   7,
		LogLevel:     "info",
		Insight: InsightConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1000,
			BaseURL:   "https://api.anthropic.com",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Timeout:   "60s",
		},
		interval: 5 * time.Second,
	}
}

// Load reads ~/.config/csa/config.toml (or $CSA_CONFIG) over the defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfgPath := os.Getenv("CSA_CONFIG")
	if cfgPath == "" {
		cfgPath = filepath.Join(home, ".config", "csa", "config.toml")
	}
	return LoadFile(cfgPath, home)
}

// LoadFile is Load with an explicit config path and home directory.
// A missing file is not an error.
func LoadFile(cfgPath, home string) (*Config, error) {
	cfg := Default(home)

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	// expand ~ in paths
	cfg.BaseDir = expandHome(cfg.BaseDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.MarkerFile = expandHome(cfg.MarkerFile, home)

	d, err := time.ParseDuration(cfg.PollInterval)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid poll_interval %q", cfg.PollInterval)
	}
	cfg.interval = d

	if cfg.WindowDays <= 0 {
		return nil, fmt.Errorf("invalid window_days %d", cfg.WindowDays)
	}
	if _, err := time.ParseDuration(cfg.Insight.Timeout); err != nil {
		return nil, fmt.Errorf("invalid insight.timeout %q", cfg.Insight.Timeout)
	}

	return cfg, nil
}

// Interval is the parsed poll_interval.
func (c *Config) Interval() time.Duration {
	return c.interval
}

// Window is window_days as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// MarkerPath resolves marker_file against the base directory.
func (c *Config) MarkerPath() string {
	if filepath.IsAbs(c.MarkerFile) {
		return c.MarkerFile
	}
	return filepath.Join(c.BaseDir, c.MarkerFile)
}

// APIKey reads the insight API key from the configured environment variable.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.Insight.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, c.Insight.APIKeyEnv)
	}
	return key, nil
}

// InsightTimeout is the parsed insight.timeout.
func (c *Config) InsightTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Insight.Timeout)
	return d
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
