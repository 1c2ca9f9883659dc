package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/nhle/notification-inbox/internal/validate"
)

// APIConfig points at the notification REST backend.
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:5000/api.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"gte=1"`
}

// PushConfig holds settings for the live update channel.
type PushConfig struct {
	// URL is the websocket endpoint, e.g. ws://localhost:5000/ws.
	URL string `mapstructure:"url" yaml:"url" validate:"required,url"`

	PingIntervalSec int `mapstructure:"ping_interval_sec" yaml:"ping_interval_sec" validate:"gte=0"`

	// ReconnectPerMinute caps how often a dropped channel is redialed.
	ReconnectPerMinute int `mapstructure:"reconnect_per_minute" yaml:"reconnect_per_minute" validate:"gte=1"`
}

// IdentityConfig configures the identity provider used for sign-in.
type IdentityConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	TokenURL string `mapstructure:"token_url" yaml:"token_url" validate:"required,url"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`

	// LastEmail is the account signed in most recently; its stored
	// refresh token is used to resume the session at startup.
	LastEmail string `mapstructure:"last_email" yaml:"last_email" validate:"omitempty,email"`
}

// SyncConfig controls the periodic authoritative reload.
type SyncConfig struct {
	// IntervalSec of 0 disables periodic reloads.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec" validate:"gte=0"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	LatestCount int `mapstructure:"latest_count" yaml:"latest_count" validate:"gte=1,lte=100"`
}

// LoggingConfig controls the log file. The terminal belongs to the UI, so
// logs never go to stderr while the program runs.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Push     PushConfig     `mapstructure:"push" yaml:"push"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ConfigDir returns ~/.config/inbox, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "inbox")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/inbox/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a configuration pointing at a local backend.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:5000/api",
			TimeoutSec: 30,
		},
		Push: PushConfig{
			URL:                "ws://localhost:5000/ws",
			PingIntervalSec:    30,
			ReconnectPerMinute: 6,
		},
		Identity: IdentityConfig{
			BaseURL:  "https://identitytoolkit.googleapis.com/v1",
			TokenURL: "https://securetoken.googleapis.com/v1",
		},
		Sync: SyncConfig{
			IntervalSec: 300,
		},
		Display: DisplayConfig{
			LatestCount: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "inbox.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
// INBOX_* environment variables override file values
// (e.g. INBOX_API_BASE_URL, INBOX_IDENTITY_API_KEY).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("INBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it on Unmarshal.
	def := DefaultAppConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("push.url", def.Push.URL)
	v.SetDefault("push.ping_interval_sec", def.Push.PingIntervalSec)
	v.SetDefault("push.reconnect_per_minute", def.Push.ReconnectPerMinute)
	v.SetDefault("identity.base_url", def.Identity.BaseURL)
	v.SetDefault("identity.token_url", def.Identity.TokenURL)
	v.SetDefault("identity.api_key", def.Identity.APIKey)
	v.SetDefault("identity.last_email", def.Identity.LastEmail)
	v.SetDefault("sync.interval_sec", def.Sync.IntervalSec)
	v.SetDefault("display.latest_count", def.Display.LatestCount)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration against its validate tags.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("push", cfg.Push)
	v.Set("identity", cfg.Identity)
	v.Set("sync", cfg.Sync)
	v.Set("display", cfg.Display)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
