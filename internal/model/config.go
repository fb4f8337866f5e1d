package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Store drivers accepted in StoreConfig.Driver.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

// StoreConfig selects and configures the message store.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	// Seed fills an empty store with the demo messages.
	Seed bool `mapstructure:"seed" yaml:"seed"`

	// RequestTimeoutSec bounds each background store request.
	// Zero means no timeout.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// IdentityConfig describes the local user.
type IdentityConfig struct {
	From string `mapstructure:"from" yaml:"from"`
}

// SMTPConfig holds the outbound server settings. The password is never
// stored here; it comes from the environment or the keyring.
type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// IMAPConfig holds the inbound server settings used by the inbox poller.
type IMAPConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	SinceDays       int    `mapstructure:"since_days" yaml:"since_days"`
	Limit           int    `mapstructure:"limit" yaml:"limit"`
}

// UIConfig holds event loop and display preferences.
type UIConfig struct {
	// TickMillis is the period of tick events.
	TickMillis int `mapstructure:"tick_ms" yaml:"tick_ms"`

	// RefreshIntervalSec makes the message table reload the list
	// periodically. Zero disables it.
	RefreshIntervalSec int `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// LogConfig controls where diagnostics go.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	SMTP     SMTPConfig     `mapstructure:"smtp" yaml:"smtp"`
	IMAP     IMAPConfig     `mapstructure:"imap" yaml:"imap"`
	UI       UIConfig       `mapstructure:"ui" yaml:"ui"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/mailterm, or the working directory when the
// home directory cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailterm")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailterm/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a configuration that runs against a local
// SQLite database with demo data and no network transport.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
			Path:   filepath.Join(dir, "mail.db"),
			Seed:   true,
		},
		Identity: IdentityConfig{From: "me@me.me"},
		SMTP:     SMTPConfig{Port: "587"},
		IMAP: IMAPConfig{
			Port:            "993",
			TLS:             true,
			PollIntervalSec: 120,
			SinceDays:       7,
			Limit:           50,
		},
		UI: UIConfig{TickMillis: 250},
		Log: LogConfig{
			File:  filepath.Join(dir, "mailterm.log"),
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultAppConfig()
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.seed", def.Store.Seed)
	v.SetDefault("store.request_timeout_sec", 0)
	v.SetDefault("identity.from", def.Identity.From)
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", def.SMTP.Port)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.tls", false)
	v.SetDefault("imap.enabled", false)
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.port", def.IMAP.Port)
	v.SetDefault("imap.tls", def.IMAP.TLS)
	v.SetDefault("imap.poll_interval_sec", def.IMAP.PollIntervalSec)
	v.SetDefault("imap.since_days", def.IMAP.SinceDays)
	v.SetDefault("imap.limit", def.IMAP.Limit)
	v.SetDefault("ui.tick_ms", def.UI.TickMillis)
	v.SetDefault("ui.refresh_interval_sec", 0)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.level", def.Log.Level)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults. Environment variables prefixed with
// MAILTERM_ override file values (MAILTERM_STORE_DRIVER, ...).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("mailterm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports configuration that cannot be started.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.SMTP.Enabled && c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required when smtp is enabled")
	}
	if c.IMAP.Enabled {
		if c.IMAP.Host == "" {
			return fmt.Errorf("imap.host is required when imap is enabled")
		}
		if c.Store.Driver != StoreDriverSQLite {
			return fmt.Errorf("imap import needs the sqlite store")
		}
	}
	if c.UI.TickMillis < 0 {
		return fmt.Errorf("ui.tick_ms must not be negative")
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

	v.Set("store", cfg.Store)
	v.Set("identity", cfg.Identity)
	v.Set("smtp", cfg.SMTP)
	v.Set("imap", cfg.IMAP)
	v.Set("ui", cfg.UI)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
