// Package config loads and saves the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultDataDir       = "./data"
	DefaultTimezone      = "UTC"
	DefaultRebalanceCron = "0 0 5 * * *"
	DefaultFetchTimeout  = 30
	DefaultLogLevel      = "info"
)

// SubscriptionConfig describes a calendar URL that is re-imported
// periodically.
type SubscriptionConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Kind selects the pipeline. Only "exams" replaces earlier imports.
	Kind string `yaml:"kind" json:"kind"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// IntervalMinutes between imports. Zero means hourly.
	IntervalMinutes int `yaml:"interval_minutes,omitempty" json:"interval_minutes,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir holds the SQLite database.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Timezone is the IANA zone that decides what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locales lists the keyword locales to merge, in order.
	// Empty means every locale in the resource file.
	Locales []string `yaml:"locales" json:"locales"`

	// KeywordsFile overrides the embedded keyword tables.
	KeywordsFile string `yaml:"keywords_file,omitempty" json:"keywords_file,omitempty"`

	// RebalanceCron is a six-field cron expression (with seconds).
	RebalanceCron string `yaml:"rebalance_cron" json:"rebalance_cron"`

	// FetchTimeoutSeconds bounds calendar downloads.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// Subscriptions are calendar URLs re-imported while serving.
	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	LogLevel       string `yaml:"log_level" json:"log_level"`
	LogDevelopment bool   `yaml:"log_development" json:"log_development"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              DefaultListen,
		DataDir:             DefaultDataDir,
		Timezone:            DefaultTimezone,
		Locales:             []string{},
		RebalanceCron:       DefaultRebalanceCron,
		FetchTimeoutSeconds: DefaultFetchTimeout,
		Subscriptions:       []SubscriptionConfig{},
		LogLevel:            DefaultLogLevel,
	}
}

// Normalize fills in missing or zero values so that partially filled
// files still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Locales == nil {
		c.Locales = []string{}
	}
	if c.RebalanceCron == "" {
		c.RebalanceCron = DefaultRebalanceCron
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = DefaultFetchTimeout
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	for i := range c.Subscriptions {
		sub := &c.Subscriptions[i]
		if sub.ID == "" {
			sub.ID = fmt.Sprintf("subscription-%d", i+1)
		}
		if sub.Kind == "" {
			sub.Kind = "exams"
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = DefaultLogLevel
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FetchTimeout returns FetchTimeoutSeconds as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "edumon.db")
}

// Load loads configuration from the given YAML path.
//
// A missing file is created with the defaults (mode 0600) and the defaults
// are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically through a temp file and rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".edumon-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
