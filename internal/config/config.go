// Package config loads host configuration for the tillsync library and
// CLI. Sources layer in increasing precedence: built-in defaults, an
// optional YAML file, then TILLSYNC_* environment variables (a .env
// file is honoured when present).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	tsync "github.com/tillsync/tillsync/internal/sync"
)

// Config is everything a host needs to open the local store and talk
// to the remote backend.
type Config struct {
	DBPath string `yaml:"db_path"`

	RemoteURL string `yaml:"remote_url"`
	APIKey    string `yaml:"api_key"`

	StoreID string `yaml:"store_id"`
	UserID  string `yaml:"user_id"`

	// TaxRate is a fraction, e.g. 0.11 for 11 percent.
	TaxRate       float64 `yaml:"tax_rate"`
	DiscountCents int64   `yaml:"discount_cents"`

	Retry RetryConfig `yaml:"retry"`
	Probe ProbeConfig `yaml:"probe"`
}

// RetryConfig tunes the upload retry policy.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// ProbeConfig tunes the optional connectivity probe. An empty Addr
// disables probing; the host then drives the monitor via SetOnline.
type ProbeConfig struct {
	Addr     string        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := tsync.DefaultPolicy()
	return Config{
		DBPath: "tillsync.db",
		Retry: RetryConfig{
			MaxAttempts:   p.MaxAttempts,
			InitialDelay:  p.InitialDelay,
			BackoffFactor: p.BackoffFactor,
		},
		Probe: ProbeConfig{
			Interval: 30 * time.Second,
			Timeout:  3 * time.Second,
		},
	}
}

// Load reads the file at path (skipped when path is empty or the file
// does not exist) and applies environment overrides on top of the
// defaults.
func Load(path string) (Config, error) {
	// Best effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("TILLSYNC_DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("TILLSYNC_REMOTE_URL"); ok {
		c.RemoteURL = v
	}
	if v, ok := os.LookupEnv("TILLSYNC_API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := os.LookupEnv("TILLSYNC_STORE_ID"); ok {
		c.StoreID = v
	}
	if v, ok := os.LookupEnv("TILLSYNC_USER_ID"); ok {
		c.UserID = v
	}
	if v, ok := os.LookupEnv("TILLSYNC_TAX_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TILLSYNC_TAX_RATE: %w", err)
		}
		c.TaxRate = f
	}
	if v, ok := os.LookupEnv("TILLSYNC_DISCOUNT_CENTS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TILLSYNC_DISCOUNT_CENTS: %w", err)
		}
		c.DiscountCents = n
	}
	return nil
}

// Validate rejects configurations the library cannot run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("tax_rate %v out of range [0, 1)", c.TaxRate)
	}
	if c.DiscountCents < 0 {
		return fmt.Errorf("discount_cents must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry.backoff_factor must be at least 1")
	}
	if c.RemoteURL != "" && c.APIKey == "" {
		return fmt.Errorf("api_key is required when remote_url is set")
	}
	return nil
}

// RetryPolicy converts the retry knobs into an engine policy.
func (c *Config) RetryPolicy() tsync.Policy {
	return tsync.Policy{
		MaxAttempts:   c.Retry.MaxAttempts,
		InitialDelay:  c.Retry.InitialDelay,
		BackoffFactor: c.Retry.BackoffFactor,
	}
}
