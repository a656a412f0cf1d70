package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tillsync.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, 30*time.Second, cfg.Probe.Interval)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tillsync.db", cfg.DBPath)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /var/lib/till.db
remote_url: https://example.supabase.co
api_key: secret
store_id: store-9
tax_rate: 0.11
discount_cents: 50
retry:
  max_attempts: 5
  initial_delay: 2s
  backoff_factor: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/till.db", cfg.DBPath)
	assert.Equal(t, "https://example.supabase.co", cfg.RemoteURL)
	assert.Equal(t, "store-9", cfg.StoreID)
	assert.Equal(t, 0.11, cfg.TaxRate)
	assert.Equal(t, int64(50), cfg.DiscountCents)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 3.0, cfg.Retry.BackoffFactor)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: from-file.db\ntax_rate: 0.05\n"), 0o600))

	t.Setenv("TILLSYNC_DB_PATH", "from-env.db")
	t.Setenv("TILLSYNC_TAX_RATE", "0.21")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, 0.21, cfg.TaxRate)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("TILLSYNC_TAX_RATE", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TILLSYNC_TAX_RATE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"tax rate too high", func(c *Config) { c.TaxRate = 1.0 }, "tax_rate"},
		{"negative discount", func(c *Config) { c.DiscountCents = -1 }, "discount_cents"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"shrinking backoff", func(c *Config) { c.Retry.BackoffFactor = 0.5 }, "backoff_factor"},
		{"remote without key", func(c *Config) { c.RemoteURL = "https://x" }, "api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_Conversion(t *testing.T) {
	cfg := Default()
	cfg.Retry = RetryConfig{MaxAttempts: 7, InitialDelay: 250 * time.Millisecond, BackoffFactor: 1.5}

	p := cfg.RetryPolicy()
	assert.Equal(t, 7, p.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 1.5, p.BackoffFactor)
}
