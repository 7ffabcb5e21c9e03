package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeys(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, filepath.Join(home, ".local/share/spice/spice.db"), cfg.Database.Path)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 50, cfg.LLM.BatchSize)
	assert.Equal(t, 1, cfg.LLM.Workers)
	assert.Equal(t, 60*time.Second, cfg.LLM.BatchTimeout)
	assert.Equal(t, 2*time.Second, cfg.LLM.RetryDelay)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.InDelta(t, 0.8, cfg.Classification.ReviewThreshold, 1e-9)
	assert.InDelta(t, 0.90, cfg.Entity.AutoAssignThreshold, 1e-9)
	assert.InDelta(t, 0.50, cfg.Entity.ConfirmThreshold, 1e-9)
	assert.InDelta(t, 0.45, cfg.Entity.Weights.CompanyNumber, 1e-9)
	assert.InDelta(t, 0.02, cfg.Entity.Weights.Default, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.LLM.CacheTTL)
	assert.Equal(t, "claude", cfg.LLM.ClaudeCodePath)

	_, err = cfg.LLM.APIKey()
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	clearKeys(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: Anthropic
  anthropic_api_key: file-key
  batch_size: 20
  batch_timeout: 15s
entity:
  weights:
    postcode: 0.3
database:
  path: `+filepath.Join(dir, "spice.db")+`
`), 0o600))

	t.Setenv("SPICE_LLM_WORKERS", "4")
	t.Setenv("SPICE_CLASSIFICATION_REVIEW_THRESHOLD", "0.6")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 20, cfg.LLM.BatchSize)
	assert.Equal(t, 4, cfg.LLM.Workers)
	assert.Equal(t, 15*time.Second, cfg.LLM.BatchTimeout)
	assert.InDelta(t, 0.6, cfg.Classification.ReviewThreshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.Entity.Weights.Postcode, 1e-9)
	assert.InDelta(t, 0.45, cfg.Entity.Weights.CompanyNumber, 1e-9, "unset weights keep defaults")

	client, err := cfg.LLM.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-key", client.APIKey)
	assert.Equal(t, 20, client.BatchSize)
}

func TestLoadAPIKeyFallback(t *testing.T) {
	clearKeys(t)
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	key, err := cfg.LLM.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestLoadClaudeCodeNeedsNoKey(t *testing.T) {
	clearKeys(t)
	t.Setenv("SPICE_LLM_PROVIDER", "claudecode")
	t.Setenv("SPICE_LLM_CLAUDE_CODE_PATH", "/opt/bin/claude")
	t.Setenv("SPICE_LLM_CACHE_TTL", "-1s")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	client, err := cfg.LLM.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "claudecode", client.Provider)
	assert.Empty(t, client.APIKey)
	assert.Equal(t, "/opt/bin/claude", client.CLIPath)
	assert.Equal(t, -time.Second, client.CacheTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		clearKeys(t)
		cfg, err := Load(viper.New())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"provider", func(c *Config) { c.LLM.Provider = "ollama" }},
		{"claudecode without path", func(c *Config) {
			c.LLM.Provider = "claudecode"
			c.LLM.ClaudeCodePath = ""
		}},
		{"batch size", func(c *Config) { c.LLM.BatchSize = 0 }},
		{"workers", func(c *Config) { c.LLM.Workers = -1 }},
		{"max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }},
		{"retries", func(c *Config) { c.LLM.MaxRetries = 0 }},
		{"review threshold", func(c *Config) { c.Classification.ReviewThreshold = 1.5 }},
		{"confirm above auto", func(c *Config) { c.Entity.ConfirmThreshold = 0.95 }},
		{"negative weight", func(c *Config) { c.Entity.Weights.Context = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SPICE_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, ":memory:", ExpandPath(":memory:"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "db", "spice.db"), ExpandPath("~/db/spice.db"))
	assert.Equal(t, "/data/spice.db", ExpandPath("$SPICE_TEST_DIR/spice.db"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
