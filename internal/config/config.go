package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/entity"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDatabasePath is where the SQLite database lives unless configured.
const DefaultDatabasePath = "~/.local/share/spice/spice.db"

// Config is the full application configuration.
type Config struct {
	Logging        LoggingConfig        `mapstructure:"logging"`
	Database       DatabaseConfig       `mapstructure:"database"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Entity         EntityConfig         `mapstructure:"entity"`
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the record store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

// LLMConfig configures the AI classifier.
type LLMConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey  string        `mapstructure:"anthropic_api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Temperature      float64       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	BatchSize        int           `mapstructure:"batch_size"`
	Workers          int           `mapstructure:"workers"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	RateLimit        int           `mapstructure:"rate_limit"`
	CircuitThreshold int           `mapstructure:"circuit_threshold"`
	CircuitReset     time.Duration `mapstructure:"circuit_reset"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	ClaudeCodePath   string        `mapstructure:"claude_code_path"`
}

// ClassificationConfig tunes the orchestrator.
type ClassificationConfig struct {
	ReviewThreshold float64 `mapstructure:"review_threshold"`
}

// EntityConfig tunes entity resolution.
type EntityConfig struct {
	Weights             entity.Weights `mapstructure:"weights"`
	AutoAssignThreshold float64        `mapstructure:"auto_assign_threshold"`
	ConfirmThreshold    float64        `mapstructure:"confirm_threshold"`
}

// SetDefaults registers every default with v so that environment overrides
// are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.url", "")

	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.batch_size", llm.DefaultBatchSize)
	v.SetDefault("llm.workers", 1)
	v.SetDefault("llm.batch_timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", 2*time.Second)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.circuit_threshold", 3)
	v.SetDefault("llm.circuit_reset", 30*time.Second)
	v.SetDefault("llm.cache_ttl", llm.DefaultCacheTTL)
	v.SetDefault("llm.claude_code_path", "claude")

	v.SetDefault("classification.review_threshold", 0.8)

	thresholds := entity.DefaultThresholds()
	v.SetDefault("entity.auto_assign_threshold", thresholds.AutoAssign)
	v.SetDefault("entity.confirm_threshold", thresholds.Confirm)

	w := entity.DefaultWeights()
	for key, value := range map[string]float64{
		"company_number":      w.CompanyNumber,
		"vat_number":          w.VATNumber,
		"reference":           w.Reference,
		"exact_name":          w.ExactName,
		"name_contained":      w.NameContained,
		"name_overlap":        w.NameOverlap,
		"postcode":            w.Postcode,
		"text_name":           w.TextName,
		"text_company_number": w.TextCompanyNumber,
		"context":             w.Context,
		"default_entity":      w.Default,
		"min_name_overlap":    w.MinNameOverlap,
	} {
		v.SetDefault("entity.weights."+key, value)
	}
}

// Load reads configuration from v, applying defaults, SPICE_ environment
// overrides and provider API key fallbacks, then validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("SPICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	if cfg.LLM.OpenAIAPIKey == "" {
		cfg.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.AnthropicAPIKey == "" {
		cfg.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Database.Path = ExpandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable. API keys are not
// required here; see LLMConfig.APIKey.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "console", "json":
	default:
		return invalid("logging.format must be text or json, got %q", c.Logging.Format)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return invalid("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url is required for postgres")
		}
	default:
		return invalid("unknown database.driver %q", c.Database.Driver)
	}

	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic:
	case llm.ProviderClaudeCode:
		if c.LLM.ClaudeCodePath == "" {
			return invalid("llm.claude_code_path is required for claudecode")
		}
	default:
		return invalid("unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.BatchSize <= 0 {
		return invalid("llm.batch_size must be positive, got %d", c.LLM.BatchSize)
	}
	if c.LLM.Workers <= 0 {
		return invalid("llm.workers must be positive, got %d", c.LLM.Workers)
	}
	if c.LLM.MaxTokens <= 0 {
		return invalid("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return invalid("llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxRetries < 1 {
		return invalid("llm.max_retries must be at least 1, got %d", c.LLM.MaxRetries)
	}

	if c.Classification.ReviewThreshold < 0 || c.Classification.ReviewThreshold > 1 {
		return invalid("classification.review_threshold must be in [0, 1], got %v", c.Classification.ReviewThreshold)
	}

	if err := c.Entity.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if err := c.Entity.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// APIKey returns the key for the configured provider, or ErrMissingConfig.
// The claudecode provider uses the CLI's own login and needs no key.
func (c LLMConfig) APIKey() (string, error) {
	var key, name string
	switch c.Provider {
	case llm.ProviderClaudeCode:
		return "", nil
	case llm.ProviderAnthropic:
		key, name = c.AnthropicAPIKey, "llm.anthropic_api_key (or ANTHROPIC_API_KEY)"
	default:
		key, name = c.OpenAIAPIKey, "llm.openai_api_key (or OPENAI_API_KEY)"
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s", common.ErrMissingConfig, name)
	}
	return key, nil
}

// ClientConfig converts the section into the llm package's configuration.
func (c LLMConfig) ClientConfig() (llm.Config, error) {
	key, err := c.APIKey()
	if err != nil {
		return llm.Config{}, err
	}
	return llm.Config{
		Provider:         c.Provider,
		APIKey:           key,
		Model:            c.Model,
		BaseURL:          c.BaseURL,
		MaxRetries:       c.MaxRetries,
		RetryDelay:       c.RetryDelay,
		BatchTimeout:     c.BatchTimeout,
		RateLimit:        c.RateLimit,
		Temperature:      c.Temperature,
		MaxTokens:        c.MaxTokens,
		BatchSize:        c.BatchSize,
		Workers:          c.Workers,
		CircuitThreshold: c.CircuitThreshold,
		CircuitReset:     c.CircuitReset,
		CacheTTL:         c.CacheTTL,
		CLIPath:          c.ClaudeCodePath,
	}, nil
}

// Thresholds returns the entity resolution thresholds.
func (c EntityConfig) Thresholds() entity.Thresholds {
	return entity.Thresholds{AutoAssign: c.AutoAssignThreshold, Confirm: c.ConfirmThreshold}
}
