package llm

import (
	"context"
	"time"
)

// Request is a single chat completion request.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client defines the interface for LLM providers.
type Client interface {
	// Complete returns the raw text of the model's reply.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds configuration for LLM clients and the batch classifier.
type Config struct {
	Provider         string
	APIKey           string
	Model            string
	BaseURL          string
	MaxRetries       int
	RetryDelay       time.Duration
	BatchTimeout     time.Duration
	RateLimit        int
	Temperature      float64
	MaxTokens        int
	BatchSize        int
	Workers          int
	CircuitThreshold int
	CircuitReset     time.Duration
	// CacheTTL bounds suggestion reuse; negative disables the cache.
	CacheTTL time.Duration
	// CLIPath locates the claude binary for the claudecode provider.
	CLIPath string
}

// Provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderClaudeCode = "claudecode"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderClaudeCode:
		return "sonnet"
	default:
		return "gpt-4o-mini"
	}
}
