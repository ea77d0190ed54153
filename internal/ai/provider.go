package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

var (
	// ErrNotConfigured means no provider is selected or its API key is missing
	ErrNotConfigured = errors.New("generation provider not configured")
	// ErrQuotaExceeded covers rate limits, exhausted quota and insufficient balance
	ErrQuotaExceeded = errors.New("generation quota exceeded")
	// ErrEmptyResponse means the provider answered without any text
	ErrEmptyResponse = errors.New("generation provider returned no text")
)

// Provider generates text from a prompt
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// NewProvider builds the provider selected in cfg. It returns ErrNotConfigured when
// generation is disabled or the selected provider has no key.
func NewProvider(ctx context.Context, cfg *config.Config, limiter *ratelimit.MultiLimiter, log *logger.Logger) (Provider, error) {
	switch cfg.Generator.Provider {
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("%w: anthropic.api_key is empty", ErrNotConfigured)
		}
		return NewAnthropicClient(cfg.Anthropic, limiter, log), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini.api_key is empty", ErrNotConfigured)
		}
		return NewGeminiClient(ctx, cfg.Gemini, limiter, log)
	default:
		return nil, ErrNotConfigured
	}
}
