package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

// AnthropicClient wraps the Anthropic SDK client
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewAnthropicClient creates a new Anthropic client. Extra request options are
// appended after the API key, e.g. a base URL override.
func NewAnthropicClient(cfg config.AnthropicConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger, opts ...option.RequestOption) *AnthropicClient {
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		rateLimiter: limiter,
		log:         log.WithComponent("ai"),
	}
}

// Name returns "anthropic"
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Generate sends the prompt to Claude and returns the concatenated text blocks
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	c.log.Debug().
		Str("model", c.model).
		Int("max_tokens", maxTokens).
		Msg("Sending request to Claude")

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: SystemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Error().Err(err).Msg("Claude API error")
		return "", classifyAnthropicError(err)
	}

	var response strings.Builder
	for _, block := range message.Content {
		if text := block.AsText(); text.Text != "" {
			response.WriteString(text.Text)
		}
	}

	c.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	if strings.TrimSpace(response.String()) == "" {
		return "", ErrEmptyResponse
	}
	return response.String(), nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || isBalanceError(apiErr.RawJSON()) {
			return fmt.Errorf("%w: claude API status %d", ErrQuotaExceeded, apiErr.StatusCode)
		}
		return fmt.Errorf("claude API status %d: %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("claude API error: %w", err)
}

// isBalanceError matches provider messages about depleted credit
func isBalanceError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "credit balance") ||
		strings.Contains(msg, "insufficient balance") ||
		strings.Contains(msg, "quota")
}
