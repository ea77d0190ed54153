package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

// GeminiClient generates text with Google's Gemini API
type GeminiClient struct {
	client         *genai.Client
	model          string
	thinkingBudget int
	rateLimiter    *ratelimit.MultiLimiter
	log            *logger.Logger
}

// NewGeminiClient creates a new Gemini client. baseURL is optional and only used
// to point the client at a proxy or test server.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger, baseURL ...string) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if len(baseURL) > 0 && baseURL[0] != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL[0]}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiClient{
		client:         client,
		model:          model,
		thinkingBudget: cfg.ThinkingBudget,
		rateLimiter:    limiter,
		log:            log.WithComponent("ai"),
	}, nil
}

// Name returns "gemini"
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Generate sends the prompt to Gemini and returns the response text
func (c *GeminiClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterGemini); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(maxTokens),
	}
	// Thinking tokens are billed against the output budget, so widen it by the same amount
	if c.thinkingBudget > 0 {
		genCfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(c.thinkingBudget))}
		genCfg.MaxOutputTokens += int32(c.thinkingBudget)
	}

	c.log.Debug().
		Str("model", c.model).
		Int32("max_output_tokens", genCfg.MaxOutputTokens).
		Msg("Sending request to Gemini")

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), genCfg)
	if err != nil {
		c.log.Error().Err(err).Msg("Gemini API error")
		return "", classifyGeminiError(err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	if result.UsageMetadata != nil {
		c.log.Debug().
			Int32("prompt_tokens", result.UsageMetadata.PromptTokenCount).
			Int32("output_tokens", result.UsageMetadata.CandidatesTokenCount).
			Msg("Received Gemini response")
	}

	return text, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests ||
			apiErr.Status == "RESOURCE_EXHAUSTED" ||
			isBalanceError(apiErr.Message) {
			return fmt.Errorf("%w: gemini API %s", ErrQuotaExceeded, apiErr.Status)
		}
		return fmt.Errorf("gemini API status %d: %w", apiErr.Code, err)
	}
	return fmt.Errorf("GenAI generate failed: %w", err)
}
