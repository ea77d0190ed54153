package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/tidwall/gjson"

	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/social"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

const defaultBaseURL = "https://api.twitter.com"

// Client posts tweets through the v2 API with OAuth 1.0a user context
type Client struct {
	baseURL     string
	timeout     time.Duration
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a Twitter client. An empty baseURL uses the public API.
func NewClient(baseURL string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     30 * time.Second,
		rateLimiter: limiter,
		log:         log.WithComponent("twitter"),
	}
}

// Name returns "twitter"
func (c *Client) Name() string {
	return "twitter"
}

type tweetRequest struct {
	Text string `json:"text"`
}

// Post publishes text and returns the tweet id
func (c *Client) Post(ctx context.Context, text string, creds models.Credentials) (string, error) {
	if !creds.IsComplete() {
		return "", &social.ProviderError{
			Class:   models.ErrorClassAuth,
			Message: "incomplete credentials: need app key, app secret, access token and access secret",
		}
	}

	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterTwitter); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	httpClient := oauth1.NewConfig(creds.AppKey, creds.AppSecret).
		Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessSecret))
	httpClient.Timeout = c.timeout

	data, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Int("length", len(text)).Msg("Posting tweet")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		perr := social.NewProviderError(resp.StatusCode, body)
		c.log.Debug().
			Int("status", resp.StatusCode).
			Str("class", string(perr.Class)).
			Str("body", string(body)).
			Msg("Tweet rejected")
		return "", perr
	}

	id := gjson.GetBytes(body, "data.id").String()
	if id == "" {
		return "", fmt.Errorf("tweet created but response has no id: %s", string(body))
	}
	return id, nil
}

var _ social.Poster = (*Client)(nil)
