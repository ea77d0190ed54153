package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/oauth2"

	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/social"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

const (
	defaultBaseURL  = "https://api.linkedin.com/v2"
	restliVersion   = "2.0.0"
	linkedinVersion = "202401" // LinkedIn API version
)

// Client publishes text posts to LinkedIn on behalf of each account
type Client struct {
	baseURL     string
	tokens      *TokenCache
	timeout     time.Duration
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a LinkedIn client. An empty baseURL uses the public API.
func NewClient(baseURL string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      NewTokenCache(""),
		timeout:     30 * time.Second,
		rateLimiter: limiter,
		log:         log.WithComponent("linkedin"),
	}
}

// Name returns "linkedin"
func (c *Client) Name() string {
	return "linkedin"
}

// do performs an authenticated request with the LinkedIn headers
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, body interface{}) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterLinkedIn); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Restli-Protocol-Version", restliVersion)
	req.Header.Set("LinkedIn-Version", linkedinVersion)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("Making LinkedIn API request")

	resp, err := httpClient.Do(req)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			perr := &social.ProviderError{
				Class:   models.ErrorClassAuth,
				Message: "token refresh failed: " + rerr.ErrorDescription,
			}
			if rerr.Response != nil {
				perr.StatusCode = rerr.Response.StatusCode
			}
			return nil, perr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Profile represents a LinkedIn user profile
type Profile struct {
	Sub  string `json:"sub"` // LinkedIn member ID
	Name string `json:"name"`
}

func (c *Client) profile(ctx context.Context, httpClient *http.Client) (*Profile, error) {
	resp, err := c.do(ctx, httpClient, http.MethodGet, "/userinfo", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, social.NewProviderError(resp.StatusCode, body)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// PostRequest represents the LinkedIn Posts API request body
type PostRequest struct {
	Author                    string       `json:"author"`
	Commentary                string       `json:"commentary"`
	Visibility                string       `json:"visibility"`
	Distribution              Distribution `json:"distribution"`
	LifecycleState            string       `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool         `json:"isReshareDisabledByAuthor"`
}

// Distribution represents post distribution settings
type Distribution struct {
	FeedDistribution               string        `json:"feedDistribution"`
	TargetEntities                 []interface{} `json:"targetEntities"`
	ThirdPartyDistributionChannels []interface{} `json:"thirdPartyDistributionChannels"`
}

// Post publishes a text post and returns its URN
func (c *Client) Post(ctx context.Context, text string, creds models.Credentials) (string, error) {
	if creds.AppKey == "" || creds.AccessToken == "" {
		return "", &social.ProviderError{
			Class:   models.ErrorClassAuth,
			Message: "incomplete credentials: need client id and access token",
		}
	}

	httpClient := oauth2.NewClient(ctx, c.tokens.Source(creds))
	httpClient.Timeout = c.timeout

	profile, err := c.profile(ctx, httpClient)
	if err != nil {
		return "", err
	}

	postReq := PostRequest{
		Author:     fmt.Sprintf("urn:li:person:%s", profile.Sub),
		Commentary: Sanitize(text),
		Visibility: "PUBLIC",
		Distribution: Distribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []interface{}{},
			ThirdPartyDistributionChannels: []interface{}{},
		},
		LifecycleState: "PUBLISHED",
	}

	resp, err := c.do(ctx, httpClient, http.MethodPost, "/posts", postReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		perr := social.NewProviderError(resp.StatusCode, body)
		c.log.Debug().
			Int("status", resp.StatusCode).
			Str("class", string(perr.Class)).
			Str("body", string(body)).
			Msg("Post rejected")
		return "", perr
	}

	postURN := resp.Header.Get("x-restli-id")
	if postURN == "" {
		postURN = resp.Header.Get("Location")
	}
	if postURN == "" {
		return "", errors.New("post created but response has no id")
	}
	return postURN, nil
}

// decorative maps characters the Posts API mangles to ASCII equivalents
var decorative = strings.NewReplacer(
	"━", "-", "─", "-", "═", "=", "│", "|", "║", "|",
	"•", "-", "◦", "-", "▪", "-", "►", ">", "◄", "<",
	"★", "*", "☆", "*", "✓", "[x]", "✔", "[x]", "✗", "[ ]",
	"→", "->", "←", "<-", "⇒", "=>",
	"\u00A0", " ", "\u2002", " ", "\u2003", " ", "\u2009", " ",
	"\u200B", "", "\u200C", "", "\u200D", "", "\uFEFF", "",
)

// Sanitize cleans content so the LinkedIn API accepts it
func Sanitize(content string) string {
	content = decorative.Replace(content)

	var result strings.Builder
	result.Grow(len(content))
	for _, r := range content {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			result.WriteRune(r)
		}
	}

	content = result.String()
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(content)
}

var _ social.Poster = (*Client)(nil)
