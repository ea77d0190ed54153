package linkedin

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/social-autoposter/internal/models"
)

// endpoint is LinkedIn's OAuth 2.0 endpoint
var endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
}

// TokenCache keeps one refreshing token source per account so refreshed
// tokens survive across cycles for the lifetime of the process
type TokenCache struct {
	mu       sync.Mutex
	sources  map[string]oauth2.TokenSource
	tokenURL string
}

// NewTokenCache creates an empty cache. tokenURL overrides the refresh endpoint when set.
func NewTokenCache(tokenURL string) *TokenCache {
	return &TokenCache{
		sources:  make(map[string]oauth2.TokenSource),
		tokenURL: tokenURL,
	}
}

// Source returns the token source for creds: client id, client secret,
// access token and refresh token in the four credential slots
func (c *TokenCache) Source(creds models.Credentials) oauth2.TokenSource {
	key := creds.AppKey + "\x00" + creds.AccessToken

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.sources[key]; ok {
		return ts
	}

	ep := endpoint
	if c.tokenURL != "" {
		ep.TokenURL = c.tokenURL
	}
	conf := &oauth2.Config{
		ClientID:     creds.AppKey,
		ClientSecret: creds.AppSecret,
		Endpoint:     ep,
	}

	// Expiry is unknown for injected tokens; a zero expiry is treated as valid
	// until the API rejects it, at which point the account is re-authorized by hand.
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.AccessSecret,
		TokenType:    "Bearer",
	}

	ts := oauth2.ReuseTokenSource(token, conf.TokenSource(context.Background(), token))
	c.sources[key] = ts
	return ts
}
