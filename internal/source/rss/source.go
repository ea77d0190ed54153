package rss

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

// maxAge drops items too old to be worth mentioning
const maxAge = 7 * 24 * time.Hour

// Source picks a recent headline from one of several RSS feeds
type Source struct {
	feeds       []config.RSSFeed
	parser      *gofeed.Parser
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates a headline source for the configured feeds
func New(cfg config.RSSConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	return &Source{
		feeds:       cfg.Feeds,
		parser:      gofeed.NewParser(),
		rateLimiter: limiter,
		log:         log.WithComponent("rss"),
	}
}

// Headline returns the newest recent item title from a randomly chosen feed
func (s *Source) Headline(ctx context.Context) (string, error) {
	if len(s.feeds) == 0 {
		return "", errors.New("no feeds configured")
	}
	feed := s.feeds[rand.IntN(len(s.feeds))]

	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	s.log.Debug().Str("feed", feed.Name).Str("url", feed.URL).Msg("Fetching RSS feed")

	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return "", fmt.Errorf("failed to parse RSS feed %s: %w", feed.Name, err)
	}

	title := newestTitle(parsed.Items, time.Now())
	if title == "" {
		return "", fmt.Errorf("feed %s has no recent items", feed.Name)
	}
	return title, nil
}

func newestTitle(items []*gofeed.Item, now time.Time) string {
	var (
		best     string
		bestTime time.Time
	)
	for _, item := range items {
		title := cleanText(item.Title)
		if title == "" {
			continue
		}
		published := now
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
			if now.Sub(published) > maxAge {
				continue
			}
		}
		if best == "" || published.After(bestTime) {
			best, bestTime = title, published
		}
	}
	return best
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
