package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/pkg/logger"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Go 1.30 ships iterators", cleanText("<p>Go 1.30 <b>ships</b>\n iterators</p>"))
}

func TestHeadlinePicksNewestRecentItem(t *testing.T) {
	now := time.Now().UTC()
	feed := fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Old news</title><pubDate>%s</pubDate></item>
<item><title>Yesterday</title><pubDate>%s</pubDate></item>
<item><title>Today</title><pubDate>%s</pubDate></item>
</channel></rss>`,
		now.Add(-30*24*time.Hour).Format(time.RFC1123Z),
		now.Add(-24*time.Hour).Format(time.RFC1123Z),
		now.Add(-time.Hour).Format(time.RFC1123Z))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	s := New(config.RSSConfig{Feeds: []config.RSSFeed{{Name: "test", URL: srv.URL}}}, nil, logger.Nop())
	title, err := s.Headline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Today", title)
}

func TestHeadlineWithoutFeeds(t *testing.T) {
	_, err := New(config.RSSConfig{}, nil, logger.Nop()).Headline(context.Background())
	assert.Error(t, err)
}
