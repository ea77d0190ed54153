package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters for different services
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for a service
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event.
// A nil MultiLimiter never blocks, so clients built without one stay usable in tests.
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	if m == nil {
		return true
	}

	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Has reports whether a limiter is registered under name
func (m *MultiLimiter) Has(name string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.limiters[name]
	return ok
}

// Limiter names
const (
	LimiterTwitter   = "twitter"
	LimiterLinkedIn  = "linkedin"
	LimiterAnthropic = "anthropic"
	LimiterGemini    = "gemini"
	LimiterRSS       = "rss"
)

// Limits holds per-minute budgets for the two provider families
type Limits struct {
	PosterPerMinute    float64
	GeneratorPerMinute float64
}

// NewDefaultLimiter creates a limiter with the given provider budgets.
// Zero values fall back to conservative defaults.
func NewDefaultLimiter(l Limits) *MultiLimiter {
	if l.PosterPerMinute <= 0 {
		l.PosterPerMinute = 10
	}
	if l.GeneratorPerMinute <= 0 {
		l.GeneratorPerMinute = 10
	}

	m := NewMultiLimiter()

	// Posting: shared budget per provider, small burst so multi-account cycles are not throttled
	m.AddLimiter(LimiterTwitter, l.PosterPerMinute/60, 5)
	m.AddLimiter(LimiterLinkedIn, l.PosterPerMinute/60, 5)

	// Generation: one call per cycle, burst 2
	m.AddLimiter(LimiterAnthropic, l.GeneratorPerMinute/60, 2)
	m.AddLimiter(LimiterGemini, l.GeneratorPerMinute/60, 2)

	// RSS: be polite - 1 per second, burst 10
	m.AddLimiter(LimiterRSS, 1, 10)

	return m
}
