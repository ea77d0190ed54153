package delivery

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/social-autoposter/internal/content"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/social"
	"github.com/social-autoposter/pkg/logger"
)

// suffixLayout is appended to duplicate content to make it unique
const suffixLayout = "15:04:05"

// Config holds retry and pacing settings
type Config struct {
	Retries          int
	RateLimitBackoff time.Duration
	DuplicateBackoff time.Duration
	AccountDelay     time.Duration

	// Tags and MaxLength keep duplicate-suffixed retries within the post limit
	// with the tags still last. MaxLength 0 disables the limit.
	Tags      string
	MaxLength int
}

// DefaultConfig returns the standard retry budget and delays
func DefaultConfig() Config {
	return Config{
		Retries:          3,
		RateLimitBackoff: 60 * time.Second,
		DuplicateBackoff: 2 * time.Second,
		AccountDelay:     2 * time.Second,
		MaxLength:        280,
	}
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engine posts content to accounts one at a time
type Engine struct {
	poster social.Poster
	cfg    Config
	sleep  SleepFunc
	now    func() time.Time
	newID  func() string
	log    *logger.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithSleep replaces the wait used for backoffs and pacing
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) { e.sleep = fn }
}

// WithClock replaces the clock used for timestamps and duplicate suffixes
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// NewEngine creates a delivery engine
func NewEngine(poster social.Poster, cfg Config, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		poster: poster,
		cfg:    cfg,
		sleep:  Sleep,
		now:    time.Now,
		newID:  func() string { return "sim-" + uuid.NewString() },
		log:    log.WithComponent("delivery"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DeliverAll posts text to every account in order, pausing between accounts.
// Individual failures never stop the run; cancellation does.
func (e *Engine) DeliverAll(ctx context.Context, text string, accounts []models.Account) []models.DeliveryAttempt {
	attempts := make([]models.DeliveryAttempt, 0, len(accounts))

	for i, account := range accounts {
		attempts = append(attempts, e.DeliverOne(ctx, text, account, e.cfg.Retries))

		if i == len(accounts)-1 {
			break
		}
		if err := e.sleep(ctx, e.cfg.AccountDelay); err != nil {
			e.log.Warn().Err(err).Int("remaining", len(accounts)-i-1).Msg("Delivery interrupted")
			break
		}
	}

	return attempts
}

// DeliverOne posts text for one account. Rate limits and duplicate content are retried
// while retriesLeft lasts, so the provider sees at most retriesLeft+1 calls. Every other
// failure, and exhausted retries, produce a Simulated attempt with a synthesized id.
func (e *Engine) DeliverOne(ctx context.Context, text string, account models.Account, retriesLeft int) models.DeliveryAttempt {
	log := e.log.WithAccount(account.ID)
	base := text
	attempt := models.DeliveryAttempt{Account: account}

	for {
		attempt.Calls++
		attempt.Text = text

		id, err := e.poster.Post(ctx, text, account.Credentials)
		if err == nil {
			attempt.Outcome = models.OutcomeSuccess
			attempt.ProviderID = id
			attempt.Timestamp = e.now().UTC()
			log.Info().Str("id", id).Int("calls", attempt.Calls).Msg("Posted")
			return attempt
		}

		class := social.ClassOf(err)
		attempt.ErrorClass = class
		attempt.Error = err.Error()

		if ctx.Err() != nil {
			return e.finish(log, attempt, models.OutcomeFailed)
		}

		log.Warn().
			Err(err).
			Str("class", string(class)).
			Int("call", attempt.Calls).
			Int("retries_left", retriesLeft).
			Msg("Post failed")

		if retriesLeft <= 0 || !class.Retryable() {
			return e.finish(log, attempt, models.OutcomeSimulated)
		}

		wait := e.cfg.RateLimitBackoff
		if class == models.ErrorClassDuplicate {
			text = e.stamp(base, e.now())
			wait = e.cfg.DuplicateBackoff
		}

		log.Info().Dur("backoff", wait).Str("class", string(class)).Msg("Retrying")
		if err := e.sleep(ctx, wait); err != nil {
			attempt.Error = err.Error()
			return e.finish(log, attempt, models.OutcomeFailed)
		}
		retriesLeft--
	}
}

// stamp inserts the time between the body and the tags of base, shortening the
// body when the result would exceed MaxLength.
func (e *Engine) stamp(base string, at time.Time) string {
	limit := e.cfg.MaxLength
	if limit <= 0 {
		limit = math.MaxInt32
	}
	body := content.StripTags(base, e.cfg.Tags)
	body = strings.TrimSpace(strings.TrimSuffix(body, "..."))
	suffix := strings.TrimSpace(at.Format(suffixLayout) + " " + e.cfg.Tags)
	return content.Finalize(body, suffix, limit)
}

func (e *Engine) finish(log *logger.Logger, attempt models.DeliveryAttempt, outcome models.Outcome) models.DeliveryAttempt {
	attempt.Outcome = outcome
	attempt.ProviderID = e.newID()
	attempt.Timestamp = e.now().UTC()
	log.Warn().
		Str("outcome", string(outcome)).
		Str("id", attempt.ProviderID).
		Str("class", string(attempt.ErrorClass)).
		Msg("Recording unsuccessful delivery")
	return attempt
}

// Summary counts the outcomes of one cycle
type Summary struct {
	Success   int
	Simulated int
	Failed    int
}

// Summarize counts outcomes
func Summarize(attempts []models.DeliveryAttempt) Summary {
	var s Summary
	for _, a := range attempts {
		switch a.Outcome {
		case models.OutcomeSuccess:
			s.Success++
		case models.OutcomeSimulated:
			s.Simulated++
		default:
			s.Failed++
		}
	}
	return s
}
