package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/social-autoposter/internal/delivery"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/pkg/logger"
)

// State is the scheduler's position in its cycle
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateDelivering
	StateRecording
	StateWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateDelivering:
		return "delivering"
	case StateRecording:
		return "recording"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Generator produces the content of a cycle
type Generator interface {
	Generate(ctx context.Context) models.GeneratedContent
}

// Deliverer posts content to every account
type Deliverer interface {
	DeliverAll(ctx context.Context, text string, accounts []models.Account) []models.DeliveryAttempt
}

// Recorder persists the outcome of a cycle
type Recorder interface {
	Record(ctx context.Context, content models.GeneratedContent, attempts []models.DeliveryAttempt)
}

// Config holds scheduling settings
type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	TotalPosts  int // 0 runs until the context ends
	Cooldown    time.Duration
	Cron        string
}

// Status is a snapshot for diagnostics and health checks
type Status struct {
	State       State
	Completed   int
	LastCycleAt time.Time
	LastSummary delivery.Summary
	NextRunAt   time.Time
}

// Scheduler drives the generate, deliver, record, wait loop
type Scheduler struct {
	generator Generator
	deliverer Deliverer
	recorder  Recorder
	accounts  []models.Account
	cfg       Config
	schedule  cron.Schedule

	sleep    delivery.SleepFunc
	now      func() time.Time
	interval func(min, max time.Duration) time.Duration
	log      *logger.Logger

	mu     sync.RWMutex
	status Status
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithSleep replaces the wait between cycles
func WithSleep(fn delivery.SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// WithClock replaces the clock
func WithClock(fn func() time.Time) Option {
	return func(s *Scheduler) { s.now = fn }
}

// WithInterval replaces the random interval picker
func WithInterval(fn func(min, max time.Duration) time.Duration) Option {
	return func(s *Scheduler) { s.interval = fn }
}

// New creates a scheduler. It fails only on an invalid cron expression.
func New(gen Generator, del Deliverer, rec Recorder, accounts []models.Account, cfg Config, log *logger.Logger, opts ...Option) (*Scheduler, error) {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}

	s := &Scheduler{
		generator: gen,
		deliverer: del,
		recorder:  rec,
		accounts:  accounts,
		cfg:       cfg,
		sleep:     delivery.Sleep,
		now:       time.Now,
		interval:  RandomInterval,
		log:       log.WithComponent("scheduler"),
	}

	if cfg.Cron != "" {
		schedule, err := cron.ParseStandard(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler.cron %q: %w", cfg.Cron, err)
		}
		s.schedule = schedule
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RandomInterval returns a uniformly random duration in [min, max]
func RandomInterval(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

// Run loops until TotalPosts cycles have completed or ctx ends. Cycle failures
// are logged and followed by the cooldown; they never end the run.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	mode := "infinite"
	if s.cfg.TotalPosts > 0 {
		mode = fmt.Sprintf("%d posts", s.cfg.TotalPosts)
	}
	s.log.Info().
		Str("mode", mode).
		Int("accounts", len(s.accounts)).
		Dur("min_interval", s.cfg.MinInterval).
		Dur("max_interval", s.cfg.MaxInterval).
		Str("cron", s.cfg.Cron).
		Msg("Scheduler started")

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			s.log.Info().Msg("Scheduler stopped")
			return nil
		}

		var wait time.Duration
		summary, err := s.RunCycle(ctx, cycle)
		if err != nil {
			wait = s.cfg.Cooldown
			s.log.Error().Err(err).Int("cycle", cycle).Dur("cooldown", wait).Msg("Cycle failed")
		} else {
			completed := s.markCompleted(summary)
			if s.cfg.TotalPosts > 0 && completed >= s.cfg.TotalPosts {
				s.log.Info().Int("completed", completed).Msg("All posts done, scheduler stopped")
				return nil
			}
			wait = s.NextWait(s.now())
		}

		s.setWaiting(wait)
		s.log.Info().Dur("wait", wait).Time("next_run", s.now().Add(wait)).Msg("Waiting for next cycle")

		if err := s.sleep(ctx, wait); err != nil {
			s.log.Info().Msg("Scheduler stopped")
			return nil
		}
	}
}

// RunCycle performs one generate, deliver, record pass. A panic anywhere in the
// cycle is returned as an error.
func (s *Scheduler) RunCycle(ctx context.Context, cycle int) (summary delivery.Summary, err error) {
	log := s.log.WithCycle(cycle)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle %d panicked: %v", cycle, r)
		}
	}()

	s.setState(StateGenerating)
	content := s.generator.Generate(ctx)
	log.Info().Str("origin", string(content.Origin)).Str("text", content.Text).Msg("Content ready")

	s.setState(StateDelivering)
	attempts := s.deliverer.DeliverAll(ctx, content.Text, s.accounts)

	s.setState(StateRecording)
	s.recorder.Record(ctx, content, attempts)

	summary = delivery.Summarize(attempts)
	log.Info().
		Int("success", summary.Success).
		Int("simulated", summary.Simulated).
		Int("failed", summary.Failed).
		Int("accounts", len(s.accounts)).
		Msg("Cycle complete")

	return summary, nil
}

// NextWait returns the time to sleep after a successful cycle
func (s *Scheduler) NextWait(now time.Time) time.Duration {
	if s.schedule != nil {
		return s.schedule.Next(now).Sub(now)
	}
	return s.interval(s.cfg.MinInterval, s.cfg.MaxInterval)
}

// Status returns a snapshot of the scheduler
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.status.State = state
	s.mu.Unlock()
}

func (s *Scheduler) setWaiting(wait time.Duration) {
	s.mu.Lock()
	s.status.State = StateWaiting
	s.status.NextRunAt = s.now().Add(wait)
	s.mu.Unlock()
}

func (s *Scheduler) markCompleted(summary delivery.Summary) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Completed++
	s.status.LastSummary = summary
	s.status.LastCycleAt = s.now()
	return s.status.Completed
}
