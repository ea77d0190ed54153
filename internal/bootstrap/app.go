package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/social-autoposter/internal/accounts"
	"github.com/social-autoposter/internal/ai"
	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/internal/content"
	"github.com/social-autoposter/internal/delivery"
	"github.com/social-autoposter/internal/history"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/scheduler"
	"github.com/social-autoposter/internal/social"
	"github.com/social-autoposter/internal/social/linkedin"
	"github.com/social-autoposter/internal/social/twitter"
	"github.com/social-autoposter/internal/source/rss"
	"github.com/social-autoposter/internal/storage"
	"github.com/social-autoposter/internal/storage/sqlite"
	"github.com/social-autoposter/internal/tracker"
	"github.com/social-autoposter/pkg/logger"
	"github.com/social-autoposter/pkg/ratelimit"
)

// App holds every wired component of one process
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Limiter   *ratelimit.MultiLimiter
	Provider  ai.Provider // nil when generation is not configured
	Generator *content.Generator
	Poster    social.Poster
	Engine    *delivery.Engine
	Recorder  *history.Recorder
	Audit     storage.AuditRepository // nil unless history.sqlite_dsn is set
	Accounts  []models.Account
}

// New wires the components described by cfg
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Log:    log,
		Limiter: ratelimit.NewDefaultLimiter(ratelimit.Limits{
			PosterPerMinute:    cfg.RateLimit.PosterPerMinute,
			GeneratorPerMinute: cfg.RateLimit.GeneratorPerMinute,
		}),
	}

	provider, err := ai.NewProvider(ctx, cfg, app.Limiter, log)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn().Err(err).Msg("Live generation disabled, using fallback content")
	case err != nil:
		return nil, fmt.Errorf("failed to create generation provider: %w", err)
	default:
		app.Provider = provider
	}

	var inspiration content.Inspiration
	if cfg.Sources.RSS.Enabled && len(cfg.Sources.RSS.Feeds) > 0 {
		inspiration = rss.New(cfg.Sources.RSS, app.Limiter, log)
	}

	app.Generator = content.NewGenerator(app.Provider, inspiration, content.Config{
		Tags:      cfg.Generator.Tags,
		MaxLength: cfg.Generator.MaxLength,
		MaxTokens: cfg.Generator.MaxTokens,
		Fallback:  cfg.Generator.Fallback,
	}, log)

	app.Poster = NewPoster(cfg.Poster, app.Limiter, log)
	app.Engine = delivery.NewEngine(app.Poster, delivery.Config{
		Retries:          cfg.Delivery.Retries,
		RateLimitBackoff: cfg.Delivery.RateLimitBackoff,
		DuplicateBackoff: cfg.Delivery.DuplicateBackoff,
		AccountDelay:     cfg.Delivery.AccountDelay,
		Tags:             cfg.Generator.Tags,
		MaxLength:        cfg.Generator.MaxLength,
	}, log)

	var sinks []history.Sink
	if cfg.History.SQLiteDSN != "" {
		repo, err := sqlite.New(cfg.History.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		if err := repo.Migrate(); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		app.Audit = repo
		sinks = append(sinks, repo)
	}
	if cfg.Tracker.Enabled {
		sheet, err := tracker.NewSheetsTracker(ctx, cfg.Tracker, log)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
		if err := sheet.InitializeSheet(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize sheet: %w", err)
		}
		sinks = append(sinks, sheet)
	}
	app.Recorder = history.NewRecorder(cfg.History.File, cfg.History.MaxEntries, log, sinks...)

	fallback := models.Credentials{
		AppKey:       cfg.Accounts.Default.AppKey,
		AppSecret:    cfg.Accounts.Default.AppSecret,
		AccessToken:  cfg.Accounts.Default.AccessToken,
		AccessSecret: cfg.Accounts.Default.AccessSecret,
	}
	app.Accounts = accounts.NewStore(cfg.Accounts.File, fallback, log).Load()

	return app, nil
}

// NewPoster returns the posting client selected by cfg.Provider
func NewPoster(cfg config.PosterConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) social.Poster {
	if cfg.Provider == "linkedin" {
		return linkedin.NewClient(cfg.BaseURL, limiter, log)
	}
	return twitter.NewClient(cfg.BaseURL, limiter, log)
}

// Scheduler builds the run loop. totalPosts overrides scheduler.total_posts when non-negative.
func (a *App) Scheduler(totalPosts int, opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	cfg := scheduler.Config{
		MinInterval: a.Config.Scheduler.MinInterval,
		MaxInterval: a.Config.Scheduler.MaxInterval,
		TotalPosts:  a.Config.Scheduler.TotalPosts,
		Cooldown:    a.Config.Scheduler.Cooldown,
		Cron:        a.Config.Scheduler.Cron,
	}
	if totalPosts >= 0 {
		cfg.TotalPosts = totalPosts
	}
	return scheduler.New(a.Generator, a.Engine, a.Recorder, a.Accounts, cfg, a.Log, opts...)
}

// Close releases the audit database, if any
func (a *App) Close() error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.Close()
}

// WriteDiagnostics prints the effective configuration and loaded state
func (a *App) WriteDiagnostics(w io.Writer) error {
	cfg := a.Config

	configFile := cfg.ConfigFile
	if configFile == "" {
		configFile = "(defaults and environment)"
	}
	generator := "fallback pool only"
	if a.Provider != nil {
		generator = a.Provider.Name() + " (API key present)"
	}
	mode := "continuous"
	if cfg.Scheduler.TotalPosts > 0 {
		mode = fmt.Sprintf("finite, %d posts", cfg.Scheduler.TotalPosts)
	}
	schedule := fmt.Sprintf("random %s to %s", cfg.Scheduler.MinInterval, cfg.Scheduler.MaxInterval)
	if cfg.Scheduler.Cron != "" {
		schedule = "cron " + cfg.Scheduler.Cron
	}
	audit := "disabled"
	if cfg.History.SQLiteDSN != "" {
		audit = cfg.History.SQLiteDSN
	}
	sheet := "disabled"
	if cfg.Tracker.Enabled {
		sheet = cfg.Tracker.SpreadsheetID + " / " + cfg.Tracker.SheetName
	}

	lines := []string{
		fmt.Sprintf("Config file:    %s", configFile),
		fmt.Sprintf("Generator:      %s", generator),
		fmt.Sprintf("Poster:         %s", a.Poster.Name()),
		fmt.Sprintf("Tags:           %s", cfg.Generator.Tags),
		fmt.Sprintf("Accounts file:  %s", cfg.Accounts.File),
		fmt.Sprintf("Accounts:       %d", len(a.Accounts)),
	}
	for _, acc := range a.Accounts {
		line := fmt.Sprintf("  #%d %s", acc.ID, acc.MaskedKey())
		if acc.Fallback {
			line += " (default credentials)"
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		fmt.Sprintf("History file:   %s (%d entries, max %d)", a.Recorder.Path(), len(a.Recorder.Records()), cfg.History.MaxEntries),
		fmt.Sprintf("Audit mirror:   %s", audit),
		fmt.Sprintf("Sheets log:     %s", sheet),
		fmt.Sprintf("Retries:        %d", cfg.Delivery.Retries),
		fmt.Sprintf("Schedule:       %s", schedule),
		fmt.Sprintf("Mode:           %s", mode),
	)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
