package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Accounts  AccountsConfig  `mapstructure:"accounts"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Poster    PosterConfig    `mapstructure:"poster"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	History   HistoryConfig   `mapstructure:"history"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`

	// ConfigFile is the file viper actually read, empty when running on defaults and env
	ConfigFile string `mapstructure:"-"`
}

// AccountsConfig points at the credential list and the single-account fallback
type AccountsConfig struct {
	File    string            `mapstructure:"file"`
	Default CredentialsConfig `mapstructure:"default"`
}

// CredentialsConfig is the four-part credential set used when the file yields nothing
type CredentialsConfig struct {
	AppKey       string `mapstructure:"app_key"`
	AppSecret    string `mapstructure:"app_secret"`
	AccessToken  string `mapstructure:"access_token"`
	AccessSecret string `mapstructure:"access_secret"`
}

// GeneratorConfig holds content generation settings
type GeneratorConfig struct {
	Provider  string   `mapstructure:"provider"` // anthropic, gemini or none
	Tags      string   `mapstructure:"tags"`
	MaxLength int      `mapstructure:"max_length"`
	MaxTokens int      `mapstructure:"max_tokens"`
	Fallback  []string `mapstructure:"fallback"`
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// GeminiConfig holds Gemini API settings
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	ThinkingBudget int    `mapstructure:"thinking_budget"`
}

// PosterConfig selects the social network adapter
type PosterConfig struct {
	Provider string `mapstructure:"provider"` // twitter or linkedin
	BaseURL  string `mapstructure:"base_url"` // override for tests and proxies
}

// DeliveryConfig holds retry and pacing settings
type DeliveryConfig struct {
	Retries          int           `mapstructure:"retries"`
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff"`
	DuplicateBackoff time.Duration `mapstructure:"duplicate_backoff"`
	AccountDelay     time.Duration `mapstructure:"account_delay"`
}

// HistoryConfig holds history persistence settings
type HistoryConfig struct {
	File       string `mapstructure:"file"`
	MaxEntries int    `mapstructure:"max_entries"`
	SQLiteDSN  string `mapstructure:"sqlite_dsn"` // optional audit mirror
}

// TrackerConfig holds the optional Google Sheets delivery log
type TrackerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	TotalPosts  int           `mapstructure:"total_posts"` // 0 runs forever
	Cooldown    time.Duration `mapstructure:"cooldown"`
	Cron        string        `mapstructure:"cron"` // optional, replaces the random interval
}

// SourcesConfig holds prompt inspiration sources
type SourcesConfig struct {
	RSS RSSConfig `mapstructure:"rss"`
}

// RSSConfig holds RSS feed settings
type RSSConfig struct {
	Enabled bool      `mapstructure:"enabled"`
	Feeds   []RSSFeed `mapstructure:"feeds"`
}

// RSSFeed represents a single RSS feed
type RSSFeed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// RateLimitConfig holds provider throttling budgets
type RateLimitConfig struct {
	PosterPerMinute    float64 `mapstructure:"poster_per_minute"`
	GeneratorPerMinute float64 `mapstructure:"generator_per_minute"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// ServerConfig holds the optional health endpoint settings
type ServerConfig struct {
	HealthPort string `mapstructure:"health_port"` // empty disables the endpoint
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".autoposter"))
		}
	}

	v.SetEnvPrefix("AUTOPOSTER")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("anthropic.api_key", "AUTOPOSTER_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("gemini.api_key", "AUTOPOSTER_GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("generator.provider", "AUTOPOSTER_GENERATOR_PROVIDER")
	v.BindEnv("poster.provider", "AUTOPOSTER_POSTER_PROVIDER")
	v.BindEnv("accounts.file", "AUTOPOSTER_ACCOUNTS_FILE")
	v.BindEnv("accounts.default.app_key", "AUTOPOSTER_APP_KEY")
	v.BindEnv("accounts.default.app_secret", "AUTOPOSTER_APP_SECRET")
	v.BindEnv("accounts.default.access_token", "AUTOPOSTER_ACCESS_TOKEN")
	v.BindEnv("accounts.default.access_secret", "AUTOPOSTER_ACCESS_SECRET")
	v.BindEnv("history.file", "AUTOPOSTER_HISTORY_FILE")
	v.BindEnv("history.sqlite_dsn", "AUTOPOSTER_HISTORY_SQLITE_DSN")
	v.BindEnv("tracker.enabled", "AUTOPOSTER_TRACKER_ENABLED")
	v.BindEnv("tracker.spreadsheet_id", "AUTOPOSTER_TRACKER_SPREADSHEET_ID")
	v.BindEnv("tracker.service_account_json", "AUTOPOSTER_TRACKER_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_JSON")
	v.BindEnv("scheduler.total_posts", "AUTOPOSTER_SCHEDULER_TOTAL_POSTS")
	v.BindEnv("server.health_port", "AUTOPOSTER_SERVER_HEALTH_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("accounts.file", "accounts.txt")

	v.SetDefault("generator.provider", "gemini")
	v.SetDefault("generator.tags", "#WebDev #100DaysOfCode")
	v.SetDefault("generator.max_length", 280)
	v.SetDefault("generator.max_tokens", 400)

	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.temperature", 0.9)

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.thinking_budget", 1024)

	v.SetDefault("poster.provider", "twitter")

	v.SetDefault("delivery.retries", 3)
	v.SetDefault("delivery.rate_limit_backoff", "60s")
	v.SetDefault("delivery.duplicate_backoff", "2s")
	v.SetDefault("delivery.account_delay", "2s")

	v.SetDefault("history.file", "tweet_history.json")
	v.SetDefault("history.max_entries", 100)

	v.SetDefault("tracker.enabled", false)
	v.SetDefault("tracker.sheet_name", "Deliveries")

	v.SetDefault("scheduler.min_interval", "2m")
	v.SetDefault("scheduler.max_interval", "10m")
	v.SetDefault("scheduler.total_posts", 0)
	v.SetDefault("scheduler.cooldown", "60s")

	v.SetDefault("sources.rss.enabled", false)

	v.SetDefault("rate_limit.poster_per_minute", 10)
	v.SetDefault("rate_limit.generator_per_minute", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration. Missing API keys are not errors:
// the generator degrades to its fallback pool and the account store to its default.
func (c *Config) Validate() error {
	if c.Scheduler.MinInterval <= 0 {
		return fmt.Errorf("scheduler.min_interval must be positive")
	}
	if c.Scheduler.MaxInterval < c.Scheduler.MinInterval {
		return fmt.Errorf("scheduler.max_interval (%s) is below scheduler.min_interval (%s)",
			c.Scheduler.MaxInterval, c.Scheduler.MinInterval)
	}
	if c.Scheduler.TotalPosts < 0 {
		return fmt.Errorf("scheduler.total_posts must not be negative")
	}
	if c.Delivery.Retries < 0 {
		return fmt.Errorf("delivery.retries must not be negative")
	}
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be positive")
	}
	if c.Generator.MaxLength <= len(c.Generator.Tags)+4 {
		return fmt.Errorf("generator.max_length %d leaves no room for tags %q", c.Generator.MaxLength, c.Generator.Tags)
	}
	if c.Tracker.Enabled && c.Tracker.SpreadsheetID == "" {
		return fmt.Errorf("tracker.spreadsheet_id is required when the tracker is enabled")
	}
	switch c.Generator.Provider {
	case "anthropic", "gemini", "none", "":
	default:
		return fmt.Errorf("unknown generator.provider %q", c.Generator.Provider)
	}
	switch c.Poster.Provider {
	case "twitter", "linkedin":
	default:
		return fmt.Errorf("unknown poster.provider %q", c.Poster.Provider)
	}
	return nil
}

// GeneratorAPIKey returns the key of the selected generation provider
func (c *Config) GeneratorAPIKey() string {
	switch c.Generator.Provider {
	case "anthropic":
		return c.Anthropic.APIKey
	case "gemini":
		return c.Gemini.APIKey
	}
	return ""
}
