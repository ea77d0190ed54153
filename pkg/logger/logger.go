package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with autoposter context helpers
type Logger struct {
	zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stdout, stderr or a file path
}

// consoleTime matches the HH:MM:SS stamps used on duplicate retries
const consoleTime = "15:04:05"

// New creates a logger from cfg. An unusable log file falls back to stderr
// and the failure is reported as the first log line.
func New(cfg Config) *Logger {
	out, openErr := openOutput(cfg.Output)
	l := NewWithWriter(out, cfg)
	if openErr != nil {
		l.Warn().Err(openErr).Str("output", cfg.Output).Msg("Log file unavailable, writing to stderr")
	}
	return l
}

// NewWithWriter creates a logger writing to w, ignoring cfg.Output
func NewWithWriter(w io.Writer, cfg Config) *Logger {
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: consoleTime,
			NoColor:    w != os.Stdout && w != os.Stderr,
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return &Logger{
		Logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return os.Stderr, err
		}
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, err
	}
	return f, nil
}

// Default creates a console logger at info level
func Default() *Logger {
	return New(Config{Level: "info", Format: "console"})
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithAccount adds the account ordinal to the logger
func (l *Logger) WithAccount(id int) *Logger {
	return &Logger{
		Logger: l.With().Int("account", id).Logger(),
	}
}

// WithCycle adds the scheduler cycle number to the logger
func (l *Logger) WithCycle(n int) *Logger {
	return &Logger{
		Logger: l.With().Int("cycle", n).Logger(),
	}
}
