package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/social-autoposter/internal/bootstrap"
	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/pkg/logger"
)

var (
	cfgFile     string
	diagnostics bool
	count       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autoposter",
		Short: "Scheduled promotional poster for X/Twitter and LinkedIn",
		Long: `Generates a short promotional post, delivers it to every configured
account with retry and simulation fallback, records the outcome and
sleeps a random interval before the next cycle.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "print configuration and status, then exit without posting")
	rootCmd.Flags().IntVar(&count, "count", -1, "number of posts before exiting (0 runs forever, default from config)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if diagnostics {
		return app.WriteDiagnostics(cmd.OutOrStdout())
	}

	s, err := app.Scheduler(count)
	if err != nil {
		return err
	}

	if cfg.Server.HealthPort != "" {
		go bootstrap.ServeHealth(ctx, cfg.Server.HealthPort, s, log)
	}

	log.Info().
		Int("accounts", len(app.Accounts)).
		Str("poster", app.Poster.Name()).
		Bool("live_generation", app.Generator.HasProvider()).
		Msg("Starting autoposter")

	if err := s.Run(ctx); err != nil {
		return err
	}

	log.Info().Int("posts", s.Status().Completed).Msg("Autoposter stopped")
	return nil
}
