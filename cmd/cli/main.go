package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/social-autoposter/internal/bootstrap"
	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/storage"
	"github.com/social-autoposter/pkg/logger"
)

var (
	cfgFile string
	app     *bootstrap.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autoposter-cli",
		Short: "Operator tool for the social autoposter",
		Long: `Inspect accounts and history, preview generated content, or run
a single posting cycle outside of the scheduler.`,
		PersistentPreRunE:  initializeApp,
		PersistentPostRunE: closeApp,
		SilenceUsage:       true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(postCmd())
	rootCmd.AddCommand(auditCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	app, err = bootstrap.New(cmd.Context(), cfg, log)
	return err
}

func closeApp(cmd *cobra.Command, args []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

// ============ ACCOUNTS ============

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List loaded accounts with masked credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("\n=== Accounts (%d) ===\n\n", len(app.Accounts))
			for _, a := range app.Accounts {
				note := ""
				if a.Fallback {
					note = " (default credentials)"
				}
				complete := "complete"
				if !a.Credentials.IsComplete() {
					complete = "incomplete"
				}
				fmt.Printf("[%d] %s | %s%s\n", a.ID, a.MaskedKey(), complete, note)
			}
			return nil
		},
	}
}

// ============ HISTORY ============

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := app.Recorder.Load()
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			fmt.Printf("\n=== History (%d) ===\n\n", len(records))
			for _, r := range records {
				fmt.Printf("%s | %s\n", r.Timestamp.Local().Format(time.RFC1123), r.Origin)
				fmt.Printf("    %s\n", r.Text)
				for _, res := range r.Results {
					fmt.Printf("    account %d: %s", res.Account, res.Outcome)
					if res.ID != nil {
						fmt.Printf(" id=%s", *res.ID)
					}
					if res.Error != nil {
						fmt.Printf(" (%s: %s)", res.ErrorClass, *res.Error)
					}
					fmt.Println()
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of records to show (0 for all)")
	return cmd
}

// ============ PREVIEW ============

func previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Generate one post without delivering it",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := app.Generator.Generate(cmd.Context())

			fmt.Printf("\n=== Generated Content ===\n")
			fmt.Printf("Origin: %s\n", content.Origin)
			fmt.Printf("Length: %d\n", len([]rune(content.Text)))
			fmt.Printf("\n--- Preview ---\n%s\n", content.Text)
			return nil
		},
	}
}

// ============ POST ============

func postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post",
		Short: "Run exactly one generate, deliver and record cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Scheduler(1)
			if err != nil {
				return err
			}

			summary, err := s.RunCycle(cmd.Context(), 1)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Post Result ===\n")
			fmt.Printf("Accounts:  %d\n", len(app.Accounts))
			fmt.Printf("Success:   %d\n", summary.Success)
			fmt.Printf("Simulated: %d\n", summary.Simulated)
			fmt.Printf("Failed:    %d\n", summary.Failed)
			return nil
		},
	}
}

// ============ AUDIT ============

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the SQLite delivery audit mirror",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeApp(cmd, args); err != nil {
				return err
			}
			if app.Audit == nil {
				return fmt.Errorf("audit mirror disabled, set history.sqlite_dsn")
			}
			return nil
		},
	}

	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditStatsCmd())
	return cmd
}

func auditListCmd() *cobra.Command {
	var (
		account int
		outcome string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded delivery attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultDeliveryFilter()
			filter.Limit = limit
			if account > 0 {
				filter.AccountID = &account
			}
			if outcome != "" {
				o := models.Outcome(outcome)
				filter.Outcome = &o
			}

			rows, err := app.Audit.ListDeliveries(cmd.Context(), filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Deliveries (%d) ===\n\n", len(rows))
			for _, r := range rows {
				fmt.Printf("[%d] %s | account %d | %s", r.ID, r.CycleAt.Local().Format(time.RFC1123), r.AccountID, r.Outcome)
				if r.ProviderID != "" {
					fmt.Printf(" | %s", r.ProviderID)
				}
				fmt.Println()
				if r.Error != "" {
					fmt.Printf("    %s: %s\n", r.ErrorClass, r.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&account, "account", 0, "Filter by account number")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome (success, simulated, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows")
	return cmd
}

func auditStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count recorded attempts by outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := app.Audit.CountByOutcome(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Delivery Stats ===\n")
			for _, o := range []models.Outcome{models.OutcomeSuccess, models.OutcomeSimulated, models.OutcomeFailed} {
				fmt.Printf("%-10s %d\n", o+":", counts[o])
			}
			return nil
		},
	}
}
