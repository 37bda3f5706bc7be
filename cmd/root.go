package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightx/upi-insight/internal/config"
	"github.com/insightx/upi-insight/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "upi-insight",
	Short: "Ask natural language questions about UPI transaction data",
	Long: `upi-insight answers natural language questions about a UPI transactions
dataset. Questions are classified, converted to validated read-only SQL,
executed against a local DuckDB database, and summarized into grounded
insights with chart hints and follow-up questions. Conversations persist
across sessions in a local SQLite database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		cfg = loaded

		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create data directories: %w", err)
		}

		if err := logging.InitializeLogger(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logging.GetLogger().Close()
	},
}

func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}
