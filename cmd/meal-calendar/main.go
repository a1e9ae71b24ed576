// Command meal-calendar manages a child's meal calendar from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/config"
	"kids-meal-calendar/internal/logging"
)

var (
	envFile string
	childID int64
	month   string
)

var rootCmd = &cobra.Command{
	Use:           "meal-calendar",
	Short:         "Kids meal calendar",
	Long:          "Record a child's breakfast, lunch and dinner on a monthly calendar and ask an AI for a nutrition summary.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to a .env file")
	rootCmd.PersistentFlags().Int64Var(&childID, "child", 1, "child id")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withRuntime loads configuration, wires the application and runs fn.
func withRuntime(fn func(ctx context.Context, rt *app.Runtime) error) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close runtime", zap.Error(err))
		}
	}()
	return fn(ctx, rt)
}

// targetMonth parses --month, defaulting to the current one.
func targetMonth(a *app.App) (time.Time, error) {
	if month == "" {
		return calendar.MonthOf(a.Today()), nil
	}
	return calendar.ParseMonth(month)
}

func addMonthFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default: current month)")
}
