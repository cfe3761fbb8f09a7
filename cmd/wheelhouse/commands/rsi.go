package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wheelops/wheelhouse/pkg/redis"
)

// rsiCmd represents the rsi command
var rsiCmd = &cobra.Command{
	Use:   "rsi",
	Short: "Refresh the RSI snapshot cache",
	Long: `Fetches RSI values for tickers that do not yet have a snapshot for
today. Already-cached tickers (including cached provider misses) are skipped,
so re-running after a rate limit continues where the last run stopped.

Example:
  go run ./cmd/wheelhouse rsi`,
	RunE: runRSIRefresh,
}

func init() {
	rootCmd.AddCommand(rsiCmd)
}

func runRSIRefresh(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	return app.withStageLock(ctx, redis.StageRSI, time.Hour, func(ctx context.Context) error {
		tickers, err := app.rsiTickers(ctx)
		if err != nil {
			return err
		}

		stats, err := app.rsiRefresher().Refresh(ctx, tickers)
		if err != nil {
			return fmt.Errorf("rsi refresh stopped after %d fetches: %w", stats.Fetched, err)
		}

		fmt.Printf("RSI refresh: %d requested, %d cached, %d fetched, %d misses, %d errors, %d capped\n",
			stats.Requested, stats.Cached, stats.Fetched, stats.Misses, stats.Errors, stats.Capped)
		return nil
	})
}
