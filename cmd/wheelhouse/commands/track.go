package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wheelops/wheelhouse/pkg/redis"
)

// trackCmd represents the track command
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record a daily snapshot of brokerage positions",
	Long: `Fetches current account positions and balances and stores them as a
snapshot under a tracker run. Tracker runs never feed pick generation.

Example:
  go run ./cmd/wheelhouse track`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	t, err := app.dailyTracker()
	if err != nil {
		return err
	}

	ctx := context.Background()
	return app.withStageLock(ctx, redis.StageTracking, 30*time.Minute, func(ctx context.Context) error {
		snap, err := t.Track(ctx)
		if err != nil {
			return fmt.Errorf("tracking failed: %w", err)
		}
		fmt.Printf("Snapshot stored: %d positions, liquidation value %.2f\n",
			len(snap.Positions), snap.LiquidationVal)
		return nil
	})
}
