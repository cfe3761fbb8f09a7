package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusLimit int

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent screening runs",
	Long: `Lists the most recent runs with their status and counts, and the
latest successful run that would feed pick generation.

Example:
  go run ./cmd/wheelhouse status
  go run ./cmd/wheelhouse status --limit 5`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := app.runRepo()
	runs, err := repo.Recent(ctx, statusLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-20s  %9s  %10s  %5s  %s\n",
		"RUN", "STATUS", "STARTED", "UNIVERSE", "CANDIDATES", "PICKS", "NOTE")
	for _, r := range runs {
		fmt.Printf("%-36s  %-8s  %-20s  %9d  %10d  %5d  %s\n",
			r.RunID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.UniverseSize, r.CandidatesCount, r.PicksCount, r.Note)
	}

	latest, err := repo.LatestSuccessful(ctx)
	if err != nil {
		fmt.Println("\nNo successful screening run yet")
		return nil
	}
	fmt.Printf("\nLatest pick source: %s (%d candidates)\n", latest.RunID, latest.CandidatesCount)
	return nil
}
