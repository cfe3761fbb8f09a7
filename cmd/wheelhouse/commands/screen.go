package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the weekly stock screening",
	Long: `Builds the ticker universe, gathers per-ticker features, applies the
hard gates, scores and ranks the survivors, and stores the result as a new
screening run.

Example:
  go run ./cmd/wheelhouse screen`,
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	screener, err := app.screener()
	if err != nil {
		return err
	}

	run, err := screener.Run(context.Background())
	if err != nil {
		return fmt.Errorf("screening failed: %w", err)
	}

	fmt.Printf("Run %s complete: %d candidates from a universe of %d\n",
		run.RunID, run.CandidatesCount, run.UniverseSize)
	return nil
}
