package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/redis"
)

var picksRunID string

// picksCmd represents the picks command group
var picksCmd = &cobra.Command{
	Use:   "picks",
	Short: "Generate option picks from a screening run",
}

// cspCmd represents the picks csp command
var cspCmd = &cobra.Command{
	Use:   "csp",
	Short: "Build cash-secured put picks for the top candidates",
	Long: `Selects one put per top-ranked candidate: the contract whose |delta|
is closest to the target, within the expiration windows in priority order.
Uses the latest successful run unless --run-id is given.

Example:
  go run ./cmd/wheelhouse picks csp
  go run ./cmd/wheelhouse picks csp --run-id 0d9a...`,
	RunE: runCSPPicks,
}

// ccCmd represents the picks cc command
var ccCmd = &cobra.Command{
	Use:   "cc",
	Short: "Build covered call picks for current holdings",
	Long: `Selects one out-of-the-money call per holding of 100+ shares: the
highest premium inside the delta band, skipping tickers with imminent
earnings or ex-dividend dates.

Example:
  go run ./cmd/wheelhouse picks cc`,
	RunE: runCCPicks,
}

func init() {
	picksCmd.PersistentFlags().StringVar(&picksRunID, "run-id", "", "screening run id (default: latest successful)")
	picksCmd.AddCommand(cspCmd)
	picksCmd.AddCommand(ccCmd)
	rootCmd.AddCommand(picksCmd)
}

func parseRunIDFlag() (uuid.UUID, error) {
	if picksRunID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(picksRunID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --run-id: %w", err)
	}
	return id, nil
}

func runCSPPicks(cmd *cobra.Command, args []string) error {
	runID, err := parseRunIDFlag()
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	builder, err := app.cspBuilder()
	if err != nil {
		return err
	}

	ctx := context.Background()
	return app.withStageLock(ctx, redis.StageCSPPicks, time.Hour, func(ctx context.Context) error {
		out, err := builder.Build(ctx, runID)
		if err != nil {
			return fmt.Errorf("csp build failed: %w", err)
		}
		printPicks(contracts.ActionCSP, out)
		return nil
	})
}

func runCCPicks(cmd *cobra.Command, args []string) error {
	runID, err := parseRunIDFlag()
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	builder, err := app.ccBuilder()
	if err != nil {
		return err
	}

	ctx := context.Background()
	return app.withStageLock(ctx, redis.StageCCPicks, time.Hour, func(ctx context.Context) error {
		out, err := builder.Build(ctx, runID)
		if err != nil {
			return fmt.Errorf("cc build failed: %w", err)
		}
		printPicks(contracts.ActionCC, out)
		return nil
	})
}

func printPicks(action contracts.PickAction, out []*contracts.Pick) {
	fmt.Printf("%s picks: %d\n", action, len(out))
	for _, p := range out {
		fmt.Printf("  %-6s %s strike %.2f dte %d premium %.2f delta %+.2f yield %.1f%%\n",
			p.Ticker, p.Expiration.Format("2006-01-02"), p.Strike, p.DTE,
			p.Premium, p.ActualDelta, p.AnnualizedYield)
	}
}
