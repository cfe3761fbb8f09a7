package tracker

import (
	"context"
	"fmt"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/screening"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Tracker records a daily snapshot of the brokerage account. Each snapshot
// is tied to its own run record, noted so it never becomes a pick source.
type Tracker struct {
	runs        *screening.Tracker
	positions   contracts.Positions
	snapshots   contracts.SnapshotRepository
	buildMarker string
	logger      *logger.Logger
}

// New creates a daily position tracker
func New(runs *screening.Tracker, positions contracts.Positions,
	snapshots contracts.SnapshotRepository, buildMarker string, log *logger.Logger) *Tracker {
	return &Tracker{
		runs:        runs,
		positions:   positions,
		snapshots:   snapshots,
		buildMarker: buildMarker,
		logger:      log,
	}
}

// Track fetches current positions and persists one snapshot
func (t *Tracker) Track(ctx context.Context) (*contracts.AccountSnapshot, error) {
	run, err := t.runs.Begin(ctx, 0, t.buildMarker, contracts.NoteDailyTracker)
	if err != nil {
		return nil, err
	}

	snap, err := t.positions.Positions(ctx)
	if err == nil {
		err = t.snapshots.Save(ctx, run.RunID, snap)
		if err != nil {
			err = fmt.Errorf("failed to save snapshot: %w", err)
		}
	}
	if err != nil {
		t.runs.Fail(ctx, run.RunID, err)
		return nil, err
	}

	if err := t.runs.Succeed(ctx, run.RunID, len(snap.Positions), 0); err != nil {
		return snap, err
	}

	t.logger.WithFields(map[string]interface{}{
		"run_id":            run.RunID.String(),
		"positions":         len(snap.Positions),
		"liquidation_value": snap.LiquidationVal,
	}).Info("Account snapshot recorded")

	return snap, nil
}
