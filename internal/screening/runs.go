package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Tracker owns the run lifecycle. A run moves running -> success or
// running -> failed, never anything else; there is no retry transition.
type Tracker struct {
	repo   contracts.RunRepository
	logger *logger.Logger
}

// NewTracker creates a run tracker
func NewTracker(repo contracts.RunRepository, log *logger.Logger) *Tracker {
	return &Tracker{repo: repo, logger: log}
}

// Begin inserts a new run in the running state
func (t *Tracker) Begin(ctx context.Context, universeSize int, buildMarker, note string) (*contracts.Run, error) {
	run := &contracts.Run{
		RunID:        uuid.New(),
		StartedAt:    time.Now().UTC(),
		Status:       contracts.RunStatusRunning,
		UniverseSize: universeSize,
		BuildMarker:  buildMarker,
		Note:         note,
	}

	if err := t.repo.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	t.logger.WithFields(map[string]interface{}{
		"run_id":        run.RunID.String(),
		"universe_size": universeSize,
	}).Info("Run started")

	return run, nil
}

// Succeed marks the run successful with its final counts
func (t *Tracker) Succeed(ctx context.Context, runID uuid.UUID, candidates, picks int) error {
	if err := t.repo.MarkSuccess(ctx, runID, candidates, picks); err != nil {
		return fmt.Errorf("failed to mark run successful: %w", err)
	}

	t.logger.WithFields(map[string]interface{}{
		"run_id":     runID.String(),
		"candidates": candidates,
		"picks":      picks,
	}).Info("Run complete")

	return nil
}

// Fail marks the run failed, storing a truncated error message
func (t *Tracker) Fail(ctx context.Context, runID uuid.UUID, runErr error) error {
	msg := contracts.TruncateError(runErr.Error())

	if err := t.repo.MarkFailed(ctx, runID, msg); err != nil {
		// The original failure still matters more than this one
		t.logger.WithError(err).Errorf("Failed to mark run %s as failed", runID)
		return err
	}

	t.logger.WithFields(map[string]interface{}{
		"run_id": runID.String(),
		"error":  msg,
	}).Error("Run failed")

	return nil
}

// LatestSuccessful returns the newest successful non-tracker run
func (t *Tracker) LatestSuccessful(ctx context.Context) (*contracts.Run, error) {
	return t.repo.LatestSuccessful(ctx)
}

// ReclaimStale marks runs stuck in running longer than the timeout as
// failed. Returns how many were reclaimed.
func (t *Tracker) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := t.repo.ReclaimStale(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("stale run reclaim failed: %w", err)
	}
	if n > 0 {
		t.logger.Warnf("Reclaimed %d stale runs older than %s", n, olderThan)
	}
	return n, nil
}
