package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRepository manages screening run records
type RunRepository interface {
	Insert(ctx context.Context, run *Run) error
	MarkSuccess(ctx context.Context, runID uuid.UUID, candidates, picks int) error
	MarkFailed(ctx context.Context, runID uuid.UUID, errMsg string) error
	Get(ctx context.Context, runID uuid.UUID) (*Run, error)
	Recent(ctx context.Context, limit int) ([]*Run, error)
	LatestSuccessful(ctx context.Context) (*Run, error)
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// CandidateRepository manages screening candidate rows
type CandidateRepository interface {
	SaveBatch(ctx context.Context, candidates []*Candidate) error
	ByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*Candidate, error)
	TopN(ctx context.Context, runID uuid.UUID, n int) ([]*Candidate, error)
}

// PickRepository manages option pick rows.
// Replace deletes the (run, action) slice and inserts the new picks in one
// transaction so regeneration is idempotent.
type PickRepository interface {
	Replace(ctx context.Context, runID uuid.UUID, action PickAction, picks []*Pick) error
	ByRun(ctx context.Context, runID uuid.UUID, action PickAction) ([]*Pick, error)
}

// RSIRepository manages the persistent RSI snapshot cache
type RSIRepository interface {
	Get(ctx context.Context, ticker string, asOf time.Time, interval string, period int) (*RSISnapshot, bool, error)
	LatestWithin(ctx context.Context, ticker string, interval string, period int, maxAge time.Duration) (*RSISnapshot, bool, error)
	CachedTickers(ctx context.Context, asOf time.Time, interval string, period int) (map[string]bool, error)
	SaveBatch(ctx context.Context, snapshots []*RSISnapshot) error
}

// TickerRepository maintains the reference table of known tickers
type TickerRepository interface {
	UpsertBatch(ctx context.Context, features []*Features) error
}

// ApprovedUniverseRepository maintains the rolling top-N approved set
type ApprovedUniverseRepository interface {
	Sync(ctx context.Context, runID uuid.UUID, top []*Candidate) error
	Approved(ctx context.Context) ([]string, error)
}

// SnapshotRepository persists daily account snapshots
type SnapshotRepository interface {
	Save(ctx context.Context, runID uuid.UUID, snap *AccountSnapshot) error
}
