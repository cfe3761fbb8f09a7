package rsicache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/store"
)

// Repository implements contracts.RSIRepository on Postgres.
// A row with a NULL rsi records a provider miss so the ticker is not
// re-fetched for the same date.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an RSI snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const snapshotColumns = `ticker, as_of_date, interval, period, rsi, source, created_at`

func scanSnapshot(row pgx.Row) (*contracts.RSISnapshot, error) {
	var s contracts.RSISnapshot
	err := row.Scan(&s.Ticker, &s.AsOfDate, &s.Interval, &s.Period, &s.RSI, &s.Source, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get fetches the snapshot for one ticker and date. A null-RSI row is still
// a hit.
func (r *Repository) Get(ctx context.Context, ticker string, asOf time.Time, interval string, period int) (*contracts.RSISnapshot, bool, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM rsi_snapshots
		WHERE ticker = $1 AND as_of_date = $2 AND interval = $3 AND period = $4`

	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, ticker, asOf.Format("2006-01-02"), interval, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get rsi snapshot: %w", err)
	}
	return s, true, nil
}

// LatestWithin returns the newest snapshot for a ticker not older than maxAge
func (r *Repository) LatestWithin(ctx context.Context, ticker string, interval string, period int, maxAge time.Duration) (*contracts.RSISnapshot, bool, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM rsi_snapshots
		WHERE ticker = $1 AND interval = $2 AND period = $3 AND created_at >= $4
		ORDER BY as_of_date DESC
		LIMIT 1`

	cutoff := time.Now().UTC().Add(-maxAge)
	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, ticker, interval, period, cutoff))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get latest rsi snapshot: %w", err)
	}
	return s, true, nil
}

// CachedTickers returns the set of tickers already holding a snapshot for the
// given date, including null-RSI miss rows.
func (r *Repository) CachedTickers(ctx context.Context, asOf time.Time, interval string, period int) (map[string]bool, error) {
	query := `SELECT ticker FROM rsi_snapshots
		WHERE as_of_date = $1 AND interval = $2 AND period = $3`

	rows, err := r.pool.Query(ctx, query, asOf.Format("2006-01-02"), interval, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached tickers: %w", err)
	}
	defer rows.Close()

	cached := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		cached[t] = true
	}
	return cached, rows.Err()
}

// SaveBatch upserts snapshots by (ticker, as_of_date, interval, period).
// Duplicates within the batch collapse to the last occurrence.
func (r *Repository) SaveBatch(ctx context.Context, snapshots []*contracts.RSISnapshot) error {
	deduped := store.DedupeByKey(snapshots, func(s *contracts.RSISnapshot) string { return s.Key() })

	query := `
		INSERT INTO rsi_snapshots (ticker, as_of_date, interval, period, rsi, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, as_of_date, interval, period) DO UPDATE SET
			rsi = EXCLUDED.rsi,
			source = EXCLUDED.source,
			created_at = EXCLUDED.created_at
	`

	now := time.Now().UTC()
	for _, chunk := range store.Chunk(deduped, store.DefaultChunkSize) {
		batch := &pgx.Batch{}
		for _, s := range chunk {
			batch.Queue(query, s.Ticker, s.AsOfDate.Format("2006-01-02"), s.Interval, s.Period, s.RSI, s.Source, now)
		}
		br := r.pool.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("rsi snapshot batch failed: %w", err)
		}
	}
	return nil
}
