package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/store"
)

// RunRepository implements contracts.RunRepository on Postgres
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Insert stores a new run row
func (r *RunRepository) Insert(ctx context.Context, run *contracts.Run) error {
	query := `
		INSERT INTO screening_runs (run_id, started_at, status, universe_size, build_marker, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		run.RunID, run.StartedAt, string(run.Status), run.UniverseSize, run.BuildMarker, run.Note)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// MarkSuccess transitions a running run to success
func (r *RunRepository) MarkSuccess(ctx context.Context, runID uuid.UUID, candidates, picks int) error {
	query := `
		UPDATE screening_runs
		SET status = 'success', finished_at = $2, candidates_count = $3, picks_count = $4
		WHERE run_id = $1 AND status = 'running'
	`

	tag, err := r.pool.Exec(ctx, query, runID, time.Now().UTC(), candidates, picks)
	if err != nil {
		return fmt.Errorf("failed to mark run success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not in running state", runID)
	}
	return nil
}

// MarkFailed transitions a running run to failed
func (r *RunRepository) MarkFailed(ctx context.Context, runID uuid.UUID, errMsg string) error {
	query := `
		UPDATE screening_runs
		SET status = 'failed', finished_at = $2, error = $3
		WHERE run_id = $1 AND status = 'running'
	`

	tag, err := r.pool.Exec(ctx, query, runID, time.Now().UTC(), contracts.TruncateError(errMsg))
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not in running state", runID)
	}
	return nil
}

const runColumns = `run_id, started_at, finished_at, status, universe_size,
	candidates_count, picks_count, build_marker, note, COALESCE(error, '')`

func scanRun(row pgx.Row) (*contracts.Run, error) {
	var run contracts.Run
	var status string
	err := row.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &status,
		&run.UniverseSize, &run.CandidatesCount, &run.PicksCount,
		&run.BuildMarker, &run.Note, &run.Error)
	if err != nil {
		return nil, err
	}
	run.Status = contracts.RunStatus(status)
	return &run, nil
}

// Get fetches one run by id
func (r *RunRepository) Get(ctx context.Context, runID uuid.UUID) (*contracts.Run, error) {
	query := `SELECT ` + runColumns + ` FROM screening_runs WHERE run_id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs first
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]*contracts.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM screening_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*contracts.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestSuccessful returns the newest successful run, excluding runs created
// by the daily tracker.
func (r *RunRepository) LatestSuccessful(ctx context.Context) (*contracts.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM screening_runs
		WHERE status = 'success' AND note <> $1
		ORDER BY started_at DESC
		LIMIT 1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, contracts.NoteDailyTracker))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no successful screening run found")
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ReclaimStale fails runs stuck in running longer than olderThan
func (r *RunRepository) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `
		UPDATE screening_runs
		SET status = 'failed', finished_at = $1,
			error = 'reclaimed: stuck in running beyond staleness timeout'
		WHERE status = 'running' AND started_at < $2
	`

	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, query, now, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CandidateRepository implements contracts.CandidateRepository on Postgres
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a candidate repository
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// SaveBatch upserts candidates by (run_id, ticker). The batch is deduped in
// memory (last wins) and chunked before hitting the store.
func (r *CandidateRepository) SaveBatch(ctx context.Context, candidates []*contracts.Candidate) error {
	deduped := store.DedupeByKey(candidates, func(c *contracts.Candidate) string {
		return c.RunID.String() + "|" + c.Ticker
	})

	query := `
		INSERT INTO screening_candidates (
			run_id, ticker, name, exchange, score, rank, price, market_cap,
			sector, industry, beta, rsi, sentiment_score, earnings_in_days, features
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id, ticker) DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			score = EXCLUDED.score,
			rank = EXCLUDED.rank,
			price = EXCLUDED.price,
			market_cap = EXCLUDED.market_cap,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			beta = EXCLUDED.beta,
			rsi = EXCLUDED.rsi,
			sentiment_score = EXCLUDED.sentiment_score,
			earnings_in_days = EXCLUDED.earnings_in_days,
			features = EXCLUDED.features
	`

	for _, chunk := range store.Chunk(deduped, store.DefaultChunkSize) {
		batch := &pgx.Batch{}
		for _, c := range chunk {
			features, err := json.Marshal(c.Features)
			if err != nil {
				return fmt.Errorf("failed to marshal features for %s: %w", c.Ticker, err)
			}
			batch.Queue(query,
				c.RunID, c.Ticker, c.Name, c.Exchange, c.Score, c.Rank,
				c.Price, c.MarketCap, c.Sector, c.Industry, c.Beta, c.RSI,
				c.SentimentScore, c.EarningsInDays, features)
		}

		br := r.pool.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("candidate batch failed: %w", err)
		}
	}
	return nil
}

const candidateColumns = `run_id, ticker, COALESCE(name, ''), COALESCE(exchange, ''),
	score, rank, price, market_cap, COALESCE(sector, ''), COALESCE(industry, ''),
	beta, rsi, sentiment_score, earnings_in_days`

func scanCandidate(rows pgx.Rows) (*contracts.Candidate, error) {
	var c contracts.Candidate
	err := rows.Scan(&c.RunID, &c.Ticker, &c.Name, &c.Exchange, &c.Score, &c.Rank,
		&c.Price, &c.MarketCap, &c.Sector, &c.Industry, &c.Beta, &c.RSI,
		&c.SentimentScore, &c.EarningsInDays)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ByRun returns candidates for a run ordered by score descending
func (r *CandidateRepository) ByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*contracts.Candidate, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `SELECT ` + candidateColumns + `
		FROM screening_candidates
		WHERE run_id = $1
		ORDER BY score DESC, ticker ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TopN returns the best-ranked candidates for a run
func (r *CandidateRepository) TopN(ctx context.Context, runID uuid.UUID, n int) ([]*contracts.Candidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM screening_candidates
		WHERE run_id = $1
		ORDER BY rank ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, runID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top candidates: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TickerRepository maintains the tickers reference table
type TickerRepository struct {
	pool *pgxpool.Pool
}

// NewTickerRepository creates a ticker repository
func NewTickerRepository(pool *pgxpool.Pool) *TickerRepository {
	return &TickerRepository{pool: pool}
}

// UpsertBatch refreshes reference rows for the screened tickers
func (r *TickerRepository) UpsertBatch(ctx context.Context, features []*contracts.Features) error {
	deduped := store.DedupeByKey(features, func(f *contracts.Features) string { return f.Ticker })

	query := `
		INSERT INTO tickers (ticker, name, exchange, sector, industry, market_cap, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		ON CONFLICT (ticker) DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			market_cap = EXCLUDED.market_cap,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for _, chunk := range store.Chunk(deduped, store.DefaultChunkSize) {
		batch := &pgx.Batch{}
		for _, f := range chunk {
			batch.Queue(query, f.Ticker, f.Name, f.Exchange, f.Sector, f.Industry, f.MarketCap, now)
		}
		br := r.pool.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("ticker batch failed: %w", err)
		}
	}
	return nil
}

// ApprovedUniverseRepository maintains the rolling approved top-N set
type ApprovedUniverseRepository struct {
	pool *pgxpool.Pool
}

// NewApprovedUniverseRepository creates an approved universe repository
func NewApprovedUniverseRepository(pool *pgxpool.Pool) *ApprovedUniverseRepository {
	return &ApprovedUniverseRepository{pool: pool}
}

// Sync upserts the top candidates of a run as the approved set
func (r *ApprovedUniverseRepository) Sync(ctx context.Context, runID uuid.UUID, top []*contracts.Candidate) error {
	query := `
		INSERT INTO approved_universe (ticker, approved, last_run_id, last_rank, last_score, updated_at)
		VALUES ($1, TRUE, $2, $3, $4, $5)
		ON CONFLICT (ticker) DO UPDATE SET
			approved = TRUE,
			last_run_id = EXCLUDED.last_run_id,
			last_rank = EXCLUDED.last_rank,
			last_score = EXCLUDED.last_score,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, c := range top {
		batch.Queue(query, c.Ticker, runID, c.Rank, c.Score, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("approved universe sync failed: %w", err)
	}
	return nil
}

// Approved returns the currently approved tickers
func (r *ApprovedUniverseRepository) Approved(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ticker FROM approved_universe WHERE approved = TRUE ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query approved universe: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
