package picks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wheelops/wheelhouse/internal/contracts"
)

// Repository implements contracts.PickRepository on Postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pick repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Replace swaps the pick set for one (run, action) in a single transaction,
// so regenerating picks is idempotent and readers never see a partial set.
func (r *Repository) Replace(ctx context.Context, runID uuid.UUID, action contracts.PickAction, picks []*contracts.Pick) error {
	if !action.Valid() {
		return fmt.Errorf("invalid pick action %q", action)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM screening_picks WHERE run_id = $1 AND action = $2`,
		runID, string(action))
	if err != nil {
		return fmt.Errorf("failed to clear picks: %w", err)
	}

	query := `
		INSERT INTO screening_picks (
			run_id, ticker, action, expiration, dte, target_delta, strike,
			premium, actual_delta, annualized_yield, score, rank, price, rsi,
			beta, sentiment_score, pick_metrics
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	batch := &pgx.Batch{}
	for _, p := range picks {
		metrics, err := json.Marshal(p.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal pick metrics for %s: %w", p.Ticker, err)
		}
		batch.Queue(query,
			p.RunID, p.Ticker, string(p.Action), p.Expiration, p.DTE,
			p.TargetDelta, p.Strike, p.Premium, p.ActualDelta, p.AnnualizedYield,
			p.Score, p.Rank, p.Price, p.RSI, p.Beta, p.SentimentScore, metrics)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("pick batch failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit picks: %w", err)
	}
	return nil
}

// ByRun returns the picks for one run and action, best yield first
func (r *Repository) ByRun(ctx context.Context, runID uuid.UUID, action contracts.PickAction) ([]*contracts.Pick, error) {
	query := `
		SELECT run_id, ticker, action, expiration, dte, target_delta, strike,
			premium, actual_delta, annualized_yield, score, rank, price, rsi,
			beta, sentiment_score, pick_metrics, created_at
		FROM screening_picks
		WHERE run_id = $1 AND action = $2
		ORDER BY annualized_yield DESC, ticker ASC
	`

	rows, err := r.pool.Query(ctx, query, runID, string(action))
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Pick
	for rows.Next() {
		var p contracts.Pick
		var action string
		var metrics []byte
		err := rows.Scan(&p.RunID, &p.Ticker, &action, &p.Expiration, &p.DTE,
			&p.TargetDelta, &p.Strike, &p.Premium, &p.ActualDelta, &p.AnnualizedYield,
			&p.Score, &p.Rank, &p.Price, &p.RSI, &p.Beta, &p.SentimentScore,
			&metrics, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		p.Action = contracts.PickAction(action)
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &p.Metrics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pick metrics: %w", err)
			}
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
