package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wheelops/wheelhouse/internal/contracts"
)

// Repository implements contracts.SnapshotRepository on Postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save stores one account snapshot; positions are kept as jsonb
func (r *Repository) Save(ctx context.Context, runID uuid.UUID, snap *contracts.AccountSnapshot) error {
	positions, err := json.Marshal(snap.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	asOf := snap.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	query := `
		INSERT INTO position_snapshots (
			run_id, as_of, account_hash, liquidation_value, cash_balance,
			buying_power, positions_count, positions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		runID, asOf, snap.AccountHash, snap.LiquidationVal, snap.CashBalance,
		snap.BuyingPower, len(snap.Positions), positions)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}
