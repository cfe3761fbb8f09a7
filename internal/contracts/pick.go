package contracts

import (
	"time"

	"github.com/google/uuid"
)

// PickAction distinguishes the two sides of the wheel
type PickAction string

const (
	ActionCSP PickAction = "CSP" // cash-secured put
	ActionCC  PickAction = "CC"  // covered call
)

// Valid reports whether the action is one of the known values
func (a PickAction) Valid() bool {
	return a == ActionCSP || a == ActionCC
}

// Pick is one selected option contract for a ticker within a run.
// AnnualizedYield is stored in percent.
type Pick struct {
	RunID  uuid.UUID  `json:"run_id"`
	Ticker string     `json:"ticker"`
	Action PickAction `json:"action"`

	Expiration  time.Time `json:"expiration"`
	DTE         int       `json:"dte"`
	TargetDelta float64   `json:"target_delta"`
	Strike      float64   `json:"strike"`
	Premium     float64   `json:"premium"`
	ActualDelta float64   `json:"actual_delta"`

	AnnualizedYield float64 `json:"annualized_yield"`

	// Copied from the screening candidate for display without joins
	Score          int      `json:"score"`
	Rank           int      `json:"rank"`
	Price          *float64 `json:"price,omitempty"`
	RSI            *float64 `json:"rsi,omitempty"`
	Beta           *float64 `json:"beta,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`

	// Selection context persisted as jsonb: window tier, rule snapshot,
	// contract quote fields at selection time
	Metrics map[string]interface{} `json:"pick_metrics,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AnnualizedYieldPct computes (premium/strike) * (365/dte) * 100.
// Returns 0 for non-positive dte, strike, or premium; callers reject such
// contracts before selection.
func AnnualizedYieldPct(premium, strike float64, dte int) float64 {
	if dte <= 0 || strike <= 0 || premium <= 0 {
		return 0
	}
	return (premium / strike) * (365.0 / float64(dte)) * 100.0
}
