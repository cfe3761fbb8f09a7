package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is one screened ticker with its composite score and the inputs
// that produced it. Score is an integer in [0,100]; Rank is dense and
// 1-based, assigned by score descending with ticker ascending as tie-break.
type Candidate struct {
	RunID    uuid.UUID `json:"run_id"`
	Ticker   string    `json:"ticker"`
	Name     string    `json:"name,omitempty"`
	Exchange string    `json:"exchange,omitempty"`

	Score int `json:"score"`
	Rank  int `json:"rank"`

	Price     *float64 `json:"price,omitempty"`
	MarketCap *int64   `json:"market_cap,omitempty"`
	Sector    string   `json:"sector,omitempty"`
	Industry  string   `json:"industry,omitempty"`
	Beta      *float64 `json:"beta,omitempty"`
	RSI       *float64 `json:"rsi,omitempty"`

	SentimentScore *float64 `json:"sentiment_score,omitempty"`

	// Days until the next earnings report, when known
	EarningsInDays *int `json:"earnings_in_days,omitempty"`

	// Raw feature map persisted as jsonb for offline inspection
	Features map[string]interface{} `json:"features,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Features is the raw per-ticker input snapshot gathered before scoring.
// Pointer fields distinguish "provider had no value" from zero.
type Features struct {
	Ticker   string
	Name     string
	Exchange string
	Sector   string
	Industry string

	Price       *float64
	MarketCap   *int64
	AvgVolume   *int64
	Beta        *float64
	YearHigh    *float64
	YearLow     *float64
	PERatio     *float64
	DebtEquity  *float64
	NetMargin   *float64
	OpMargin    *float64
	ROE         *float64
	DividendYld *float64

	RSI *float64

	Headlines []string

	// Days until the next earnings report, nil when unknown
	EarningsInDays *int
}

// ScoreBreakdown carries the sub-scores behind a composite score
type ScoreBreakdown struct {
	Fundamentals float64 `json:"fundamentals"`
	Sentiment    float64 `json:"sentiment"`
	Trend        float64 `json:"trend"`
	Technical    float64 `json:"technical"`
	Composite    int     `json:"composite"`
}
