package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited marks a provider refusal on quota grounds. Batch fetch loops
// stop on it and leave the remaining tickers uncached, so the next invocation
// retries them; any other fetch error degrades to a per-ticker miss.
var ErrRateLimited = errors.New("provider rate limited")

// UniverseProvider yields the ordered, de-duplicated ticker list to screen
type UniverseProvider interface {
	Tickers(ctx context.Context) ([]string, error)
}

// MarketData is the per-ticker feature source used by the screener
type MarketData interface {
	Features(ctx context.Context, ticker string) (*Features, error)
}

// OptionChains fetches a normalized option chain for one underlying
type OptionChains interface {
	Chain(ctx context.Context, ticker string, side OptionSide, strikeCount int) (*OptionChain, error)
}

// Positions reads current brokerage holdings
type Positions interface {
	Positions(ctx context.Context) (*AccountSnapshot, error)
}

// RSISource fetches a single RSI value from a provider.
// ok=false with nil error means the provider has no data for the ticker;
// callers cache that outcome as a null snapshot.
type RSISource interface {
	RSI(ctx context.Context, ticker string, interval string, period int) (value float64, ok bool, err error)
	SourceName() string
}

// RSISnapshot is one cached RSI observation. A nil RSI records a provider
// miss so the ticker is not re-fetched the same day.
type RSISnapshot struct {
	Ticker    string    `json:"ticker"`
	AsOfDate  time.Time `json:"as_of_date"`
	Interval  string    `json:"interval"`
	Period    int       `json:"period"`
	RSI       *float64  `json:"rsi"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Key returns the natural key used for deduplication
func (s *RSISnapshot) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.Ticker, s.AsOfDate.Format("2006-01-02"), s.Interval, s.Period)
}
