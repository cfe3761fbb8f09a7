package contracts

import (
	"math"
	"time"
)

// OptionSide is the contract type within a chain
type OptionSide string

const (
	SidePut  OptionSide = "PUT"
	SideCall OptionSide = "CALL"
)

// OptionContract is one strike/expiration quote normalized from the broker
// chain response. Delta is signed as quoted (negative for puts).
type OptionContract struct {
	Symbol       string     `json:"symbol"`
	Side         OptionSide `json:"side"`
	Strike       float64    `json:"strike"`
	Expiration   time.Time  `json:"expiration"`
	DTE          int        `json:"dte"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Last         float64    `json:"last"`
	Mark         float64    `json:"mark"`
	Delta        float64    `json:"delta"`
	OpenInterest int64      `json:"open_interest"`
	Volume       int64      `json:"volume"`
	InTheMoney   bool       `json:"in_the_money"`
}

// AbsDelta returns |delta|
func (c *OptionContract) AbsDelta() float64 {
	return math.Abs(c.Delta)
}

// EffectivePremium picks the price used for yield math: mark when quoted,
// else bid/ask midpoint, else last trade.
func (c *OptionContract) EffectivePremium() float64 {
	if c.Mark > 0 {
		return c.Mark
	}
	if c.Bid > 0 && c.Ask > 0 {
		return (c.Bid + c.Ask) / 2
	}
	return c.Last
}

// SpreadPct returns the bid/ask spread as a fraction of the midpoint.
// Returns +Inf when the quote is one-sided.
func (c *OptionContract) SpreadPct() float64 {
	if c.Bid <= 0 || c.Ask <= 0 {
		return math.Inf(1)
	}
	mid := (c.Bid + c.Ask) / 2
	if mid <= 0 {
		return math.Inf(1)
	}
	return (c.Ask - c.Bid) / mid
}

// Expiration groups the contracts quoted for one expiration date
type Expiration struct {
	Date      time.Time        `json:"date"`
	DTE       int              `json:"dte"`
	Contracts []OptionContract `json:"contracts"`
}

// OptionChain is a normalized option chain for one underlying
type OptionChain struct {
	Ticker          string       `json:"ticker"`
	UnderlyingPrice float64      `json:"underlying_price"`
	Puts            []Expiration `json:"puts"`
	Calls           []Expiration `json:"calls"`

	// Next ex-dividend date when the provider reports one
	ExDividendDate *time.Time `json:"ex_dividend_date,omitempty"`
}

// Side returns the expirations for the requested contract side
func (ch *OptionChain) Side(side OptionSide) []Expiration {
	if side == SideCall {
		return ch.Calls
	}
	return ch.Puts
}
