package contracts

import "time"

// Position is one instrument held in the brokerage account
type Position struct {
	Symbol        string  `json:"symbol"`
	AssetType     string  `json:"asset_type"` // EQUITY, OPTION, ...
	Quantity      float64 `json:"quantity"`   // signed: negative = short
	AveragePrice  float64 `json:"average_price"`
	MarketValue   float64 `json:"market_value"`
	DayChangePct  float64 `json:"day_change_pct"`
	UnderlyingSym string  `json:"underlying_symbol,omitempty"`
}

// IsCoverable reports whether the position can back at least one covered
// call: a long equity position of 100+ shares.
func (p *Position) IsCoverable() bool {
	return p.AssetType == "EQUITY" && p.Quantity >= 100
}

// AccountSnapshot is the daily tracker's view of the account
type AccountSnapshot struct {
	AsOf           time.Time  `json:"as_of"`
	AccountHash    string     `json:"account_hash"`
	LiquidationVal float64    `json:"liquidation_value"`
	CashBalance    float64    `json:"cash_balance"`
	BuyingPower    float64    `json:"buying_power"`
	Positions      []Position `json:"positions"`
}
