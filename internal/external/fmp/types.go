package fmp

// Provider payloads are normalized here, at the gateway boundary. Optional
// fields are pointers so "absent" never collapses into zero.

// Profile is the company profile response
type Profile struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       *float64 `json:"price"`
	MarketCap   *int64   `json:"marketCap"`
	MktCap      *int64   `json:"mktCap"` // legacy field name, some plans still return it
	Beta        *float64 `json:"beta"`
	VolAvg      *int64   `json:"volAvg"`
	Sector      string   `json:"sector"`
	Industry    string   `json:"industry"`
	Exchange    string   `json:"exchangeShortName"`
	Currency    string   `json:"currency"`
}

// EffectiveMarketCap resolves the market cap across field-name variants
func (p *Profile) EffectiveMarketCap() *int64 {
	if p.MarketCap != nil {
		return p.MarketCap
	}
	return p.MktCap
}

// Quote is the real-time quote response
type Quote struct {
	Symbol               string   `json:"symbol"`
	Price                *float64 `json:"price"`
	MarketCap            *int64   `json:"marketCap"`
	YearHigh             *float64 `json:"yearHigh"`
	YearLow              *float64 `json:"yearLow"`
	AvgVolume            *int64   `json:"avgVolume"`
	PE                   *float64 `json:"pe"`
	EarningsAnnouncement string   `json:"earningsAnnouncement"`
}

// RatiosTTM is the trailing-twelve-month ratios response
type RatiosTTM struct {
	Symbol        string   `json:"symbol"`
	NetMargin     *float64 `json:"netProfitMarginTTM"`
	OpMargin      *float64 `json:"operatingProfitMarginTTM"`
	ROE           *float64 `json:"returnOnEquityTTM"`
	PERatio       *float64 `json:"peRatioTTM"`
	DebtEquity    *float64 `json:"debtEquityRatioTTM"`
	DividendYield *float64 `json:"dividendYielTTM"`
}

// KeyMetricsTTM is the trailing-twelve-month key metrics response
type KeyMetricsTTM struct {
	Symbol  string   `json:"symbol"`
	PERatio *float64 `json:"peRatioTTM"`
}

// NewsItem is one stock news article
type NewsItem struct {
	Symbol        string `json:"symbol"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate"`
	Site          string `json:"site"`
}

// ScreenerRow is one company screener result
type ScreenerRow struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       *float64 `json:"price"`
	MarketCap   *int64   `json:"marketCap"`
	AvgVolume   *int64   `json:"volume"`
	Exchange    string   `json:"exchangeShortName"`
	Sector      string   `json:"sector"`
	Industry    string   `json:"industry"`
}

// rsiRow is one technical indicator data point
type rsiRow struct {
	Date string   `json:"date"`
	RSI  *float64 `json:"rsi"`
}

// DividendRow is one entry from the dividends calendar
type DividendRow struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"` // ex-dividend date, YYYY-MM-DD
}

// EarningsRow is one entry from the earnings calendar
type EarningsRow struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"` // report date, YYYY-MM-DD
}
