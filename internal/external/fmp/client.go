package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wheelops/wheelhouse/pkg/httputil"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Client handles communication with the Financial Modeling Prep stable API
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	apiKey  string
	baseURL string

	mu             sync.Mutex
	warnedEndpoint map[string]bool
}

// NewClient creates a new FMP API client
func NewClient(apiKey, baseURL string, http *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		http:           http,
		logger:         log,
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		warnedEndpoint: make(map[string]bool),
	}
}

// NormalizeSymbol converts share-class tickers to FMP's format (BRK.B -> BRK-B)
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.TrimSpace(symbol), ".", "-")
}

// get fetches an endpoint into dest. ok=false without error means the
// endpoint had no data for the symbol (404, or plan entitlement rejection).
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest interface{}) (bool, error) {
	params.Set("apikey", c.apiKey)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	ok, err := c.http.GetJSON(ctx, fullURL, dest)
	if err != nil {
		if httputil.IsEntitlementError(err) {
			c.warnEntitlementOnce(endpoint)
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// warnEntitlementOnce logs plan rejections once per endpoint, not per ticker
func (c *Client) warnEntitlementOnce(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warnedEndpoint[endpoint] {
		return
	}
	c.warnedEndpoint[endpoint] = true
	c.logger.WithField("endpoint", endpoint).
		Warn("FMP endpoint not included in current plan, treating as no data")
}

// Profile fetches the company profile for one symbol
func (c *Client) Profile(ctx context.Context, symbol string) (*Profile, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))

	var rows []Profile
	ok, err := c.get(ctx, "profile", params, &rows)
	if err != nil || !ok || len(rows) == 0 {
		return nil, false, err
	}
	return &rows[0], true, nil
}

// Quote fetches the current quote for one symbol
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))

	var rows []Quote
	ok, err := c.get(ctx, "quote", params, &rows)
	if err != nil || !ok || len(rows) == 0 {
		return nil, false, err
	}
	return &rows[0], true, nil
}

// RatiosTTM fetches trailing-twelve-month ratios for one symbol
func (c *Client) RatiosTTM(ctx context.Context, symbol string) (*RatiosTTM, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))

	var rows []RatiosTTM
	ok, err := c.get(ctx, "ratios-ttm", params, &rows)
	if err != nil || !ok || len(rows) == 0 {
		return nil, false, err
	}
	return &rows[0], true, nil
}

// KeyMetricsTTM fetches trailing-twelve-month key metrics for one symbol
func (c *Client) KeyMetricsTTM(ctx context.Context, symbol string) (*KeyMetricsTTM, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))

	var rows []KeyMetricsTTM
	ok, err := c.get(ctx, "key-metrics-ttm", params, &rows)
	if err != nil || !ok || len(rows) == 0 {
		return nil, false, err
	}
	return &rows[0], true, nil
}

// StockNews fetches recent news articles for one symbol
func (c *Client) StockNews(ctx context.Context, symbol string, limit int) ([]NewsItem, error) {
	params := url.Values{}
	params.Set("symbols", NormalizeSymbol(symbol))
	params.Set("limit", fmt.Sprintf("%d", limit))

	var rows []NewsItem
	ok, err := c.get(ctx, "news/stock", params, &rows)
	if err != nil || !ok {
		return nil, err
	}
	return rows, nil
}

// RSI fetches the latest RSI value for one symbol.
// ok=false with nil error means the provider has no indicator data.
func (c *Client) RSI(ctx context.Context, symbol string, interval string, period int) (float64, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))
	params.Set("periodLength", fmt.Sprintf("%d", period))
	params.Set("timeframe", timeframe(interval))

	var rows []rsiRow
	ok, err := c.get(ctx, "technical-indicators/rsi", params, &rows)
	if err != nil || !ok || len(rows) == 0 || rows[0].RSI == nil {
		return 0, false, err
	}
	return *rows[0].RSI, true, nil
}

// SourceName identifies this client in rsi_snapshots.source
func (c *Client) SourceName() string {
	return "fmp"
}

// CompanyScreener runs the company screener for one exchange
func (c *Client) CompanyScreener(ctx context.Context, exchange string, limit int) ([]ScreenerRow, error) {
	params := url.Values{}
	params.Set("exchange", exchange)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var rows []ScreenerRow
	ok, err := c.get(ctx, "company-screener", params, &rows)
	if err != nil || !ok {
		return nil, err
	}
	return rows, nil
}

// NextExDividend returns the next ex-dividend date on or after now.
// ok=false when the symbol has no upcoming dividend on record.
func (c *Client) NextExDividend(ctx context.Context, symbol string, now time.Time) (time.Time, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))

	var rows []DividendRow
	ok, err := c.get(ctx, "dividends", params, &rows)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return nextDateOnOrAfter(dividendDates(rows), now)
}

// NextEarnings returns the next earnings report date on or after now
func (c *Client) NextEarnings(ctx context.Context, symbol string, now time.Time) (time.Time, bool, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(symbol))

	var rows []EarningsRow
	ok, err := c.get(ctx, "earnings", params, &rows)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	return nextDateOnOrAfter(dates, now)
}

func dividendDates(rows []DividendRow) []string {
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	return dates
}

// nextDateOnOrAfter finds the earliest parseable date not before today
func nextDateOnOrAfter(dates []string, now time.Time) (time.Time, bool, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var best time.Time
	found := false
	for _, ds := range dates {
		d, err := time.Parse("2006-01-02", ds)
		if err != nil {
			continue
		}
		if d.Before(today) {
			continue
		}
		if !found || d.Before(best) {
			best = d
			found = true
		}
	}
	return best, found, nil
}

// timeframe maps common interval names onto FMP's timeframe values
func timeframe(interval string) string {
	switch strings.ToLower(interval) {
	case "daily", "1day":
		return "1day"
	case "weekly", "1week":
		return "1week"
	case "monthly", "1month":
		return "1month"
	default:
		return interval
	}
}
