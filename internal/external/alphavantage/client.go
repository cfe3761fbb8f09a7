package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/httputil"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Client handles communication with the Alpha Vantage API. The free tier
// allows roughly 5 requests per minute, so every call goes through a local
// rate limiter.
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey, baseURL string, requestsPerMinute float64, http *httputil.Client, log *logger.Logger) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5.0
	}
	return &Client{
		http:    http,
		logger:  log,
		apiKey:  apiKey,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
	}
}

// rsiResponse covers both data and the in-band error envelopes.
// Alpha Vantage returns HTTP 200 for errors and rate limits.
type rsiResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	Series       map[string]map[string]string `json:"Technical Analysis: RSI"`
}

// RSI fetches the latest RSI value for a symbol.
// ok=false with nil error means the provider has no data; rate-limit
// responses return an error so the caller can stop the batch.
func (c *Client) RSI(ctx context.Context, symbol string, interval string, period int) (float64, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}

	params := url.Values{}
	params.Set("function", "RSI")
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("time_period", strconv.Itoa(period))
	params.Set("series_type", "close")
	params.Set("apikey", c.apiKey)

	var resp rsiResponse
	ok, err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	if resp.ErrorMessage != "" {
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  truncate(resp.ErrorMessage, 200),
		}).Warn("Alpha Vantage rejected RSI request")
		return 0, false, nil
	}
	if resp.Note != "" || resp.Information != "" {
		msg := resp.Note
		if msg == "" {
			msg = resp.Information
		}
		return 0, false, fmt.Errorf("alpha vantage %w: %s", contracts.ErrRateLimited, truncate(msg, 200))
	}

	if len(resp.Series) == 0 {
		return 0, false, nil
	}

	// Keys are timestamps; the lexicographically greatest is the latest
	keys := make([]string, 0, len(resp.Series))
	for k := range resp.Series {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	rsiStr, exists := resp.Series[keys[0]]["RSI"]
	if !exists {
		return 0, false, nil
	}

	value, err := strconv.ParseFloat(rsiStr, 64)
	if err != nil {
		c.logger.Warnf("Alpha Vantage RSI(%s): invalid value %q", symbol, rsiStr)
		return 0, false, nil
	}

	return value, true, nil
}

// SourceName identifies this client in rsi_snapshots.source
func (c *Client) SourceName() string {
	return "alpha_vantage"
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
