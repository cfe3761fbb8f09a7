package schwab

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
)

// rawChain mirrors the TD-style chain response. The exp-date maps key on
// "YYYY-MM-DD:dte" and then on the strike price as a string.
type rawChain struct {
	Symbol          string                            `json:"symbol"`
	UnderlyingPrice float64                           `json:"underlyingPrice"`
	PutExpDateMap   map[string]map[string][]rawOption `json:"putExpDateMap"`
	CallExpDateMap  map[string]map[string][]rawOption `json:"callExpDateMap"`
}

type rawOption struct {
	PutCall      string   `json:"putCall"`
	Symbol       string   `json:"symbol"`
	Bid          float64  `json:"bid"`
	Ask          float64  `json:"ask"`
	Last         float64  `json:"last"`
	Mark         float64  `json:"mark"`
	Delta        float64  `json:"delta"`
	OpenInterest int64    `json:"openInterest"`
	TotalVolume  int64    `json:"totalVolume"`
	InTheMoney   bool     `json:"inTheMoney"`
	StrikePrice  *float64 `json:"strikePrice"`
}

// Chain fetches and normalizes the option chain for one underlying
func (c *Client) Chain(ctx context.Context, ticker string, side contracts.OptionSide, strikeCount int) (*contracts.OptionChain, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("contractType", string(side))
	params.Set("strikeCount", strconv.Itoa(strikeCount))

	var raw rawChain
	if err := c.getJSON(ctx, "/marketdata/v1/chains", params, &raw); err != nil {
		return nil, fmt.Errorf("chain fetch failed for %s: %w", ticker, err)
	}

	return normalizeChain(ticker, &raw, time.Now()), nil
}

// normalizeChain flattens the exp-date maps into sorted expiration groups
func normalizeChain(ticker string, raw *rawChain, now time.Time) *contracts.OptionChain {
	return &contracts.OptionChain{
		Ticker:          ticker,
		UnderlyingPrice: raw.UnderlyingPrice,
		Puts:            normalizeSide(raw.PutExpDateMap, contracts.SidePut, now),
		Calls:           normalizeSide(raw.CallExpDateMap, contracts.SideCall, now),
	}
}

func normalizeSide(expMap map[string]map[string][]rawOption, side contracts.OptionSide, now time.Time) []contracts.Expiration {
	if len(expMap) == 0 {
		return nil
	}

	byDate := make(map[string]*contracts.Expiration)

	for expKey, strikes := range expMap {
		expDate, ok := parseExpKey(expKey)
		if !ok {
			continue
		}
		dateKey := expDate.Format("2006-01-02")

		exp := byDate[dateKey]
		if exp == nil {
			exp = &contracts.Expiration{
				Date: expDate,
				DTE:  daysBetween(now, expDate),
			}
			byDate[dateKey] = exp
		}

		for strikeStr, options := range strikes {
			for _, opt := range options {
				strike := opt.StrikePrice
				if strike == nil {
					if v, err := strconv.ParseFloat(strikeStr, 64); err == nil {
						strike = &v
					}
				}
				if strike == nil {
					continue
				}

				exp.Contracts = append(exp.Contracts, contracts.OptionContract{
					Symbol:       opt.Symbol,
					Side:         side,
					Strike:       *strike,
					Expiration:   expDate,
					DTE:          exp.DTE,
					Bid:          opt.Bid,
					Ask:          opt.Ask,
					Last:         opt.Last,
					Mark:         opt.Mark,
					Delta:        opt.Delta,
					OpenInterest: opt.OpenInterest,
					Volume:       opt.TotalVolume,
					InTheMoney:   opt.InTheMoney,
				})
			}
		}
	}

	out := make([]contracts.Expiration, 0, len(byDate))
	for _, exp := range byDate {
		sort.Slice(exp.Contracts, func(i, j int) bool {
			return exp.Contracts[i].Strike < exp.Contracts[j].Strike
		})
		out = append(out, *exp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// parseExpKey extracts the date from keys like "2026-01-02:4"
func parseExpKey(key string) (time.Time, bool) {
	datePart, _, _ := strings.Cut(key, ":")
	d, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func daysBetween(from, to time.Time) int {
	fromDay := from.Truncate(24 * time.Hour)
	toDay := to.Truncate(24 * time.Hour)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
