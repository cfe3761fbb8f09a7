package fmp

import (
	"context"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/logger"
	"github.com/wheelops/wheelhouse/pkg/redis"
)

// defaultNewsLimit caps headlines fetched per ticker for sentiment scoring
const defaultNewsLimit = 50

// Gateway aggregates the per-endpoint calls into one feature snapshot per
// ticker. A failed sub-fetch leaves its fields nil instead of failing the
// whole ticker; the scoring gates decide what missing data means.
type Gateway struct {
	client    *Client
	cache     *redis.Cache
	logger    *logger.Logger
	newsLimit int
}

// NewGateway creates a feature gateway. cache may be backed by a disabled
// redis client, in which case every lookup falls through to the API.
func NewGateway(client *Client, cache *redis.Cache, log *logger.Logger) *Gateway {
	return &Gateway{
		client:    client,
		cache:     cache,
		logger:    log,
		newsLimit: defaultNewsLimit,
	}
}

// Features builds the screening input snapshot for one ticker
func (g *Gateway) Features(ctx context.Context, ticker string) (*contracts.Features, error) {
	feats := &contracts.Features{Ticker: ticker}

	if profile := g.profile(ctx, ticker); profile != nil {
		feats.Name = profile.CompanyName
		feats.Exchange = profile.Exchange
		feats.Sector = profile.Sector
		feats.Industry = profile.Industry
		feats.Beta = profile.Beta
		feats.AvgVolume = profile.VolAvg
		feats.Price = profile.Price
		feats.MarketCap = profile.EffectiveMarketCap()
	}

	if quote := g.quote(ctx, ticker); quote != nil {
		if quote.Price != nil {
			feats.Price = quote.Price
		}
		if feats.MarketCap == nil {
			feats.MarketCap = quote.MarketCap
		}
		if feats.AvgVolume == nil {
			feats.AvgVolume = quote.AvgVolume
		}
		feats.YearHigh = quote.YearHigh
		feats.YearLow = quote.YearLow
		if feats.PERatio == nil {
			feats.PERatio = quote.PE
		}
	}

	if ratios, ok, err := g.client.RatiosTTM(ctx, ticker); err == nil && ok {
		feats.NetMargin = ratios.NetMargin
		feats.OpMargin = ratios.OpMargin
		feats.ROE = ratios.ROE
		feats.DebtEquity = ratios.DebtEquity
		feats.DividendYld = ratios.DividendYield
		if ratios.PERatio != nil {
			feats.PERatio = ratios.PERatio
		}
	} else if err != nil {
		g.logger.WithError(err).Debugf("ratios fetch failed for %s", ticker)
	}

	if feats.PERatio == nil {
		if metrics, ok, err := g.client.KeyMetricsTTM(ctx, ticker); err == nil && ok {
			feats.PERatio = metrics.PERatio
		}
	}

	if news, err := g.client.StockNews(ctx, ticker, g.newsLimit); err == nil {
		feats.Headlines = Headlines(news)
	} else {
		g.logger.WithError(err).Debugf("news fetch failed for %s", ticker)
	}

	now := time.Now().UTC()
	if earnings, ok, err := g.client.NextEarnings(ctx, ticker, now); err == nil && ok {
		days := int(earnings.Sub(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24)
		feats.EarningsInDays = &days
	}

	return feats, nil
}

// profile fetches through the cache; a miss is cached for a short window
func (g *Gateway) profile(ctx context.Context, ticker string) *Profile {
	var cached Profile
	if hit, _ := g.cache.Get(ctx, redis.ProfileKey(ticker), &cached); hit {
		return &cached
	}

	profile, ok, err := g.client.Profile(ctx, ticker)
	if err != nil {
		g.logger.WithError(err).Debugf("profile fetch failed for %s", ticker)
		return nil
	}
	if !ok {
		return nil
	}

	if err := g.cache.Set(ctx, redis.ProfileKey(ticker), profile, redis.TTLMedium); err != nil {
		g.logger.WithError(err).Debug("profile cache write failed")
	}
	return profile
}

func (g *Gateway) quote(ctx context.Context, ticker string) *Quote {
	var cached Quote
	if hit, _ := g.cache.Get(ctx, redis.QuoteKey(ticker), &cached); hit {
		return &cached
	}

	quote, ok, err := g.client.Quote(ctx, ticker)
	if err != nil {
		g.logger.WithError(err).Debugf("quote fetch failed for %s", ticker)
		return nil
	}
	if !ok {
		return nil
	}

	if err := g.cache.Set(ctx, redis.QuoteKey(ticker), quote, redis.TTLShort); err != nil {
		g.logger.WithError(err).Debug("quote cache write failed")
	}
	return quote
}
