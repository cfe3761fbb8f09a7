package rsicache

import (
	"context"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Cache is a read-through RSI lookup backed by the snapshot table.
// Resolution order: today's snapshot (a null-RSI miss row counts as a hit),
// then any snapshot within the staleness window, then a provider fetch with
// write-back. The screener consumes this through its lookup interface.
type Cache struct {
	repo   contracts.RSIRepository
	source contracts.RSISource
	cfg    config.RSIConfig
	logger *logger.Logger
}

// NewCache creates a read-through RSI cache
func NewCache(repo contracts.RSIRepository, source contracts.RSISource, cfg config.RSIConfig, log *logger.Logger) *Cache {
	return &Cache{
		repo:   repo,
		source: source,
		cfg:    cfg,
		logger: log,
	}
}

// Lookup resolves the RSI for a ticker. A nil value with nil error means no
// RSI is available anywhere.
func (c *Cache) Lookup(ctx context.Context, ticker string) (*float64, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	snap, ok, err := c.repo.Get(ctx, ticker, today, c.cfg.Interval, c.cfg.Period)
	if err != nil {
		return nil, err
	}
	if ok {
		return snap.RSI, nil
	}

	maxAge := time.Duration(c.cfg.MaxAgeHours) * time.Hour
	snap, ok, err = c.repo.LatestWithin(ctx, ticker, c.cfg.Interval, c.cfg.Period, maxAge)
	if err != nil {
		return nil, err
	}
	if ok {
		return snap.RSI, nil
	}

	if c.source == nil {
		return nil, nil
	}

	value, found, err := c.source.RSI(ctx, ticker, c.cfg.Interval, c.cfg.Period)
	if err != nil {
		return nil, err
	}

	write := &contracts.RSISnapshot{
		Ticker:   ticker,
		AsOfDate: today,
		Interval: c.cfg.Interval,
		Period:   c.cfg.Period,
		Source:   c.source.SourceName(),
	}
	if found {
		write.RSI = &value
	}

	if err := c.repo.SaveBatch(ctx, []*contracts.RSISnapshot{write}); err != nil {
		// The fetched value is still usable even if the write-back failed
		c.logger.WithError(err).Warnf("%s: RSI write-back failed", ticker)
	}

	return write.RSI, nil
}
