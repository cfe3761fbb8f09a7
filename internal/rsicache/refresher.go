package rsicache

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/store"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/httputil"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Refresher pre-warms the RSI cache for a ticker list. Only tickers without
// a snapshot for today are fetched, so re-running the job after a partial
// failure costs nothing for the tickers already covered. Provider misses are
// cached as null rows for the same reason.
type Refresher struct {
	repo   contracts.RSIRepository
	source contracts.RSISource
	cfg    config.RSIConfig

	// Hard cap on provider requests per invocation; 0 means unlimited
	maxRequests int

	logger *logger.Logger
}

// NewRefresher creates an RSI cache refresher
func NewRefresher(repo contracts.RSIRepository, source contracts.RSISource, cfg config.RSIConfig, maxRequests int, log *logger.Logger) *Refresher {
	return &Refresher{
		repo:        repo,
		source:      source,
		cfg:         cfg,
		maxRequests: maxRequests,
		logger:      log,
	}
}

// RefreshStats summarizes one refresh invocation
type RefreshStats struct {
	Requested int
	Cached    int
	Fetched   int
	Misses    int
	Errors    int
	Capped    int
}

// rateLimited reports whether a provider refused on quota grounds
func rateLimited(err error) bool {
	if errors.Is(err, contracts.ErrRateLimited) {
		return true
	}
	var se *httputil.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

// Refresh fills today's snapshots for the given tickers. A rate-limited
// provider stops the batch with everything fetched so far persisted, leaving
// the rest for the next run; any other fetch failure is cached as a null
// snapshot and the loop moves on.
func (r *Refresher) Refresh(ctx context.Context, tickers []string) (RefreshStats, error) {
	stats := RefreshStats{Requested: len(tickers)}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	cached, err := r.repo.CachedTickers(ctx, today, r.cfg.Interval, r.cfg.Period)
	if err != nil {
		return stats, err
	}

	var todo []string
	for _, t := range tickers {
		if cached[t] {
			stats.Cached++
			continue
		}
		todo = append(todo, t)
	}

	if len(todo) == 0 {
		r.logger.Infof("RSI cache already warm for all %d tickers", len(tickers))
		return stats, nil
	}

	var pending []*contracts.RSISnapshot
	var fetchErr error

	for _, ticker := range todo {
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}
		requested := stats.Fetched + stats.Misses + stats.Errors
		if r.maxRequests > 0 && requested >= r.maxRequests {
			stats.Capped = len(todo) - requested
			r.logger.Warnf("RSI refresh hit the %d request cap, %d tickers left for next run",
				r.maxRequests, stats.Capped)
			break
		}

		value, found, err := r.source.RSI(ctx, ticker, r.cfg.Interval, r.cfg.Period)
		if err != nil && rateLimited(err) {
			// Stop without caching so the ticker is retried next run
			r.logger.WithError(err).Warn("RSI provider rate limited, stopping the batch")
			fetchErr = err
			break
		}

		snap := &contracts.RSISnapshot{
			Ticker:   ticker,
			AsOfDate: today,
			Interval: r.cfg.Interval,
			Period:   r.cfg.Period,
			Source:   r.source.SourceName(),
		}
		switch {
		case err != nil:
			r.logger.WithError(err).Warnf("RSI fetch failed for %s, caching as null", ticker)
			stats.Errors++
		case found:
			snap.RSI = &value
			stats.Fetched++
		default:
			stats.Misses++
		}
		pending = append(pending, snap)

		if len(pending) >= store.DefaultChunkSize {
			if err := r.repo.SaveBatch(ctx, pending); err != nil {
				return stats, err
			}
			pending = pending[:0]
		}
	}

	if len(pending) > 0 {
		if err := r.repo.SaveBatch(ctx, pending); err != nil {
			return stats, err
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"requested": stats.Requested,
		"cached":    stats.Cached,
		"fetched":   stats.Fetched,
		"misses":    stats.Misses,
		"errors":    stats.Errors,
		"capped":    stats.Capped,
	}).Info("RSI refresh complete")

	return stats, fetchErr
}
