package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/external/alphavantage"
	"github.com/wheelops/wheelhouse/internal/external/fmp"
	"github.com/wheelops/wheelhouse/internal/external/schwab"
	"github.com/wheelops/wheelhouse/internal/picks"
	"github.com/wheelops/wheelhouse/internal/rsicache"
	"github.com/wheelops/wheelhouse/internal/rules"
	"github.com/wheelops/wheelhouse/internal/screening"
	"github.com/wheelops/wheelhouse/internal/tracker"
	"github.com/wheelops/wheelhouse/internal/universe"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/database"
	"github.com/wheelops/wheelhouse/pkg/httputil"
	"github.com/wheelops/wheelhouse/pkg/logger"
	"github.com/wheelops/wheelhouse/pkg/redis"
)

// app wires shared infrastructure for the commands. Each command creates one
// app, uses the component accessors it needs, and closes it on exit.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	http  *httputil.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rc, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		redis: rc,
		http:  httputil.New(log),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.redis.Close()
}

const lockPrefix = "wheelhouse"

func (a *app) lock() *redis.Lock {
	return redis.NewLock(a.redis, lockPrefix)
}

// withStageLock runs fn under the advisory lock for a pipeline stage,
// refusing to start when another invocation holds it.
func (a *app) withStageLock(ctx context.Context, stage string, ttl time.Duration, fn func(context.Context) error) error {
	lock := a.lock()
	acquired, err := lock.Acquire(ctx, stage, ttl)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("stage %s already in progress, refusing to start", stage)
	}
	defer lock.Release(ctx, stage)
	return fn(ctx)
}

// providerHTTP builds an HTTP client with the shared redis sliding-window
// limiter attached for one provider quota. Independent job invocations then
// draw from the same budget; with redis disabled the limiter is a no-op.
func (a *app) providerHTTP(limit redis.RateLimitConfig) *httputil.Client {
	return httputil.New(a.log).
		WithRateLimiter(redis.NewRateLimiter(a.redis, lockPrefix), limit)
}

func (a *app) fmpClient() *fmp.Client {
	return fmp.NewClient(a.cfg.FMP.APIKey, a.cfg.FMP.BaseURL,
		a.providerHTTP(redis.FMPRateLimit), a.log)
}

func (a *app) marketData() *fmp.Gateway {
	return fmp.NewGateway(a.fmpClient(), redis.NewCache(a.redis, lockPrefix), a.log)
}

func (a *app) schwabClient() (*schwab.Client, error) {
	return schwab.NewClient(a.cfg.Schwab, a.providerHTTP(redis.SchwabRateLimit), a.log)
}

// rsiSource prefers Alpha Vantage when configured and falls back to the FMP
// technical indicator endpoint otherwise.
func (a *app) rsiSource() contracts.RSISource {
	if a.cfg.AlphaVantage.APIKey != "" {
		return alphavantage.NewClient(a.cfg.AlphaVantage.APIKey, a.cfg.AlphaVantage.BaseURL,
			a.cfg.AlphaVantage.RequestsPerMinute, a.http, a.log)
	}
	return a.fmpClient()
}

func (a *app) rsiRepo() *rsicache.Repository {
	return rsicache.NewRepository(a.db.Pool)
}

func (a *app) rsiCache() *rsicache.Cache {
	return rsicache.NewCache(a.rsiRepo(), a.rsiSource(), a.cfg.RSI, a.log)
}

func (a *app) rsiRefresher() *rsicache.Refresher {
	return rsicache.NewRefresher(a.rsiRepo(), a.rsiSource(), a.cfg.RSI,
		a.cfg.AlphaVantage.MaxRequestsPerDay, a.log)
}

func (a *app) runRepo() *screening.RunRepository {
	return screening.NewRunRepository(a.db.Pool)
}

func (a *app) runTracker() *screening.Tracker {
	return screening.NewTracker(a.runRepo(), a.log)
}

func (a *app) screener() (*screening.Screener, error) {
	provider, err := universe.FromConfig(a.cfg, a.fmpClient(), a.log)
	if err != nil {
		return nil, err
	}

	deps := screening.ScreenerDeps{
		Universe:   provider,
		Market:     a.marketData(),
		RSI:        a.rsiCache(),
		Tracker:    a.runTracker(),
		Candidates: screening.NewCandidateRepository(a.db.Pool),
		Tickers:    screening.NewTickerRepository(a.db.Pool),
		Approved:   screening.NewApprovedUniverseRepository(a.db.Pool),
		Lock:       a.lock(),
	}
	return screening.NewScreener(a.cfg.Screener, a.cfg.BuildMarker, deps, a.log), nil
}

func (a *app) strategyRules() (rules.Rules, error) {
	r, err := rules.LoadOrDefault(a.cfg.Picks.RulesPath)
	if err != nil {
		return rules.Rules{}, fmt.Errorf("failed to load strategy rules: %w", err)
	}
	return r, nil
}

func (a *app) cspBuilder() (*picks.CSPBuilder, error) {
	r, err := a.strategyRules()
	if err != nil {
		return nil, err
	}
	chains, err := a.schwabClient()
	if err != nil {
		return nil, err
	}
	return picks.NewCSPBuilder(a.cfg.Picks, r, a.runRepo(),
		screening.NewCandidateRepository(a.db.Pool), chains,
		picks.NewRepository(a.db.Pool), a.log), nil
}

func (a *app) ccBuilder() (*picks.CCBuilder, error) {
	r, err := a.strategyRules()
	if err != nil {
		return nil, err
	}

	client, err := a.schwabClient()
	if err != nil {
		return nil, err
	}

	return picks.NewCCBuilder(a.cfg.Picks, r, a.runRepo(), client, client,
		picks.NewRepository(a.db.Pool), a.fmpClient(), a.log), nil
}

func (a *app) dailyTracker() (*tracker.Tracker, error) {
	client, err := a.schwabClient()
	if err != nil {
		return nil, err
	}
	return tracker.New(a.runTracker(), client, tracker.NewRepository(a.db.Pool),
		a.cfg.BuildMarker, a.log), nil
}

// rsiTickers resolves the ticker list for the RSI refresh job: the approved
// universe when populated, the configured universe source otherwise.
func (a *app) rsiTickers(ctx context.Context) ([]string, error) {
	approved := screening.NewApprovedUniverseRepository(a.db.Pool)
	tickers, err := approved.Approved(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) > 0 {
		return tickers, nil
	}

	provider, err := universe.FromConfig(a.cfg, a.fmpClient(), a.log)
	if err != nil {
		return nil, err
	}
	return provider.Tickers(ctx)
}
