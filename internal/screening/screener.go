package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
	"github.com/wheelops/wheelhouse/pkg/redis"
)

// RSILookup resolves a cached RSI value for a ticker. A nil value with nil
// error means no RSI is available; scoring treats that as neutral.
type RSILookup interface {
	Lookup(ctx context.Context, ticker string) (*float64, error)
}

// Screener runs the full screen: universe -> features -> gates -> scores ->
// ranked candidates, all under one run record.
type Screener struct {
	cfg      config.ScreenerConfig
	universe contracts.UniverseProvider
	market   contracts.MarketData
	rsi      RSILookup
	scorer   *Scorer
	tracker  *Tracker

	candidates contracts.CandidateRepository
	tickers    contracts.TickerRepository
	approved   contracts.ApprovedUniverseRepository

	lock        *redis.Lock
	buildMarker string
	logger      *logger.Logger
}

// ScreenerDeps bundles the collaborators for construction
type ScreenerDeps struct {
	Universe   contracts.UniverseProvider
	Market     contracts.MarketData
	RSI        RSILookup
	Tracker    *Tracker
	Candidates contracts.CandidateRepository
	Tickers    contracts.TickerRepository
	Approved   contracts.ApprovedUniverseRepository
	Lock       *redis.Lock
}

// NewScreener creates a screener with explicit dependencies
func NewScreener(cfg config.ScreenerConfig, buildMarker string, deps ScreenerDeps, log *logger.Logger) *Screener {
	return &Screener{
		cfg:         cfg,
		universe:    deps.Universe,
		market:      deps.Market,
		rsi:         deps.RSI,
		scorer:      NewScorer(cfg),
		tracker:     deps.Tracker,
		candidates:  deps.Candidates,
		tickers:     deps.Tickers,
		approved:    deps.Approved,
		lock:        deps.Lock,
		buildMarker: buildMarker,
		logger:      log,
	}
}

// gateStats counts exclusions per gate for the run summary log
type gateStats struct {
	processed  int
	skipped    int
	gateCounts map[GateResult]int
	rsiMissing int
}

// Run executes one screening run and returns the finished run record.
// Per-ticker failures are recovered; only universe/store failures outside
// the loop are run-fatal.
func (s *Screener) Run(ctx context.Context) (*contracts.Run, error) {
	acquired, err := s.lock.Acquire(ctx, redis.StageScreening, 2*time.Hour)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("screening already in progress, refusing to start")
	}
	defer s.lock.Release(ctx, redis.StageScreening)

	tickers, err := s.universe.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("universe build failed: %w", err)
	}

	run, err := s.tracker.Begin(ctx, len(tickers), s.buildMarker, "")
	if err != nil {
		return nil, err
	}

	candidates, feats, err := s.screen(ctx, tickers)
	if err == nil {
		err = s.persist(ctx, run, candidates, feats)
	}
	if err != nil {
		s.tracker.Fail(ctx, run.RunID, err)
		return run, err
	}

	if err := s.tracker.Succeed(ctx, run.RunID, len(candidates), 0); err != nil {
		return run, err
	}

	run.Status = contracts.RunStatusSuccess
	run.CandidatesCount = len(candidates)
	return run, nil
}

// screen walks the universe and scores every ticker that passes the gates
func (s *Screener) screen(ctx context.Context, tickers []string) ([]*contracts.Candidate, []*contracts.Features, error) {
	stats := gateStats{gateCounts: make(map[GateResult]int)}

	var candidates []*contracts.Candidate
	var kept []*contracts.Features

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		candidate, f, err := s.screenOne(ctx, ticker, &stats)
		if err != nil {
			stats.skipped++
			s.logger.WithError(err).Warnf("%s: error during processing, skipping", ticker)
			continue
		}
		if candidate == nil {
			continue
		}

		candidates = append(candidates, candidate)
		kept = append(kept, f)
		stats.processed++
	}

	s.logger.WithFields(map[string]interface{}{
		"passed":          stats.processed,
		"errored":         stats.skipped,
		"price_missing":   stats.gateCounts[GatePriceMissing],
		"price_below":     stats.gateCounts[GatePriceTooLow],
		"mcap_missing":    stats.gateCounts[GateMcapMissing],
		"mcap_below":      stats.gateCounts[GateMcapTooLow],
		"rsi_out_of_band": stats.gateCounts[GateRSIOutOfBand],
		"rsi_missing":     stats.rsiMissing,
	}).Info("Gate stats")

	RankCandidates(candidates)
	return candidates, kept, nil
}

// screenOne returns nil candidate when the ticker is gated out
func (s *Screener) screenOne(ctx context.Context, ticker string, stats *gateStats) (*contracts.Candidate, *contracts.Features, error) {
	f, err := s.market.Features(ctx, ticker)
	if err != nil {
		return nil, nil, err
	}

	rsi, err := s.rsi.Lookup(ctx, ticker)
	if err != nil {
		s.logger.WithError(err).Debugf("%s: RSI lookup failed, treating as missing", ticker)
	}
	f.RSI = rsi
	if rsi == nil {
		stats.rsiMissing++
	}

	if gate := s.scorer.Gate(f); gate != GatePassed {
		stats.gateCounts[gate]++
		return nil, nil, nil
	}

	breakdown := s.scorer.Score(f)
	sentRaw := breakdown.Sentiment

	candidate := &contracts.Candidate{
		Ticker:         ticker,
		Name:           f.Name,
		Exchange:       f.Exchange,
		Score:          breakdown.Composite,
		Price:          f.Price,
		MarketCap:      f.MarketCap,
		Sector:         f.Sector,
		Industry:       f.Industry,
		Beta:           f.Beta,
		RSI:            f.RSI,
		SentimentScore: &sentRaw,
		EarningsInDays: f.EarningsInDays,
		Features: map[string]interface{}{
			"fundamentals_score": breakdown.Fundamentals,
			"sentiment_score":    breakdown.Sentiment,
			"trend_score":        breakdown.Trend,
			"technical_score":    breakdown.Technical,
			"year_high":          f.YearHigh,
			"year_low":           f.YearLow,
			"news_count":         len(f.Headlines),
		},
	}
	return candidate, f, nil
}

// persist writes candidates, the ticker reference rows, and the approved set
func (s *Screener) persist(ctx context.Context, run *contracts.Run, candidates []*contracts.Candidate, feats []*contracts.Features) error {
	for _, c := range candidates {
		c.RunID = run.RunID
	}

	if err := s.tickers.UpsertBatch(ctx, feats); err != nil {
		return err
	}
	if err := s.candidates.SaveBatch(ctx, candidates); err != nil {
		return err
	}

	topN := s.cfg.ApprovedTopN
	if topN > len(candidates) {
		topN = len(candidates)
	}
	if err := s.approved.Sync(ctx, run.RunID, candidates[:topN]); err != nil {
		return err
	}

	return nil
}
