package picks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/rules"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// CSPBuilder generates cash-secured put picks for the top candidates of a
// screening run.
type CSPBuilder struct {
	cfg    config.PicksConfig
	rules  rules.Rules
	runs   contracts.RunRepository
	cands  contracts.CandidateRepository
	chains contracts.OptionChains
	picks  contracts.PickRepository
	logger *logger.Logger
}

// NewCSPBuilder creates a CSP pick builder
func NewCSPBuilder(cfg config.PicksConfig, r rules.Rules, runs contracts.RunRepository,
	cands contracts.CandidateRepository, chains contracts.OptionChains,
	picks contracts.PickRepository, log *logger.Logger) *CSPBuilder {
	return &CSPBuilder{
		cfg:    cfg,
		rules:  r,
		runs:   runs,
		cands:  cands,
		chains: chains,
		picks:  picks,
		logger: log,
	}
}

// Build generates and stores CSP picks. With a zero runID the latest
// successful screening run is used. Re-running replaces the previous picks
// for the same run.
func (b *CSPBuilder) Build(ctx context.Context, runID uuid.UUID) ([]*contracts.Pick, error) {
	run, err := b.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	top, err := b.cands.TopN(ctx, run.RunID, b.cfg.CSPTopN)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("run %s has no candidates", run.RunID)
	}

	now := time.Now().UTC()
	var out []*contracts.Pick

	for _, c := range top {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !b.earningsOK(c) {
			b.logger.Debugf("%s: earnings within %d days, skipping", c.Ticker, b.rules.Guards.EarningsAvoidDays)
			continue
		}

		chain, err := b.chains.Chain(ctx, c.Ticker, contracts.SidePut, b.cfg.StrikeCount)
		if err != nil {
			b.logger.WithError(err).Warnf("%s: chain fetch failed, skipping", c.Ticker)
			continue
		}

		sel, ok := SelectCSP(chain, b.rules, now)
		if !ok {
			b.logger.Debugf("%s: no put qualified in any window", c.Ticker)
			continue
		}

		out = append(out, b.pickFrom(run.RunID, c, chain, sel))
	}

	if err := b.picks.Replace(ctx, run.RunID, contracts.ActionCSP, out); err != nil {
		return nil, fmt.Errorf("failed to store CSP picks: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"run_id":     run.RunID.String(),
		"candidates": len(top),
		"picks":      len(out),
	}).Info("CSP picks built")

	return out, nil
}

func (b *CSPBuilder) resolveRun(ctx context.Context, runID uuid.UUID) (*contracts.Run, error) {
	if runID != uuid.Nil {
		return b.runs.Get(ctx, runID)
	}
	return b.runs.LatestSuccessful(ctx)
}

// earningsOK applies the earnings guard using the days-ahead value captured
// at screening time.
func (b *CSPBuilder) earningsOK(c *contracts.Candidate) bool {
	if c.EarningsInDays == nil {
		return true
	}
	d := *c.EarningsInDays
	if d < 0 {
		return true
	}
	return d > b.rules.Guards.EarningsAvoidDays
}

func (b *CSPBuilder) pickFrom(runID uuid.UUID, c *contracts.Candidate, chain *contracts.OptionChain, sel *Selection) *contracts.Pick {
	ct := sel.Contract
	premium := ct.EffectivePremium()

	return &contracts.Pick{
		RunID:           runID,
		Ticker:          c.Ticker,
		Action:          contracts.ActionCSP,
		Expiration:      ct.Expiration,
		DTE:             ct.DTE,
		TargetDelta:     b.rules.CSP.TargetDelta,
		Strike:          ct.Strike,
		Premium:         premium,
		ActualDelta:     ct.Delta,
		AnnualizedYield: contracts.AnnualizedYieldPct(premium, ct.Strike, ct.DTE),
		Score:           c.Score,
		Rank:            c.Rank,
		Price:           c.Price,
		RSI:             c.RSI,
		Beta:            c.Beta,
		SentimentScore:  c.SentimentScore,
		Metrics: map[string]interface{}{
			"window_tier":       sel.Tier,
			"liquidity_relaxed": sel.LiquidityRelaxed,
			"underlying_price":  chain.UnderlyingPrice,
			"bid":               ct.Bid,
			"ask":               ct.Ask,
			"mark":              ct.Mark,
			"open_interest":     ct.OpenInterest,
			"volume":            ct.Volume,
			"option_symbol":     ct.Symbol,
		},
	}
}
