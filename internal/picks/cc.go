package picks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/rules"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// EventCalendar resolves upcoming corporate events used by the CC guards
type EventCalendar interface {
	NextExDividend(ctx context.Context, symbol string, now time.Time) (time.Time, bool, error)
	NextEarnings(ctx context.Context, symbol string, now time.Time) (time.Time, bool, error)
}

// CCBuilder generates covered call picks for holdings of at least 100 shares.
// A test ticker list can stand in for broker positions during dry runs.
type CCBuilder struct {
	cfg       config.PicksConfig
	rules     rules.Rules
	runs      contracts.RunRepository
	positions contracts.Positions
	chains    contracts.OptionChains
	picks     contracts.PickRepository
	events    EventCalendar
	logger    *logger.Logger
}

// NewCCBuilder creates a covered call pick builder. events may be nil, which
// disables the ex-dividend and earnings guards.
func NewCCBuilder(cfg config.PicksConfig, r rules.Rules, runs contracts.RunRepository,
	positions contracts.Positions, chains contracts.OptionChains,
	picks contracts.PickRepository, events EventCalendar, log *logger.Logger) *CCBuilder {
	return &CCBuilder{
		cfg:       cfg,
		rules:     r,
		runs:      runs,
		positions: positions,
		chains:    chains,
		picks:     picks,
		events:    events,
		logger:    log,
	}
}

// Build generates and stores CC picks against the latest successful run (or
// an explicit one). Re-running replaces the previous CC picks for that run.
func (b *CCBuilder) Build(ctx context.Context, runID uuid.UUID) ([]*contracts.Pick, error) {
	run, err := b.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	tickers, err := b.coverableTickers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		b.logger.Warn("No coverable positions found, storing empty CC pick set")
	}

	now := time.Now().UTC()
	var out []*contracts.Pick

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if skip, reason := b.guarded(ctx, ticker, now); skip {
			b.logger.Debugf("%s: %s, skipping", ticker, reason)
			continue
		}

		chain, err := b.chains.Chain(ctx, ticker, contracts.SideCall, b.cfg.StrikeCount)
		if err != nil {
			b.logger.WithError(err).Warnf("%s: chain fetch failed, skipping", ticker)
			continue
		}

		sel, ok := SelectCC(chain, b.rules, now)
		if !ok {
			b.logger.Debugf("%s: no call qualified in any window", ticker)
			continue
		}

		out = append(out, b.pickFrom(run.RunID, ticker, chain, sel))
	}

	if err := b.picks.Replace(ctx, run.RunID, contracts.ActionCC, out); err != nil {
		return nil, fmt.Errorf("failed to store CC picks: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"run_id":   run.RunID.String(),
		"holdings": len(tickers),
		"picks":    len(out),
	}).Info("CC picks built")

	return out, nil
}

func (b *CCBuilder) resolveRun(ctx context.Context, runID uuid.UUID) (*contracts.Run, error) {
	if runID != uuid.Nil {
		return b.runs.Get(ctx, runID)
	}
	return b.runs.LatestSuccessful(ctx)
}

// coverableTickers returns the underlyings holding at least one round lot.
// The configured test tickers take precedence when set.
func (b *CCBuilder) coverableTickers(ctx context.Context) ([]string, error) {
	if b.cfg.CCTestTickers != "" {
		var out []string
		seen := make(map[string]bool)
		for _, t := range strings.Split(b.cfg.CCTestTickers, ",") {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
		b.logger.Warnf("Using %d test tickers instead of broker positions", len(out))
		return out, nil
	}

	snap, err := b.positions.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	var out []string
	seen := make(map[string]bool)
	for _, p := range snap.Positions {
		if !p.IsCoverable() {
			continue
		}
		if seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		out = append(out, p.Symbol)
	}
	return out, nil
}

// guarded applies the ex-dividend and earnings guards. Calendar lookup
// failures never exclude a ticker.
func (b *CCBuilder) guarded(ctx context.Context, ticker string, now time.Time) (bool, string) {
	if b.events == nil {
		return false, ""
	}

	if exDiv, ok, err := b.events.NextExDividend(ctx, ticker, now); err != nil {
		b.logger.WithError(err).Debugf("%s: ex-dividend lookup failed", ticker)
	} else if ok && !rules.ExDividendOK(&exDiv, now, b.rules.Guards.ExDividendGuardDays) {
		return true, fmt.Sprintf("ex-dividend %s within guard window", exDiv.Format("2006-01-02"))
	}

	if earnings, ok, err := b.events.NextEarnings(ctx, ticker, now); err != nil {
		b.logger.WithError(err).Debugf("%s: earnings lookup failed", ticker)
	} else if ok && !rules.EarningsOK(&earnings, now, b.rules.Guards.EarningsAvoidDays) {
		return true, fmt.Sprintf("earnings %s within avoid window", earnings.Format("2006-01-02"))
	}

	return false, ""
}

func (b *CCBuilder) pickFrom(runID uuid.UUID, ticker string, chain *contracts.OptionChain, sel *Selection) *contracts.Pick {
	ct := sel.Contract
	premium := ct.EffectivePremium()

	return &contracts.Pick{
		RunID:           runID,
		Ticker:          ticker,
		Action:          contracts.ActionCC,
		Expiration:      ct.Expiration,
		DTE:             ct.DTE,
		TargetDelta:     (b.rules.CC.DeltaMin + b.rules.CC.DeltaMax) / 2,
		Strike:          ct.Strike,
		Premium:         premium,
		ActualDelta:     ct.Delta,
		AnnualizedYield: contracts.AnnualizedYieldPct(premium, ct.Strike, ct.DTE),
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
			"delta_band_min":    b.rules.CC.DeltaMin,
			"delta_band_max":    b.rules.CC.DeltaMax,
		},
	}
}
