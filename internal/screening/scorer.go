package screening

import (
	"math"
	"sort"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/external/fmp"
	"github.com/wheelops/wheelhouse/pkg/config"
)

// Scorer computes composite wheel scores from feature snapshots.
// All sub-scores live in [0, 100]; the composite is their weighted blend,
// rounded and clamped to an integer in the same range.
type Scorer struct {
	cfg config.ScreenerConfig
}

// NewScorer creates a scorer from explicit configuration
func NewScorer(cfg config.ScreenerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// GateResult names why a ticker was excluded before scoring
type GateResult string

const (
	GatePassed       GateResult = ""
	GatePriceMissing GateResult = "price_missing"
	GatePriceTooLow  GateResult = "price_below_min"
	GateMcapMissing  GateResult = "mcap_missing"
	GateMcapTooLow   GateResult = "mcap_below_min"
	GateRSIOutOfBand GateResult = "rsi_out_of_band"
)

// Gate applies the hard exclusion filters. RSI only gates when explicitly
// enabled, and a missing RSI always passes.
func (s *Scorer) Gate(f *contracts.Features) GateResult {
	if f.Price == nil || *f.Price <= 0 {
		return GatePriceMissing
	}
	if f.MarketCap == nil {
		return GateMcapMissing
	}
	if *f.MarketCap < s.cfg.MinMarketCap {
		return GateMcapTooLow
	}
	if *f.Price < s.cfg.MinPrice {
		return GatePriceTooLow
	}

	if s.cfg.RSIGateEnabled && f.RSI != nil {
		if *f.RSI < s.cfg.RSIBandLow || *f.RSI > s.cfg.RSIBandHigh {
			return GateRSIOutOfBand
		}
	}

	return GatePassed
}

// Score computes the sub-scores and composite for one ticker
func (s *Scorer) Score(f *contracts.Features) contracts.ScoreBreakdown {
	fund := scoreFundamentals(f)
	sent := scoreSentiment(fmp.SentimentScore(f.Headlines))
	trend := scoreTrend(f)
	tech := s.scoreTechnical(f.RSI)

	composite := s.cfg.WeightFundamentals*fund +
		s.cfg.WeightSentiment*sent +
		s.cfg.WeightTrend*trend +
		s.cfg.WeightTechnical*tech

	return contracts.ScoreBreakdown{
		Fundamentals: fund,
		Sentiment:    sent,
		Trend:        trend,
		Technical:    tech,
		Composite:    clampInt(composite, 0, 100),
	}
}

// scoreFundamentals is a weighted average over the factors present:
// profitability (net margin 25, operating margin 20, ROE 25), valuation
// (P/E 20), leverage (D/E 10). With no factors at all the score is a
// neutral-ish 40.
func scoreFundamentals(f *contracts.Features) float64 {
	s := 0.0
	w := 0.0

	if f.NetMargin != nil {
		s += (clampF(*f.NetMargin, -0.10, 0.30) + 0.10) / 0.40 * 25
		w += 25
	}
	if f.OpMargin != nil {
		s += (clampF(*f.OpMargin, -0.10, 0.35) + 0.10) / 0.45 * 20
		w += 20
	}
	if f.ROE != nil {
		s += clampF(*f.ROE, 0, 0.35) / 0.35 * 25
		w += 25
	}

	if f.PERatio != nil && *f.PERatio > 0 {
		pe := *f.PERatio
		var v float64
		switch {
		case pe <= 25:
			v = 1.0
		case pe <= 40:
			v = 1.0 - (pe-25)/15*0.6
		default:
			v = 0.2
		}
		s += v * 20
		w += 20
	}

	if f.DebtEquity != nil && *f.DebtEquity >= 0 {
		de := *f.DebtEquity
		var v float64
		switch {
		case de <= 1.0:
			v = 1.0
		case de <= 2.5:
			v = 1.0 - (de-1.0)/1.5*0.7
		default:
			v = 0.2
		}
		s += v * 10
		w += 10
	}

	if w == 0 {
		return 40
	}
	return clampF((s/w)*100, 0, 100)
}

// scoreSentiment maps the keyword polarity score [-1, 1] onto [0, 100]
func scoreSentiment(sent float64) float64 {
	return clampF((sent+1)*50, 0, 100)
}

// scoreTrend scores the 52-week price position, preferring the middle of
// the range over either extreme. Missing inputs score neutral.
func scoreTrend(f *contracts.Features) float64 {
	if f.Price == nil || f.YearLow == nil || f.YearHigh == nil || *f.YearHigh == *f.YearLow {
		return 50
	}

	pos := (*f.Price - *f.YearLow) / (*f.YearHigh - *f.YearLow)
	score := 100 * (1 - math.Min(math.Abs(pos-0.5)/0.5, 1))
	return clampF(score, 0, 100)
}

// scoreTechnical scores RSI: full credit inside the band, linear decay to
// zero outside it, neutral when missing.
func (s *Scorer) scoreTechnical(rsi *float64) float64 {
	if rsi == nil {
		return 50
	}

	lo, hi := s.cfg.RSIBandLow, s.cfg.RSIBandHigh
	v := *rsi
	switch {
	case v >= lo && v <= hi:
		return 100
	case v < lo:
		return clampF(100*(v/lo), 0, 100)
	default:
		return clampF(100*((100-v)/(100-hi)), 0, 100)
	}
}

// RankCandidates sorts by score descending with ticker ascending as the
// tie-break, then assigns 1-based ranks in that order.
func RankCandidates(candidates []*contracts.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})
	for i, c := range candidates {
		c.Rank = i + 1
	}
}

func clampF(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clampInt(x float64, lo, hi int) int {
	v := int(math.Round(x))
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
