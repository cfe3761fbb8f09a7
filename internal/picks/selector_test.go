package picks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/rules"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func put(strike, delta, bid, ask float64, oi int64) contracts.OptionContract {
	return contracts.OptionContract{
		Side:         contracts.SidePut,
		Strike:       strike,
		Delta:        delta,
		Bid:          bid,
		Ask:          ask,
		OpenInterest: oi,
	}
}

func call(strike, delta, bid, ask float64, oi int64) contracts.OptionContract {
	return contracts.OptionContract{
		Side:         contracts.SideCall,
		Strike:       strike,
		Delta:        delta,
		Bid:          bid,
		Ask:          ask,
		OpenInterest: oi,
	}
}

func TestSelectCSP_ClosestDeltaWins(t *testing.T) {
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker:          "AAPL",
		UnderlyingPrice: 150,
		Puts: []contracts.Expiration{{
			Date: day("2025-06-09"), // dte 7, primary window
			Contracts: []contracts.OptionContract{
				put(140, -0.18, 1.00, 1.05, 500),
				put(145, -0.26, 1.50, 1.55, 800),
				put(148, -0.38, 2.20, 2.30, 300),
			},
		}},
	}

	sel, ok := SelectCSP(chain, rules.Default(), now)
	require.True(t, ok)
	assert.Equal(t, 145.0, sel.Contract.Strike, "|delta-0.25| is smallest at 0.26")
	assert.Equal(t, "primary", sel.Tier)
	assert.Equal(t, 7, sel.Contract.DTE)
	assert.False(t, sel.LiquidityRelaxed)
}

func TestSelectCSP_WindowFallback(t *testing.T) {
	// Only a 2-DTE and a 16-DTE expiration exist; with windows [4,10],
	// [4,14], [1,21] the first two tiers fail and the widest tier picks the
	// near-dated expiration.
	r := rules.Default()
	r.Windows = rules.WindowSet{
		Primary:       rules.Window{MinDTE: 4, MaxDTE: 10},
		Fallback1:     rules.Window{MinDTE: 4, MaxDTE: 14},
		Fallback2:     rules.Window{MinDTE: 1, MaxDTE: 21},
		AllowFallback: true,
	}

	now := day("2025-06-02")
	mk := func(date string) contracts.Expiration {
		return contracts.Expiration{
			Date:      day(date),
			Contracts: []contracts.OptionContract{put(95, -0.24, 0.80, 0.85, 200)},
		}
	}
	chain := &contracts.OptionChain{
		Ticker:          "XOM",
		UnderlyingPrice: 100,
		Puts:            []contracts.Expiration{mk("2025-06-04"), mk("2025-06-18")},
	}

	sel, ok := SelectCSP(chain, r, now)
	require.True(t, ok)
	assert.Equal(t, "fallback2", sel.Tier)
	assert.Equal(t, day("2025-06-04"), sel.Contract.Expiration)
	assert.Equal(t, 2, sel.Contract.DTE)
}

func TestSelectCSP_NoFallbackWhenDisabled(t *testing.T) {
	r := rules.Default()
	r.Windows.AllowFallback = false

	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker: "T",
		Puts: []contracts.Expiration{{
			Date:      day("2025-06-20"), // dte 18, outside primary [5,9]
			Contracts: []contracts.OptionContract{put(20, -0.25, 0.30, 0.35, 100)},
		}},
	}

	_, ok := SelectCSP(chain, r, now)
	assert.False(t, ok)
}

func TestSelectCSP_ExpiredAndTodayNeverQualify(t *testing.T) {
	r := rules.Default()
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker: "T",
		Puts: []contracts.Expiration{
			{Date: day("2025-06-02"), Contracts: []contracts.OptionContract{put(20, -0.25, 0.30, 0.35, 100)}},
			{Date: day("2025-05-30"), Contracts: []contracts.OptionContract{put(20, -0.25, 0.30, 0.35, 100)}},
		},
	}

	_, ok := SelectCSP(chain, r, now)
	assert.False(t, ok)
}

func TestSelectCSP_IlliquidContractsFilteredFirst(t *testing.T) {
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker:          "AAPL",
		UnderlyingPrice: 150,
		Puts: []contracts.Expiration{{
			Date: day("2025-06-09"),
			Contracts: []contracts.OptionContract{
				// Closer to target delta but spread is 30% of mid
				put(145, -0.25, 1.00, 1.35, 500),
				put(140, -0.20, 1.00, 1.05, 500),
			},
		}},
	}

	sel, ok := SelectCSP(chain, rules.Default(), now)
	require.True(t, ok)
	assert.Equal(t, 140.0, sel.Contract.Strike)
	assert.False(t, sel.LiquidityRelaxed)
}

func TestSelectCSP_LiquidityRelaxesWhenNothingPasses(t *testing.T) {
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker:          "THIN",
		UnderlyingPrice: 50,
		Puts: []contracts.Expiration{{
			Date: day("2025-06-09"),
			Contracts: []contracts.OptionContract{
				put(45, -0.24, 0.50, 0.80, 2), // fails spread and OI
			},
		}},
	}

	sel, ok := SelectCSP(chain, rules.Default(), now)
	require.True(t, ok)
	assert.True(t, sel.LiquidityRelaxed)
	assert.Equal(t, 45.0, sel.Contract.Strike)
}

func TestSelectCC_MaxPremiumInBandOTMOnly(t *testing.T) {
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker:          "MSFT",
		UnderlyingPrice: 400,
		Calls: []contracts.Expiration{{
			Date: day("2025-06-09"),
			Contracts: []contracts.OptionContract{
				call(395, 0.28, 6.00, 6.10, 900), // ITM, excluded
				call(405, 0.28, 3.00, 3.10, 900),
				call(410, 0.22, 2.00, 2.10, 900),
				call(420, 0.12, 0.80, 0.85, 900), // below delta band
			},
		}},
	}

	sel, ok := SelectCC(chain, rules.Default(), now)
	require.True(t, ok)
	assert.Equal(t, 405.0, sel.Contract.Strike, "highest premium among in-band OTM calls")
}

func TestSelectCC_NothingInBand(t *testing.T) {
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker:          "MSFT",
		UnderlyingPrice: 400,
		Calls: []contracts.Expiration{{
			Date: day("2025-06-09"),
			Contracts: []contracts.OptionContract{
				call(440, 0.05, 0.30, 0.35, 900),
			},
		}},
	}

	_, ok := SelectCC(chain, rules.Default(), now)
	assert.False(t, ok)
}

func TestSelectCSP_CommitsToFirstTierWithExpiration(t *testing.T) {
	// The primary window holds an expiration whose contracts have no bid; a
	// non-overlapping fallback window holds a perfectly tradable one. The
	// ticker is skipped: fallback widens the expiration search, it is not a
	// second chance after a failed selection.
	r := rules.Default()
	r.Windows = rules.WindowSet{
		Primary:       rules.Window{MinDTE: 4, MaxDTE: 10},
		Fallback1:     rules.Window{MinDTE: 12, MaxDTE: 16},
		Fallback2:     rules.Window{MinDTE: 17, MaxDTE: 21},
		AllowFallback: true,
	}

	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker:          "GAP",
		UnderlyingPrice: 100,
		Puts: []contracts.Expiration{
			{Date: day("2025-06-09"), Contracts: []contracts.OptionContract{put(95, -0.25, 0, 0.50, 100)}},
			{Date: day("2025-06-16"), Contracts: []contracts.OptionContract{put(95, -0.25, 0.80, 0.85, 500)}},
		},
	}

	_, ok := SelectCSP(chain, r, now)
	assert.False(t, ok)
}

func TestSelectCSP_NoBidNoPick(t *testing.T) {
	now := day("2025-06-02")
	chain := &contracts.OptionChain{
		Ticker: "DEAD",
		Puts: []contracts.Expiration{{
			Date:      day("2025-06-09"),
			Contracts: []contracts.OptionContract{put(10, -0.25, 0, 0.50, 100)},
		}},
	}

	_, ok := SelectCSP(chain, rules.Default(), now)
	assert.False(t, ok)
}

func TestAnnualizedYieldOnSelection(t *testing.T) {
	// 1.50 premium on a 145 strike over 7 days:
	// (1.50/145) * (365/7) * 100 = 53.94...
	got := contracts.AnnualizedYieldPct(1.50, 145, 7)
	assert.InDelta(t, (1.50/145.0)*(365.0/7.0)*100.0, got, 1e-9)
}
