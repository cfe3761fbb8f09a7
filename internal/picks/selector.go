package picks

import (
	"math"
	"time"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/rules"
)

// Selection is the chosen contract plus the window tier that produced it
type Selection struct {
	Contract contracts.OptionContract
	Tier     string

	// True when the liquidity filters were relaxed to find any contract
	LiquidityRelaxed bool
}

// SelectCSP picks the put whose |delta| is closest to the target, trying the
// expiration windows in priority order. Returns ok=false when no tier yields
// a usable contract.
func SelectCSP(chain *contracts.OptionChain, r rules.Rules, now time.Time) (*Selection, bool) {
	return selectInWindows(chain, contracts.SidePut, r, now, func(candidates []contracts.OptionContract) (contracts.OptionContract, bool) {
		best := -1
		bestDist := math.Inf(1)
		for i, c := range candidates {
			dist := math.Abs(c.AbsDelta() - r.CSP.TargetDelta)
			if dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		if best < 0 {
			return contracts.OptionContract{}, false
		}
		return candidates[best], true
	})
}

// SelectCC picks the out-of-the-money call with the highest premium among
// those inside the delta band.
func SelectCC(chain *contracts.OptionChain, r rules.Rules, now time.Time) (*Selection, bool) {
	return selectInWindows(chain, contracts.SideCall, r, now, func(candidates []contracts.OptionContract) (contracts.OptionContract, bool) {
		best := -1
		bestPremium := 0.0
		for i, c := range candidates {
			d := c.AbsDelta()
			if d < r.CC.DeltaMin || d > r.CC.DeltaMax {
				continue
			}
			if chain.UnderlyingPrice > 0 && c.Strike <= chain.UnderlyingPrice {
				continue
			}
			if p := c.EffectivePremium(); p > bestPremium {
				best = i
				bestPremium = p
			}
		}
		if best < 0 {
			return contracts.OptionContract{}, false
		}
		return candidates[best], true
	})
}

// selectInWindows walks the window tiers and applies choose to the quoted
// contracts of the first expiration that qualifies in each tier.
func selectInWindows(chain *contracts.OptionChain, side contracts.OptionSide, r rules.Rules, now time.Time,
	choose func([]contracts.OptionContract) (contracts.OptionContract, bool)) (*Selection, bool) {

	expirations := chain.Side(side)
	dates := make([]time.Time, len(expirations))
	byDate := make(map[time.Time]contracts.Expiration, len(expirations))
	for i, e := range expirations {
		dates[i] = e.Date
		byDate[e.Date] = e
	}

	for _, tier := range r.Windows.Tiers() {
		date, ok := rules.FindExpiration(dates, tier, now)
		if !ok {
			continue
		}

		// The first tier holding a future expiration commits the ticker:
		// a failed selection inside it skips the ticker rather than
		// widening the window again
		exp := byDate[date]
		quoted := quotedContracts(exp.Contracts)
		if len(quoted) == 0 {
			return nil, false
		}

		relaxed := false
		candidates := quoted
		if r.Liquidity.Enabled {
			liquid := liquidContracts(quoted, r.Liquidity)
			if len(liquid) > 0 {
				candidates = liquid
			} else {
				relaxed = true
			}
		}

		contract, ok := choose(candidates)
		if !ok {
			// The delta band may exclude everything liquid; retry unfiltered
			if len(candidates) == len(quoted) {
				return nil, false
			}
			contract, ok = choose(quoted)
			if !ok {
				return nil, false
			}
			relaxed = true
		}

		contract.DTE = rules.DTE(exp.Date, now)
		contract.Expiration = exp.Date
		return &Selection{Contract: contract, Tier: tier.Name, LiquidityRelaxed: relaxed}, true
	}

	return nil, false
}

// quotedContracts drops contracts without a live bid
func quotedContracts(in []contracts.OptionContract) []contracts.OptionContract {
	var out []contracts.OptionContract
	for _, c := range in {
		if c.Bid > 0 {
			out = append(out, c)
		}
	}
	return out
}

// liquidContracts applies the spread, open interest, and minimum bid filters
func liquidContracts(in []contracts.OptionContract, liq rules.LiquidityRules) []contracts.OptionContract {
	var out []contracts.OptionContract
	for _, c := range in {
		if c.Bid < liq.MinBid {
			continue
		}
		if c.OpenInterest < liq.MinOpenInterest {
			continue
		}
		if !rules.SpreadOK(c.Bid, c.Ask, liq) {
			continue
		}
		out = append(out, c)
	}
	return out
}
