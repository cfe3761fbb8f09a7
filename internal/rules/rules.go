package rules

// Rules is the explicit strategy parameter record for contract selection.
// Constructors receive it directly; nothing reads these values from the
// environment at call sites.
type Rules struct {
	CSP       CSPRules       `yaml:"csp" json:"csp"`
	CC        CCRules        `yaml:"cc" json:"cc"`
	Windows   WindowSet      `yaml:"windows" json:"windows"`
	Guards    GuardRules     `yaml:"guards" json:"guards"`
	Liquidity LiquidityRules `yaml:"liquidity" json:"liquidity"`
}

// CSPRules parameterizes cash-secured put selection
type CSPRules struct {
	// Selection picks the put whose |delta| is closest to this target
	TargetDelta float64 `yaml:"target_delta" json:"target_delta"`
}

// CCRules parameterizes covered call selection
type CCRules struct {
	DeltaMin float64 `yaml:"delta_min" json:"delta_min"`
	DeltaMax float64 `yaml:"delta_max" json:"delta_max"`
}

// Window is an inclusive DTE range
type Window struct {
	Name   string `yaml:"-" json:"name"`
	MinDTE int    `yaml:"min_dte" json:"min_dte"`
	MaxDTE int    `yaml:"max_dte" json:"max_dte"`
}

// Contains reports whether dte falls inside the window
func (w Window) Contains(dte int) bool {
	return dte >= w.MinDTE && dte <= w.MaxDTE
}

// WindowSet holds the expiration windows in priority order
type WindowSet struct {
	Primary   Window `yaml:"primary" json:"primary"`
	Fallback1 Window `yaml:"fallback1" json:"fallback1"`
	Fallback2 Window `yaml:"fallback2" json:"fallback2"`

	// Disables both fallback tiers when false
	AllowFallback bool `yaml:"allow_fallback" json:"allow_fallback"`
}

// Tiers returns the windows to try, in priority order, with names filled in
func (ws WindowSet) Tiers() []Window {
	primary := ws.Primary
	primary.Name = "primary"
	if !ws.AllowFallback {
		return []Window{primary}
	}
	f1 := ws.Fallback1
	f1.Name = "fallback1"
	f2 := ws.Fallback2
	f2.Name = "fallback2"
	return []Window{primary, f1, f2}
}

// GuardRules holds event-avoidance windows
type GuardRules struct {
	// Skip the ticker when earnings fall within this many days ahead
	EarningsAvoidDays int `yaml:"earnings_avoid_days" json:"earnings_avoid_days"`

	// Skip CC candidates when the next ex-dividend date is this close
	ExDividendGuardDays int `yaml:"ex_dividend_guard_days" json:"ex_dividend_guard_days"`
}

// LiquidityRules holds the optional spread/size filters.
// Both percentage and absolute spread caps apply: the percentage cap works
// for higher premiums, the absolute caps keep low-premium spreads honest.
type LiquidityRules struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	MaxSpreadPct     float64 `yaml:"max_spread_pct" json:"max_spread_pct"` // percent, e.g. 7.5
	MaxAbsSpreadLow  float64 `yaml:"max_abs_spread_low" json:"max_abs_spread_low"`   // mid < 1.00
	MaxAbsSpreadHigh float64 `yaml:"max_abs_spread_high" json:"max_abs_spread_high"` // mid >= 1.00
	MinOpenInterest  int64   `yaml:"min_open_interest" json:"min_open_interest"`
	MinBid           float64 `yaml:"min_bid" json:"min_bid"`
}

// Default returns the rule set tuned for weekly expirations
func Default() Rules {
	return Rules{
		CSP: CSPRules{
			TargetDelta: 0.25,
		},
		CC: CCRules{
			DeltaMin: 0.20,
			DeltaMax: 0.30,
		},
		Windows: WindowSet{
			Primary:       Window{MinDTE: 5, MaxDTE: 9},
			Fallback1:     Window{MinDTE: 5, MaxDTE: 16},
			Fallback2:     Window{MinDTE: 1, MaxDTE: 21},
			AllowFallback: true,
		},
		Guards: GuardRules{
			EarningsAvoidDays:   10,
			ExDividendGuardDays: 2,
		},
		Liquidity: LiquidityRules{
			Enabled:          true,
			MaxSpreadPct:     7.5,
			MaxAbsSpreadLow:  0.10,
			MaxAbsSpreadHigh: 0.25,
			MinOpenInterest:  10,
			MinBid:           0.05,
		},
	}
}
