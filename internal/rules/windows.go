package rules

import "time"

// DTE returns whole days from now until expiration, by calendar date
func DTE(expiration, now time.Time) int {
	expDay := expiration.Truncate(24 * time.Hour)
	nowDay := now.Truncate(24 * time.Hour)
	return int(expDay.Sub(nowDay).Hours() / 24)
}

// WithinWindow reports whether an expiration falls inside a DTE window.
// Expirations on or before today never qualify.
func WithinWindow(expiration, now time.Time, w Window) bool {
	dte := DTE(expiration, now)
	if dte <= 0 {
		return false
	}
	return w.Contains(dte)
}

// FindExpiration returns the earliest future expiration inside the window,
// or ok=false when none qualifies.
func FindExpiration(expirations []time.Time, w Window, now time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, exp := range expirations {
		if !WithinWindow(exp, now, w) {
			continue
		}
		if !found || exp.Before(best) {
			best = exp
			found = true
		}
	}
	return best, found
}

// EarningsOK reports whether a ticker is safe to trade given its next
// earnings date. Unknown (nil) or past earnings never exclude.
func EarningsOK(earnings *time.Time, now time.Time, avoidDays int) bool {
	if earnings == nil {
		return true
	}
	days := DTE(*earnings, now)
	if days < 0 {
		return true
	}
	return days > avoidDays
}

// ExDividendOK reports whether the next ex-dividend date is outside the
// guard window. Unknown dates never exclude.
func ExDividendOK(exDiv *time.Time, now time.Time, guardDays int) bool {
	if exDiv == nil {
		return true
	}
	days := DTE(*exDiv, now)
	if days < 0 {
		return true
	}
	return days > guardDays
}

// SpreadOK applies the dual percentage/absolute spread caps
func SpreadOK(bid, ask float64, liq LiquidityRules) bool {
	if bid <= 0 || ask <= 0 {
		return false
	}

	mid := (bid + ask) / 2
	if mid <= 0 {
		return false
	}

	absSpread := ask - bid
	if (absSpread/mid)*100 > liq.MaxSpreadPct {
		return false
	}

	if mid < 1.00 {
		return absSpread <= liq.MaxAbsSpreadLow
	}
	return absSpread <= liq.MaxAbsSpreadHigh
}
