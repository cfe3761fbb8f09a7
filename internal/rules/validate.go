package rules

import "fmt"

// ValidationError reports a rule field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all rule constraints. Any failure aborts startup.
func Validate(r Rules) error {
	if r.CSP.TargetDelta <= 0 || r.CSP.TargetDelta >= 1 {
		return ValidationError{"csp.target_delta", "must be in (0, 1)"}
	}

	if r.CC.DeltaMin < 0 || r.CC.DeltaMax > 1 || r.CC.DeltaMin > r.CC.DeltaMax {
		return ValidationError{"cc.delta_min/delta_max", "must satisfy 0 <= min <= max <= 1"}
	}

	if err := validateWindow("windows.primary", r.Windows.Primary); err != nil {
		return err
	}
	if r.Windows.AllowFallback {
		if err := validateWindow("windows.fallback1", r.Windows.Fallback1); err != nil {
			return err
		}
		if err := validateWindow("windows.fallback2", r.Windows.Fallback2); err != nil {
			return err
		}
	}

	if r.Guards.EarningsAvoidDays < 0 {
		return ValidationError{"guards.earnings_avoid_days", "cannot be negative"}
	}
	if r.Guards.ExDividendGuardDays < 0 {
		return ValidationError{"guards.ex_dividend_guard_days", "cannot be negative"}
	}

	if r.Liquidity.MaxSpreadPct < 0 {
		return ValidationError{"liquidity.max_spread_pct", "cannot be negative"}
	}
	if r.Liquidity.MaxAbsSpreadLow < 0 || r.Liquidity.MaxAbsSpreadHigh < 0 {
		return ValidationError{"liquidity.max_abs_spread", "cannot be negative"}
	}
	if r.Liquidity.MinOpenInterest < 0 {
		return ValidationError{"liquidity.min_open_interest", "cannot be negative"}
	}
	if r.Liquidity.MinBid < 0 {
		return ValidationError{"liquidity.min_bid", "cannot be negative"}
	}

	return nil
}

func validateWindow(field string, w Window) error {
	if w.MinDTE < 1 || w.MinDTE > w.MaxDTE {
		return ValidationError{field, "must satisfy 1 <= min_dte <= max_dte"}
	}
	return nil
}
