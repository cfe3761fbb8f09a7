package contracts

import (
	"math"
	"testing"
	"time"
)

func TestAnnualizedYieldPct(t *testing.T) {
	tests := []struct {
		name    string
		premium float64
		strike  float64
		dte     int
		want    float64
	}{
		{
			name:    "one year at strike 100",
			premium: 1.0,
			strike:  100.0,
			dte:     365,
			want:    1.0,
		},
		{
			name:    "30 dte",
			premium: 2.50,
			strike:  50.0,
			dte:     30,
			want:    (2.50 / 50.0) * (365.0 / 30.0) * 100.0,
		},
		{
			name:    "zero dte rejected",
			premium: 1.0,
			strike:  100.0,
			dte:     0,
			want:    0,
		},
		{
			name:    "negative dte rejected",
			premium: 1.0,
			strike:  100.0,
			dte:     -5,
			want:    0,
		},
		{
			name:    "zero strike rejected",
			premium: 1.0,
			strike:  0,
			dte:     30,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnnualizedYieldPct(tt.premium, tt.strike, tt.dte)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AnnualizedYieldPct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionContract_EffectivePremium(t *testing.T) {
	tests := []struct {
		name     string
		contract OptionContract
		want     float64
	}{
		{
			name:     "mark preferred",
			contract: OptionContract{Mark: 1.25, Bid: 1.20, Ask: 1.30, Last: 1.10},
			want:     1.25,
		},
		{
			name:     "midpoint when no mark",
			contract: OptionContract{Bid: 1.20, Ask: 1.30, Last: 1.10},
			want:     1.25,
		},
		{
			name:     "last when quote one-sided",
			contract: OptionContract{Ask: 1.30, Last: 1.10},
			want:     1.10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contract.EffectivePremium(); got != tt.want {
				t.Errorf("EffectivePremium() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionContract_SpreadPct(t *testing.T) {
	c := OptionContract{Bid: 0.95, Ask: 1.05}
	want := 0.10 / 1.00
	if got := c.SpreadPct(); math.Abs(got-want) > 1e-9 {
		t.Errorf("SpreadPct() = %v, want %v", got, want)
	}

	oneSided := OptionContract{Ask: 1.05}
	if !math.IsInf(oneSided.SpreadPct(), 1) {
		t.Errorf("SpreadPct() for one-sided quote should be +Inf")
	}
}

func TestRun_IsTrackerRun(t *testing.T) {
	tracker := Run{Note: NoteDailyTracker, Status: RunStatusSuccess}
	if !tracker.IsTrackerRun() {
		t.Error("tracker run not recognized")
	}

	screen := Run{Note: "", Status: RunStatusSuccess}
	if screen.IsTrackerRun() {
		t.Error("screen run misclassified as tracker run")
	}
}

func TestTruncateError(t *testing.T) {
	long := make([]byte, MaxRunErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}

	if got := TruncateError(string(long)); len(got) != MaxRunErrorLen {
		t.Errorf("TruncateError() len = %d, want %d", len(got), MaxRunErrorLen)
	}
	if got := TruncateError("short"); got != "short" {
		t.Errorf("TruncateError() = %q, want %q", got, "short")
	}
}

func TestRSISnapshot_Key(t *testing.T) {
	s := RSISnapshot{
		Ticker:   "AAPL",
		AsOfDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Interval: "daily",
		Period:   14,
	}
	if got, want := s.Key(), "AAPL|2025-06-02|daily|14"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
