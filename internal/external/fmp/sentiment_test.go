package fmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentimentScore(t *testing.T) {
	tests := []struct {
		name      string
		headlines []string
		want      float64
	}{
		{
			name:      "empty is neutral",
			headlines: nil,
			want:      0,
		},
		{
			name:      "one positive headline",
			headlines: []string{"Acme beats estimates on strong growth"},
			want:      1.0, // net +3, clamped then /3
		},
		{
			name:      "one negative headline",
			headlines: []string{"Acme misses, shares drop after downgrade"},
			want:      -1.0,
		},
		{
			name:      "mixed cancels out",
			headlines: []string{"Acme beats estimates", "Acme misses on revenue"},
			want:      0,
		},
		{
			name:      "blank headlines ignored",
			headlines: []string{"", "  ", "record profit"},
			want:      2.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SentimentScore(tt.headlines), 1e-9)
		})
	}
}

func TestSentimentScore_Bounds(t *testing.T) {
	// A headline stacked with positive keywords still clamps at +1
	loaded := []string{"beat beats surge soar record upgrade buy growth strong raises profit"}
	assert.Equal(t, 1.0, SentimentScore(loaded))
}

func TestHeadlines(t *testing.T) {
	items := []NewsItem{
		{Title: "Title A"},
		{Text: "Summary only"},
		{},
	}

	got := Headlines(items)
	assert.Equal(t, []string{"Title A", "Summary only"}, got)
}
