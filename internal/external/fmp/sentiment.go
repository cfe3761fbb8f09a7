package fmp

import "strings"

// Keyword polarity sets for headline scoring
var (
	positiveWords = []string{
		"beat", "beats", "surge", "soar", "record", "upgrade", "upgraded",
		"buy", "growth", "strong", "raises", "raise", "profit",
	}
	negativeWords = []string{
		"miss", "misses", "plunge", "drop", "downgrade", "downgraded",
		"sell", "lawsuit", "probe", "weak", "cuts", "cut", "loss",
	}
)

// SentimentScore computes a keyword-polarity score over headlines in
// [-1, 1]. Each headline contributes its positive-minus-negative keyword
// count; the mean is clamped to [-3, 3] and scaled down. Empty input
// scores neutral (0).
func SentimentScore(headlines []string) float64 {
	total := 0
	n := 0
	for _, h := range headlines {
		title := strings.ToLower(strings.TrimSpace(h))
		if title == "" {
			continue
		}
		n++
		for _, w := range positiveWords {
			if strings.Contains(title, w) {
				total++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(title, w) {
				total--
			}
		}
	}

	if n == 0 {
		return 0
	}

	raw := float64(total) / float64(n)
	if raw > 3 {
		raw = 3
	}
	if raw < -3 {
		raw = -3
	}
	return raw / 3.0
}

// Headlines extracts scoreable text from news items, preferring titles
func Headlines(items []NewsItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Title != "" {
			out = append(out, item.Title)
			continue
		}
		if item.Text != "" {
			out = append(out, item.Text)
		}
	}
	return out
}
