// Package processing derives a coarse trading stance from recommendation text.
package processing

import (
	"math"
	"regexp"
	"strings"

	"github.com/dyike/StockPulse/consts"
)

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
	// ActionNone is used when the text carries no recommendation at all.
	ActionNone = "N/A"
)

// Signal is the stance a recommendation leans towards.
type Signal struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"` // 0.1 to 1.0
}

// SignalProcessor scores recommendation text against keyword patterns.
type SignalProcessor struct {
	buyPatterns  []*regexp.Regexp
	sellPatterns []*regexp.Regexp
	holdPatterns []*regexp.Regexp
}

func NewSignalProcessor() *SignalProcessor {
	return &SignalProcessor{
		buyPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(buy|accumulate|bullish|upside)\b`),
			regexp.MustCompile(`\b(undervalued|attractive entry|growth potential)\b`),
		},
		sellPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(sell|reduce|bearish|downside)\b`),
			regexp.MustCompile(`\b(overvalued|avoid|trim)\b`),
		},
		holdPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(hold|maintain|neutral|wait|sideways)\b`),
			regexp.MustCompile(`\b(no action|stay put|keep (the )?position)\b`),
		},
	}
}

// Extract scores text. Placeholders and service errors yield ActionNone.
func (sp *SignalProcessor) Extract(text string) Signal {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == consts.NoRecommendation || trimmed == consts.AnalyzingPlaceholder ||
		strings.HasPrefix(trimmed, "Error:") {
		return Signal{Action: ActionNone}
	}

	lower := strings.ToLower(trimmed)
	buy := countMatches(sp.buyPatterns, lower)
	sell := countMatches(sp.sellPatterns, lower)
	hold := countMatches(sp.holdPatterns, lower)

	action, score := ActionHold, hold
	switch {
	case buy > sell && buy > hold:
		action, score = ActionBuy, buy
	case sell > buy && sell > hold:
		action, score = ActionSell, sell
	}
	if buy+sell+hold == 0 {
		return Signal{Action: ActionHold, Confidence: 0.1}
	}

	confidence := float64(score) / float64(buy+sell+hold)
	confidence = math.Max(0.1, math.Min(1, confidence))
	return Signal{Action: action, Confidence: math.Round(confidence*100) / 100}
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		n += len(p.FindAllString(text, -1))
	}
	return n
}
