package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyike/StockPulse/consts"
)

func TestExtract(t *testing.T) {
	sp := NewSignalProcessor()

	tests := []struct {
		name   string
		text   string
		action string
	}{
		{"buy", "The stock looks undervalued; a moderate buy with upside into earnings.", ActionBuy},
		{"sell", "Shares appear overvalued. We would reduce exposure and avoid new positions.", ActionSell},
		{"hold", "Hold. Maintain the position and wait for clearer revenue trends.", ActionHold},
		{"no keywords", "Results were mixed this quarter.", ActionHold},
		{"placeholder", consts.AnalyzingPlaceholder, ActionNone},
		{"unavailable", consts.NoRecommendation, ActionNone},
		{"service error", "Error: bad network response.", ActionNone},
		{"empty", "   ", ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.action, sp.Extract(tt.text).Action)
		})
	}
}

func TestExtractConfidence(t *testing.T) {
	sp := NewSignalProcessor()

	strong := sp.Extract("Buy. Bullish setup, undervalued, clear upside.")
	assert.Equal(t, ActionBuy, strong.Action)
	assert.Equal(t, 1.0, strong.Confidence)

	mixed := sp.Extract("Buy on dips but hold core shares; sell if guidance slips.")
	assert.Less(t, mixed.Confidence, 1.0)
	assert.GreaterOrEqual(t, mixed.Confidence, 0.1)

	assert.Equal(t, 0.1, sp.Extract("Nothing to see.").Confidence)
}
