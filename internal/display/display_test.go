package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/analysis"
	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/trading"
)

func TestDisplayReportShowsEverySection(t *testing.T) {
	var buf bytes.Buffer
	d := NewResultsDisplay(&buf)

	r := analysis.NewReport("AAPL")
	r.CompanyName = "Apple Inc"
	r.PEGRatio = "1.90"
	r.Recommendation = "Hold for now."
	r.Diagnostics = []string{"overview: rate limited"}
	r.GeneratedAt = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	d.DisplayReport(r)

	out := buf.String()
	assert.Contains(t, out, "Apple Inc")
	assert.Contains(t, out, "1.90")
	assert.Contains(t, out, consts.NoInsiderActivity)
	assert.Contains(t, out, consts.MissingComparison)
	assert.Contains(t, out, "Hold for now.")
	assert.Contains(t, out, "🟡 HOLD")
	assert.Contains(t, out, "overview: rate limited")
	assert.Contains(t, out, "2024-03-15 09:30:00")
	assert.Contains(t, out, "Not financial advice")
}

func TestDisplayResultWhileAnalyzing(t *testing.T) {
	var buf bytes.Buffer
	NewResultsDisplay(&buf).DisplayResult(trading.Result{Ticker: "MSFT", Phase: trading.PhaseAnalyzing})

	assert.Contains(t, buf.String(), "MSFT")
	assert.Contains(t, buf.String(), consts.AnalyzingPlaceholder)
	assert.NotContains(t, buf.String(), "KEY METRICS")
}

func TestDisplayWrappedText(t *testing.T) {
	var buf bytes.Buffer
	d := NewResultsDisplay(&buf)
	d.displayWrappedText(strings.Repeat("word ", 40), "  ")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), maxWidth)
		assert.True(t, strings.HasPrefix(l, "  "))
	}
}

func TestRecommendationWithoutSignal(t *testing.T) {
	var buf bytes.Buffer
	r := analysis.NewReport("AAPL")
	r.Recommendation = "Error: bad network response."
	NewResultsDisplay(&buf).DisplayReport(r)

	assert.Contains(t, buf.String(), "Error: bad network response.")
	assert.NotContains(t, buf.String(), "confidence")
}

func TestMatchLabel(t *testing.T) {
	m := dataflows.SearchMatch{Symbol: "TSLA", Name: "Tesla Inc", Type: "Equity", Currency: "USD"}
	assert.Equal(t, "Tesla Inc (Equity) USD", MatchLabel(m))
	assert.Equal(t, "Tesla Inc", MatchLabel(dataflows.SearchMatch{Name: "Tesla Inc"}))
}

func TestDisplayMatchesEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewResultsDisplay(&buf).DisplayMatches(nil)
	assert.Contains(t, buf.String(), "No matching US symbols.")
}
