package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/dataflows"
)

// Report is the synthesized result of one analysis. Values are never
// mutated after construction; WithRecommendation returns a copy.
type Report struct {
	Ticker              string    `json:"ticker"`
	CompanyName         string    `json:"company_name"`
	Sector              string    `json:"sector"`
	PERatio             string    `json:"pe_ratio"`
	RevenuePerShare     string    `json:"revenue_per_share"`
	PEGRatio            string    `json:"peg_ratio"`
	FreeCashFlow        string    `json:"free_cash_flow"`
	OneMonthChange      string    `json:"one_month_change"`
	CurrentPrice        string    `json:"current_price"`
	InsiderTransactions string    `json:"insider_transactions"`
	SectorComparison    []string  `json:"sector_comparison"`
	Recommendation      string    `json:"recommendation"`
	Diagnostics         []string  `json:"diagnostics,omitempty"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Inputs are the fetched payloads. Any of them may be missing.
type Inputs struct {
	Overview    *dataflows.CompanyOverview
	Insider     []dataflows.InsiderTransaction
	Series      dataflows.DailyTimeSeries
	Diagnostics []string
	Now         time.Time
}

// NewReport returns a report with every field at its default.
func NewReport(ticker string) Report {
	return Report{
		Ticker:              ticker,
		CompanyName:         consts.NotAvailable,
		Sector:              consts.NotAvailable,
		PERatio:             consts.NotAvailable,
		RevenuePerShare:     consts.NotAvailable,
		PEGRatio:            consts.NotAvailable,
		FreeCashFlow:        consts.NotAvailable,
		OneMonthChange:      consts.NotAvailable,
		CurrentPrice:        consts.NotAvailable,
		InsiderTransactions: consts.NoInsiderActivity,
		SectorComparison:    []string{consts.MissingComparison},
		Recommendation:      consts.NoRecommendation,
	}
}

// BuildReport computes metrics and comparisons for ticker.
func BuildReport(ticker string, in Inputs, avg SectorAverages) Report {
	r := NewReport(ticker)
	r.GeneratedAt = in.Now

	if in.Overview != nil {
		if name := strings.TrimSpace(in.Overview.Name); name != "" {
			r.CompanyName = name
		}
		if sector := strings.TrimSpace(in.Overview.Sector); sector != "" {
			r.Sector = sector
		}
	}

	m := ComputeMetrics(in.Overview, in.Series)
	r.PERatio = FormatNumber(m.PERatio)
	r.RevenuePerShare = FormatNumber(m.RevenuePerShare)
	r.PEGRatio = FormatNumber(m.PEG)
	r.FreeCashFlow = FormatNumber(m.FreeCashFlow)
	r.OneMonthChange = FormatPercent(m.OneMonthChange)
	r.CurrentPrice = FormatNumber(m.CurrentPrice)
	r.InsiderTransactions = InsiderDigest(in.Insider)
	r.SectorComparison = Compare(m, avg)

	if len(in.Diagnostics) > 0 {
		r.Diagnostics = append([]string(nil), in.Diagnostics...)
	}
	return r
}

// WithRecommendation returns a copy of r carrying the narrative text.
func (r Report) WithRecommendation(text string) Report {
	out := r
	out.SectorComparison = append([]string(nil), r.SectorComparison...)
	out.Diagnostics = append([]string(nil), r.Diagnostics...)
	if strings.TrimSpace(text) == "" {
		text = consts.NoRecommendation
	}
	out.Recommendation = text
	return out
}

// Render is the plain-text summary embedded in the narrative prompt.
func (r Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\n", r.Ticker)
	fmt.Fprintf(&b, "Company: %s\n", r.CompanyName)
	fmt.Fprintf(&b, "Sector: %s\n", r.Sector)
	fmt.Fprintf(&b, "P/E Ratio: %s\n", r.PERatio)
	fmt.Fprintf(&b, "Revenue Per Share (TTM): %s\n", r.RevenuePerShare)
	fmt.Fprintf(&b, "PEG Ratio (approximate, fixed growth assumption): %s\n", r.PEGRatio)
	fmt.Fprintf(&b, "Free Cash Flow: %s\n", r.FreeCashFlow)
	fmt.Fprintf(&b, "1-Month Price Change: %s\n", r.OneMonthChange)
	fmt.Fprintf(&b, "Current Price: %s\n", r.CurrentPrice)
	b.WriteString("Recent Insider Transactions:\n")
	b.WriteString(r.InsiderTransactions)
	b.WriteString("\nSector Comparison:\n")
	for _, s := range r.SectorComparison {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return b.String()
}
