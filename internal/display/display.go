package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/analysis"
	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/processing"
	"github.com/dyike/StockPulse/internal/trading"
)

const maxWidth = 75

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(maxWidth)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(24)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("#6B7280")).
			Width(maxWidth)
)

// ResultsDisplay renders analysis results to a terminal.
type ResultsDisplay struct {
	out     io.Writer
	signals *processing.SignalProcessor
}

// NewResultsDisplay writes to out, or stdout when out is nil.
func NewResultsDisplay(out io.Writer) *ResultsDisplay {
	if out == nil {
		out = os.Stdout
	}
	return &ResultsDisplay{out: out, signals: processing.NewSignalProcessor()}
}

// DisplayResult shows a result in whatever phase it is in.
func (d *ResultsDisplay) DisplayResult(res trading.Result) {
	if res.Phase == trading.PhaseAnalyzing {
		d.DisplayPending(res.Ticker)
		return
	}
	d.DisplayReport(res.Report)
}

// DisplayPending shows the interim line while an analysis runs.
func (d *ResultsDisplay) DisplayPending(ticker string) {
	fmt.Fprintln(d.out, pendingStyle.Render(fmt.Sprintf("🔄 %s: %s", ticker, consts.AnalyzingPlaceholder)))
}

// DisplayReport shows a complete report.
func (d *ResultsDisplay) DisplayReport(r analysis.Report) {
	d.showHeader(r)
	d.showMetrics(r)
	d.showSection("👥 INSIDER ACTIVITY", r.InsiderTransactions)
	d.showComparison(r.SectorComparison)
	d.showRecommendation(r.Recommendation)
	d.showDiagnostics(r.Diagnostics)
	d.showFooter(r.GeneratedAt)
}

func (d *ResultsDisplay) showHeader(r analysis.Report) {
	title := fmt.Sprintf("📊 %s  %s", r.Ticker, r.CompanyName)
	sub := fmt.Sprintf("Sector: %s", r.Sector)
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, headerStyle.Render(title+"\n"+sub))
	fmt.Fprintln(d.out)
}

func (d *ResultsDisplay) showMetrics(r analysis.Report) {
	fmt.Fprintln(d.out, sectionStyle.Render("📈 KEY METRICS"))
	rows := [][2]string{
		{"P/E Ratio", r.PERatio},
		{"Revenue Per Share (TTM)", r.RevenuePerShare},
		{"PEG Ratio", r.PEGRatio},
		{"Free Cash Flow", r.FreeCashFlow},
		{"1-Month Change", r.OneMonthChange},
		{"Current Price", r.CurrentPrice},
	}
	for _, row := range rows {
		fmt.Fprintln(d.out, "   "+labelStyle.Render(row[0])+valueStyle.Render(row[1]))
	}
	fmt.Fprintln(d.out)
}

func (d *ResultsDisplay) showComparison(lines []string) {
	fmt.Fprintln(d.out, sectionStyle.Render("⚖️  SECTOR COMPARISON"))
	for _, line := range lines {
		d.displayWrappedText("• "+line, "   ")
	}
	fmt.Fprintln(d.out)
}

func (d *ResultsDisplay) showRecommendation(text string) {
	sig := d.signals.Extract(text)
	title := "🎯 RECOMMENDATION"
	if sig.Action != processing.ActionNone {
		title = fmt.Sprintf("%s: %s %s (confidence %.0f%%)", title, signalEmoji(sig.Action), sig.Action, sig.Confidence*100)
	}
	d.showSection(title, text)
}

func signalEmoji(action string) string {
	switch action {
	case processing.ActionBuy:
		return "🟢"
	case processing.ActionSell:
		return "🔴"
	default:
		return "🟡"
	}
}

func (d *ResultsDisplay) showDiagnostics(diags []string) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintln(d.out, warningStyle.Render("⚠️  Some data could not be loaded:"))
	for _, diag := range diags {
		fmt.Fprintln(d.out, warningStyle.Render("   "+diag))
	}
	fmt.Fprintln(d.out)
}

func (d *ResultsDisplay) showFooter(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	text := fmt.Sprintf("🕐 Generated at %s\n", at.Format("2006-01-02 15:04:05")) +
		"⚠️  For informational purposes only. Not financial advice."
	fmt.Fprintln(d.out, footerStyle.Render(text))
	fmt.Fprintln(d.out)
}

func (d *ResultsDisplay) showSection(title, content string) {
	fmt.Fprintln(d.out, sectionStyle.Render(title))
	if strings.TrimSpace(content) == "" {
		fmt.Fprintln(d.out, "   (No data available)")
	} else {
		for _, para := range strings.Split(content, "\n") {
			d.displayWrappedText(para, "   ")
		}
	}
	fmt.Fprintln(d.out)
}

// displayWrappedText prints text word-wrapped to maxWidth.
func (d *ResultsDisplay) displayWrappedText(text, indent string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}

	line := indent + words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > maxWidth {
			fmt.Fprintln(d.out, line)
			line = indent + w
		} else {
			line += " " + w
		}
	}
	fmt.Fprintln(d.out, line)
}

// DisplayMatches lists symbol search results.
func (d *ResultsDisplay) DisplayMatches(matches []dataflows.SearchMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(d.out, warningStyle.Render("No matching US symbols."))
		return
	}
	for _, m := range matches {
		fmt.Fprintf(d.out, "   %s %s\n", labelStyle.Width(10).Render(m.Symbol), MatchLabel(m))
	}
}

// MatchLabel is the one-line description of a search match.
func MatchLabel(m dataflows.SearchMatch) string {
	label := m.Name
	if m.Type != "" {
		label += " (" + m.Type + ")"
	}
	if m.Currency != "" {
		label += " " + m.Currency
	}
	return label
}

// DisplayError shows a formatted error.
func DisplayError(err error, context string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("❌ Error in %s: %v", context, err)))
}

// DisplayWarning shows a formatted warning.
func DisplayWarning(message string) {
	fmt.Println(warningStyle.Render("⚠️  Warning: " + message))
}

// DisplaySuccess shows a formatted success message.
func DisplaySuccess(message string) {
	fmt.Println(successStyle.Render("✅ " + message))
}

// DisplayInfo shows a formatted info message.
func DisplayInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}
