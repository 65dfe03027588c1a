package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Align(lipgloss.Center).
			Padding(0, 2).
			Width(66)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			Align(lipgloss.Center).
			Width(70).
			MarginBottom(1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("📈 StockPulse v"+Version))
	fmt.Fprintln(w, taglineStyle.Render("Fundamentals, insider activity and price momentum for US stocks"))
	fmt.Fprintln(w, hintStyle.Render("💡 Type a company name or ticker. Tab shows matches, Enter searches."))
	fmt.Fprintln(w)
}
