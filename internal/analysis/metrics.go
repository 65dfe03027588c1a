// Package analysis turns provider payloads into the structured report.
// Everything here is pure and deterministic.
package analysis

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/dataflows"
)

// PlaceholderGrowthRate is the fixed divisor of the PEG proxy. It is not a
// real earnings growth figure, so the resulting PEG is an approximation.
const PlaceholderGrowthRate = 15

const (
	maxDigestEntries = 3
	displayPlaces    = 2
)

var hundred = decimal.NewFromInt(100)

// Metrics holds the parsed and derived numbers. Absent values have Valid == false.
type Metrics struct {
	PERatio         decimal.NullDecimal
	RevenuePerShare decimal.NullDecimal
	EPS             decimal.NullDecimal
	PEG             decimal.NullDecimal
	FreeCashFlow    decimal.NullDecimal
	OneMonthChange  decimal.NullDecimal
	CurrentPrice    decimal.NullDecimal
}

// ParseNumber parses a provider numeric string. Blank, "None", "-", "null"
// and anything unparsable are absent.
func ParseNumber(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "-", "null", "n/a", "nan":
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ComputeMetrics derives every metric it can from the fetched payloads.
// A nil overview or empty series leaves the dependent metrics absent.
func ComputeMetrics(overview *dataflows.CompanyOverview, series dataflows.DailyTimeSeries) Metrics {
	var m Metrics
	if overview != nil {
		m.PERatio = ParseNumber(overview.PERatio)
		m.RevenuePerShare = ParseNumber(overview.RevenuePerShareTTM)
		m.EPS = ParseNumber(overview.EPS)
		m.FreeCashFlow = ParseNumber(overview.FreeCashFlow)

		if m.PERatio.Valid && m.EPS.Valid {
			m.PEG = decimal.NewNullDecimal(m.PERatio.Decimal.Div(decimal.NewFromInt(PlaceholderGrowthRate)))
		}
	}
	m.OneMonthChange, m.CurrentPrice = OneMonthChange(series)
	return m
}

// OneMonthChange compares the earliest and latest close in series, whatever
// span it covers; dataflows.Gateway trims every source to one month. The
// current price is only reported when the change could be computed.
func OneMonthChange(series dataflows.DailyTimeSeries) (change, current decimal.NullDecimal) {
	if len(series) == 0 {
		return
	}
	dates := series.SortedDates()
	first := ParseNumber(series[dates[0]].Close)
	last := ParseNumber(series[dates[len(dates)-1]].Close)
	if !first.Valid || !last.Valid || first.Decimal.IsZero() {
		return
	}

	pct := last.Decimal.Sub(first.Decimal).Div(first.Decimal).Mul(hundred)
	return decimal.NewNullDecimal(pct), last
}

// InsiderDigest renders at most three transactions, one per line.
func InsiderDigest(txns []dataflows.InsiderTransaction) string {
	if len(txns) == 0 {
		return consts.NoInsiderActivity
	}
	if len(txns) > maxDigestEntries {
		txns = txns[:maxDigestEntries]
	}

	lines := make([]string, 0, len(txns))
	for _, t := range txns {
		lines = append(lines, formatTransaction(t))
	}
	return strings.Join(lines, "\n")
}

func formatTransaction(t dataflows.InsiderTransaction) string {
	date := t.TransactionDate
	if date == "" {
		date = t.FilingDate
	}
	if date == "" {
		date = consts.NotAvailable
	}

	owner := strings.TrimSpace(t.OwnerName)
	if owner == "" {
		owner = "Unknown insider"
	}

	verb := "sold"
	if strings.EqualFold(t.TransactionCode, "buy") {
		verb = "bought"
	}

	shares := t.TransactionShares
	if n := ParseNumber(shares); n.Valid {
		shares = n.Decimal.String()
	} else if shares == "" {
		shares = consts.NotAvailable
	}

	return fmt.Sprintf("%s: %s %s %s shares at $%s.", date, owner, verb, shares, FormatNumber(ParseNumber(t.TransactionPrice)))
}

// FormatNumber renders a value with two decimals, or "N/A" when absent.
func FormatNumber(v decimal.NullDecimal) string {
	if !v.Valid {
		return consts.NotAvailable
	}
	return v.Decimal.StringFixed(displayPlaces)
}

// FormatPercent is FormatNumber with a trailing "%".
func FormatPercent(v decimal.NullDecimal) string {
	if !v.Valid {
		return consts.NotAvailable
	}
	return v.Decimal.StringFixed(displayPlaces) + "%"
}
