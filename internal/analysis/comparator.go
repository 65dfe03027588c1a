package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/StockPulse/consts"
)

const (
	SectorKeyPE  = "pe"
	SectorKeyRPS = "rps"
)

// SectorAverages holds reference values keyed by SectorKeyPE and SectorKeyRPS.
type SectorAverages map[string]float64

// DefaultSectorAverages returns the static placeholder references.
func DefaultSectorAverages() SectorAverages {
	return SectorAverages{
		SectorKeyPE:  25.0,
		SectorKeyRPS: 20.0,
	}
}

// Compare emits qualitative statements about P/E and revenue per share.
// If either metric is absent it returns only the missing-data sentence.
func Compare(m Metrics, avg SectorAverages) []string {
	if !m.PERatio.Valid || !m.RevenuePerShare.Valid {
		return []string{consts.MissingComparison}
	}

	statements := make([]string, 0, 2)
	pe := FormatNumber(m.PERatio)

	// A missing P/E reference behaves as +Inf, so nothing is flagged overvalued.
	peRef, hasPE := avg[SectorKeyPE]
	if !hasPE || m.PERatio.Decimal.LessThan(decimal.NewFromFloat(peRef)) {
		statements = append(statements, fmt.Sprintf(
			"P/E ratio of %s is below the sector average%s, suggesting the stock may be undervalued.",
			pe, referenceSuffix(peRef, hasPE)))
	} else {
		statements = append(statements, fmt.Sprintf(
			"P/E ratio of %s is at or above the sector average%s, suggesting the stock may be overvalued.",
			pe, referenceSuffix(peRef, hasPE)))
	}

	rps := FormatNumber(m.RevenuePerShare)
	rpsRef, hasRPS := avg[SectorKeyRPS]
	floor := decimal.Zero
	if hasRPS {
		floor = decimal.NewFromFloat(rpsRef)
	}
	if m.RevenuePerShare.Decimal.GreaterThan(floor) {
		statements = append(statements, fmt.Sprintf(
			"Revenue per share of %s exceeds the sector average of %s, indicating strong revenue generation.",
			rps, floor.StringFixed(displayPlaces)))
	} else {
		statements = append(statements, fmt.Sprintf(
			"Revenue per share of %s does not exceed the sector average of %s, indicating weak revenue generation.",
			rps, floor.StringFixed(displayPlaces)))
	}
	return statements
}

func referenceSuffix(ref float64, ok bool) string {
	if !ok {
		return ""
	}
	return " of " + decimal.NewFromFloat(ref).StringFixed(displayPlaces)
}
