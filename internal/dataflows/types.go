package dataflows

import (
	"sort"
	"time"

	"github.com/dyike/StockPulse/config"
)

// Config is an alias for the main application config
type Config = config.Config

// SearchMatch is one symbol-search candidate. Fields are kept as the provider sent them.
type SearchMatch struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Region      string `json:"region"`
	MarketOpen  string `json:"market_open"`
	MarketClose string `json:"market_close"`
	Timezone    string `json:"timezone"`
	Currency    string `json:"currency"`
	MatchScore  string `json:"match_score"`
}

// CompanyOverview holds the fundamentals used by the analysis.
// Numeric values are strings and may be "None" or empty.
type CompanyOverview struct {
	Symbol             string `json:"Symbol"`
	Name               string `json:"Name"`
	Sector             string `json:"Sector"`
	PERatio            string `json:"PERatio"`
	RevenuePerShareTTM string `json:"RevenuePerShareTTM"`
	EPS                string `json:"EPS"`
	FreeCashFlow       string `json:"FreeCashFlow,omitempty"`
}

// InsiderTransaction is a single insider trade in provider order.
type InsiderTransaction struct {
	FilingDate        string `json:"filing_date"`
	TransactionDate   string `json:"transaction_date"`
	TransactionCode   string `json:"transaction_code"` // "buy" or "sell" when recognised
	TransactionPrice  string `json:"transaction_price"`
	TransactionShares string `json:"transaction_shares"`
	OwnerName         string `json:"owner_name"`
}

// DailyBar is one trading day. Values are strings as delivered.
type DailyBar struct {
	Open  string `json:"1. open"`
	High  string `json:"2. high"`
	Low   string `json:"3. low"`
	Close string `json:"4. close"`
}

const isoDate = "2006-01-02"

// DailyTimeSeries maps ISO dates (YYYY-MM-DD) to bars.
type DailyTimeSeries map[string]DailyBar

// SortedDates returns the dates in ascending order.
func (s DailyTimeSeries) SortedDates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// LastMonth keeps the bars dated within one calendar month of the latest bar.
// Series whose latest key is not an ISO date are returned unchanged.
func (s DailyTimeSeries) LastMonth() DailyTimeSeries {
	dates := s.SortedDates()
	if len(dates) == 0 {
		return s
	}
	latest, err := time.Parse(isoDate, dates[len(dates)-1])
	if err != nil {
		return s
	}
	cutoff := latest.AddDate(0, -1, 0).Format(isoDate)

	out := make(DailyTimeSeries, len(dates))
	for _, d := range dates {
		if d >= cutoff {
			out[d] = s[d]
		}
	}
	return out
}
