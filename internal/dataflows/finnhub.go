package dataflows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/httpjson"
)

const (
	DefaultFinnhubURL = "https://finnhub.io/api/v1"

	// insiderLookback bounds the Finnhub insider query window.
	insiderLookback = 180 * 24 * time.Hour
)

// FinnhubClient is the alternate insider-transaction source.
type FinnhubClient struct {
	http    *httpjson.Client
	baseURL string
	apiKey  string
	cache   *CacheManager
	log     zerolog.Logger
	now     func() time.Time
}

func NewFinnhubClient(config *Config, hc *httpjson.Client, log zerolog.Logger) *FinnhubClient {
	if hc == nil {
		hc = httpjson.NewClient(httpjson.WithTimeout(config.HTTPTimeout()), httpjson.WithLogger(log))
	}
	cacheDir := filepath.Join(config.DataCacheDir, "finnhub")
	return &FinnhubClient{
		http:    hc,
		baseURL: DefaultFinnhubURL,
		apiKey:  config.FinnhubAPIKey,
		cache:   NewCacheManager(cacheDir, insiderCacheTTL, config.CacheEnabled),
		log:     log,
		now:     time.Now,
	}
}

// FinnhubInsiderTransaction is one row of /stock/insider-transactions.
type FinnhubInsiderTransaction struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Share            int64   `json:"share"`
	Change           int64   `json:"change"`
	FilingDate       string  `json:"filingDate"`
	TransactionDate  string  `json:"transactionDate"`
	TransactionCode  string  `json:"transactionCode"`
	TransactionPrice float64 `json:"transactionPrice"`
}

// InsiderTransactions gets insider trades for symbol, most recent first.
func (fc *FinnhubClient) InsiderTransactions(ctx context.Context, symbol string) ([]InsiderTransaction, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub: %w", ErrMissingAPIKey)
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	to := fc.now()
	from := to.Add(-insiderLookback)
	cacheKey := map[string]any{
		"symbol": symbol,
		"from":   from.Format(isoDate),
		"to":     to.Format(isoDate),
	}

	var cached []InsiderTransaction
	if fc.cache.Get(consts.SourceFinnhub, "insider_transactions", cacheKey, &cached) {
		return cached, nil
	}

	raw, err := fc.http.Get(ctx, fc.baseURL+"/stock/insider-transactions", map[string]string{
		"symbol": symbol,
		"from":   from.Format(isoDate),
		"to":     to.Format(isoDate),
		"token":  fc.apiKey,
	})
	if err == nil {
		err = checkFinnhubError(raw)
	}
	if err != nil {
		fc.log.Warn().Err(err).Str("symbol", symbol).Msg("finnhub insider request failed")
		return nil, err
	}

	var apiResponse struct {
		Data []FinnhubInsiderTransaction `json:"data"`
	}
	if err := json.Unmarshal(raw, &apiResponse); err != nil {
		return nil, httpjson.Malformed(fmt.Sprintf("decode finnhub insider transactions: %v", err))
	}

	result := make([]InsiderTransaction, 0, len(apiResponse.Data))
	for _, trans := range apiResponse.Data {
		result = append(result, trans.toInsiderTransaction())
	}

	if err := fc.cache.Set(consts.SourceFinnhub, "insider_transactions", cacheKey, result); err != nil {
		fc.log.Debug().Err(err).Msg("finnhub cache write failed")
	}
	return result, nil
}

func (t FinnhubInsiderTransaction) toInsiderTransaction() InsiderTransaction {
	shares := t.Change
	if shares < 0 {
		shares = -shares
	}

	code := strings.ToLower(strings.TrimSpace(t.TransactionCode))
	switch strings.ToUpper(strings.TrimSpace(t.TransactionCode)) {
	case "P":
		code = "buy"
	case "S":
		code = "sell"
	}

	return InsiderTransaction{
		FilingDate:        t.FilingDate,
		TransactionDate:   t.TransactionDate,
		TransactionCode:   code,
		TransactionPrice:  decimal.NewFromFloat(t.TransactionPrice).String(),
		TransactionShares: fmt.Sprintf("%d", shares),
		OwnerName:         t.Name,
	}
}

func checkFinnhubError(raw httpjson.RawJSON) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Error == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(*env.Error), "limit") {
		return httpjson.RateLimited(*env.Error)
	}
	return httpjson.Malformed(*env.Error)
}
