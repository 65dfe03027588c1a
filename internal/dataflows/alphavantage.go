package dataflows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/cache"
	"github.com/dyike/StockPulse/internal/httpjson"
)

const (
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

	// DefaultRateLimit is the free-tier allowance in requests per minute.
	DefaultRateLimit = 5

	searchCacheTTL   = 5 * time.Minute
	overviewCacheTTL = 24 * time.Hour
	insiderCacheTTL  = 6 * time.Hour
	seriesCacheTTL   = time.Hour
)

// ErrMissingAPIKey is returned before any request when a source has no key configured.
var ErrMissingAPIKey = errors.New("API key not configured")

// AlphaVantageClient implements the four provider operations against Alpha Vantage.
type AlphaVantageClient struct {
	http    *httpjson.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	log     zerolog.Logger

	searchCache   *cache.TTLCache[[]SearchMatch]
	overviewCache *CacheManager
	insiderCache  *CacheManager
	seriesCache   *CacheManager
}

// AlphaVantageOption configures the AlphaVantageClient.
type AlphaVantageOption func(*AlphaVantageClient)

func WithBaseURL(baseURL string) AlphaVantageOption {
	return func(c *AlphaVantageClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(hc *httpjson.Client) AlphaVantageOption {
	return func(c *AlphaVantageClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit sets the allowance in requests per minute. Zero disables throttling.
func WithRateLimit(perMinute int) AlphaVantageOption {
	return func(c *AlphaVantageClient) {
		c.limiter = newMinuteLimiter(perMinute)
	}
}

// WithDiskCache keeps overview, insider and time-series answers under dir.
func WithDiskCache(dir string, enabled bool) AlphaVantageOption {
	return func(c *AlphaVantageClient) {
		dir = filepath.Join(dir, "alphavantage")
		c.overviewCache = NewCacheManager(dir, overviewCacheTTL, enabled)
		c.insiderCache = NewCacheManager(dir, insiderCacheTTL, enabled)
		c.seriesCache = NewCacheManager(dir, seriesCacheTTL, enabled)
	}
}

func WithLogger(log zerolog.Logger) AlphaVantageOption {
	return func(c *AlphaVantageClient) {
		c.log = log
	}
}

func NewAlphaVantageClient(apiKey string, opts ...AlphaVantageOption) *AlphaVantageClient {
	c := &AlphaVantageClient{
		baseURL:     DefaultAlphaVantageURL,
		apiKey:      apiKey,
		limiter:     newMinuteLimiter(DefaultRateLimit),
		log:         zerolog.Nop(),
		searchCache: cache.NewTTLCache[[]SearchMatch](searchCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpjson.NewClient(httpjson.WithLogger(c.log))
	}
	return c
}

func newMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// SearchSymbols returns United States matches for keywords in provider order.
func (c *AlphaVantageClient) SearchSymbols(ctx context.Context, keywords string) ([]SearchMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, nil
	}

	cacheKey := strings.ToLower(keywords)
	if cached, ok := c.searchCache.Get(cacheKey); ok {
		return cached, nil
	}

	raw, err := c.query(ctx, consts.FunctionSymbolSearch, map[string]string{"keywords": keywords})
	if err != nil {
		return nil, err
	}

	var payload struct {
		BestMatches *[]avSearchMatch `json:"bestMatches"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, httpjson.Malformed(fmt.Sprintf("decode search results: %v", err))
	}
	if payload.BestMatches == nil {
		return nil, httpjson.Malformed("search results missing bestMatches")
	}

	matches := filterRegion(*payload.BestMatches, consts.SearchRegion)
	c.searchCache.Set(cacheKey, matches)
	return matches, nil
}

type avSearchMatch struct {
	Symbol      string `json:"1. symbol"`
	Name        string `json:"2. name"`
	Type        string `json:"3. type"`
	Region      string `json:"4. region"`
	MarketOpen  string `json:"5. marketOpen"`
	MarketClose string `json:"6. marketClose"`
	Timezone    string `json:"7. timezone"`
	Currency    string `json:"8. currency"`
	MatchScore  string `json:"9. matchScore"`
}

func filterRegion(raw []avSearchMatch, region string) []SearchMatch {
	matches := make([]SearchMatch, 0, len(raw))
	for _, m := range raw {
		if m.Region != region {
			continue
		}
		id := m.Symbol
		if id == "" {
			id = uuid.NewString()
		}
		matches = append(matches, SearchMatch{
			ID:          id,
			Symbol:      m.Symbol,
			Name:        m.Name,
			Type:        m.Type,
			Region:      m.Region,
			MarketOpen:  m.MarketOpen,
			MarketClose: m.MarketClose,
			Timezone:    m.Timezone,
			Currency:    m.Currency,
			MatchScore:  m.MatchScore,
		})
	}
	return matches
}

// CompanyOverview fetches fundamentals. An empty object means the symbol is unknown.
func (c *AlphaVantageClient) CompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached CompanyOverview
	if c.overviewCache.Get(consts.SourceAlphaVantage, "overview", symbol, &cached) {
		return &cached, nil
	}

	raw, err := c.query(ctx, consts.FunctionOverview, map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	fields, err := decodeFlatObject(raw)
	if err != nil {
		return nil, httpjson.Malformed(fmt.Sprintf("decode overview: %v", err))
	}
	if len(fields) == 0 {
		return nil, httpjson.NotFound(fmt.Sprintf("no overview for %s", symbol))
	}

	overview := &CompanyOverview{
		Symbol:             fields["Symbol"],
		Name:               fields["Name"],
		Sector:             fields["Sector"],
		PERatio:            fields["PERatio"],
		RevenuePerShareTTM: fields["RevenuePerShareTTM"],
		EPS:                fields["EPS"],
		FreeCashFlow:       fields["FreeCashFlow"],
	}
	if err := c.overviewCache.Set(consts.SourceAlphaVantage, "overview", symbol, overview); err != nil {
		c.log.Debug().Err(err).Msg("overview cache write failed")
	}
	return overview, nil
}

// InsiderTransactions returns insider trades most-recent-first.
func (c *AlphaVantageClient) InsiderTransactions(ctx context.Context, symbol string) ([]InsiderTransaction, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached []InsiderTransaction
	if c.insiderCache.Get(consts.SourceAlphaVantage, "insider_transactions", symbol, &cached) {
		return cached, nil
	}

	raw, err := c.query(ctx, consts.FunctionInsiderTransaction, map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	txns, err := decodeInsiderTransactions(raw)
	if err != nil {
		return nil, httpjson.Malformed(fmt.Sprintf("decode insider transactions: %v", err))
	}
	if err := c.insiderCache.Set(consts.SourceAlphaVantage, "insider_transactions", symbol, txns); err != nil {
		c.log.Debug().Err(err).Msg("insider cache write failed")
	}
	return txns, nil
}

// DailyTimeSeries returns the compact daily series keyed by ISO date.
func (c *AlphaVantageClient) DailyTimeSeries(ctx context.Context, symbol string) (DailyTimeSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached DailyTimeSeries
	if c.seriesCache.Get(consts.SourceAlphaVantage, "time_series_daily", symbol, &cached) {
		return cached, nil
	}

	raw, err := c.query(ctx, consts.FunctionTimeSeriesDaily, map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Series *DailyTimeSeries `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, httpjson.Malformed(fmt.Sprintf("decode time series: %v", err))
	}
	if payload.Series == nil {
		return nil, httpjson.NotFound(fmt.Sprintf("no daily time series for %s", symbol))
	}

	series := *payload.Series
	if err := c.seriesCache.Set(consts.SourceAlphaVantage, "time_series_daily", symbol, series); err != nil {
		c.log.Debug().Err(err).Msg("time series cache write failed")
	}
	return series, nil
}

// query performs one throttled provider call and rejects error envelopes.
func (c *AlphaVantageClient) query(ctx context.Context, function string, params map[string]string) (httpjson.RawJSON, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage: %w", ErrMissingAPIKey)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, httpjson.Network(err)
		}
	}

	query := make(map[string]string, len(params)+2)
	for k, v := range params {
		query[k] = v
	}
	query["function"] = function
	query["apikey"] = c.apiKey

	raw, err := c.http.Get(ctx, c.baseURL, query)
	if err == nil {
		err = checkEnvelope(raw)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("function", function).Msg("alpha vantage request failed")
		return nil, err
	}
	return raw, nil
}

// checkEnvelope detects the provider's throttle and error objects. It must run
// before any domain decoding.
func checkEnvelope(raw httpjson.RawJSON) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var env struct {
		Note         *string `json:"Note"`
		Information  *string `json:"Information"`
		ErrorMessage *string `json:"Error Message"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil
	}

	switch {
	case env.Note != nil:
		return httpjson.RateLimited(*env.Note)
	case env.Information != nil:
		return httpjson.RateLimited(*env.Information)
	case env.ErrorMessage != nil:
		return httpjson.Malformed(*env.ErrorMessage)
	}
	return nil
}

// decodeFlatObject reads a JSON object whose values are scalars, rendering
// numbers in their original text form.
func decodeFlatObject(raw []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("expected a JSON object")
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		fields[k] = scalarString(v)
	}
	return fields, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// insiderRecord accepts both the camelCase layout and Alpha Vantage's native snake_case.
type insiderRecord struct {
	FilingDate        string `json:"filingDate"`
	TransactionDate   string `json:"transactionDate"`
	TransactionCode   string `json:"transactionCode"`
	TransactionPrice  any    `json:"transactionPrice"`
	TransactionShares any    `json:"transactionShares"`
	OwnerName         string `json:"ownerName"`

	SnakeTransactionDate string `json:"transaction_date"`
	Executive            string `json:"executive"`
	AcquisitionDisposal  string `json:"acquisition_or_disposal"`
	Shares               any    `json:"shares"`
	SharePrice           any    `json:"share_price"`
}

func decodeInsiderTransactions(raw []byte) ([]InsiderTransaction, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload struct {
		Data         []insiderRecord `json:"data"`
		Transactions []insiderRecord `json:"transactions"`
	}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}

	records := payload.Data
	if records == nil {
		records = payload.Transactions
	}

	txns := make([]InsiderTransaction, 0, len(records))
	for _, r := range records {
		txns = append(txns, r.normalize())
	}
	return txns, nil
}

func (r insiderRecord) normalize() InsiderTransaction {
	t := InsiderTransaction{
		FilingDate:        r.FilingDate,
		TransactionDate:   firstNonEmpty(r.TransactionDate, r.SnakeTransactionDate),
		TransactionCode:   strings.ToLower(strings.TrimSpace(r.TransactionCode)),
		TransactionPrice:  firstNonEmpty(scalarString(r.TransactionPrice), scalarString(r.SharePrice)),
		TransactionShares: firstNonEmpty(scalarString(r.TransactionShares), scalarString(r.Shares)),
		OwnerName:         firstNonEmpty(r.OwnerName, r.Executive),
	}
	if t.TransactionCode == "" {
		switch strings.ToUpper(strings.TrimSpace(r.AcquisitionDisposal)) {
		case "A":
			t.TransactionCode = "buy"
		case "D":
			t.TransactionCode = "sell"
		}
	}
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
