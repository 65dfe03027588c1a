package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/internal/httpjson"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.CacheEnabled = false
	cfg.FinnhubAPIKey = "fh-key"
	return cfg
}

func TestFinnhubInsiderTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/insider-transactions", r.URL.Path)
		assert.Equal(t, "fh-key", r.URL.Query().Get("token"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"AAPL","data":[
			{"name":"Kondo Chris","share":4000,"change":-2500,"filingDate":"2024-03-05","transactionDate":"2024-03-03","transactionCode":"S","transactionPrice":170.1},
			{"name":"Doe Jane","share":100,"change":100,"filingDate":"2024-02-05","transactionDate":"2024-02-03","transactionCode":"P","transactionPrice":150},
			{"name":"Grant Gift","share":10,"change":10,"filingDate":"2024-01-05","transactionDate":"2024-01-03","transactionCode":"G","transactionPrice":0}
		]}`))
	}))
	defer server.Close()

	fc := NewFinnhubClient(testConfig(t), nil, zerolog.Nop())
	fc.baseURL = server.URL

	txns, err := fc.InsiderTransactions(context.Background(), "aapl")
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, InsiderTransaction{
		FilingDate:        "2024-03-05",
		TransactionDate:   "2024-03-03",
		TransactionCode:   "sell",
		TransactionPrice:  "170.1",
		TransactionShares: "2500",
		OwnerName:         "Kondo Chris",
	}, txns[0])
	assert.Equal(t, "buy", txns[1].TransactionCode)
	assert.Equal(t, "g", txns[2].TransactionCode)
}

func TestFinnhubErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"API limit reached. Please try again later."}`))
	}))
	defer server.Close()

	fc := NewFinnhubClient(testConfig(t), nil, zerolog.Nop())
	fc.baseURL = server.URL

	_, err := fc.InsiderTransactions(context.Background(), "AAPL")
	assert.True(t, httpjson.IsKind(err, httpjson.KindRateLimited), "got %v", err)
}

func TestFinnhubRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinnhubAPIKey = ""
	_, err := NewFinnhubClient(cfg, nil, zerolog.Nop()).InsiderTransactions(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestYahooDailyTimeSeries(t *testing.T) {
	yf := NewYahooFinanceClient(testConfig(t), zerolog.Nop())
	yf.now = func() time.Time { return time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) }

	var gotSymbol string
	yf.fetch = func(p *chart.Params) ([]finance.ChartBar, error) {
		gotSymbol = p.Symbol
		return []finance.ChartBar{
			{Open: decimal.NewFromInt(99), High: decimal.NewFromInt(101), Low: decimal.NewFromInt(98), Close: decimal.NewFromInt(100),
				Timestamp: int(time.Date(2024, 1, 8, 14, 30, 0, 0, time.UTC).Unix())},
			{Open: decimal.NewFromInt(101), High: decimal.NewFromInt(112), Low: decimal.NewFromInt(100), Close: decimal.NewFromInt(110),
				Timestamp: int(time.Date(2024, 2, 8, 14, 30, 0, 0, time.UTC).Unix())},
		}, nil
	}

	series, err := yf.DailyTimeSeries(context.Background(), "msft")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", gotSymbol)
	assert.Equal(t, []string{"2024-01-08", "2024-02-08"}, series.SortedDates())
	assert.Equal(t, "110", series["2024-02-08"].Close)
}

func TestYahooFailures(t *testing.T) {
	yf := NewYahooFinanceClient(testConfig(t), zerolog.Nop())

	yf.fetch = func(*chart.Params) ([]finance.ChartBar, error) { return nil, errors.New("boom") }
	_, err := yf.DailyTimeSeries(context.Background(), "MSFT")
	assert.True(t, httpjson.IsKind(err, httpjson.KindNetwork), "got %v", err)

	yf.fetch = func(*chart.Params) ([]finance.ChartBar, error) { return nil, nil }
	_, err = yf.DailyTimeSeries(context.Background(), "MSFT")
	assert.True(t, httpjson.IsKind(err, httpjson.KindNotFound), "got %v", err)
}

type stubInsiders struct{ txns []InsiderTransaction }

func (s stubInsiders) InsiderTransactions(context.Context, string) ([]InsiderTransaction, error) {
	return s.txns, nil
}

func TestGatewayRoutesToConfiguredSources(t *testing.T) {
	av := NewAlphaVantageClient("k", WithRateLimit(0))
	want := []InsiderTransaction{{OwnerName: "stub"}}

	g := NewGatewayWithSources(av, stubInsiders{txns: want}, nil)
	got, err := g.InsiderTransactions(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Same(t, av, g.prices.(*AlphaVantageClient))
}

func TestNewGatewaySelectsSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.InsiderSource = "finnhub"
	cfg.PriceSource = "yahoo"

	g := NewGateway(cfg, zerolog.Nop())
	assert.IsType(t, &FinnhubClient{}, g.insider)
	assert.IsType(t, &YahooFinanceClient{}, g.prices)
}

type stubPrices struct{ series DailyTimeSeries }

func (s stubPrices) DailyTimeSeries(context.Context, string) (DailyTimeSeries, error) {
	return s.series, nil
}

func TestGatewayTrimsSeriesToOneMonth(t *testing.T) {
	full := DailyTimeSeries{
		"2024-01-15": {Close: "90"},
		"2024-02-29": {Close: "100"},
		"2024-03-14": {Close: "105"},
		"2024-03-29": {Close: "110"},
	}
	g := NewGatewayWithSources(NewAlphaVantageClient("k", WithRateLimit(0)), nil, stubPrices{series: full})

	got, err := g.DailyTimeSeries(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-29", "2024-03-14", "2024-03-29"}, got.SortedDates())
	assert.Len(t, full, 4, "source series must not be modified")
}

func TestLastMonthKeepsUnparsableSeries(t *testing.T) {
	odd := DailyTimeSeries{"latest": {Close: "1"}}
	assert.Equal(t, odd, odd.LastMonth())
	assert.Empty(t, DailyTimeSeries{}.LastMonth())
}
