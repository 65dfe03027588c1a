package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/httpjson"
)

// priceWindow covers a little more than one month of trading days.
const priceWindow = 35 * 24 * time.Hour

// YahooFinanceClient is the alternate daily price source.
type YahooFinanceClient struct {
	cache *CacheManager
	log   zerolog.Logger
	now   func() time.Time
	fetch func(*chart.Params) ([]finance.ChartBar, error)
}

func NewYahooFinanceClient(config *Config, log zerolog.Logger) *YahooFinanceClient {
	cacheDir := filepath.Join(config.DataCacheDir, "yahoo_finance")
	return &YahooFinanceClient{
		cache: NewCacheManager(cacheDir, seriesCacheTTL, config.CacheEnabled),
		log:   log,
		now:   time.Now,
		fetch: fetchChart,
	}
}

func fetchChart(params *chart.Params) ([]finance.ChartBar, error) {
	iter := chart.Get(params)
	bars := make([]finance.ChartBar, 0)
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// DailyTimeSeries returns roughly the last month of daily bars in the same
// shape Alpha Vantage uses.
func (yf *YahooFinanceClient) DailyTimeSeries(ctx context.Context, symbol string) (DailyTimeSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached DailyTimeSeries
	if yf.cache.Get(consts.SourceYahoo, "daily", symbol, &cached) {
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, httpjson.Network(err)
	}

	end := yf.now()
	start := end.Add(-priceWindow)
	bars, err := yf.fetch(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})
	if err != nil {
		yf.log.Warn().Err(err).Str("symbol", symbol).Msg("yahoo chart request failed")
		return nil, httpjson.Network(fmt.Errorf("chart %s: %w", symbol, err))
	}
	if len(bars) == 0 {
		return nil, httpjson.NotFound(fmt.Sprintf("no daily bars for %s", symbol))
	}

	series := make(DailyTimeSeries, len(bars))
	for _, bar := range bars {
		date := time.Unix(int64(bar.Timestamp), 0).UTC().Format(isoDate)
		series[date] = DailyBar{
			Open:  bar.Open.String(),
			High:  bar.High.String(),
			Low:   bar.Low.String(),
			Close: bar.Close.String(),
		}
	}

	if err := yf.cache.Set(consts.SourceYahoo, "daily", symbol, series); err != nil {
		yf.log.Debug().Err(err).Msg("yahoo cache write failed")
	}
	return series, nil
}
