package dataflows

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/httpjson"
)

// InsiderSource supplies insider transactions for a symbol.
type InsiderSource interface {
	InsiderTransactions(ctx context.Context, symbol string) ([]InsiderTransaction, error)
}

// PriceSource supplies the daily price series for a symbol.
type PriceSource interface {
	DailyTimeSeries(ctx context.Context, symbol string) (DailyTimeSeries, error)
}

// Gateway routes each provider operation to the source selected in config.
// Search and overview always go to Alpha Vantage.
type Gateway struct {
	av      *AlphaVantageClient
	insider InsiderSource
	prices  PriceSource
}

// NewGateway wires the configured sources over one shared HTTP client.
func NewGateway(cfg *Config, log zerolog.Logger) *Gateway {
	hc := httpjson.NewClient(
		httpjson.WithTimeout(cfg.HTTPTimeout()),
		httpjson.WithLogger(log),
	)

	av := NewAlphaVantageClient(cfg.AlphaVantageAPIKey,
		WithBaseURL(cfg.AlphaVantageBaseURL),
		WithHTTPClient(hc),
		WithRateLimit(cfg.ProviderRateLimit),
		WithDiskCache(cfg.DataCacheDir, cfg.CacheEnabled),
		WithLogger(log),
	)

	g := &Gateway{av: av, insider: av, prices: av}
	if cfg.InsiderSource == consts.SourceFinnhub {
		g.insider = NewFinnhubClient(cfg, hc, log)
	}
	if cfg.PriceSource == consts.SourceYahoo {
		g.prices = NewYahooFinanceClient(cfg, log)
	}
	return g
}

// NewGatewayWithSources builds a Gateway from explicit sources.
func NewGatewayWithSources(av *AlphaVantageClient, insider InsiderSource, prices PriceSource) *Gateway {
	if insider == nil {
		insider = av
	}
	if prices == nil {
		prices = av
	}
	return &Gateway{av: av, insider: insider, prices: prices}
}

func (g *Gateway) SearchSymbols(ctx context.Context, keywords string) ([]SearchMatch, error) {
	return g.av.SearchSymbols(ctx, keywords)
}

func (g *Gateway) CompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	return g.av.CompanyOverview(ctx, symbol)
}

func (g *Gateway) InsiderTransactions(ctx context.Context, symbol string) ([]InsiderTransaction, error) {
	return g.insider.InsiderTransactions(ctx, symbol)
}

// DailyTimeSeries returns the month of bars ending at the latest close, so
// every price source feeds the same window into the one-month change.
func (g *Gateway) DailyTimeSeries(ctx context.Context, symbol string) (DailyTimeSeries, error) {
	series, err := g.prices.DailyTimeSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return series.LastMonth(), nil
}
