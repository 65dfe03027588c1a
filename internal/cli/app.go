package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/display"
	"github.com/dyike/StockPulse/internal/logger"
	"github.com/dyike/StockPulse/internal/narrative"
	"github.com/dyike/StockPulse/internal/storage"
	"github.com/dyike/StockPulse/internal/storage/sqlite"
	"github.com/dyike/StockPulse/internal/trading"
)

// app bundles everything one command needs, built from a config snapshot.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	session  *trading.Session
	store    *sqlite.Store
	recorder *storage.Recorder
	results  *ResultsManager
	display  *display.ResultsDisplay
}

type appOptions struct {
	history bool
	out     io.Writer
	// provider and narrator replace the configured backends when set
	provider trading.Provider
	narrator trading.Narrator
}

func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty})

	provider := opts.provider
	if provider == nil {
		provider = dataflows.NewGateway(&cfg, logger.Component(log, "dataflows"))
	}
	narrator := opts.narrator
	if narrator == nil {
		narrator = narrative.New(ctx, &cfg, logger.Component(log, "narrative"))
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		results: NewResultsManager(cfg.ResultsDir),
		display: display.NewResultsDisplay(opts.out),
	}
	a.session = trading.NewSession(provider, narrator,
		trading.WithLogger(logger.Component(log, "session")),
	)

	if opts.history {
		store, err := storage.OpenHistory(&cfg)
		switch {
		case errors.Is(err, storage.ErrHistoryNotConfigured):
			log.Debug().Msg("history disabled")
		case err != nil:
			log.Warn().Err(err).Msg("history unavailable, results will not be recorded")
		default:
			rec, err := storage.NewRecorder(store, logger.Component(log, "history"))
			if err != nil {
				_ = store.Close()
				return nil, err
			}
			a.store = store
			a.recorder = rec
			a.session.Observe(rec.Observe)
		}
	}
	return a, nil
}

// Close flushes pending history writes.
func (a *app) Close() {
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close history store")
		}
	}
}

// analyze runs one analysis and optionally writes the report to ResultsDir.
func (a *app) analyze(ctx context.Context, symbol string, save bool) (*trading.Result, string, error) {
	res, err := a.session.Analyze(ctx, symbol)
	if err != nil {
		return nil, "", err
	}
	if !save {
		return res, "", nil
	}
	path, err := a.results.Save(*res)
	if err != nil {
		return res, "", err
	}
	return res, path, nil
}
