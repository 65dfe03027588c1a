// Package trading runs one stock analysis end to end.
package trading

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/analysis"
	"github.com/dyike/StockPulse/internal/dataflows"
)

// ErrEmptyTicker is returned when Analyze is called without a symbol.
var ErrEmptyTicker = errors.New("ticker must not be empty")

// Provider is the market data the session needs.
type Provider interface {
	SearchSymbols(ctx context.Context, keywords string) ([]dataflows.SearchMatch, error)
	CompanyOverview(ctx context.Context, symbol string) (*dataflows.CompanyOverview, error)
	InsiderTransactions(ctx context.Context, symbol string) ([]dataflows.InsiderTransaction, error)
	DailyTimeSeries(ctx context.Context, symbol string) (dataflows.DailyTimeSeries, error)
}

// Narrator turns rendered report text into a recommendation. It does not fail.
type Narrator interface {
	Recommend(ctx context.Context, ticker, reportText string) string
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAnalyzing:
		return consts.State_Analyzing
	case PhaseDone:
		return consts.State_Done
	default:
		return consts.State_Idle
	}
}

// Result is what observers see. While analyzing, Report holds defaults and
// the placeholder recommendation.
type Result struct {
	ID         string          `json:"id"`
	Ticker     string          `json:"ticker"`
	Phase      Phase           `json:"phase"`
	Report     analysis.Report `json:"report"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

// Session owns the latest-result slot. It is safe for concurrent readers;
// Analyze calls are expected from one caller at a time.
type Session struct {
	provider Provider
	narrator Narrator
	averages analysis.SectorAverages
	log      zerolog.Logger
	now      func() time.Time

	latest    atomic.Pointer[Result]
	mu        sync.RWMutex
	observers []func(Result)
}

type Option func(*Session)

func WithSectorAverages(avg analysis.SectorAverages) Option {
	return func(s *Session) {
		if avg != nil {
			s.averages = avg
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers fn to receive every published Result.
func WithObserver(fn func(Result)) Option {
	return func(s *Session) {
		s.observers = append(s.observers, fn)
	}
}

func NewSession(provider Provider, narrator Narrator, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		narrator: narrator,
		averages: analysis.DefaultSectorAverages(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe adds an observer after construction.
func (s *Session) Observe(fn func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Latest returns the most recently published result.
func (s *Session) Latest() (Result, bool) {
	r := s.latest.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// Search forwards to the provider's symbol search.
func (s *Session) Search(ctx context.Context, keywords string) ([]dataflows.SearchMatch, error) {
	return s.provider.SearchSymbols(ctx, keywords)
}

// Analyze fetches, computes and narrates a report for ticker. Fetch failures
// degrade the report; they never fail the run. Once started, the run ignores
// cancellation of ctx.
func (s *Session) Analyze(ctx context.Context, ticker string) (*Result, error) {
	ticker = dataflows.NormalizeSymbol(ticker)
	if ticker == "" {
		return nil, ErrEmptyTicker
	}
	ctx = context.WithoutCancel(ctx)
	log := s.log.With().Str("ticker", ticker).Logger()

	pending := analysis.NewReport(ticker)
	pending.Recommendation = consts.AnalyzingPlaceholder
	started := s.now()
	id := uuid.NewString()
	s.publish(Result{ID: id, Ticker: ticker, Phase: PhaseAnalyzing, Report: pending, StartedAt: started})

	in := s.fetch(ctx, log, ticker)
	in.Now = started

	report := analysis.BuildReport(ticker, in, s.averages)
	report = report.WithRecommendation(s.narrator.Recommend(ctx, ticker, report.Render()))

	done := Result{
		ID:         id,
		Ticker:     ticker,
		Phase:      PhaseDone,
		Report:     report,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	s.publish(done)
	log.Info().
		Int("diagnostics", len(report.Diagnostics)).
		Dur("elapsed", done.FinishedAt.Sub(started)).
		Msg("analysis completed")
	return &done, nil
}

// fetch runs the three provider calls concurrently and waits for all of them.
func (s *Session) fetch(ctx context.Context, log zerolog.Logger, ticker string) analysis.Inputs {
	var (
		in     analysis.Inputs
		wg     sync.WaitGroup
		diagMu sync.Mutex
	)

	run := func(source string, call func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
				}()
				return call()
			}()
			if err != nil {
				log.Warn().Err(err).Str("source", source).Msg("fetch failed, section will use defaults")
				diagMu.Lock()
				in.Diagnostics = append(in.Diagnostics, fmt.Sprintf("%s: %v", source, err))
				diagMu.Unlock()
			}
		}()
	}

	run("overview", func() error {
		ov, err := s.provider.CompanyOverview(ctx, ticker)
		if err == nil {
			in.Overview = ov
		}
		return err
	})
	run("insider_transactions", func() error {
		txns, err := s.provider.InsiderTransactions(ctx, ticker)
		if err == nil {
			in.Insider = txns
		}
		return err
	})
	run("daily_time_series", func() error {
		series, err := s.provider.DailyTimeSeries(ctx, ticker)
		if err == nil {
			in.Series = series
		}
		return err
	})
	wg.Wait()

	sort.Strings(in.Diagnostics)
	return in
}

func (s *Session) publish(r Result) {
	s.latest.Store(&r)

	s.mu.RLock()
	observers := append([]func(Result){}, s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(r)
	}
}
