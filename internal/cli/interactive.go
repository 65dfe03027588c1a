package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/display"
	"github.com/dyike/StockPulse/internal/httpjson"
	"github.com/dyike/StockPulse/internal/logger"
	"github.com/dyike/StockPulse/internal/search"
)

const rateLimitHint = "Alpha Vantage rate limit reached; wait a minute before searching again"

// InteractiveSession drives search-then-analyze from the terminal.
type InteractiveSession struct {
	app      atomic.Pointer[app]
	pending  atomic.Pointer[config.Config]
	rebuild  func(context.Context, config.Config) (*app, error)
	prompt   prompter
	out      io.Writer
	settled  chan struct{}
	settle   time.Duration
	debounce *search.Debouncer
}

func newInteractiveSession(a *app, p prompter, out io.Writer, rebuild func(context.Context, config.Config) (*app, error)) *InteractiveSession {
	s := &InteractiveSession{
		rebuild: rebuild,
		prompt:  p,
		out:     out,
		settled: make(chan struct{}, 1),
		settle:  a.cfg.SearchDebounce() + a.cfg.HTTPTimeout() + time.Second,
	}
	s.app.Store(a)
	s.debounce = search.NewDebouncer(s.search,
		search.WithQuietPeriod(a.cfg.SearchDebounce()),
		search.WithLogger(logger.Component(a.log, "search")),
		search.WithOnChange(s.onSearchChange),
	)
	return s
}

// search goes through whichever app is current when the quiet period ends.
func (s *InteractiveSession) search(ctx context.Context, keywords string) ([]dataflows.SearchMatch, error) {
	return s.app.Load().session.Search(ctx, keywords)
}

func (s *InteractiveSession) onSearchChange(search.State) {
	select {
	case s.settled <- struct{}{}:
	default:
	}
}

// onConfigChange queues cfg; it takes effect before the next prompt.
func (s *InteractiveSession) onConfigChange(cfg config.Config) {
	cfg.LoadFromEnv()
	s.pending.Store(&cfg)
}

// applyPendingConfig swaps in a pipeline built from the latest edited config.
func (s *InteractiveSession) applyPendingConfig(ctx context.Context) {
	cfg := s.pending.Swap(nil)
	if cfg == nil || s.rebuild == nil {
		return
	}
	old := s.app.Load()
	next, err := s.rebuild(ctx, *cfg)
	if err != nil {
		old.log.Warn().Err(err).Msg("ignoring config change")
		return
	}
	s.app.Store(next)
	old.Close()
	display.DisplayInfo("Configuration reloaded")
}

// searchNow feeds query to the debouncer and waits until its search settles.
func (s *InteractiveSession) searchNow(ctx context.Context, query string) search.State {
	s.debounce.Input(query)
	gen := s.debounce.Snapshot().Generation

	deadline := time.NewTimer(s.settle)
	defer deadline.Stop()
	for {
		st := s.debounce.Snapshot()
		if st.Generation != gen || st.Phase == search.PhaseIdle {
			return st
		}
		select {
		case <-s.settled:
		case <-deadline.C:
			return st
		case <-ctx.Done():
			return st
		}
	}
}

// suggest backs tab completion in the query prompt.
func (s *InteractiveSession) suggest(ctx context.Context) func(string) []string {
	return func(text string) []string {
		st := s.searchNow(ctx, text)
		out := make([]string, 0, len(st.Results))
		for _, m := range st.Results {
			out = append(out, matchOption(m))
		}
		return out
	}
}

// Run loops until the user quits.
func (s *InteractiveSession) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.applyPendingConfig(ctx)

		query, err := s.prompt.Query(s.suggest(ctx))
		if err != nil {
			if isInterrupt(err) {
				return nil
			}
			return promptError(err)
		}
		switch strings.ToLower(query) {
		case "", "exit", "quit":
			fmt.Fprintln(s.out, "👋 Thank you for using StockPulse!")
			return nil
		}

		symbol, err := s.pick(ctx, query)
		if err != nil {
			if isInterrupt(err) {
				return nil
			}
			return promptError(err)
		}
		if symbol == "" {
			continue
		}

		s.analyze(ctx, symbol)

		again, err := s.prompt.Again()
		if err != nil {
			if isInterrupt(err) {
				return nil
			}
			return promptError(err)
		}
		if !again {
			fmt.Fprintln(s.out, "👋 Thank you for using StockPulse!")
			return nil
		}
	}
}

// pick resolves query to a symbol. An empty symbol means start over.
func (s *InteractiveSession) pick(ctx context.Context, query string) (string, error) {
	// a completed suggestion names the symbol already
	if sym, ok := symbolFromOption(query); ok {
		if m, found := s.debounce.Select(sym); found {
			return m.Symbol, nil
		}
	}

	st := s.searchNow(ctx, query)
	if st.Err != nil {
		if httpjson.IsKind(st.Err, httpjson.KindRateLimited) {
			display.DisplayWarning(rateLimitHint)
			return "", nil
		}
		display.DisplayError(st.Err, "symbol search")
		return "", nil
	}
	if len(st.Results) == 0 {
		display.DisplayWarning(fmt.Sprintf("no US symbols match %q", query))
		return "", nil
	}

	sym, err := s.prompt.Match(st.Results)
	if err != nil || sym == "" {
		return "", err
	}
	m, found := s.debounce.Select(sym)
	if !found {
		return "", nil
	}
	return m.Symbol, nil
}

func (s *InteractiveSession) analyze(ctx context.Context, symbol string) {
	a := s.app.Load()
	a.display.DisplayPending(symbol)
	res, _, err := a.analyze(ctx, symbol, false)
	if err != nil {
		display.DisplayError(err, "analysis")
		return
	}
	a.display.DisplayReport(res.Report)
}

// Close stops searches and releases the current pipeline.
func (s *InteractiveSession) Close() {
	s.debounce.Close()
	s.debounce.Wait()
	s.app.Load().Close()
}

// runInteractiveMode starts the interactive analysis mode
func runInteractiveMode(cmd *cobra.Command, state *rootState) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a, err := state.newApp(ctx, cmd, true)
	if err != nil {
		return err
	}

	p := state.prompter
	if p == nil {
		p = surveyPrompter{}
	}
	rebuild := func(ctx context.Context, cfg config.Config) (*app, error) {
		return state.build(ctx, cmd, cfg, true)
	}
	s := newInteractiveSession(a, p, cmd.OutOrStdout(), rebuild)
	defer s.Close()

	if err := state.manager.Watch(ctx, s.onConfigChange); err != nil {
		a.log.Warn().Err(err).Msg("config watch unavailable")
	}

	DisplayWelcomeBanner(cmd.OutOrStdout())
	return s.Run(ctx)
}
