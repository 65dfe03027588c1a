package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/httpjson"
	"github.com/dyike/StockPulse/internal/trading"
)

type stubProvider struct {
	mu       sync.Mutex
	searches []string
}

func (p *stubProvider) SearchSymbols(_ context.Context, keywords string) ([]dataflows.SearchMatch, error) {
	p.mu.Lock()
	p.searches = append(p.searches, keywords)
	p.mu.Unlock()
	return []dataflows.SearchMatch{
		{Symbol: "AAPL", Name: "Apple Inc", Type: "Equity", Region: "United States", Currency: "USD"},
		{Symbol: "APLE", Name: "Apple Hospitality REIT Inc", Type: "Equity", Region: "United States", Currency: "USD"},
	}, nil
}

func (p *stubProvider) CompanyOverview(_ context.Context, symbol string) (*dataflows.CompanyOverview, error) {
	return &dataflows.CompanyOverview{
		Symbol: symbol, Name: "Apple Inc", Sector: "TECHNOLOGY",
		PERatio: "28.5", EPS: "6.0", RevenuePerShareTTM: "24.0",
	}, nil
}

func (p *stubProvider) InsiderTransactions(context.Context, string) ([]dataflows.InsiderTransaction, error) {
	return nil, nil
}

func (p *stubProvider) DailyTimeSeries(context.Context, string) (dataflows.DailyTimeSeries, error) {
	return dataflows.DailyTimeSeries{
		"2024-01-02": {Close: "100"},
		"2024-02-02": {Close: "110"},
	}, nil
}

func (p *stubProvider) searchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.searches)
}

type stubNarrator struct{}

func (stubNarrator) Recommend(_ context.Context, ticker, _ string) string {
	return "Hold " + ticker + " for now."
}

// writeConfig creates a config file in a temp dir and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"ALPHAVANTAGE_API_KEY", "STOCKPULSE_RESULTS_DIR", "STOCKPULSE_HISTORY_DB", "SEARCH_DEBOUNCE"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"search_debounce_ms": 10, "log_pretty": false, "log_level": "error"}`), 0o644))
	return path
}

func runCmd(t *testing.T, state *rootState, args ...string) (string, error) {
	t.Helper()
	if state == nil {
		state = &rootState{}
	}
	if state.opts.provider == nil {
		state.opts.provider = &stubProvider{}
	}
	if state.opts.narrator == nil {
		state.opts.narrator = stubNarrator{}
	}
	var out bytes.Buffer
	cmd := newRootCmd(state)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "analyze", "aapl", "--json")
	require.NoError(t, err)

	var res trading.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "AAPL", res.Ticker)
	assert.Equal(t, trading.PhaseDone, res.Phase)
	assert.Equal(t, "Apple Inc", res.Report.CompanyName)
	assert.Equal(t, "1.90", res.Report.PEGRatio)
	assert.Equal(t, "10.00%", res.Report.OneMonthChange)
	assert.Equal(t, "Hold AAPL for now.", res.Report.Recommendation)
}

func TestAnalyzeDisplaysAndSaves(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "analyze", "AAPL", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Analyzing...")
	assert.Contains(t, out, "KEY METRICS")
	assert.Contains(t, out, "Hold AAPL for now.")
	assert.Contains(t, out, "Report saved to")

	files, err := NewResultsManager(filepath.Join(filepath.Dir(path), "results")).ListResults()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "AAPL", files[0].Symbol)
}

func TestAnalyzeRejectsEmptyTicker(t *testing.T) {
	path := writeConfig(t)

	_, err := runCmd(t, nil, "--config", path, "analyze", "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, trading.ErrEmptyTicker)
}

func TestHistoryListAndShow(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "analyze", "AAPL", "--json")
	require.NoError(t, err)
	var res trading.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	out, err = runCmd(t, nil, "--config", path, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, res.ID)

	out, err = runCmd(t, nil, "--config", path, "history", "show", res.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Hold AAPL for now.")

	out, err = runCmd(t, nil, "--config", path, "history", "show", res.ID, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"ticker":"AAPL"`)

	_, err = runCmd(t, nil, "--config", path, "history", "show", "missing")
	assert.Error(t, err)
}

func TestHistoryListEmpty(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No analyses recorded yet.")

	out, err = runCmd(t, nil, "--config", path, "history", "list", "--files")
	require.NoError(t, err)
	assert.Contains(t, out, "No exported reports.")
}

func TestSearchCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "search", "apple", "--json")
	require.NoError(t, err)
	var matches []dataflows.SearchMatch
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	assert.Len(t, matches, 2)

	out, err = runCmd(t, nil, "--config", path, "search", "apple")
	require.NoError(t, err)
	assert.Contains(t, out, "Apple Hospitality REIT Inc")
}

func TestVersionCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "StockPulse v"+Version)
}

func TestConfigCommands(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "Alpha Vantage:")

	out, err = runCmd(t, nil, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha Vantage API key not configured")

	out, err = runCmd(t, nil, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.DirExists(t, filepath.Join(filepath.Dir(path), "data", "cache"))
}

func TestConfigSetUpdatesFile(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, nil, "--config", path, "config", "set", "price_source=yahoo", "http_timeout_seconds=5")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated "+path)

	out, err = runCmd(t, nil, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "yahoo")
	assert.Contains(t, out, "5s")

	_, err = runCmd(t, nil, "--config", path, "config", "set", "price_source=bloomberg")
	assert.Error(t, err)
	_, err = runCmd(t, nil, "--config", path, "config", "set", "nonsense=1")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestConfigValidateRejectsBadSource(t *testing.T) {
	path := writeConfig(t)
	t.Setenv("PRICE_SOURCE", "bloomberg")

	_, err := runCmd(t, nil, "--config", path, "config", "validate")
	assert.Error(t, err)
}

type scriptedPrompter struct {
	queries []string
	pick    string
	again   []bool
	matched [][]dataflows.SearchMatch
}

func (p *scriptedPrompter) Query(func(string) []string) (string, error) {
	if len(p.queries) == 0 {
		return "", nil
	}
	q := p.queries[0]
	p.queries = p.queries[1:]
	return q, nil
}

func (p *scriptedPrompter) Match(matches []dataflows.SearchMatch) (string, error) {
	p.matched = append(p.matched, matches)
	return p.pick, nil
}

func (p *scriptedPrompter) Again() (bool, error) {
	if len(p.again) == 0 {
		return false, nil
	}
	a := p.again[0]
	p.again = p.again[1:]
	return a, nil
}

func TestInteractiveSearchPickAnalyze(t *testing.T) {
	path := writeConfig(t)
	provider := &stubProvider{}
	prompts := &scriptedPrompter{queries: []string{"apple"}, pick: "AAPL"}
	state := &rootState{opts: appOptions{provider: provider}, prompter: prompts}

	out, err := runCmd(t, state, "--config", path, "interactive")
	require.NoError(t, err)

	require.Len(t, prompts.matched, 1)
	assert.Len(t, prompts.matched[0], 2)
	assert.Equal(t, 1, provider.searchCount())
	assert.Contains(t, out, "StockPulse v")
	assert.Contains(t, out, "Hold AAPL for now.")
	assert.Contains(t, out, "Thank you for using StockPulse!")
}

func TestInteractiveSearchAgainSkipsAnalysis(t *testing.T) {
	path := writeConfig(t)
	prompts := &scriptedPrompter{queries: []string{"apple", "exit"}, pick: ""}
	state := &rootState{prompter: prompts}

	out, err := runCmd(t, state, "--config", path)
	require.NoError(t, err)
	assert.Len(t, prompts.matched, 1)
	assert.NotContains(t, out, "KEY METRICS")
}

func TestInteractiveUsesCompletedSuggestion(t *testing.T) {
	path := writeConfig(t)
	provider := &stubProvider{}
	state := &rootState{opts: appOptions{provider: provider}, prompter: &suggestingPrompter{}}

	out, err := runCmd(t, state, "--config", path, "interactive")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.searchCount())
	assert.Contains(t, out, "Hold APLE for now.")
}

// suggestingPrompter types a prefix, tabs through suggestions and accepts the second one.
type suggestingPrompter struct {
	done bool
}

func (p *suggestingPrompter) Query(suggest func(string) []string) (string, error) {
	if p.done {
		return "", nil
	}
	p.done = true
	options := suggest("appl")
	if len(options) < 2 {
		return "", nil
	}
	return options[1], nil
}

func (p *suggestingPrompter) Match([]dataflows.SearchMatch) (string, error) {
	return "", nil
}

func (p *suggestingPrompter) Again() (bool, error) {
	return false, nil
}

func TestApplyPendingConfigSwapsPipeline(t *testing.T) {
	cfg := *config.DefaultConfigWithRoot(t.TempDir())
	cfg.LogLevel = "error"
	first, err := newApp(context.Background(), cfg, appOptions{provider: &stubProvider{}, narrator: stubNarrator{}, out: &bytes.Buffer{}})
	require.NoError(t, err)

	var rebuilt []config.Config
	second, err := newApp(context.Background(), cfg, appOptions{provider: &stubProvider{}, narrator: stubNarrator{}, out: &bytes.Buffer{}})
	require.NoError(t, err)
	rebuild := func(_ context.Context, c config.Config) (*app, error) {
		rebuilt = append(rebuilt, c)
		return second, nil
	}

	s := newInteractiveSession(first, &scriptedPrompter{}, &bytes.Buffer{}, rebuild)
	defer s.Close()

	s.applyPendingConfig(context.Background())
	assert.Empty(t, rebuilt)

	edited := cfg
	edited.PriceSource = "yahoo"
	s.onConfigChange(edited)
	s.applyPendingConfig(context.Background())
	require.Len(t, rebuilt, 1)
	assert.Equal(t, "yahoo", rebuilt[0].PriceSource)
	assert.Same(t, second, s.app.Load())
}

func TestSearchNowReturnsSettledResults(t *testing.T) {
	cfg := *config.DefaultConfigWithRoot(t.TempDir())
	cfg.LogLevel = "error"
	cfg.SearchDebounceMillis = 10
	provider := &stubProvider{}
	a, err := newApp(context.Background(), cfg, appOptions{provider: provider, narrator: stubNarrator{}, out: &bytes.Buffer{}})
	require.NoError(t, err)

	s := newInteractiveSession(a, &scriptedPrompter{}, &bytes.Buffer{}, nil)
	defer s.Close()

	start := time.Now()
	st := s.searchNow(context.Background(), "apple")
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Equal(t, "apple", st.Query)
	assert.Len(t, st.Results, 2)
	assert.Equal(t, 1, provider.searchCount())
}

func TestMatchOptionRoundTrip(t *testing.T) {
	opt := matchOption(dataflows.SearchMatch{Symbol: "BRK-B", Name: "Berkshire Hathaway - Class B", Type: "Equity"})
	sym, ok := symbolFromOption(opt)
	assert.True(t, ok)
	assert.Equal(t, "BRK-B", sym)

	_, ok = symbolFromOption("apple inc")
	assert.False(t, ok)
	_, ok = symbolFromOption("apple inc - something")
	assert.False(t, ok)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Apple H...", truncateString("Apple Hospitality", 10))
	assert.Equal(t, "abc", truncateString("abcdef", 3))

	got := truncateString("Société Générale Groupe", 10)
	assert.Equal(t, "Société...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "日本電", truncateString("日本電信電話", 3))
}

type throttledProvider struct {
	stubProvider
}

func (p *throttledProvider) SearchSymbols(context.Context, string) ([]dataflows.SearchMatch, error) {
	return nil, httpjson.RateLimited("standard API rate limit is 25 requests per day")
}

func TestInteractiveRateLimitedSearchStartsOver(t *testing.T) {
	path := writeConfig(t)
	prompts := &scriptedPrompter{queries: []string{"apple", "exit"}, pick: "AAPL"}
	state := &rootState{opts: appOptions{provider: &throttledProvider{}}, prompter: prompts}

	out, err := runCmd(t, state, "--config", path, "interactive")
	require.NoError(t, err)
	assert.Empty(t, prompts.matched)
	assert.NotContains(t, out, "KEY METRICS")
	assert.Contains(t, out, "Thank you for using StockPulse!")
}
