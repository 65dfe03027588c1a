package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/internal/analysis"
	"github.com/dyike/StockPulse/internal/storage/sqlite"
	"github.com/dyike/StockPulse/internal/trading"
)

type memoryStore struct {
	mu   sync.Mutex
	recs []sqlite.AnalysisRecord
	err  error
}

func (m *memoryStore) SaveAnalysis(_ context.Context, rec sqlite.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func doneResult(id string, diagnostics ...string) trading.Result {
	report := analysis.NewReport("AAPL").WithRecommendation("Hold.")
	report.Diagnostics = diagnostics
	return trading.Result{
		ID:         id,
		Ticker:     "AAPL",
		Phase:      trading.PhaseDone,
		Report:     report,
		StartedAt:  time.Unix(100, 0),
		FinishedAt: time.Unix(102, 0),
	}
}

func TestRecorderKeepsOnlyFinishedResults(t *testing.T) {
	store := &memoryStore{}
	rec, err := NewRecorder(store, zerolog.Nop())
	require.NoError(t, err)

	rec.Observe(trading.Result{ID: "pending", Ticker: "AAPL", Phase: trading.PhaseAnalyzing})
	rec.Observe(doneResult("r1"))
	rec.Observe(doneResult("r2", "overview: not_found"))
	rec.Close()
	rec.Observe(doneResult("after-close"))

	require.Len(t, store.recs, 2)
	assert.Equal(t, "r1", store.recs[0].ID)
	assert.Equal(t, sqlite.StatusDone, store.recs[0].Status)
	assert.Equal(t, sqlite.StatusDegraded, store.recs[1].Status)

	var report analysis.Report
	require.NoError(t, json.Unmarshal([]byte(store.recs[0].ReportJSON), &report))
	assert.Equal(t, "Hold.", report.Recommendation)
}

func TestRecorderSurvivesStoreErrors(t *testing.T) {
	store := &memoryStore{err: errors.New("disk full")}
	rec, err := NewRecorder(store, zerolog.Nop())
	require.NoError(t, err)
	rec.Observe(doneResult("r1"))
	rec.Close()
	assert.Len(t, store.recs, 1)
}

func TestNewRecorderRequiresStore(t *testing.T) {
	_, err := NewRecorder(nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestRecorderWithSQLite(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	store, err := OpenHistory(cfg)
	require.NoError(t, err)
	defer store.Close()

	rec, err := NewRecorder(store, zerolog.Nop())
	require.NoError(t, err)
	rec.Observe(doneResult("sql-1"))
	rec.Close()

	got, err := store.GetAnalysis(context.Background(), "sql-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Ticker)
}

func TestOpenHistoryRequiresPath(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.HistoryDBPath = " "
	_, err := OpenHistory(cfg)
	assert.ErrorIs(t, err, ErrHistoryNotConfigured)
}
