package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/internal/storage/sqlite"
	"github.com/dyike/StockPulse/internal/trading"
)

// AnalysisStore persists finished analyses.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, rec sqlite.AnalysisRecord) error
}

// Recorder writes finished session results in the background so the
// analysis path never waits on disk.
type Recorder struct {
	store AnalysisStore
	log   zerolog.Logger

	mu     sync.Mutex
	closed bool
	events chan trading.Result
	wg     sync.WaitGroup
}

func NewRecorder(store AnalysisStore, log zerolog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	r := &Recorder{
		store:  store,
		log:    log,
		events: make(chan trading.Result, 64),
	}

	r.wg.Add(1)
	go r.loop()
	return r, nil
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	ctx := context.Background()
	for res := range r.events {
		if err := r.store.SaveAnalysis(ctx, toRecord(res)); err != nil {
			r.log.Warn().Err(err).Str("ticker", res.Ticker).Msg("record analysis failed")
		}
	}
}

// Observe is a trading.Session observer. Only finished results are kept.
func (r *Recorder) Observe(res trading.Result) {
	if res.Phase != trading.PhaseDone {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.events <- res
}

// Close flushes pending results and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func toRecord(res trading.Result) sqlite.AnalysisRecord {
	status := sqlite.StatusDone
	if len(res.Report.Diagnostics) > 0 {
		status = sqlite.StatusDegraded
	}
	data, _ := json.Marshal(res.Report)
	return sqlite.AnalysisRecord{
		ID:             res.ID,
		Ticker:         res.Ticker,
		CompanyName:    res.Report.CompanyName,
		Status:         status,
		Recommendation: res.Report.Recommendation,
		ReportJSON:     string(data),
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
	}
}
