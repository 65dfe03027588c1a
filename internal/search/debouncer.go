// Package search turns a stream of typed queries into debounced symbol searches.
package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/internal/dataflows"
)

// DefaultQuietPeriod is how long input must stay unchanged before a search is sent.
const DefaultQuietPeriod = time.Second

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWaiting
	PhaseInFlight
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaiting:
		return "waiting"
	case PhaseInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot. A new value is published on every transition.
type State struct {
	Phase      Phase
	Query      string
	Deadline   time.Time // set while waiting
	Results    []dataflows.SearchMatch
	Err        error
	Generation uint64
}

// SearchFunc performs one symbol search.
type SearchFunc func(ctx context.Context, keywords string) ([]dataflows.SearchMatch, error)

// Debouncer runs at most one search per quiet period. A result is applied only
// if no newer input arrived after its dispatch.
type Debouncer struct {
	search   SearchFunc
	quiet    time.Duration
	clock    Clock
	log      zerolog.Logger
	onChange func(State)

	mu         sync.Mutex
	generation uint64
	timer      Timer
	cancel     context.CancelFunc
	closed     bool
	inflight   sync.WaitGroup

	state atomic.Pointer[State]
	seq   uint64 // bumped under mu on every publish

	notifyMu sync.Mutex
	notified uint64
}

type Option func(*Debouncer)

func WithQuietPeriod(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.quiet = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(db *Debouncer) {
		if c != nil {
			db.clock = c
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(db *Debouncer) {
		db.log = log
	}
}

// WithOnChange registers a callback invoked with published States in publish
// order. A State superseded before its callback ran is skipped. Calls are
// serialised and must not block for long.
func WithOnChange(fn func(State)) Option {
	return func(db *Debouncer) {
		db.onChange = fn
	}
}

func NewDebouncer(search SearchFunc, opts ...Option) *Debouncer {
	db := &Debouncer{
		search: search,
		quiet:  DefaultQuietPeriod,
		clock:  RealClock(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.state.Store(&State{Phase: PhaseIdle})
	return db
}

// Snapshot returns the latest published state.
func (db *Debouncer) Snapshot() State {
	return *db.state.Load()
}

// Input records a keystroke. Non-empty text restarts the quiet period;
// empty text cancels everything and clears the results.
func (db *Debouncer) Input(text string) {
	query := strings.TrimSpace(text)

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return
	}
	db.stopLocked()
	db.generation++
	gen := db.generation

	var next State
	if query == "" {
		next = State{Phase: PhaseIdle, Generation: gen}
	} else {
		deadline := db.clock.Now().Add(db.quiet)
		next = State{
			Phase:      PhaseWaiting,
			Query:      query,
			Deadline:   deadline,
			Results:    db.state.Load().Results,
			Generation: gen,
		}
		db.timer = db.clock.AfterFunc(db.quiet, func() { db.fire(gen, query) })
	}
	seq := db.publishLocked(&next)
	db.mu.Unlock()

	db.notify(seq, next)
}

// fire runs when the quiet period of generation gen elapses.
func (db *Debouncer) fire(gen uint64, query string) {
	db.mu.Lock()
	if db.closed || gen != db.generation {
		db.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	db.cancel = cancel
	db.timer = nil

	next := State{
		Phase:      PhaseInFlight,
		Query:      query,
		Results:    db.state.Load().Results,
		Generation: gen,
	}
	seq := db.publishLocked(&next)
	db.inflight.Add(1)
	db.mu.Unlock()

	db.notify(seq, next)

	go func() {
		defer db.inflight.Done()
		defer cancel()

		results, err := db.search(ctx, query)
		db.apply(gen, query, results, err)
	}()
}

// apply publishes a finished search unless a newer input superseded it.
func (db *Debouncer) apply(gen uint64, query string, results []dataflows.SearchMatch, err error) {
	db.mu.Lock()
	if db.closed || gen != db.generation {
		db.mu.Unlock()
		db.log.Debug().Str("query", query).Msg("discarding stale search result")
		return
	}
	db.cancel = nil

	next := State{Phase: PhaseIdle, Query: query, Results: results, Generation: gen}
	if err != nil {
		db.log.Warn().Err(err).Str("query", query).Msg("symbol search failed")
		next.Results = nil
		next.Err = err
	}
	seq := db.publishLocked(&next)
	db.mu.Unlock()

	db.notify(seq, next)
}

// Select returns the match with the given symbol and clears the result list.
func (db *Debouncer) Select(symbol string) (dataflows.SearchMatch, bool) {
	db.mu.Lock()
	var (
		picked dataflows.SearchMatch
		found  bool
	)
	for _, m := range db.state.Load().Results {
		if strings.EqualFold(m.Symbol, symbol) {
			picked, found = m, true
			break
		}
	}
	db.stopLocked()
	db.generation++
	next := State{Phase: PhaseIdle, Generation: db.generation}
	seq := db.publishLocked(&next)
	db.mu.Unlock()

	db.notify(seq, next)
	return picked, found
}

// Close cancels pending work. Later input is ignored.
func (db *Debouncer) Close() {
	db.mu.Lock()
	db.closed = true
	db.stopLocked()
	db.generation++
	db.mu.Unlock()
}

// Wait blocks until no search goroutine is running.
func (db *Debouncer) Wait() {
	db.inflight.Wait()
}

func (db *Debouncer) stopLocked() {
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
	if db.cancel != nil {
		db.cancel()
		db.cancel = nil
	}
}

func (db *Debouncer) publishLocked(s *State) uint64 {
	db.seq++
	db.state.Store(s)
	return db.seq
}

// notify delivers s unless a later State was already delivered.
func (db *Debouncer) notify(seq uint64, s State) {
	if db.onChange == nil {
		return
	}
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()
	if seq <= db.notified {
		return
	}
	db.notified = seq
	db.onChange(s)
}
