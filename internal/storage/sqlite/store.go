package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusDone     = "done"
	StatusDegraded = "degraded"
)

type Store struct {
	db *sql.DB
}

// AnalysisRecord is one finished analysis.
type AnalysisRecord struct {
	ID             string
	Ticker         string
	CompanyName    string
	Status         string
	Recommendation string
	ReportJSON     string
	StartedAt      time.Time
	FinishedAt     time.Time
}

type AnalysisWithMeta struct {
	AnalysisRecord
	RowID     int64
	CreatedAt string
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases shared between calls
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    ticker TEXT NOT NULL,
    company_name TEXT,
    status TEXT NOT NULL,
    recommendation TEXT,
    report_json TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_analyses_ticker_created ON analyses(ticker, created_at);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) SaveAnalysis(ctx context.Context, rec AnalysisRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("analysis id is required")
	}
	if strings.TrimSpace(rec.Ticker) == "" {
		return fmt.Errorf("analysis ticker is required")
	}
	if rec.Status == "" {
		rec.Status = StatusDone
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO analyses (id, ticker, company_name, status, recommendation, report_json, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    company_name=excluded.company_name,
    status=excluded.status,
    recommendation=excluded.recommendation,
    report_json=excluded.report_json,
    finished_at=excluded.finished_at
`, rec.ID, rec.Ticker, rec.CompanyName, rec.Status, rec.Recommendation, rec.ReportJSON,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns analyses newest first. Pass the last RowID as cursor
// to fetch the next page; ticker filters when non-empty.
func (s *Store) ListAnalyses(ctx context.Context, ticker string, cursor int64, limit int) ([]AnalysisWithMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	rows, err := s.db.QueryContext(ctx, `
SELECT rowid, id, ticker, company_name, status, recommendation, report_json, started_at, finished_at, created_at
FROM analyses
WHERE (? = 0 OR rowid < ?) AND (? = '' OR ticker = ?)
ORDER BY rowid DESC
LIMIT ?
`, cursor, cursor, ticker, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisWithMeta
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses rows: %w", err)
	}
	return out, nil
}

// GetAnalysis returns nil without error when id is unknown.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*AnalysisWithMeta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("analysis id is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT rowid, id, ticker, company_name, status, recommendation, report_json, started_at, finished_at, created_at
FROM analyses
WHERE id = ?
LIMIT 1
`, id)

	rec, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(sc scanner) (*AnalysisWithMeta, error) {
	var (
		rec         AnalysisWithMeta
		companyName sql.NullString
		recommend   sql.NullString
	)
	err := sc.Scan(&rec.RowID, &rec.ID, &rec.Ticker, &companyName, &rec.Status, &recommend,
		&rec.ReportJSON, &rec.StartedAt, &rec.FinishedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	rec.CompanyName = companyName.String
	rec.Recommendation = recommend.String
	return &rec, nil
}
