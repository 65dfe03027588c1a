package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/trading"
)

const resultSuffix = "_analysis.json"

// ResultsManager stores exported reports as JSON files.
type ResultsManager struct {
	resultsDir string
}

// ResultSummary describes one exported report file.
type ResultSummary struct {
	Symbol   string
	Date     string
	FilePath string
	FileSize int64
	ModTime  time.Time
}

func NewResultsManager(resultsDir string) *ResultsManager {
	return &ResultsManager{resultsDir: resultsDir}
}

// Save writes res to SYMBOL_YYYYMMDD-HHMMSS_analysis.json and returns the path.
func (rm *ResultsManager) Save(res trading.Result) (string, error) {
	if strings.TrimSpace(rm.resultsDir) == "" {
		return "", fmt.Errorf("results directory is not configured")
	}
	at := res.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	name := fmt.Sprintf("%s_%s%s", res.Ticker, at.Format("20060102-150405"), resultSuffix)
	path := filepath.Join(rm.resultsDir, name)
	if err := dataflows.SaveDataToFile(res, path); err != nil {
		return "", fmt.Errorf("failed to save results: %w", err)
	}
	return path, nil
}

// ListResults returns exported reports, newest first.
func (rm *ResultsManager) ListResults() ([]ResultSummary, error) {
	entries, err := os.ReadDir(rm.resultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var out []ResultSummary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, resultSuffix) {
			continue
		}
		symbol, date, ok := strings.Cut(strings.TrimSuffix(name, resultSuffix), "_")
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ResultSummary{
			Symbol:   symbol,
			Date:     date,
			FilePath: filepath.Join(rm.resultsDir, name),
			FileSize: info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}
