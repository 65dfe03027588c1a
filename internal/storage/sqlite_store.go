package storage

import (
	"errors"
	"strings"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/internal/storage/sqlite"
)

// ErrHistoryNotConfigured indicates config.HistoryDBPath is empty.
var ErrHistoryNotConfigured = errors.New("history_db_path is not configured")

// OpenHistory opens the analysis history database named in cfg.
func OpenHistory(cfg *config.Config) (*sqlite.Store, error) {
	path := strings.TrimSpace(cfg.HistoryDBPath)
	if path == "" {
		return nil, ErrHistoryNotConfigured
	}
	return sqlite.Open(path)
}
