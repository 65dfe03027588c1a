package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidSymbol is returned for blank or oversized ticker symbols.
var ErrInvalidSymbol = errors.New("invalid symbol")

const maxSymbolLength = 10

// CacheManager keeps provider answers as JSON files keyed by an md5 of the request.
type CacheManager struct {
	cacheDir     string
	ttl          time.Duration
	cacheEnabled bool
}

func NewCacheManager(cacheDir string, ttl time.Duration, cacheEnabled bool) *CacheManager {
	return &CacheManager{
		cacheDir:     cacheDir,
		ttl:          ttl,
		cacheEnabled: cacheEnabled && cacheDir != "",
	}
}

func (cm *CacheManager) cacheFile(source, method string, params any) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return filepath.Join(cm.cacheDir, fmt.Sprintf("%s_%s_%x.json", source, method, hash))
}

// Get decodes a fresh cache entry into result and reports whether one was found.
func (cm *CacheManager) Get(source, method string, params any, result any) bool {
	if cm == nil || !cm.cacheEnabled {
		return false
	}

	filePath := cm.cacheFile(source, method, params)
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > cm.ttl {
		_ = os.Remove(filePath)
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

func (cm *CacheManager) Set(source, method string, params any, data any) error {
	if cm == nil || !cm.cacheEnabled {
		return nil
	}
	return SaveDataToFile(data, cm.cacheFile(source, method, params))
}

// ValidateSymbol checks that a ticker is non-empty and short enough to be real.
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidSymbol)
	}
	if len(symbol) > maxSymbolLength {
		return fmt.Errorf("%w: symbol too long: %s", ErrInvalidSymbol, symbol)
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// SaveDataToFile writes data as indented JSON, creating parent directories.
func SaveDataToFile(data any, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, 0o644)
}
