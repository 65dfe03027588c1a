package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dyike/StockPulse/consts"
)

type Config struct {
	ProjectDir    string `json:"project_dir"`
	ResultsDir    string `json:"results_dir"`
	DataDir       string `json:"data_dir"`
	DataCacheDir  string `json:"data_cache_dir"`
	HistoryDBPath string `json:"history_db_path"`

	// Market data provider
	AlphaVantageAPIKey  string `json:"alphavantage_api_key"`
	AlphaVantageBaseURL string `json:"alphavantage_base_url"`
	ProviderRateLimit   int    `json:"provider_rate_limit"` // requests per minute, 0 disables
	HTTPTimeoutSeconds  int    `json:"http_timeout_seconds"`
	CacheEnabled        bool   `json:"cache_enabled"`

	// Alternate sources
	FinnhubAPIKey string `json:"finnhub_api_key"`
	InsiderSource string `json:"insider_source"`
	PriceSource   string `json:"price_source"`

	// Narrative generation
	NarrativeProvider string `json:"narrative_provider"`
	GeminiAPIKey      string `json:"gemini_api_key"`
	GeminiModel       string `json:"gemini_model"`
	GeminiBaseURL     string `json:"gemini_base_url"`
	OpenAIAPIKey      string `json:"openai_api_key"`
	OpenAIBaseURL     string `json:"openai_base_url"`
	OpenAIModel       string `json:"openai_model"`
	DeepSeekAPIKey    string `json:"deepseek_api_key"`
	DeepSeekModel     string `json:"deepseek_model"`

	SearchDebounceMillis int `json:"search_debounce_ms"`

	LogLevel  string `json:"log_level"`
	LogPretty bool   `json:"log_pretty"`
	Debug     bool   `json:"debug"`
}

// DefaultConfig returns defaults rooted at the working directory, overridden
// by .env and the process environment.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	LoadDotEnv()
	cfg.LoadFromEnv()
	return cfg
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win; missing files are ignored.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// DefaultConfigWithRoot returns defaults rooted at root without consulting the environment.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:    root,
		ResultsDir:    filepath.Join(root, "results"),
		DataDir:       filepath.Join(root, "data"),
		DataCacheDir:  filepath.Join(root, "data", "cache"),
		HistoryDBPath: filepath.Join(root, "data", "history.db"),

		AlphaVantageBaseURL: "https://www.alphavantage.co/query",
		ProviderRateLimit:   5,
		HTTPTimeoutSeconds:  30,
		CacheEnabled:        true,

		InsiderSource: consts.SourceAlphaVantage,
		PriceSource:   consts.SourceAlphaVantage,

		NarrativeProvider: consts.NarrativeGemini,
		GeminiModel:       "gemini-1.5-flash",
		GeminiBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIModel:       "gpt-4o-mini",
		DeepSeekModel:     "deepseek-chat",

		SearchDebounceMillis: 1000,

		LogLevel:  "info",
		LogPretty: true,
	}
}

// LoadFromEnv overrides fields with environment variables when they are set.
func (c *Config) LoadFromEnv() {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.Atoi(val); err == nil {
				*dst = v
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.ParseBool(val); err == nil {
				*dst = v
			}
		}
	}

	setString("PROJECT_DIR", &c.ProjectDir)
	setString("STOCKPULSE_RESULTS_DIR", &c.ResultsDir)
	setString("STOCKPULSE_DATA_DIR", &c.DataDir)
	setString("STOCKPULSE_CACHE_DIR", &c.DataCacheDir)
	setString("STOCKPULSE_HISTORY_DB", &c.HistoryDBPath)
	setBool("CACHE_ENABLED", &c.CacheEnabled)

	setString("ALPHAVANTAGE_API_KEY", &c.AlphaVantageAPIKey)
	setString("ALPHAVANTAGE_BASE_URL", &c.AlphaVantageBaseURL)
	setInt("PROVIDER_RATE_LIMIT", &c.ProviderRateLimit)
	setInt("HTTP_TIMEOUT", &c.HTTPTimeoutSeconds)

	setString("FINNHUB_API_KEY", &c.FinnhubAPIKey)
	setString("INSIDER_SOURCE", &c.InsiderSource)
	setString("PRICE_SOURCE", &c.PriceSource)

	setString("NARRATIVE_PROVIDER", &c.NarrativeProvider)
	setString("GEMINI_API_KEY", &c.GeminiAPIKey)
	setString("GEMINI_MODEL", &c.GeminiModel)
	setString("GEMINI_BASE_URL", &c.GeminiBaseURL)
	setString("OPENAI_API_KEY", &c.OpenAIAPIKey)
	setString("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	setString("OPENAI_MODEL", &c.OpenAIModel)
	setString("DEEPSEEK_API_KEY", &c.DeepSeekAPIKey)
	setString("DEEPSEEK_MODEL", &c.DeepSeekModel)

	setInt("SEARCH_DEBOUNCE", &c.SearchDebounceMillis)

	setString("LOG_LEVEL", &c.LogLevel)
	setBool("LOG_PRETTY", &c.LogPretty)
	setBool("STOCKPULSE_DEBUG", &c.Debug)
}

// Validate rejects values that would make the pipeline misbehave.
func (c Config) Validate() error {
	switch c.InsiderSource {
	case consts.SourceAlphaVantage, consts.SourceFinnhub:
	default:
		return fmt.Errorf("invalid insider_source %q", c.InsiderSource)
	}
	switch c.PriceSource {
	case consts.SourceAlphaVantage, consts.SourceYahoo:
	default:
		return fmt.Errorf("invalid price_source %q", c.PriceSource)
	}
	switch c.NarrativeProvider {
	case consts.NarrativeGemini, consts.NarrativeGeminiSDK, consts.NarrativeOpenAI, consts.NarrativeDeepSeek:
	default:
		return fmt.Errorf("invalid narrative_provider %q", c.NarrativeProvider)
	}
	if c.ProviderRateLimit < 0 {
		return fmt.Errorf("provider_rate_limit must not be negative")
	}
	if c.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("http_timeout_seconds must not be negative")
	}
	if c.SearchDebounceMillis < 0 {
		return fmt.Errorf("search_debounce_ms must not be negative")
	}
	return nil
}

// HTTPTimeout is the per-request timeout handed to the HTTP clients.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// SearchDebounce is the quiet period of incremental symbol search.
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMillis) * time.Millisecond
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	if c.HistoryDBPath != "" {
		dirs = append(dirs, filepath.Dir(c.HistoryDBPath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
