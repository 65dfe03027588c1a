package consts

const (
	// Alpha Vantage query functions
	FunctionSymbolSearch       = "SYMBOL_SEARCH"
	FunctionOverview           = "OVERVIEW"
	FunctionInsiderTransaction = "INSIDER_TRANSACTIONS"
	FunctionTimeSeriesDaily    = "TIME_SERIES_DAILY"

	// Data sources selectable from config
	SourceAlphaVantage = "alphavantage"
	SourceFinnhub      = "finnhub"
	SourceYahoo        = "yahoo"

	// Narrative providers
	NarrativeGemini    = "gemini"
	NarrativeGeminiSDK = "gemini-sdk"
	NarrativeOpenAI    = "openai"
	NarrativeDeepSeek  = "deepseek"

	// Only matches from this region are surfaced by symbol search
	SearchRegion = "United States"
)
