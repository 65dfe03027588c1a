package consts

const (
	NotAvailable         = "N/A"
	NoInsiderActivity    = "No recent insider transactions."
	MissingComparison    = "Cannot perform full comparison due to missing data."
	AnalyzingPlaceholder = "Analyzing..."
	NoRecommendation     = "Recommendation unavailable."
)

const (
	State_Idle      = "idle"
	State_Analyzing = "analyzing"
	State_Done      = "done"
)
