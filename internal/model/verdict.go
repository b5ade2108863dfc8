package model

// RiskTier is the coarse bucketing of the positive-class probability.
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// Verdict is the complete user-facing result of one prediction.
type Verdict struct {
	Prediction      int      `json:"prediction"`
	Probability     float64  `json:"probability"`
	RiskLevel       RiskTier `json:"risk_level"`
	TotalScore      int      `json:"total_score"`
	Recommendations []string `json:"recommendations"`
}
