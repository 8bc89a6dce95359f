package domain

import "context"

// OracleScore is the prediction service's assessment of a hazard scenario.
type OracleScore struct {
	Probability float64  `json:"probability"`
	Confidence  float64  `json:"confidence"`
	Severity    Severity `json:"severity"`
	ModelID     string   `json:"model_id"`
}

// Scorer is the prediction-oracle collaborator. It sits off the critical
// ingestion path: implementations absorb upstream failure with a local
// rule-based estimate and never return ErrOracleUnavailable to callers.
type Scorer interface {
	Score(ctx context.Context, hazardType HazardType, loc Location, features map[string]float64) (OracleScore, error)
}
