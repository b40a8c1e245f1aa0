package healthscore

import "github.com/blackwell-systems/devpulse/internal/store"

// Breakdown is the pure result of scoring a machine's recommendations and
// patterns, before trend classification and persistence.
type Breakdown struct {
	Composite    int // 0-100, weighted sum of the sub-scores
	MCPScore     int // 0-100, applied share of mcp_server recommendations
	SkillScore   int // 0-100, applied share of skill recommendations
	ContextScore int // 0-100, applied share of context recommendations
	PatternScore int // 0-100, share of patterns with confidence >= HighConfidence

	Active    int
	Applied   int
	Dismissed int

	EstimatedWaste   int // tokens still recoverable from active recommendations
	EstimatedSavings int // tokens already recovered by applied recommendations
}

// Report is the read model for a machine's health.
type Report struct {
	Current  *store.HealthScore   `json:"current"`
	History  []*store.HealthScore `json:"history"`
	Insights []string             `json:"insights"`
}

// RecalculateResult is returned by a forced recalculation.
type RecalculateResult struct {
	Success bool               `json:"success"`
	Score   *store.HealthScore `json:"score"`
}
