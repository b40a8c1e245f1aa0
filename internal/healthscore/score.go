package healthscore

import (
	"math"

	"github.com/blackwell-systems/devpulse/internal/store"
)

// Sub-score weights of the composite score. They sum to 1.
const (
	WeightMCP     = 0.35
	WeightSkill   = 0.30
	WeightContext = 0.20
	WeightPattern = 0.15
)

const (
	// HighConfidence is the minimum pattern confidence counted as well
	// established by the pattern sub-score.
	HighConfidence = 0.8

	// EmptyContextScore is the context sub-score when the machine has no
	// context recommendations but does have recommendations elsewhere.
	// A completely empty ledger still scores 100.
	EmptyContextScore = 75

	// TrendThreshold is the composite delta needed to leave "stable".
	TrendThreshold = 5
)

// categoryCounts tallies the recommendations that take part in ratios.
type categoryCounts struct {
	active  int
	applied int
}

func (c categoryCounts) total() int { return c.active + c.applied }

// Compute scores a machine from its recommendation ledger and pattern
// aggregates. Dismissed and expired recommendations only contribute to the
// dismissed count; they never enter a ratio.
func Compute(recs []*store.Recommendation, patterns []*store.UsagePattern) Breakdown {
	var b Breakdown
	counts := make(map[string]categoryCounts)

	for _, r := range recs {
		c := counts[r.Category]
		switch r.Status {
		case store.StatusActive:
			c.active++
			b.Active++
			b.EstimatedWaste += r.EstimatedTokenSavings
		case store.StatusApplied:
			c.applied++
			b.Applied++
			b.EstimatedSavings += r.EstimatedTokenSavings
		case store.StatusDismissed:
			b.Dismissed++
		}
		counts[r.Category] = c
	}

	b.MCPScore = appliedRatio(counts[store.CategoryMCPServer])
	b.SkillScore = appliedRatio(counts[store.CategorySkill])

	if counts[store.CategoryContext].total() == 0 && b.Active+b.Applied > 0 {
		b.ContextScore = EmptyContextScore
	} else {
		b.ContextScore = appliedRatio(counts[store.CategoryContext])
	}

	b.PatternScore = patternScore(patterns)

	b.Composite = int(math.Round(
		WeightMCP*float64(b.MCPScore) +
			WeightSkill*float64(b.SkillScore) +
			WeightContext*float64(b.ContextScore) +
			WeightPattern*float64(b.PatternScore),
	))

	return b
}

// appliedRatio is 100 for an empty category, else the applied percentage.
func appliedRatio(c categoryCounts) int {
	if c.total() == 0 {
		return 100
	}
	return int(math.Round(100 * float64(c.applied) / float64(c.total())))
}

func patternScore(patterns []*store.UsagePattern) int {
	if len(patterns) == 0 {
		return 100
	}
	high := 0
	for _, p := range patterns {
		if p.Confidence >= HighConfidence {
			high++
		}
	}
	return int(math.Round(100 * float64(high) / float64(len(patterns))))
}

// ClassifyTrend compares a composite score with the previous snapshot's.
// Without a previous snapshot the trend is stable.
func ClassifyTrend(previous *int, current int) string {
	if previous == nil {
		return store.TrendStable
	}
	diff := current - *previous
	switch {
	case diff >= TrendThreshold:
		return store.TrendImproving
	case diff <= -TrendThreshold:
		return store.TrendDeclining
	default:
		return store.TrendStable
	}
}
