package healthscore

import (
	"fmt"

	"github.com/blackwell-systems/devpulse/internal/store"
)

// Band messages, one per composite score range.
const (
	BandExcellent   = "Excellent optimization: your setup is running efficiently."
	BandGood        = "Good optimization, with room for improvement."
	BandModerate    = "Moderate optimization: several improvements are available."
	BandSignificant = "Significant optimization opportunities detected."
)

// Category advisories.
const (
	AdviceMCP     = "MCP server configuration needs attention: review the active MCP server recommendations."
	AdviceSkill   = "Few suggested skills are in use: applying them can cut repeated instructions."
	AdviceContext = "Context usage is inefficient: trimming startup context reduces per-session token overhead."
)

// WasteThreshold is the estimated token waste above which a savings
// advisory is emitted.
const WasteThreshold = 10000

// Insights returns the advisories for a snapshot, in a fixed order.
// It is pure: the same snapshot always yields the same list.
func Insights(hs *store.HealthScore) []string {
	if hs == nil {
		return []string{}
	}

	insights := []string{bandMessage(hs.Composite)}

	if hs.MCPScore < 50 {
		insights = append(insights, AdviceMCP)
	}
	if hs.SkillScore < 50 {
		insights = append(insights, AdviceSkill)
	}
	if hs.ContextScore < 50 {
		insights = append(insights, AdviceContext)
	}
	if hs.EstimatedWaste > WasteThreshold {
		insights = append(insights, fmt.Sprintf("Applying the active recommendations could save an estimated %d tokens.", hs.EstimatedWaste))
	}
	if hs.ActiveRecommendations > 0 {
		noun := "recommendations"
		if hs.ActiveRecommendations == 1 {
			noun = "recommendation"
		}
		insights = append(insights, fmt.Sprintf("You have %d active %s to review.", hs.ActiveRecommendations, noun))
	}

	return insights
}

func bandMessage(composite int) string {
	switch {
	case composite >= 90:
		return BandExcellent
	case composite >= 70:
		return BandGood
	case composite >= 50:
		return BandModerate
	default:
		return BandSignificant
	}
}
