package healthscore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blackwell-systems/devpulse/internal/store"
)

func TestInsights_Bands(t *testing.T) {
	tests := []struct {
		composite int
		want      string
	}{
		{100, BandExcellent},
		{90, BandExcellent},
		{89, BandGood},
		{70, BandGood},
		{69, BandModerate},
		{50, BandModerate},
		{49, BandSignificant},
		{0, BandSignificant},
	}

	for _, tt := range tests {
		hs := &store.HealthScore{Composite: tt.composite, MCPScore: 100, SkillScore: 100, ContextScore: 100}
		got := Insights(hs)
		assert.Equal(t, []string{tt.want}, got, "composite %d", tt.composite)
	}
}

func TestInsights_AllRulesInOrder(t *testing.T) {
	hs := &store.HealthScore{
		Composite:             30,
		MCPScore:              10,
		SkillScore:            49,
		ContextScore:          0,
		EstimatedWaste:        25000,
		ActiveRecommendations: 7,
	}

	assert.Equal(t, []string{
		BandSignificant,
		AdviceMCP,
		AdviceSkill,
		AdviceContext,
		"Applying the active recommendations could save an estimated 25000 tokens.",
		"You have 7 active recommendations to review.",
	}, Insights(hs))
}

func TestInsights_WasteThresholdIsExclusive(t *testing.T) {
	hs := &store.HealthScore{Composite: 95, MCPScore: 100, SkillScore: 100, ContextScore: 100, EstimatedWaste: WasteThreshold}
	assert.Equal(t, []string{BandExcellent}, Insights(hs))
}

func TestInsights_SingleActiveRecommendation(t *testing.T) {
	hs := &store.HealthScore{Composite: 95, MCPScore: 100, SkillScore: 100, ContextScore: 100, ActiveRecommendations: 1}
	assert.Contains(t, Insights(hs), "You have 1 active recommendation to review.")
}

func TestInsights_Deterministic(t *testing.T) {
	hs := &store.HealthScore{Composite: 61, MCPScore: 25, SkillScore: 100, ContextScore: 75, EstimatedWaste: 12000, ActiveRecommendations: 3}
	assert.Equal(t, Insights(hs), Insights(hs))
}

func TestInsights_Nil(t *testing.T) {
	assert.Empty(t, Insights(nil))
}
