// Package healthscore computes a machine's composite optimization health
// score, classifies its trend against the previous snapshot and derives
// human-readable insights from it.
package healthscore

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/devpulse/internal/store"
)

// HistoryLimit caps the number of snapshots returned by Current.
const HistoryLimit = 30

// Calculator reads the recommendation ledger and pattern aggregates and
// appends health score snapshots. It never modifies recommendations.
type Calculator struct {
	store *store.Store
	now   func() time.Time
}

// New creates a Calculator backed by st.
func New(st *store.Store) *Calculator {
	return &Calculator{store: st, now: time.Now}
}

// WithClock replaces the time source used to stamp snapshots.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// Current returns the latest snapshot, computing the first one if the
// machine has none, together with recent history and insights.
func (c *Calculator) Current(ctx context.Context, machineID string) (*Report, error) {
	if _, err := c.store.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}

	current, err := c.store.LatestHealthScore(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		if current, err = c.calculate(ctx, machineID); err != nil {
			return nil, err
		}
	}

	history, err := c.store.ListHealthScores(ctx, machineID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*store.HealthScore{}
	}

	return &Report{
		Current:  current,
		History:  history,
		Insights: Insights(current),
	}, nil
}

// Recalculate always computes and appends a fresh snapshot.
func (c *Calculator) Recalculate(ctx context.Context, machineID string) (*RecalculateResult, error) {
	if _, err := c.store.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}

	hs, err := c.calculate(ctx, machineID)
	if err != nil {
		return nil, err
	}

	return &RecalculateResult{Success: true, Score: hs}, nil
}

// History returns up to limit snapshots, oldest first.
func (c *Calculator) History(ctx context.Context, machineID string, limit int) ([]*store.HealthScore, error) {
	if _, err := c.store.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}
	return c.store.ListHealthScores(ctx, machineID, limit)
}

// calculate scores the machine and persists the snapshot as the last step,
// so a failed read never leaves a partial snapshot behind.
func (c *Calculator) calculate(ctx context.Context, machineID string) (*store.HealthScore, error) {
	recs, err := c.store.ListRecommendations(ctx, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendations: %w", err)
	}

	patterns, err := c.store.ListUsagePatterns(ctx, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage patterns: %w", err)
	}

	previous, err := c.store.LatestHealthScore(ctx, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous health score: %w", err)
	}

	b := Compute(recs, patterns)

	hs := &store.HealthScore{
		MachineID:                machineID,
		Composite:                b.Composite,
		MCPScore:                 b.MCPScore,
		SkillScore:               b.SkillScore,
		ContextScore:             b.ContextScore,
		PatternScore:             b.PatternScore,
		ActiveRecommendations:    b.Active,
		AppliedRecommendations:   b.Applied,
		DismissedRecommendations: b.Dismissed,
		EstimatedWaste:           b.EstimatedWaste,
		EstimatedSavings:         b.EstimatedSavings,
		Timestamp:                c.now(),
	}
	if previous != nil {
		prev := previous.Composite
		hs.PreviousScore = &prev
	}
	hs.Trend = ClassifyTrend(hs.PreviousScore, hs.Composite)

	if err := c.store.InsertHealthScore(ctx, hs); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"machine": machineID,
		"score":   hs.Composite,
		"trend":   hs.Trend,
	}).Debug("health score calculated")

	return hs, nil
}
