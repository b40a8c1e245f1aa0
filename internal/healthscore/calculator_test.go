package healthscore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/devpulse/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.CreateSchema())
	t.Cleanup(func() { st.Close() })
	return st
}

func addMachine(t *testing.T, st *store.Store) string {
	t.Helper()
	m := &store.Machine{Name: "workstation"}
	require.NoError(t, st.InsertMachine(context.Background(), m))
	return m.ID
}

// steppingClock returns a clock that advances one minute per call.
func steppingClock() func() time.Time {
	t := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func addRecs(t *testing.T, st *store.Store, machineID, category, status string, n, savings int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		r := &store.Recommendation{MachineID: machineID, Category: category, Title: category, EstimatedTokenSavings: savings}
		require.NoError(t, st.InsertRecommendation(ctx, r))
		if status != store.StatusActive {
			require.NoError(t, st.UpdateRecommendationStatus(ctx, r.ID, status))
		}
	}
}

func TestCurrent_EmptyMachineScoresPerfect(t *testing.T) {
	st := setupTestStore(t)
	machineID := addMachine(t, st)

	report, err := New(st).WithClock(steppingClock()).Current(context.Background(), machineID)
	require.NoError(t, err)

	hs := report.Current
	assert.Equal(t, 100, hs.Composite)
	assert.Equal(t, 100, hs.MCPScore)
	assert.Equal(t, 100, hs.SkillScore)
	assert.Equal(t, 100, hs.ContextScore)
	assert.Equal(t, 100, hs.PatternScore)
	assert.Equal(t, store.TrendStable, hs.Trend)
	assert.Nil(t, hs.PreviousScore)
	assert.Len(t, report.History, 1)
	assert.Equal(t, []string{BandExcellent}, report.Insights)
}

func TestCurrent_MixedLedger(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	machineID := addMachine(t, st)

	addRecs(t, st, machineID, store.CategoryMCPServer, store.StatusActive, 3, 1000)
	addRecs(t, st, machineID, store.CategoryMCPServer, store.StatusApplied, 1, 800)
	addRecs(t, st, machineID, store.CategorySkill, store.StatusApplied, 2, 200)

	err := st.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpsertUsagePattern(ctx, machineID, "refactor", nil, time.Now()); err != nil {
			return err
		}
		return tx.UpsertUsagePattern(ctx, machineID, "spike", nil, time.Now())
	})
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE usage_patterns SET confidence = 0.5 WHERE pattern_type = 'spike'`)
	require.NoError(t, err)

	report, err := New(st).Current(ctx, machineID)
	require.NoError(t, err)

	hs := report.Current
	assert.Equal(t, 25, hs.MCPScore)
	assert.Equal(t, 100, hs.SkillScore)
	assert.Equal(t, 75, hs.ContextScore)
	assert.Equal(t, 50, hs.PatternScore)
	assert.Equal(t, 61, hs.Composite)
	assert.Equal(t, 3, hs.ActiveRecommendations)
	assert.Equal(t, 3, hs.AppliedRecommendations)
	assert.Equal(t, 3000, hs.EstimatedWaste)
	assert.Equal(t, 1200, hs.EstimatedSavings)

	assert.Contains(t, report.Insights, BandModerate)
	assert.Contains(t, report.Insights, AdviceMCP)
}

func TestCurrent_DoesNotRecalculateWhenSnapshotExists(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	machineID := addMachine(t, st)
	calc := New(st).WithClock(steppingClock())

	first, err := calc.Current(ctx, machineID)
	require.NoError(t, err)

	// Ledger changes are not visible until a recalculation.
	addRecs(t, st, machineID, store.CategoryMCPServer, store.StatusActive, 1, 0)

	second, err := calc.Current(ctx, machineID)
	require.NoError(t, err)
	assert.Equal(t, first.Current.ID, second.Current.ID)
	assert.Len(t, second.History, 1)
}

func TestRecalculate_AppendsAndClassifiesTrend(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	machineID := addMachine(t, st)
	calc := New(st).WithClock(steppingClock())

	first, err := calc.Recalculate(ctx, machineID)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 100, first.Score.Composite)
	assert.Nil(t, first.Score.PreviousScore)

	addRecs(t, st, machineID, store.CategoryMCPServer, store.StatusActive, 2, 0)

	second, err := calc.Recalculate(ctx, machineID)
	require.NoError(t, err)
	require.NotNil(t, second.Score.PreviousScore)
	assert.Equal(t, 100, *second.Score.PreviousScore)
	assert.Equal(t, store.TrendDeclining, second.Score.Trend)

	third, err := calc.Recalculate(ctx, machineID)
	require.NoError(t, err)
	assert.Equal(t, store.TrendStable, third.Score.Trend)

	history, err := calc.History(ctx, machineID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, first.Score.ID, history[0].ID)
	assert.Equal(t, third.Score.ID, history[2].ID)
}

func TestCurrent_HistoryCappedAt30(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	machineID := addMachine(t, st)
	calc := New(st).WithClock(steppingClock())

	var last *RecalculateResult
	for i := 0; i < HistoryLimit+5; i++ {
		var err error
		last, err = calc.Recalculate(ctx, machineID)
		require.NoError(t, err)
	}

	report, err := calc.Current(ctx, machineID)
	require.NoError(t, err)
	assert.Len(t, report.History, HistoryLimit)
	assert.Equal(t, last.Score.ID, report.History[len(report.History)-1].ID)
	assert.Equal(t, last.Score.ID, report.Current.ID)
}

func TestCalculator_UnknownMachine(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	calc := New(st)

	_, err := calc.Current(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = calc.Recalculate(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	counts, err := st.GetCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.HealthScores)
}

func TestCalculator_DoesNotModifyRecommendations(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	machineID := addMachine(t, st)
	addRecs(t, st, machineID, store.CategorySkill, store.StatusActive, 2, 50)

	before, err := st.ListRecommendations(ctx, machineID)
	require.NoError(t, err)

	_, err = New(st).Recalculate(ctx, machineID)
	require.NoError(t, err)

	after, err := st.ListRecommendations(ctx, machineID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
