package store

import (
	"context"
	"database/sql"
	"fmt"
)

const healthScoreColumns = `
	id, machine_id, composite, mcp_score, skill_score, context_score, pattern_score,
	active_recommendations, applied_recommendations, dismissed_recommendations,
	estimated_waste, estimated_savings, previous_score, trend, created_at
`

// InsertHealthScore appends a snapshot and sets its ID. Snapshots are never
// updated or deleted afterwards.
func (s *Store) InsertHealthScore(ctx context.Context, hs *HealthScore) error {
	query := `
		INSERT INTO health_scores
		(machine_id, composite, mcp_score, skill_score, context_score, pattern_score,
		 active_recommendations, applied_recommendations, dismissed_recommendations,
		 estimated_waste, estimated_savings, previous_score, trend, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var previous sql.NullInt64
	if hs.PreviousScore != nil {
		previous = sql.NullInt64{Int64: int64(*hs.PreviousScore), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		hs.MachineID,
		hs.Composite,
		hs.MCPScore,
		hs.SkillScore,
		hs.ContextScore,
		hs.PatternScore,
		hs.ActiveRecommendations,
		hs.AppliedRecommendations,
		hs.DismissedRecommendations,
		hs.EstimatedWaste,
		hs.EstimatedSavings,
		previous,
		hs.Trend,
		formatTime(hs.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert health score for %s: %w", hs.MachineID, checkInitialized(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get health score ID: %w", err)
	}
	hs.ID = id

	return nil
}

// LatestHealthScore returns the newest snapshot for a machine, or nil if
// none exists yet.
func (s *Store) LatestHealthScore(ctx context.Context, machineID string) (*HealthScore, error) {
	query := `SELECT ` + healthScoreColumns + `
		FROM health_scores
		WHERE machine_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	hs, err := scanHealthScore(s.db.QueryRowContext(ctx, query, machineID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest health score for %s: %w", machineID, checkInitialized(err))
	}

	return hs, nil
}

// ListHealthScores returns up to limit of the newest snapshots for a machine,
// ordered oldest to newest. A limit <= 0 returns the whole series.
func (s *Store) ListHealthScores(ctx context.Context, machineID string, limit int) ([]*HealthScore, error) {
	query := `SELECT ` + healthScoreColumns + `
		FROM health_scores
		WHERE machine_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []any{machineID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list health scores for %s: %w", machineID, checkInitialized(err))
	}
	defer rows.Close()

	var scores []*HealthScore
	for rows.Next() {
		hs, err := scanHealthScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health score row: %w", err)
		}
		scores = append(scores, hs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating health scores: %w", err)
	}

	// Fetched newest first so LIMIT keeps the most recent; flip to oldest first.
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}

	return scores, nil
}

func scanHealthScore(row rowScanner) (*HealthScore, error) {
	var hs HealthScore
	var previous sql.NullInt64
	var createdAt string

	err := row.Scan(
		&hs.ID,
		&hs.MachineID,
		&hs.Composite,
		&hs.MCPScore,
		&hs.SkillScore,
		&hs.ContextScore,
		&hs.PatternScore,
		&hs.ActiveRecommendations,
		&hs.AppliedRecommendations,
		&hs.DismissedRecommendations,
		&hs.EstimatedWaste,
		&hs.EstimatedSavings,
		&previous,
		&hs.Trend,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if previous.Valid {
		p := int(previous.Int64)
		hs.PreviousScore = &p
	}
	if hs.Timestamp, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for health score %d: %w", hs.ID, err)
	}

	return &hs, nil
}
