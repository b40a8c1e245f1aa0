package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertRecommendation adds a recommendation to the ledger. New entries
// default to the active status and get a UUID when r.ID is empty.
func (s *Store) InsertRecommendation(ctx context.Context, r *Recommendation) error {
	if !IsValidCategory(r.Category) {
		return fmt.Errorf("invalid recommendation category: %q", r.Category)
	}
	if r.EstimatedTokenSavings < 0 {
		return fmt.Errorf("estimated token savings cannot be negative: %d", r.EstimatedTokenSavings)
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = r.CreatedAt

	query := `
		INSERT INTO recommendations
		(id, machine_id, category, status, title, description, estimated_token_savings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.MachineID,
		r.Category,
		r.Status,
		r.Title,
		r.Description,
		r.EstimatedTokenSavings,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation %s: %w", r.Title, checkInitialized(err))
	}

	return nil
}

// GetRecommendation retrieves a recommendation by ID.
func (s *Store) GetRecommendation(ctx context.Context, id string) (*Recommendation, error) {
	query := `
		SELECT id, machine_id, category, status, title, description, estimated_token_savings, created_at, updated_at
		FROM recommendations
		WHERE id = ?
	`

	r, err := scanRecommendation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation %s: %w", id, checkInitialized(err))
	}

	return r, nil
}

// ListRecommendations returns every recommendation for a machine regardless
// of status, oldest first.
func (s *Store) ListRecommendations(ctx context.Context, machineID string) ([]*Recommendation, error) {
	query := `
		SELECT id, machine_id, category, status, title, description, estimated_token_savings, created_at, updated_at
		FROM recommendations
		WHERE machine_id = ?
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations for %s: %w", machineID, checkInitialized(err))
	}
	defer rows.Close()

	var recs []*Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recs = append(recs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}

	return recs, nil
}

// UpdateRecommendationStatus moves an active recommendation to status.
// Terminal recommendations cannot change again.
func (s *Store) UpdateRecommendationStatus(ctx context.Context, id, status string) error {
	if !IsTerminalStatus(status) {
		return fmt.Errorf("%w: cannot move to %q", ErrInvalidTransition, status)
	}

	query := `
		UPDATE recommendations
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, formatTime(time.Now()), id, StatusActive)
	if err != nil {
		return fmt.Errorf("failed to update recommendation %s: %w", id, checkInitialized(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing updated: either unknown or already terminal.
	current, err := s.GetRecommendation(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: recommendation %s is %s", ErrInvalidTransition, id, current.Status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (*Recommendation, error) {
	var r Recommendation
	var description sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&r.ID,
		&r.MachineID,
		&r.Category,
		&r.Status,
		&r.Title,
		&description,
		&r.EstimatedTokenSavings,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Description = description.String
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for recommendation %s: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at for recommendation %s: %w", r.ID, err)
	}

	return &r, nil
}
