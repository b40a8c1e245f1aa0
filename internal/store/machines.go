package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertMachine registers a machine. A new UUID is assigned when m.ID is empty.
func (s *Store) InsertMachine(ctx context.Context, m *Machine) error {
	if m.Name == "" {
		return fmt.Errorf("machine name cannot be empty")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO machines (id, name, hostname, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, m.ID, m.Name, m.Hostname, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert machine %s: %w", m.Name, checkInitialized(err))
	}

	return nil
}

// GetMachine retrieves a machine by ID.
func (s *Store) GetMachine(ctx context.Context, id string) (*Machine, error) {
	query := `
		SELECT id, name, hostname, created_at
		FROM machines
		WHERE id = ?
	`

	var m Machine
	var hostname sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name, &hostname, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get machine %s: %w", id, checkInitialized(err))
	}

	m.Hostname = hostname.String
	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for machine %s: %w", id, err)
	}

	return &m, nil
}

// ListMachines returns all machines ordered by name.
func (s *Store) ListMachines(ctx context.Context) ([]*Machine, error) {
	query := `
		SELECT id, name, hostname, created_at
		FROM machines
		ORDER BY name, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", checkInitialized(err))
	}
	defer rows.Close()

	var machines []*Machine
	for rows.Next() {
		var m Machine
		var hostname sql.NullString
		var createdAt string

		if err := rows.Scan(&m.ID, &m.Name, &hostname, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan machine row: %w", err)
		}

		m.Hostname = hostname.String
		m.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at for machine %s: %w", m.ID, err)
		}

		machines = append(machines, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machines: %w", err)
	}

	return machines, nil
}

// DeleteMachine removes a machine and, by cascade, all of its data.
func (s *Store) DeleteMachine(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM machines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, checkInitialized(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}

	return nil
}

// GetCounts returns row counts for the main tables.
func (s *Store) GetCounts(ctx context.Context) (*Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dest  *int
	}{
		{"machines", &c.Machines},
		{"session_activity", &c.Sessions},
		{"usage_patterns", &c.Patterns},
		{"technology_usage", &c.Technologies},
		{"recommendations", &c.Recommendations},
		{"health_scores", &c.HealthScores},
	}

	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.table, checkInitialized(err))
		}
	}

	return &c, nil
}
