package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Tx exposes the write operations that must run inside one transaction
// when a session is folded into the aggregates.
type Tx struct {
	tx *sql.Tx
}

// MachineExists reports whether a machine with the given ID is registered.
func (t *Tx) MachineExists(ctx context.Context, machineID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM machines WHERE id = ?`, machineID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up machine %s: %w", machineID, checkInitialized(err))
	}
	return n > 0, nil
}

// InsertSessionActivity appends the session record. It returns
// ErrDuplicateSession if the (machine, session) pair was already stored.
func (t *Tx) InsertSessionActivity(ctx context.Context, a *SessionActivity) error {
	lists := [][]string{a.ToolsUsed, a.CommandsRun, a.FilesAccessed, a.Errors, a.DetectedPatterns, a.DetectedTechs}
	encoded := make([]string, len(lists))
	for i, l := range lists {
		s, err := marshalList(l)
		if err != nil {
			return fmt.Errorf("failed to marshal session %s lists: %w", a.SessionID, err)
		}
		encoded[i] = s
	}

	query := `
		INSERT INTO session_activity
		(machine_id, session_id, project_id, duration, tools_used, commands_run, files_accessed, errors,
		 startup_tokens, total_tokens, tool_tokens, context_tokens, detected_patterns, detected_techs, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(machine_id, session_id) DO NOTHING
	`

	result, err := t.tx.ExecContext(ctx, query,
		a.MachineID,
		a.SessionID,
		nullString(a.ProjectID),
		a.Duration,
		encoded[0],
		encoded[1],
		encoded[2],
		encoded[3],
		a.StartupTokens,
		a.TotalTokens,
		a.ToolTokens,
		a.ContextTokens,
		encoded[4],
		encoded[5],
		formatTime(a.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", a.SessionID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s on machine %s: %w", a.SessionID, a.MachineID, ErrDuplicateSession)
	}

	return nil
}

// UpsertUsagePattern creates the (machine, pattern) row with one occurrence
// and full confidence, or increments an existing row in place. lastSeen never
// moves backwards; confidence and technologies are only set on creation.
func (t *Tx) UpsertUsagePattern(ctx context.Context, machineID, patternType string, technologies []string, at time.Time) error {
	techsJSON, err := marshalList(technologies)
	if err != nil {
		return fmt.Errorf("failed to marshal technologies for pattern %s: %w", patternType, err)
	}

	query := `
		INSERT INTO usage_patterns
		(machine_id, pattern_type, occurrences, first_seen, last_seen, confidence, technologies)
		VALUES (?, ?, 1, ?, ?, 1.0, ?)
		ON CONFLICT(machine_id, pattern_type) DO UPDATE SET
			occurrences = occurrences + 1,
			last_seen = max(last_seen, excluded.last_seen)
	`

	ts := formatTime(at)
	if _, err := t.tx.ExecContext(ctx, query, machineID, patternType, ts, ts, techsJSON); err != nil {
		return fmt.Errorf("failed to upsert pattern %s: %w", patternType, err)
	}

	return nil
}

// AddPatternProject adds projectID to the pattern's project set. Adding an
// existing member is a no-op.
func (t *Tx) AddPatternProject(ctx context.Context, machineID, patternType, projectID string) error {
	query := `
		INSERT OR IGNORE INTO pattern_projects (machine_id, pattern_type, project_id)
		VALUES (?, ?, ?)
	`

	if _, err := t.tx.ExecContext(ctx, query, machineID, patternType, projectID); err != nil {
		return fmt.Errorf("failed to add project %s to pattern %s: %w", projectID, patternType, err)
	}

	return nil
}

// UpsertTechnologyUsage creates the (machine, technology) row or increments
// the session and command counters of an existing one. projectCount is only
// set on creation.
func (t *Tx) UpsertTechnologyUsage(ctx context.Context, machineID, technology string, commandMatches int, hasProject bool, at time.Time) error {
	projectCount := 0
	if hasProject {
		projectCount = 1
	}

	query := `
		INSERT INTO technology_usage
		(machine_id, technology, session_count, command_count, project_count, last_used)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(machine_id, technology) DO UPDATE SET
			session_count = session_count + 1,
			command_count = command_count + excluded.command_count,
			last_used = max(last_used, excluded.last_used)
	`

	if _, err := t.tx.ExecContext(ctx, query, machineID, technology, commandMatches, projectCount, formatTime(at)); err != nil {
		return fmt.Errorf("failed to upsert technology %s: %w", technology, err)
	}

	return nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalList(data string) ([]string, error) {
	var list []string
	if data == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
