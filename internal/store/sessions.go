package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListSessions returns the most recent sessions for a machine, newest first.
// A limit <= 0 returns every session.
func (s *Store) ListSessions(ctx context.Context, machineID string, limit int) ([]*SessionActivity, error) {
	query := `
		SELECT id, machine_id, session_id, project_id, duration, tools_used, commands_run, files_accessed,
		       errors, startup_tokens, total_tokens, tool_tokens, context_tokens, detected_patterns,
		       detected_techs, timestamp
		FROM session_activity
		WHERE machine_id = ?
		ORDER BY timestamp DESC, id DESC
	`
	args := []any{machineID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for %s: %w", machineID, checkInitialized(err))
	}
	defer rows.Close()

	var sessions []*SessionActivity
	for rows.Next() {
		var a SessionActivity
		var projectID sql.NullString
		var tools, commands, files, errs, patterns, techs, timestamp string

		err := rows.Scan(
			&a.ID,
			&a.MachineID,
			&a.SessionID,
			&projectID,
			&a.Duration,
			&tools,
			&commands,
			&files,
			&errs,
			&a.StartupTokens,
			&a.TotalTokens,
			&a.ToolTokens,
			&a.ContextTokens,
			&patterns,
			&techs,
			&timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}

		a.ProjectID = projectID.String
		a.Timestamp, err = parseTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp for session %s: %w", a.SessionID, err)
		}

		targets := []struct {
			raw  string
			dest *[]string
		}{
			{tools, &a.ToolsUsed},
			{commands, &a.CommandsRun},
			{files, &a.FilesAccessed},
			{errs, &a.Errors},
			{patterns, &a.DetectedPatterns},
			{techs, &a.DetectedTechs},
		}
		for _, t := range targets {
			list, err := unmarshalList(t.raw)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal lists for session %s: %w", a.SessionID, err)
			}
			*t.dest = list
		}

		sessions = append(sessions, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// CountSessions returns the number of sessions ingested for a machine.
func (s *Store) CountSessions(ctx context.Context, machineID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_activity WHERE machine_id = ?`, machineID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions for %s: %w", machineID, checkInitialized(err))
	}
	return count, nil
}
