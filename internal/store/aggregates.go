package store

import (
	"context"
	"fmt"
)

// ListUsagePatterns returns every pattern aggregate for a machine, most
// frequent first.
func (s *Store) ListUsagePatterns(ctx context.Context, machineID string) ([]*UsagePattern, error) {
	query := `
		SELECT machine_id, pattern_type, occurrences, first_seen, last_seen, confidence, technologies
		FROM usage_patterns
		WHERE machine_id = ?
		ORDER BY occurrences DESC, pattern_type
	`

	rows, err := s.db.QueryContext(ctx, query, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns for %s: %w", machineID, checkInitialized(err))
	}
	defer rows.Close()

	var patterns []*UsagePattern
	for rows.Next() {
		var p UsagePattern
		var firstSeen, lastSeen, techs string

		err := rows.Scan(&p.MachineID, &p.PatternType, &p.Occurrences, &firstSeen, &lastSeen, &p.Confidence, &techs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern row: %w", err)
		}

		if p.FirstSeen, err = parseTime(firstSeen); err != nil {
			return nil, fmt.Errorf("failed to parse first_seen for pattern %s: %w", p.PatternType, err)
		}
		if p.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, fmt.Errorf("failed to parse last_seen for pattern %s: %w", p.PatternType, err)
		}
		if p.Technologies, err = unmarshalList(techs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal technologies for pattern %s: %w", p.PatternType, err)
		}

		patterns = append(patterns, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}
	rows.Close()

	projects, err := s.patternProjects(ctx, machineID)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		p.ProjectIDs = projects[p.PatternType]
		if p.ProjectIDs == nil {
			p.ProjectIDs = []string{}
		}
	}

	return patterns, nil
}

// GetUsagePattern returns one pattern aggregate.
func (s *Store) GetUsagePattern(ctx context.Context, machineID, patternType string) (*UsagePattern, error) {
	patterns, err := s.ListUsagePatterns(ctx, machineID)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if p.PatternType == patternType {
			return p, nil
		}
	}
	return nil, fmt.Errorf("pattern %s on machine %s: %w", patternType, machineID, ErrNotFound)
}

// patternProjects loads the project-id sets of all patterns on a machine.
func (s *Store) patternProjects(ctx context.Context, machineID string) (map[string][]string, error) {
	query := `
		SELECT pattern_type, project_id
		FROM pattern_projects
		WHERE machine_id = ?
		ORDER BY pattern_type, project_id
	`

	rows, err := s.db.QueryContext(ctx, query, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pattern projects for %s: %w", machineID, checkInitialized(err))
	}
	defer rows.Close()

	projects := make(map[string][]string)
	for rows.Next() {
		var patternType, projectID string
		if err := rows.Scan(&patternType, &projectID); err != nil {
			return nil, fmt.Errorf("failed to scan pattern project row: %w", err)
		}
		projects[patternType] = append(projects[patternType], projectID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern projects: %w", err)
	}

	return projects, nil
}

// ListTechnologyUsage returns every technology aggregate for a machine,
// most used first.
func (s *Store) ListTechnologyUsage(ctx context.Context, machineID string) ([]*TechnologyUsage, error) {
	query := `
		SELECT machine_id, technology, session_count, command_count, project_count, last_used
		FROM technology_usage
		WHERE machine_id = ?
		ORDER BY session_count DESC, technology
	`

	rows, err := s.db.QueryContext(ctx, query, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technologies for %s: %w", machineID, checkInitialized(err))
	}
	defer rows.Close()

	var techs []*TechnologyUsage
	for rows.Next() {
		var tu TechnologyUsage
		var lastUsed string

		err := rows.Scan(&tu.MachineID, &tu.Technology, &tu.SessionCount, &tu.CommandCount, &tu.ProjectCount, &lastUsed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan technology row: %w", err)
		}

		if tu.LastUsed, err = parseTime(lastUsed); err != nil {
			return nil, fmt.Errorf("failed to parse last_used for technology %s: %w", tu.Technology, err)
		}

		techs = append(techs, &tu)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating technologies: %w", err)
	}

	return techs, nil
}

// GetTechnologyUsage returns one technology aggregate.
func (s *Store) GetTechnologyUsage(ctx context.Context, machineID, technology string) (*TechnologyUsage, error) {
	techs, err := s.ListTechnologyUsage(ctx, machineID)
	if err != nil {
		return nil, err
	}
	for _, tu := range techs {
		if tu.Technology == technology {
			return tu, nil
		}
	}
	return nil, fmt.Errorf("technology %s on machine %s: %w", technology, machineID, ErrNotFound)
}
