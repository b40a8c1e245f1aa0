package telemetry

import (
	"strings"
)

// ValidationError lists every problem found in a session report.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid session report: " + strings.Join(e.Problems, "; ")
}

// Validate checks the structural rules of a report and returns a
// *ValidationError naming every violated field, or nil.
func Validate(r *SessionReport) error {
	if r == nil {
		return &ValidationError{Problems: []string{"report is missing"}}
	}

	var problems []string

	if strings.TrimSpace(r.MachineID) == "" {
		problems = append(problems, "machineId is required")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		problems = append(problems, "sessionId is required")
	}

	counters := []struct {
		name  string
		value int
	}{
		{"duration", r.Duration},
		{"startupTokens", r.StartupTokens},
		{"totalTokens", r.TotalTokens},
		{"toolTokens", r.ToolTokens},
		{"contextTokens", r.ContextTokens},
	}
	for _, c := range counters {
		if c.value < 0 {
			problems = append(problems, c.name+" must not be negative")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
