package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionReport is the payload submitted for one finished session.
// Absent numeric fields decode as zero; an absent timestamp means
// "at ingestion time".
type SessionReport struct {
	MachineID        string     `json:"machineId"`
	SessionID        string     `json:"sessionId"`
	ProjectID        string     `json:"projectId,omitempty"`
	Duration         int        `json:"duration"`
	ToolsUsed        []string   `json:"toolsUsed"`
	CommandsRun      []string   `json:"commandsRun"`
	FilesAccessed    []string   `json:"filesAccessed"`
	Errors           []string   `json:"errors"`
	StartupTokens    int        `json:"startupTokens"`
	TotalTokens      int        `json:"totalTokens"`
	ToolTokens       int        `json:"toolTokens"`
	ContextTokens    int        `json:"contextTokens"`
	DetectedTechs    []string   `json:"detectedTechs"`
	DetectedPatterns []string   `json:"detectedPatterns"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
}

// Decode parses one JSON session report. Malformed JSON and type mismatches
// are reported as a *ValidationError so callers handle every rejected
// payload the same way. Decode does not run Validate.
func Decode(data []byte) (*SessionReport, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &ValidationError{Problems: []string{"empty payload"}}
	}

	var r SessionReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}

	return &r, nil
}

// timestampLayouts are the ISO-8601 forms accepted for "timestamp". Values
// without a zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 date or date-time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: want ISO-8601", s)
}

// UnmarshalJSON decodes a report, reading "timestamp" with ParseTimestamp.
func (r *SessionReport) UnmarshalJSON(data []byte) error {
	type plain SessionReport
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Timestamp = nil
	if aux.Timestamp == nil || strings.TrimSpace(*aux.Timestamp) == "" {
		return nil
	}
	ts, err := ParseTimestamp(*aux.Timestamp)
	if err != nil {
		return err
	}
	r.Timestamp = &ts
	return nil
}

// EventTime returns the report timestamp, or now when the report has none.
func (r *SessionReport) EventTime(now time.Time) time.Time {
	if r.Timestamp == nil || r.Timestamp.IsZero() {
		return now
	}
	return *r.Timestamp
}
