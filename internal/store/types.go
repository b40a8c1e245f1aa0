package store

import "time"

// Machine is a registered developer machine that reports sessions.
type Machine struct {
	ID        string
	Name      string
	Hostname  string
	CreatedAt time.Time
}

// SessionActivity is the append-only record of one ingested session.
type SessionActivity struct {
	ID               int64
	MachineID        string
	SessionID        string
	ProjectID        string // empty when the session had no project
	Duration         int    // seconds
	ToolsUsed        []string
	CommandsRun      []string
	FilesAccessed    []string
	Errors           []string
	StartupTokens    int
	TotalTokens      int
	ToolTokens       int
	ContextTokens    int
	DetectedPatterns []string
	DetectedTechs    []string
	Timestamp        time.Time
}

// UsagePattern is the rolling aggregate for one (machine, pattern type).
type UsagePattern struct {
	MachineID    string
	PatternType  string
	Occurrences  int
	FirstSeen    time.Time
	LastSeen     time.Time
	Confidence   float64  // 0.0-1.0, fixed when the row is created
	ProjectIDs   []string // set, sorted
	Technologies []string // ordered as first reported
}

// TechnologyUsage is the rolling aggregate for one (machine, technology).
type TechnologyUsage struct {
	MachineID    string
	Technology   string
	SessionCount int
	CommandCount int
	ProjectCount int
	LastUsed     time.Time
}

// Recommendation categories.
const (
	CategoryMCPServer = "mcp_server"
	CategorySkill     = "skill"
	CategoryContext   = "context"
	CategoryHook      = "hook"
	CategoryCommand   = "command"
)

// Recommendation statuses. Applied, dismissed and expired are terminal.
const (
	StatusActive    = "active"
	StatusApplied   = "applied"
	StatusDismissed = "dismissed"
	StatusExpired   = "expired"
)

// Recommendation is one optimization suggestion in the ledger.
type Recommendation struct {
	ID                    string
	MachineID             string
	Category              string
	Status                string
	Title                 string
	Description           string
	EstimatedTokenSavings int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Trend values for a health score relative to the previous snapshot.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// HealthScore is one immutable health score snapshot.
type HealthScore struct {
	ID                       int64     `json:"id"`
	MachineID                string    `json:"machineId"`
	Composite                int       `json:"composite"`
	MCPScore                 int       `json:"mcpScore"`
	SkillScore               int       `json:"skillScore"`
	ContextScore             int       `json:"contextScore"`
	PatternScore             int       `json:"patternScore"`
	ActiveRecommendations    int       `json:"activeRecommendations"`
	AppliedRecommendations   int       `json:"appliedRecommendations"`
	DismissedRecommendations int       `json:"dismissedRecommendations"`
	EstimatedWaste           int       `json:"estimatedWaste"`
	EstimatedSavings         int       `json:"estimatedSavings"`
	PreviousScore            *int      `json:"previousScore"`
	Trend                    string    `json:"trend"`
	Timestamp                time.Time `json:"timestamp"`
}

// Counts summarizes table sizes for status output.
type Counts struct {
	Machines        int
	Sessions        int
	Patterns        int
	Technologies    int
	Recommendations int
	HealthScores    int
}

// IsValidCategory reports whether category is a known recommendation category.
func IsValidCategory(category string) bool {
	switch category {
	case CategoryMCPServer, CategorySkill, CategoryContext, CategoryHook, CategoryCommand:
		return true
	}
	return false
}

// IsTerminalStatus reports whether no further transition is allowed from status.
func IsTerminalStatus(status string) bool {
	return status == StatusApplied || status == StatusDismissed || status == StatusExpired
}
