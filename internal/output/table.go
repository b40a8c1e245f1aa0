// Package output provides terminal output utilities for devpulse.
//
// This package includes:
//   - Table rendering for machines, health scores, score history, usage
//     patterns, technologies and recommendations
//   - Progress bars for batch ingestion
//   - Spinners for indeterminate operations
//   - Human-readable formatting for token counts, dates and trends
//
// Tables use plain text columns; ANSI colors are added only when stdout is a
// terminal and NO_COLOR is unset. Progress indicators are safe for
// concurrent use.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/devpulse/internal/store"
)

// ANSI color codes for score and status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderMachineTable renders registered machines.
func RenderMachineTable(machines []*store.Machine) string {
	if len(machines) == 0 {
		return "No machines registered. Add one with 'devpulse machine add <name>'.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-36s  %-20s %-24s %s\n", "ID", "Name", "Hostname", "Registered"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, m := range machines {
		hostname := m.Hostname
		if hostname == "" {
			hostname = "—"
		}
		sb.WriteString(fmt.Sprintf("%-36s  %-20s %-24s %s\n",
			m.ID,
			truncate(m.Name, 20),
			truncate(hostname, 24),
			formatRelativeTime(m.CreatedAt)))
	}

	return sb.String()
}

// RenderHealthScore renders one snapshot with its sub-score breakdown and
// the insights derived from it.
func RenderHealthScore(hs *store.HealthScore, insights []string) string {
	if hs == nil {
		return "No health score available.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Health score: %s/100  %s\n",
		colorize(getScoreColor(hs.Composite), fmt.Sprintf("%d", hs.Composite)),
		formatTrendLabel(hs.Trend, hs.PreviousScore)))
	sb.WriteString(fmt.Sprintf("Calculated:   %s\n", formatRelativeTime(hs.Timestamp)))

	sb.WriteString("\nBreakdown:\n")
	rows := []struct {
		label  string
		score  int
		weight string
	}{
		{"MCP servers", hs.MCPScore, "35%"},
		{"Skills", hs.SkillScore, "30%"},
		{"Context", hs.ContextScore, "20%"},
		{"Patterns", hs.PatternScore, "15%"},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("  %-12s %s/100  (weight %s)\n",
			r.label, colorize(getScoreColor(r.score), fmt.Sprintf("%3d", r.score)), r.weight))
	}

	sb.WriteString(fmt.Sprintf("\nRecommendations: %d active · %d applied · %d dismissed\n",
		hs.ActiveRecommendations, hs.AppliedRecommendations, hs.DismissedRecommendations))
	sb.WriteString(fmt.Sprintf("Tokens:          %s recoverable · %s saved\n",
		formatTokens(hs.EstimatedWaste), formatTokens(hs.EstimatedSavings)))

	if len(insights) > 0 {
		sb.WriteString("\nInsights:\n")
		for _, insight := range insights {
			sb.WriteString("  • " + insight + "\n")
		}
	}

	return sb.String()
}

// RenderHistoryTable renders a snapshot series in the order given
// (oldest first from the store).
func RenderHistoryTable(scores []*store.HealthScore) string {
	if len(scores) == 0 {
		return "No health score history.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-20s %-6s %-5s %-6s %-8s %-9s %s\n",
		"ID", "Calculated", "Score", "MCP", "Skill", "Context", "Patterns", "Trend"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, hs := range scores {
		sb.WriteString(fmt.Sprintf("%-6d %-20s %-6d %-5d %-6d %-8d %-9d %s\n",
			hs.ID,
			hs.Timestamp.Local().Format("2006-01-02 15:04"),
			hs.Composite,
			hs.MCPScore,
			hs.SkillScore,
			hs.ContextScore,
			hs.PatternScore,
			formatTrend(hs.Trend)))
	}

	return sb.String()
}

// RenderPatternTable renders usage pattern aggregates.
// Note: Does not sort - expects patterns to be pre-sorted by caller.
func RenderPatternTable(patterns []*store.UsagePattern) string {
	if len(patterns) == 0 {
		return "No usage patterns recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-11s %-10s %-9s %-16s %s\n",
		"Pattern", "Occurrences", "Confidence", "Projects", "Last Seen", "Technologies"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, p := range patterns {
		techs := strings.Join(p.Technologies, ", ")
		if techs == "" {
			techs = "—"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-11d %-10s %-9d %-16s %s\n",
			truncate(p.PatternType, 24),
			p.Occurrences,
			fmt.Sprintf("%.2f", p.Confidence),
			len(p.ProjectIDs),
			formatRelativeTime(p.LastSeen),
			truncate(techs, 30)))
	}

	return sb.String()
}

// RenderTechnologyTable renders technology usage aggregates.
func RenderTechnologyTable(techs []*store.TechnologyUsage) string {
	if len(techs) == 0 {
		return "No technology usage recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %-9s %-9s %-9s %s\n",
		"Technology", "Sessions", "Commands", "Projects", "Last Used"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for _, tu := range techs {
		sb.WriteString(fmt.Sprintf("%-20s %-9d %-9d %-9d %s\n",
			truncate(tu.Technology, 20),
			tu.SessionCount,
			tu.CommandCount,
			tu.ProjectCount,
			formatRelativeTime(tu.LastUsed)))
	}

	return sb.String()
}

// RenderRecommendationTable renders a recommendation ledger.
func RenderRecommendationTable(recs []*store.Recommendation) string {
	if len(recs) == 0 {
		return "No recommendations.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-36s  %-11s %-10s %-8s %s\n",
		"ID", "Category", "Status", "Tokens", "Title"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, r := range recs {
		status := fmt.Sprintf("%-10s", r.Status)
		sb.WriteString(fmt.Sprintf("%-36s  %-11s %s %-8s %s\n",
			r.ID,
			r.Category,
			colorize(getStatusColor(r.Status), status),
			formatTokens(r.EstimatedTokenSavings),
			truncate(r.Title, 40)))
	}

	return sb.String()
}

// formatTokens renders a token count compactly (950, 12.3k, 1.2M).
func formatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// getScoreColor returns the ANSI color code for a 0-100 score.
func getScoreColor(score int) string {
	switch {
	case score >= 90:
		return colorGreen
	case score >= 50:
		return colorYellow
	default:
		return colorRed
	}
}

// getStatusColor returns the ANSI color code for a recommendation status.
func getStatusColor(status string) string {
	switch status {
	case store.StatusActive:
		return colorYellow
	case store.StatusApplied:
		return colorGreen
	default:
		return colorGray
	}
}

// formatTrend returns a visual representation of a score trend.
func formatTrend(trend string) string {
	switch trend {
	case store.TrendImproving:
		return "↑ improving"
	case store.TrendDeclining:
		return "↓ declining"
	case store.TrendStable:
		return "→ stable"
	default:
		return "—"
	}
}

// formatTrendLabel is formatTrend plus the previous score, when known.
func formatTrendLabel(trend string, previous *int) string {
	label := formatTrend(trend)
	if previous == nil {
		return label + " (first snapshot)"
	}
	return fmt.Sprintf("%s (was %d)", label, *previous)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
