package telemetry

import (
	"fmt"
	"strings"
	"unicode"
)

// TechMatcher decides whether a submitted command mentions a technology.
type TechMatcher interface {
	Matches(technology, command string) bool
}

// SubstringMatcher matches when the command contains the technology name,
// ignoring case. It is the default matcher.
type SubstringMatcher struct{}

// Matches implements TechMatcher.
func (SubstringMatcher) Matches(technology, command string) bool {
	if technology == "" {
		return false
	}
	return strings.Contains(strings.ToLower(command), strings.ToLower(technology))
}

// WordMatcher matches only when the technology appears as a whole token,
// ignoring case. "go" matches "go test ./..." but not "django-admin".
type WordMatcher struct{}

// Matches implements TechMatcher.
func (WordMatcher) Matches(technology, command string) bool {
	tech := strings.ToLower(strings.TrimSpace(technology))
	if tech == "" {
		return false
	}

	tokens := strings.FieldsFunc(strings.ToLower(command), isSeparator)
	techTokens := strings.FieldsFunc(tech, isSeparator)
	if len(techTokens) == 0 {
		return false
	}

	// Multi-token technologies ("docker compose") must appear as a run.
	for i := 0; i+len(techTokens) <= len(tokens); i++ {
		match := true
		for j, tt := range techTokens {
			if tokens[i+j] != tt {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// MatcherByName returns the matcher configured by name. An empty name
// selects the substring matcher.
func MatcherByName(name string) (TechMatcher, error) {
	switch strings.ToLower(name) {
	case "", "substring":
		return SubstringMatcher{}, nil
	case "word":
		return WordMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown technology matcher %q (want substring or word)", name)
	}
}

// CountMatches returns how many commands mention technology.
func CountMatches(m TechMatcher, technology string, commands []string) int {
	count := 0
	for _, cmd := range commands {
		if m.Matches(technology, cmd) {
			count++
		}
	}
	return count
}
