// Package config provides configuration file parsing for devpulse.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the devpulse config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/devpulse if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "devpulse"), nil
}

// AliasConfig maps alternate technology names reported by tools onto the
// canonical name the aggregates are keyed by (golang=go, k8s=kubernetes).
// Keys and values are stored lower-cased.
type AliasConfig struct {
	Aliases map[string]string
}

// LoadAliases reads the aliases file at {dir}/aliases and returns the parsed
// config. If the file does not exist, an empty config is returned without an
// error. Invalid or malformed lines are silently skipped.
func LoadAliases(dir string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		Aliases: make(map[string]string),
	}

	f, err := os.Open(filepath.Join(dir, "aliases"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		alias, canonical, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		alias = strings.ToLower(strings.TrimSpace(alias))
		canonical = strings.ToLower(strings.TrimSpace(canonical))
		if alias == "" || canonical == "" {
			continue
		}

		cfg.Aliases[alias] = canonical
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Canonical returns the canonical name for technology, or technology itself
// when no alias is declared. A nil config maps every name to itself.
func (c *AliasConfig) Canonical(technology string) string {
	if c == nil {
		return technology
	}
	if canonical, ok := c.Aliases[technology]; ok {
		return canonical
	}
	return technology
}
