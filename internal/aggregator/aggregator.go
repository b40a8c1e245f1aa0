// Package aggregator folds validated session reports into the per-machine
// usage-pattern and technology-usage aggregates.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/devpulse/internal/config"
	"github.com/blackwell-systems/devpulse/internal/store"
	"github.com/blackwell-systems/devpulse/internal/telemetry"
)

// Aggregator ingests session reports. It holds no mutable state of its own;
// concurrent Ingest calls coordinate through the store's transactions.
type Aggregator struct {
	store   *store.Store
	matcher telemetry.TechMatcher
	aliases *config.AliasConfig
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMatcher replaces the default substring technology matcher.
func WithMatcher(m telemetry.TechMatcher) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.matcher = m
		}
	}
}

// WithAliases canonicalizes technology tags before they are counted.
func WithAliases(aliases *config.AliasConfig) Option {
	return func(a *Aggregator) {
		a.aliases = aliases
	}
}

// WithClock sets the time source used for reports without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator backed by st.
func New(st *store.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:   st,
		matcher: telemetry.SubstringMatcher{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result describes what one accepted session contributed.
type Result struct {
	MachineID    string
	SessionID    string
	Patterns     []string
	Technologies []string
	Timestamp    time.Time
}

// Ingest validates r and, in a single transaction, records the session and
// updates every pattern and technology aggregate it mentions.
//
// A *telemetry.ValidationError is returned for malformed reports,
// store.ErrNotFound for unknown machines and store.ErrDuplicateSession for a
// session that was already ingested. In every error case nothing is written.
func (a *Aggregator) Ingest(ctx context.Context, r *telemetry.SessionReport) (*Result, error) {
	if err := telemetry.Validate(r); err != nil {
		return nil, err
	}

	res := &Result{
		MachineID:    r.MachineID,
		SessionID:    r.SessionID,
		Patterns:     normalizePatterns(r.DetectedPatterns),
		Technologies: a.normalizeTechnologies(r.DetectedTechs),
		Timestamp:    r.EventTime(a.now()),
	}

	err := a.store.WithTx(ctx, func(tx *store.Tx) error {
		exists, err := tx.MachineExists(ctx, r.MachineID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("machine %s: %w", r.MachineID, store.ErrNotFound)
		}

		activity := &store.SessionActivity{
			MachineID:        r.MachineID,
			SessionID:        r.SessionID,
			ProjectID:        r.ProjectID,
			Duration:         r.Duration,
			ToolsUsed:        r.ToolsUsed,
			CommandsRun:      r.CommandsRun,
			FilesAccessed:    r.FilesAccessed,
			Errors:           r.Errors,
			StartupTokens:    r.StartupTokens,
			TotalTokens:      r.TotalTokens,
			ToolTokens:       r.ToolTokens,
			ContextTokens:    r.ContextTokens,
			DetectedPatterns: res.Patterns,
			DetectedTechs:    res.Technologies,
			Timestamp:        res.Timestamp,
		}
		if err := tx.InsertSessionActivity(ctx, activity); err != nil {
			return err
		}

		for _, pattern := range res.Patterns {
			if err := tx.UpsertUsagePattern(ctx, r.MachineID, pattern, res.Technologies, res.Timestamp); err != nil {
				return err
			}
			if r.ProjectID != "" {
				if err := tx.AddPatternProject(ctx, r.MachineID, pattern, r.ProjectID); err != nil {
					return err
				}
			}
		}

		for _, tech := range res.Technologies {
			matches := telemetry.CountMatches(a.matcher, tech, r.CommandsRun)
			if err := tx.UpsertTechnologyUsage(ctx, r.MachineID, tech, matches, r.ProjectID != "", res.Timestamp); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"machine":      r.MachineID,
		"session":      r.SessionID,
		"patterns":     len(res.Patterns),
		"technologies": len(res.Technologies),
	}).Debug("session ingested")

	return res, nil
}

// normalizePatterns trims tags, drops empty ones and collapses duplicates,
// keeping first-seen order.
func normalizePatterns(tags []string) []string {
	return dedup(tags, strings.TrimSpace)
}

// normalizeTechnologies is normalizePatterns plus lower-casing and alias
// resolution, so "Golang" and "go" count as one technology.
func (a *Aggregator) normalizeTechnologies(tags []string) []string {
	return dedup(tags, func(tag string) string {
		return a.aliases.Canonical(strings.ToLower(strings.TrimSpace(tag)))
	})
}

func dedup(tags []string, normalize func(string) string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = normalize(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
