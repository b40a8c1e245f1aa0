package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blackwell-systems/devpulse/internal/aggregator"
	"github.com/blackwell-systems/devpulse/internal/store"
	"github.com/blackwell-systems/devpulse/internal/telemetry"
)

// setupTestStore creates an in-memory SQLite store for tests and registers
// cleanup with t.Cleanup so callers don't need explicit defer.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("setupTestStore: open: %v", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		t.Fatalf("setupTestStore: schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// fakeIngester records sessions and fails on demand.
type fakeIngester struct {
	mu       sync.Mutex
	sessions []string
	failOn   string // session id that returns a storage error
}

func (f *fakeIngester) Ingest(_ context.Context, r *telemetry.SessionReport) (*aggregator.Result, error) {
	if err := telemetry.Validate(r); err != nil {
		return nil, err
	}
	if r.SessionID == f.failOn {
		return nil, errors.New("database is locked")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, r.SessionID)
	return &aggregator.Result{MachineID: r.MachineID, SessionID: r.SessionID}, nil
}

func (f *fakeIngester) ingested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sessions...)
}

// spoolPaths returns a spool and offset path inside a temp dir.
func spoolPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "sessions.jsonl"), filepath.Join(dir, "spool.offset")
}

// reportLine encodes a minimal report as one spool line.
func reportLine(t *testing.T, machineID, sessionID string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"machineId":        machineID,
		"sessionId":        sessionID,
		"detectedPatterns": []string{"refactor"},
		"detectedTechs":    []string{"go"},
	})
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	return string(data) + "\n"
}

func appendSpool(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open spool: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write spool: %v", err)
	}
}
