package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestInsertSessionActivity_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := newTestMachine(t, store, "laptop")

	session := &SessionActivity{
		MachineID:   id,
		SessionID:   "s-1",
		ProjectID:   "proj",
		Duration:    120,
		CommandsRun: []string{"go test ./..."},
		TotalTokens: 4000,
		Timestamp:   time.Now(),
	}

	insert := func() error {
		return store.WithTx(ctx, func(tx *Tx) error {
			return tx.InsertSessionActivity(ctx, session)
		})
	}

	if err := insert(); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := insert(); !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("second insert error = %v, want ErrDuplicateSession", err)
	}

	sessions, err := store.ListSessions(ctx, id, 0)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("ListSessions() returned %d sessions, want 1", len(sessions))
	}

	got := sessions[0]
	if got.ProjectID != "proj" || got.Duration != 120 || got.TotalTokens != 4000 {
		t.Errorf("unexpected session fields: %+v", got)
	}
	if !reflect.DeepEqual(got.CommandsRun, []string{"go test ./..."}) {
		t.Errorf("CommandsRun = %v", got.CommandsRun)
	}
	if got.ToolsUsed == nil || len(got.ToolsUsed) != 0 {
		t.Errorf("ToolsUsed = %#v, want empty non-nil list", got.ToolsUsed)
	}
}

func TestUpsertUsagePattern_CreateThenIncrement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := newTestMachine(t, store, "laptop")

	first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertUsagePattern(ctx, id, "test-driven", []string{"go", "docker"}, first); err != nil {
			return err
		}
		return tx.AddPatternProject(ctx, id, "test-driven", "api")
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	err = store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertUsagePattern(ctx, id, "test-driven", []string{"python"}, second); err != nil {
			return err
		}
		if err := tx.AddPatternProject(ctx, id, "test-driven", "api"); err != nil {
			return err
		}
		return tx.AddPatternProject(ctx, id, "test-driven", "web")
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	p, err := store.GetUsagePattern(ctx, id, "test-driven")
	if err != nil {
		t.Fatalf("GetUsagePattern() failed: %v", err)
	}

	if p.Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", p.Occurrences)
	}
	if !p.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen = %v, want %v", p.FirstSeen, first)
	}
	if !p.LastSeen.Equal(second) {
		t.Errorf("LastSeen = %v, want %v", p.LastSeen, second)
	}
	if p.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", p.Confidence)
	}
	if !reflect.DeepEqual(p.ProjectIDs, []string{"api", "web"}) {
		t.Errorf("ProjectIDs = %v, want [api web]", p.ProjectIDs)
	}
	if !reflect.DeepEqual(p.Technologies, []string{"go", "docker"}) {
		t.Errorf("Technologies = %v, want technologies from creation", p.Technologies)
	}
}

func TestUpsertUsagePattern_LastSeenNeverMovesBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := newTestMachine(t, store, "laptop")

	late := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	early := late.Add(-24 * time.Hour)

	for _, at := range []time.Time{late, early} {
		err := store.WithTx(ctx, func(tx *Tx) error {
			return tx.UpsertUsagePattern(ctx, id, "refactor", nil, at)
		})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	p, err := store.GetUsagePattern(ctx, id, "refactor")
	if err != nil {
		t.Fatalf("GetUsagePattern() failed: %v", err)
	}
	if !p.LastSeen.Equal(late) {
		t.Errorf("LastSeen = %v, want %v", p.LastSeen, late)
	}
	if len(p.ProjectIDs) != 0 {
		t.Errorf("ProjectIDs = %v, want empty", p.ProjectIDs)
	}
}

func TestUpsertTechnologyUsage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := newTestMachine(t, store, "laptop")

	first := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	err := store.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertTechnologyUsage(ctx, id, "go", 3, true, first)
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	err = store.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertTechnologyUsage(ctx, id, "go", 2, false, second)
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	tu, err := store.GetTechnologyUsage(ctx, id, "go")
	if err != nil {
		t.Fatalf("GetTechnologyUsage() failed: %v", err)
	}
	if tu.SessionCount != 2 {
		t.Errorf("SessionCount = %d, want 2", tu.SessionCount)
	}
	if tu.CommandCount != 5 {
		t.Errorf("CommandCount = %d, want 5", tu.CommandCount)
	}
	if tu.ProjectCount != 1 {
		t.Errorf("ProjectCount = %d, want 1 (set on creation only)", tu.ProjectCount)
	}
	if !tu.LastUsed.Equal(second) {
		t.Errorf("LastUsed = %v, want %v", tu.LastUsed, second)
	}
}

func TestGetTechnologyUsageNotFound(t *testing.T) {
	store := newTestStore(t)
	id := newTestMachine(t, store, "laptop")

	_, err := store.GetTechnologyUsage(context.Background(), id, "rust")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTechnologyUsage() error = %v, want ErrNotFound", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := newTestMachine(t, store, "laptop")

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertUsagePattern(ctx, id, "debugging", nil, time.Now()); err != nil {
			return err
		}
		if err := tx.UpsertTechnologyUsage(ctx, id, "go", 1, false, time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	patterns, err := store.ListUsagePatterns(ctx, id)
	if err != nil {
		t.Fatalf("ListUsagePatterns() failed: %v", err)
	}
	techs, err := store.ListTechnologyUsage(ctx, id)
	if err != nil {
		t.Fatalf("ListTechnologyUsage() failed: %v", err)
	}
	if len(patterns) != 0 || len(techs) != 0 {
		t.Errorf("rolled back transaction left %d patterns and %d technologies", len(patterns), len(techs))
	}
}

func TestMachineExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := newTestMachine(t, store, "laptop")

	err := store.WithTx(ctx, func(tx *Tx) error {
		ok, err := tx.MachineExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			t.Error("MachineExists() = false for registered machine")
		}
		ok, err = tx.MachineExists(ctx, "ghost")
		if err != nil {
			return err
		}
		if ok {
			t.Error("MachineExists() = true for unknown machine")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() failed: %v", err)
	}
}
