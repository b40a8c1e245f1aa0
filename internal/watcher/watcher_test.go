package watcher

import (
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, "a", "b"); err == nil {
		t.Error("New() with nil ingester should fail")
	}
	if _, err := New(&fakeIngester{}, "", "b"); err == nil {
		t.Error("New() with empty spool path should fail")
	}
}

func TestWatcher_StartProcessesExistingSpool(t *testing.T) {
	spool, offset := spoolPaths(t)
	appendSpool(t, spool, reportLine(t, "m", "s-1"))

	ing := &fakeIngester{}
	w, err := New(ing, spool, offset)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if got := ing.ingested(); len(got) != 1 {
		t.Errorf("ingested after Start() = %v, want 1 session", got)
	}
}

func TestWatcher_StopFlushesSpool(t *testing.T) {
	spool, offset := spoolPaths(t)

	ing := &fakeIngester{}
	w, err := New(ing, spool, offset)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.SetInterval(time.Hour)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	appendSpool(t, spool, reportLine(t, "m", "s-1"))

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := ing.ingested(); len(got) != 1 {
		t.Errorf("ingested after Stop() = %v, want 1 session", got)
	}
}

func TestWatcher_ProcessesOnTick(t *testing.T) {
	spool, offset := spoolPaths(t)

	ing := &fakeIngester{}
	w, err := New(ing, spool, offset)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.SetInterval(20 * time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	appendSpool(t, spool, reportLine(t, "m", "s-1"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(ing.ingested()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("spool was not processed within 2s, ingested = %v", ing.ingested())
}

func TestWatcher_StopTwice(t *testing.T) {
	spool, offset := spoolPaths(t)
	appendSpool(t, spool, reportLine(t, "m", "s-1"))

	ing := &fakeIngester{}
	w, err := New(ing, spool, offset)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("first Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	if got := ing.ingested(); len(got) != 1 {
		t.Errorf("ingested = %v, want 1 session", got)
	}
}
