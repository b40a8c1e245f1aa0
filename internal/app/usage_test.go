package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/blackwell-systems/devpulse/internal/store"
)

func TestRunPatternsAndTechs(t *testing.T) {
	setupTestEnv(t)
	initTestDB(t)
	id := addTestMachine(t, "laptop")

	setIngestFile(t, writeTestFile(t, "report.json", reportJSON(id, "s1")))
	captureStdout(t, func() {
		if err := runIngest(ingestCmd, nil); err != nil {
			t.Fatalf("runIngest() error = %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := runPatterns(patternsCmd, []string{id}); err != nil {
			t.Fatalf("runPatterns() error = %v", err)
		}
	})
	// No aliases file here, so golang stays a separate technology.
	if !strings.Contains(out, "test-driven") || !strings.Contains(out, "go, golang") {
		t.Errorf("unexpected patterns output:\n%s", out)
	}

	out = captureStdout(t, func() {
		if err := runTechs(techsCmd, []string{id}); err != nil {
			t.Fatalf("runTechs() error = %v", err)
		}
	})
	if !strings.Contains(out, "go ") || !strings.Contains(out, "golang") {
		t.Errorf("unexpected techs output:\n%s", out)
	}
}

func TestRunPatterns_UnknownMachine(t *testing.T) {
	setupTestEnv(t)
	initTestDB(t)

	if err := runPatterns(patternsCmd, []string{"ghost"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("runPatterns() error = %v, want ErrNotFound", err)
	}
	if err := runTechs(techsCmd, []string{"ghost"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("runTechs() error = %v, want ErrNotFound", err)
	}
}
