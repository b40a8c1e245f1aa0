package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/devpulse/internal/store"
)

// setupTestEnv points HOME, the config directory and --db at a temp dir and
// restores the package-level flag values afterwards. It returns the config
// directory.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	cfgDir := filepath.Join(tmp, "config")

	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", cfgDir)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("DEVPULSE_SPOOL", "")

	origDB, origConfig, origVerbose := dbPath, configPath, verbose
	dbPath = filepath.Join(tmp, "devpulse.db")
	configPath = ""
	verbose = false
	t.Cleanup(func() {
		dbPath, configPath, verbose = origDB, origConfig, origVerbose
	})

	return filepath.Join(cfgDir, "devpulse")
}

// initTestDB runs 'devpulse init' against the test environment.
func initTestDB(t *testing.T) {
	t.Helper()
	captureStdout(t, func() {
		if err := runInit(initCmd, nil); err != nil {
			t.Fatalf("runInit() error = %v", err)
		}
	})
}

// withStore opens the test database directly.
func withStore(t *testing.T, fn func(st *store.Store)) {
	t.Helper()
	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()
	fn(st)
}

func addTestMachine(t *testing.T, name string) string {
	t.Helper()
	var id string
	withStore(t, func(st *store.Store) {
		m := &store.Machine{Name: name}
		if err := st.InsertMachine(context.Background(), m); err != nil {
			t.Fatalf("InsertMachine() error = %v", err)
		}
		id = m.ID
	})
	return id
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// captureStdout replaces os.Stdout with a pipe during f(), then restores it
// and returns everything f wrote.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	return capture(t, &os.Stdout, f)
}

// captureStderr is captureStdout for os.Stderr.
func captureStderr(t *testing.T, f func()) string {
	t.Helper()
	return capture(t, &os.Stderr, f)
}

func capture(t *testing.T, target **os.File, f func()) string {
	t.Helper()
	orig := *target
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	*target = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	defer func() {
		*target = orig
	}()
	f()
	w.Close()
	return <-done
}
