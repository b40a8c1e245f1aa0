package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/devpulse/internal/store"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "devpulse" {
		t.Errorf("expected Use to be 'devpulse', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{
		"init", "machine", "recommend", "ingest", "score", "history",
		"patterns", "techs", "recalculate", "watch", "status",
	}

	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected command '%s' to be registered", name)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"db", "config", "verbose"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	cfgDir := setupTestEnv(t)

	got, err := getConfigPath()
	if err != nil {
		t.Fatalf("getConfigPath() error = %v", err)
	}
	if want := filepath.Join(cfgDir, "config.yaml"); got != want {
		t.Errorf("getConfigPath() = %q, want %q", got, want)
	}

	configPath = "/tmp/custom.yaml"
	if got, _ := getConfigPath(); got != "/tmp/custom.yaml" {
		t.Errorf("getConfigPath() with flag = %q", got)
	}
}

func TestLoadConfig_DBOverride(t *testing.T) {
	setupTestEnv(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DBPath != dbPath {
		t.Errorf("cfg.DBPath = %q, want --db value %q", cfg.DBPath, dbPath)
	}

	dbPath = ""
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if filepath.Base(cfg.DBPath) != "devpulse.db" || filepath.Base(cfg.StateDir) != ".devpulse" {
		t.Errorf("unexpected default paths: db=%q state=%q", cfg.DBPath, cfg.StateDir)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	cfgDir := setupTestEnv(t)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("tech_matcher: fuzzy\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(); err == nil {
		t.Error("expected error for invalid tech_matcher")
	}
}

func TestOpenStore_NotInitialized(t *testing.T) {
	setupTestEnv(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	_, err = openStore(cfg)
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("openStore() error = %v, want ErrNotInitialized", err)
	}
	if _, statErr := os.Stat(cfg.DBPath); !os.IsNotExist(statErr) {
		t.Error("openStore() should not create the database file")
	}
}

func TestSetupLogging_Verbose(t *testing.T) {
	setupTestEnv(t)
	verbose = true

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if opts := logOptions(cfg, false); opts.Level != "debug" {
		t.Errorf("logOptions().Level = %q, want debug", opts.Level)
	}
	if err := setupLogging(RootCmd, nil); err != nil {
		t.Errorf("setupLogging() error = %v", err)
	}
}

func TestCommandContext(t *testing.T) {
	if commandContext(nil) == nil {
		t.Error("commandContext(nil) should fall back to a background context")
	}
}

func TestRunInit_Idempotent(t *testing.T) {
	setupTestEnv(t)

	initTestDB(t)
	initTestDB(t)

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}
