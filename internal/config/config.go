package config

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SpoolEnv names the environment variable that overrides the spool path for
// both devpulse and the devpulse-report hook.
const SpoolEnv = "DEVPULSE_SPOOL"

// Config is the devpulse configuration loaded from {Dir()}/config.yaml.
type Config struct {
	// StateDir holds the database, spool, PID file and daemon log.
	StateDir string `yaml:"state_dir"`

	// DBPath defaults to {StateDir}/devpulse.db.
	DBPath string `yaml:"db_path"`

	// SpoolPath defaults to {StateDir}/sessions.jsonl. $DEVPULSE_SPOOL
	// overrides both.
	SpoolPath string `yaml:"spool_path"`

	// TechMatcher selects how commands are attributed to technologies:
	// "substring" (default) or "word".
	TechMatcher string `yaml:"tech_matcher"`

	// RecalcSchedule is a standard 5-field cron spec. Empty disables
	// scheduled recalculation.
	RecalcSchedule string `yaml:"recalc_schedule"`

	// RecalcWorkers bounds concurrent recalculations.
	RecalcWorkers int `yaml:"recalc_workers"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`

	// File is the daemon log; defaults to {StateDir}/watch.log.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	cfg := &Config{
		StateDir:      filepath.Join(home, ".devpulse"),
		TechMatcher:   "substring",
		RecalcWorkers: 4,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
	cfg.fillPaths()
	return cfg, nil
}

// Load reads the YAML config at path on top of the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Derived paths are recomputed after decoding so a custom state_dir
	// moves them too.
	cfg.DBPath, cfg.SpoolPath, cfg.Log.File = "", "", ""
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.TechMatcher {
	case "substring", "word":
	default:
		return fmt.Errorf("invalid tech_matcher %q: want substring or word", c.TechMatcher)
	}

	if c.RecalcWorkers < 1 {
		return fmt.Errorf("invalid recalc_workers %d: must be at least 1", c.RecalcWorkers)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_size_mb and log.max_backups must not be negative")
	}

	return nil
}

// PIDFile returns the daemon PID file path.
func (c *Config) PIDFile() string {
	return filepath.Join(c.StateDir, "watch.pid")
}

// OffsetFile returns the path of the spool offset checkpoint.
func (c *Config) OffsetFile() string {
	return filepath.Join(c.StateDir, "spool.offset")
}

// ReporterSpoolPath returns the spool devpulse-report appends to:
// $DEVPULSE_SPOOL or ~/.devpulse/sessions.jsonl.
func ReporterSpoolPath() (string, error) {
	if p := os.Getenv(SpoolEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".devpulse", "sessions.jsonl"), nil
}

// SpoolMismatch returns the export line hooks need when the configured spool
// is not the one devpulse-report writes to, or "" when they agree.
func (c *Config) SpoolMismatch() string {
	reporter, err := ReporterSpoolPath()
	if err == nil && filepath.Clean(reporter) == filepath.Clean(c.SpoolPath) {
		return ""
	}
	return fmt.Sprintf("export %s=%s", SpoolEnv, c.SpoolPath)
}

func (c *Config) fillPaths() {
	if p := os.Getenv(SpoolEnv); p != "" {
		c.SpoolPath = p
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.StateDir, "devpulse.db")
	}
	if c.SpoolPath == "" {
		c.SpoolPath = filepath.Join(c.StateDir, "sessions.jsonl")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.StateDir, "watch.log")
	}
}
