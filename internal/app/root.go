package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/aggregator"
	"github.com/blackwell-systems/devpulse/internal/config"
	"github.com/blackwell-systems/devpulse/internal/logging"
	"github.com/blackwell-systems/devpulse/internal/store"
	"github.com/blackwell-systems/devpulse/internal/telemetry"
)

var (
	dbPath     string
	configPath string
	verbose    bool

	// RootCmd is the root command for devpulse
	RootCmd = &cobra.Command{
		Use:   "devpulse",
		Short: "Developer-tool session telemetry and configuration health scores",
		Long: `devpulse collects session telemetry from developer tooling, rolls it up into
per-machine usage patterns and technology usage, and scores each machine's
configuration health from its recommendation ledger.

Sessions reach devpulse either directly ('devpulse ingest') or through the
spool: hooks pipe reports into 'devpulse-report', and the watch daemon
ingests new spool lines as they arrive.

Quick Start:
  1. devpulse init
  2. devpulse machine add laptop
  3. devpulse watch --daemon
  4. devpulse score <machine-id>

Examples:
  # Ingest a JSONL batch of session reports
  devpulse ingest --file sessions.jsonl

  # Show the current health score with history and insights
  devpulse score <machine-id>

  # Force a new snapshot
  devpulse score <machine-id> --recalculate

  # Check daemon and database status
  devpulse status`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.devpulse/devpulse.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/devpulse/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(machineCmd)
	RootCmd.AddCommand(recommendCmd)
	RootCmd.AddCommand(ingestCmd)
	RootCmd.AddCommand(scoreCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(patternsCmd)
	RootCmd.AddCommand(techsCmd)
	RootCmd.AddCommand(recalcCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// setupLogging sends the standard logger to stderr at the configured level.
// The daemon child switches it to the rotating file later.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return logging.Setup(logOptions(cfg, false))
}

// logOptions applies --verbose on top of the configured log level.
func logOptions(cfg *config.Config, toFile bool) logging.Options {
	opts := logging.OptionsFromConfig(cfg, toFile)
	if verbose {
		opts.Level = "debug"
	}
	return opts
}

// getConfigPath returns the config file path, using the flag value or default
func getConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// loadConfig reads the config file and applies the --db override.
func loadConfig() (*config.Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openStore opens the configured database. A missing database file is
// reported as store.ErrNotInitialized rather than silently created.
func openStore(cfg *config.Config) (*store.Store, error) {
	if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w (no database at %s)", store.ErrNotInitialized, cfg.DBPath)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// newAggregator builds an Aggregator using the configured matcher and the
// aliases file next to the config.
func newAggregator(cfg *config.Config, st *store.Store) (*aggregator.Aggregator, error) {
	matcher, err := telemetry.MatcherByName(cfg.TechMatcher)
	if err != nil {
		return nil, err
	}

	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	aliases, err := config.LoadAliases(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	return aggregator.New(st, aggregator.WithMatcher(matcher), aggregator.WithAliases(aliases)), nil
}

// commandContext returns the command's context, or a background context
// when the command was invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
