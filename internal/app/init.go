package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the state directory and database",
	Long: `Create the devpulse state directory and database schema.

Running init again is safe: existing tables and data are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if err := st.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	fmt.Printf("✓ Database ready at %s\n", cfg.DBPath)
	fmt.Printf("  Spool file: %s\n", cfg.SpoolPath)
	if hint := cfg.SpoolMismatch(); hint != "" {
		fmt.Println("  devpulse-report writes elsewhere; set this in the hook environment:")
		fmt.Printf("    %s\n", hint)
	}
	fmt.Println()
	fmt.Println("Next: register a machine with 'devpulse machine add <name>'.")
	return nil
}
