package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/store"
	"github.com/blackwell-systems/devpulse/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, database and spool status",
	Long: `Show whether the watch daemon is running, where the database lives, how many
records it holds and how much of the spool is still waiting to be ingested.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	running, err := watcher.IsDaemonRunning(cfg.PIDFile())
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Println("Daemon:   running")
	} else {
		fmt.Println("Daemon:   stopped (start with 'devpulse watch --daemon')")
	}

	backlog, err := watcher.Backlog(cfg.SpoolPath, cfg.OffsetFile())
	if err != nil {
		return err
	}
	fmt.Printf("Spool:    %s (%d bytes pending)\n", cfg.SpoolPath, backlog)
	if hint := cfg.SpoolMismatch(); hint != "" {
		fmt.Printf("  Reporter writes elsewhere; run: %s\n", hint)
	}

	st, err := openStore(cfg)
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Printf("Database: %s (not initialized, run 'devpulse init')\n", cfg.DBPath)
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.GetCounts(commandContext(cmd))
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			fmt.Printf("Database: %s (not initialized, run 'devpulse init')\n", cfg.DBPath)
			return nil
		}
		return err
	}

	fmt.Printf("Database: %s\n", cfg.DBPath)
	if info, err := os.Stat(cfg.DBPath); err == nil {
		fmt.Printf("  Size:            %d KB\n", info.Size()/1024)
	}
	fmt.Printf("  Machines:        %d\n", counts.Machines)
	fmt.Printf("  Sessions:        %d\n", counts.Sessions)
	fmt.Printf("  Patterns:        %d\n", counts.Patterns)
	fmt.Printf("  Technologies:    %d\n", counts.Technologies)
	fmt.Printf("  Recommendations: %d\n", counts.Recommendations)
	fmt.Printf("  Health scores:   %d\n", counts.HealthScores)

	return nil
}
