package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/config"
	"github.com/blackwell-systems/devpulse/internal/healthscore"
	"github.com/blackwell-systems/devpulse/internal/logging"
	"github.com/blackwell-systems/devpulse/internal/output"
	"github.com/blackwell-systems/devpulse/internal/scheduler"
	"github.com/blackwell-systems/devpulse/internal/store"
	"github.com/blackwell-systems/devpulse/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Ingest spooled session reports as they arrive",
		Long: `Watch the spool file written by devpulse-report and ingest new session
reports as they are appended.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process with a PID file
  • Stop: Stop a running daemon

New spool lines are processed when the file changes and at least every 30
seconds. The read position is checkpointed, so a restart never ingests a
line twice. Rejected reports are logged and skipped.

When recalc_schedule is set in config.yaml, the watcher also recalculates
every machine's health score on that cron schedule.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  devpulse watch

  # Run as background daemon
  devpulse watch --daemon

  # Stop running daemon
  devpulse watch --stop`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidFile := cfg.PIDFile()

	if watchStop {
		return stopWatchDaemon(pidFile)
	}

	if cfg.RecalcSchedule != "" {
		if err := scheduler.ValidateSchedule(cfg.RecalcSchedule); err != nil {
			return err
		}
	}

	if watchDaemon {
		return startWatchDaemon(cfg)
	}

	if watchDaemonChild {
		// stdout and stderr point at the daemon output file; log lines go
		// to the rotating log instead.
		if err := logging.Setup(logOptions(cfg, true)); err != nil {
			return err
		}
		defer logging.Close()
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	agg, err := newAggregator(cfg, st)
	if err != nil {
		return err
	}

	w, err := watcher.New(agg, cfg.SpoolPath, cfg.OffsetFile())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	sched, err := startScheduler(cfg, st)
	if err != nil {
		return err
	}
	defer sched.Stop()

	if watchDaemonChild {
		return w.RunDaemon(pidFile)
	}
	return runWatchForeground(w, cfg)
}

// startScheduler starts scheduled recalculation when configured. The
// returned scheduler is always safe to Stop.
func startScheduler(cfg *config.Config, st *store.Store) (*scheduler.Scheduler, error) {
	sched := scheduler.New(st, healthscore.New(st), cfg.RecalcWorkers)
	if cfg.RecalcSchedule == "" {
		return sched, nil
	}
	if err := sched.Start(context.Background(), cfg.RecalcSchedule); err != nil {
		return nil, err
	}
	return sched, nil
}

func stopWatchDaemon(pidFile string) error {
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon")
	spinner.Start()
	if err := watcher.StopDaemon(pidFile); err != nil {
		spinner.Stop()
		if errors.Is(err, watcher.ErrDaemonNotRunning) {
			fmt.Println("Daemon is not running")
			return nil
		}
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func startWatchDaemon(cfg *config.Config) error {
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		return fmt.Errorf("%w (no database at %s)", store.ErrNotInitialized, cfg.DBPath)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	outFile := filepath.Join(cfg.StateDir, "watch.out")
	if err := watcher.StartDaemon(cfg.PIDFile(), outFile, daemonChildArgs()...); err != nil {
		return err
	}

	fmt.Println("✓ Daemon started")
	fmt.Println()
	fmt.Printf("  PID file: %s\n", cfg.PIDFile())
	fmt.Printf("  Log file: %s\n", cfg.Log.File)
	fmt.Printf("  Spool:    %s\n", cfg.SpoolPath)
	fmt.Println()
	fmt.Println("To stop: devpulse watch --stop")

	return nil
}

// daemonChildArgs forwards the global flags that select the database and
// config, so the child sees the same setup as the parent.
func daemonChildArgs() []string {
	var args []string
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return args
}

func runWatchForeground(w *watcher.Watcher, cfg *config.Config) error {
	fmt.Println("Watching for session reports (press Ctrl+C to stop)...")
	fmt.Printf("  Spool: %s\n", cfg.SpoolPath)
	if cfg.RecalcSchedule != "" {
		fmt.Printf("  Recalculation schedule: %s\n", cfg.RecalcSchedule)
	}
	fmt.Println()

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}

	fmt.Println("✓ Watcher stopped")
	return nil
}
