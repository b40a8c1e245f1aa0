package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/healthscore"
	"github.com/blackwell-systems/devpulse/internal/output"
	"github.com/blackwell-systems/devpulse/internal/scheduler"
)

var recalcCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Recalculate health scores for every machine",
	Long: `Append a fresh health score snapshot for every registered machine.

This is the same sweep the watch daemon runs on recalc_schedule. Machines
are recalculated concurrently, up to recalc_workers at a time; a failure for
one machine does not stop the others.`,
	Args: cobra.NoArgs,
	RunE: runRecalc,
}

func runRecalc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(st, healthscore.New(st), cfg.RecalcWorkers)

	spinner := output.NewSpinner("Recalculating health scores")
	spinner.Start()
	stats, err := sched.RunOnce(commandContext(cmd))
	if err != nil {
		spinner.Stop()
		return err
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ Recalculated %d of %d machines", stats.Succeeded, stats.Machines))

	if stats.Failed > 0 {
		return fmt.Errorf("%d machine(s) failed to recalculate; see log output", stats.Failed)
	}
	return nil
}
