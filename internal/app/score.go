package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/healthscore"
	"github.com/blackwell-systems/devpulse/internal/output"
)

var (
	scoreRecalculate bool
	scoreJSON        bool
	historyLimit     int

	scoreCmd = &cobra.Command{
		Use:   "score <machine>",
		Short: "Show a machine's configuration health score",
		Long: `Show the latest health score snapshot for a machine, its recent history and
insights derived from it.

If the machine has never been scored, a first snapshot is calculated and
stored. --recalculate always appends a fresh snapshot first.

The composite score weighs four sub-scores:
  • MCP servers  35%  applied share of mcp_server recommendations
  • Skills       30%  applied share of skill recommendations
  • Context      20%  applied share of context recommendations
  • Patterns     15%  share of usage patterns with high confidence`,
		Example: `  devpulse score <machine-id>
  devpulse score <machine-id> --recalculate
  devpulse score <machine-id> --json`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	historyCmd = &cobra.Command{
		Use:   "history <machine>",
		Short: "Show health score snapshots, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
)

func init() {
	scoreCmd.Flags().BoolVar(&scoreRecalculate, "recalculate", false, "calculate and store a new snapshot first")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the report as JSON")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", healthscore.HistoryLimit, "maximum number of snapshots")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	calc := healthscore.New(st)

	if scoreRecalculate {
		res, err := calc.Recalculate(ctx, args[0])
		if err != nil {
			return err
		}
		if scoreJSON {
			return writeJSON(res)
		}
		fmt.Print(output.RenderHealthScore(res.Score, healthscore.Insights(res.Score)))
		return nil
	}

	report, err := calc.Current(ctx, args[0])
	if err != nil {
		return err
	}
	if scoreJSON {
		return writeJSON(report)
	}

	fmt.Print(output.RenderHealthScore(report.Current, report.Insights))
	if len(report.History) > 1 {
		fmt.Println()
		fmt.Println("History:")
		fmt.Print(output.RenderHistoryTable(report.History))
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	scores, err := healthscore.New(st).History(commandContext(cmd), args[0], historyLimit)
	if err != nil {
		return err
	}

	fmt.Print(output.RenderHistoryTable(scores))
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
