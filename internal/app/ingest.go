package app

import (
	"bytes"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/aggregator"
	"github.com/blackwell-systems/devpulse/internal/output"
	"github.com/blackwell-systems/devpulse/internal/telemetry"
	"github.com/blackwell-systems/devpulse/internal/watcher"
)

var (
	ingestFile string

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Ingest session reports directly",
		Long: `Ingest a single JSON session report, or a JSONL batch with one report per
line, without going through the spool.

A single report that fails is an error. In a batch, rejected reports
(malformed, unknown machine, already ingested) are skipped and counted;
a storage failure stops the batch.`,
		Example: `  # One report from a hook
  cat report.json | devpulse ingest

  # A batch exported from another machine
  devpulse ingest --file sessions.jsonl`,
		Args: cobra.NoArgs,
		RunE: runIngest,
	}
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "read reports from file instead of stdin")
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := readIngestInput()
	if err != nil {
		return err
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

	agg, err := newAggregator(cfg, st)
	if err != nil {
		return err
	}

	// A pretty-printed report spans several lines, so try the whole input
	// as one report before treating it as JSONL.
	report, decodeErr := telemetry.Decode(data)
	if decodeErr != nil {
		lines := splitLines(data)
		if len(lines) <= 1 {
			return decodeErr
		}
		return ingestBatch(cmd, agg, lines)
	}

	res, err := agg.Ingest(commandContext(cmd), report)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Ingested session %s for machine %s (%d patterns, %d technologies)\n",
		res.SessionID, res.MachineID, len(res.Patterns), len(res.Technologies))
	return nil
}

func ingestBatch(cmd *cobra.Command, agg *aggregator.Aggregator, lines [][]byte) error {
	ctx := commandContext(cmd)
	progress := output.NewProgress(len(lines), "reports")

	for i, line := range lines {
		report, err := telemetry.Decode(line)
		if err == nil {
			_, err = agg.Ingest(ctx, report)
		}
		switch {
		case err == nil:
			progress.Increment()
		case watcher.IsRejected(err):
			log.WithError(err).WithField("line", i+1).Warn("skipping session report")
			progress.Skip()
		default:
			progress.Finish()
			return fmt.Errorf("failed to ingest line %d: %w", i+1, err)
		}
	}
	progress.Finish()

	done, skipped := progress.Counts()
	fmt.Printf("✓ Ingested %d of %d reports", done-skipped, len(lines))
	if skipped > 0 {
		fmt.Printf(" (%d skipped)", skipped)
	}
	fmt.Println()
	return nil
}

func readIngestInput() ([]byte, error) {
	if ingestFile != "" {
		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ingestFile, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

// splitLines returns the non-blank lines of data.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
