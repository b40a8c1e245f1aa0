package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/output"
)

var (
	patternsCmd = &cobra.Command{
		Use:   "patterns <machine>",
		Short: "Show usage pattern aggregates for a machine",
		Args:  cobra.ExactArgs(1),
		RunE:  runPatterns,
	}

	techsCmd = &cobra.Command{
		Use:   "techs <machine>",
		Short: "Show technology usage aggregates for a machine",
		Args:  cobra.ExactArgs(1),
		RunE:  runTechs,
	}
)

func runPatterns(cmd *cobra.Command, args []string) error {
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
	if _, err := st.GetMachine(ctx, args[0]); err != nil {
		return err
	}
	patterns, err := st.ListUsagePatterns(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Print(output.RenderPatternTable(patterns))
	return nil
}

func runTechs(cmd *cobra.Command, args []string) error {
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
	if _, err := st.GetMachine(ctx, args[0]); err != nil {
		return err
	}
	techs, err := st.ListTechnologyUsage(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Print(output.RenderTechnologyTable(techs))
	return nil
}
