package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/output"
	"github.com/blackwell-systems/devpulse/internal/store"
)

var (
	recMachine     string
	recCategory    string
	recTitle       string
	recDescription string
	recSavings     int

	recommendCmd = &cobra.Command{
		Use:   "recommend",
		Short: "Manage the recommendation ledger",
		Long: `Add recommendations for a machine and record what happened to them.

Recommendations start active. An active recommendation can be applied,
dismissed or expired exactly once; terminal recommendations never change.

Categories: mcp_server, skill, context, hook, command`,
	}

	recommendAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add an active recommendation",
		Example: `  devpulse recommend add --machine <id> --category mcp_server \
    --title "Disable unused github server" --savings 4200`,
		Args: cobra.NoArgs,
		RunE: runRecommendAdd,
	}

	recommendListCmd = &cobra.Command{
		Use:   "list <machine>",
		Short: "List recommendations for a machine",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecommendList,
	}
)

func init() {
	recommendAddCmd.Flags().StringVar(&recMachine, "machine", "", "machine id (required)")
	recommendAddCmd.Flags().StringVar(&recCategory, "category", "", "recommendation category (required)")
	recommendAddCmd.Flags().StringVar(&recTitle, "title", "", "short title (required)")
	recommendAddCmd.Flags().StringVar(&recDescription, "description", "", "longer description")
	recommendAddCmd.Flags().IntVar(&recSavings, "savings", 0, "estimated token savings")
	_ = recommendAddCmd.MarkFlagRequired("machine")
	_ = recommendAddCmd.MarkFlagRequired("category")
	_ = recommendAddCmd.MarkFlagRequired("title")

	recommendCmd.AddCommand(recommendAddCmd)
	recommendCmd.AddCommand(recommendListCmd)
	recommendCmd.AddCommand(newTransitionCmd("apply", store.StatusApplied, "Mark a recommendation as applied"))
	recommendCmd.AddCommand(newTransitionCmd("dismiss", store.StatusDismissed, "Dismiss a recommendation"))
	recommendCmd.AddCommand(newTransitionCmd("expire", store.StatusExpired, "Expire a recommendation"))
}

// newTransitionCmd builds one of the apply/dismiss/expire subcommands.
func newTransitionCmd(verb, status, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommendTransition(cmd, args[0], status)
		},
	}
}

func runRecommendAdd(cmd *cobra.Command, args []string) error {
	if !store.IsValidCategory(recCategory) {
		return fmt.Errorf("invalid category %q: must be one of mcp_server, skill, context, hook, command", recCategory)
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

	ctx := commandContext(cmd)
	if _, err := st.GetMachine(ctx, recMachine); err != nil {
		return err
	}

	r := &store.Recommendation{
		MachineID:             recMachine,
		Category:              recCategory,
		Title:                 recTitle,
		Description:           recDescription,
		EstimatedTokenSavings: recSavings,
	}
	if err := st.InsertRecommendation(ctx, r); err != nil {
		return err
	}

	fmt.Printf("✓ Added recommendation %s\n", r.ID)
	return nil
}

func runRecommendList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.ListRecommendations(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	fmt.Print(output.RenderRecommendationTable(recs))
	return nil
}

func runRecommendTransition(cmd *cobra.Command, id, status string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.UpdateRecommendationStatus(commandContext(cmd), id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("recommendation %s not found", id)
		}
		return err
	}

	fmt.Printf("✓ Recommendation %s is now %s\n", id, status)
	return nil
}
