package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devpulse/internal/output"
	"github.com/blackwell-systems/devpulse/internal/store"
)

var (
	machineHostname string

	machineCmd = &cobra.Command{
		Use:   "machine",
		Short: "Manage registered machines",
		Long: `Register, list and remove the machines that report sessions.

Session reports for an unregistered machine id are rejected, so register each
machine before its hooks start reporting.`,
	}

	machineAddCmd = &cobra.Command{
		Use:   "add <name>",
		Short: "Register a machine",
		Example: `  devpulse machine add laptop --hostname mbp.local`,
		Args: cobra.ExactArgs(1),
		RunE: runMachineAdd,
	}

	machineListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered machines",
		Args:  cobra.NoArgs,
		RunE:  runMachineList,
	}

	machineRemoveCmd = &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a machine and all of its data",
		Args:  cobra.ExactArgs(1),
		RunE:  runMachineRemove,
	}
)

func init() {
	machineAddCmd.Flags().StringVar(&machineHostname, "hostname", "", "hostname of the machine")

	machineCmd.AddCommand(machineAddCmd)
	machineCmd.AddCommand(machineListCmd)
	machineCmd.AddCommand(machineRemoveCmd)
}

func runMachineAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	m := &store.Machine{Name: args[0], Hostname: machineHostname}
	if err := st.InsertMachine(commandContext(cmd), m); err != nil {
		return err
	}

	fmt.Printf("✓ Registered machine %s\n", m.Name)
	fmt.Printf("  ID: %s\n", m.ID)
	return nil
}

func runMachineList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	machines, err := st.ListMachines(commandContext(cmd))
	if err != nil {
		return err
	}

	fmt.Print(output.RenderMachineTable(machines))
	return nil
}

func runMachineRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteMachine(commandContext(cmd), args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("machine %s not found", args[0])
		}
		return err
	}

	fmt.Printf("✓ Removed machine %s\n", args[0])
	return nil
}
