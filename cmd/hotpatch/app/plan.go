package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kstenerud/go-hotpatch"
	"github.com/kstenerud/go-hotpatch/plan"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Work with patch plan files",
	}
	cmd.AddCommand(newPlanCheckCommand(), newPlanShowCommand())
	return cmd
}

func newPlanCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v: %d patches, modules %v\n", args[0], len(p.Patches), p.Modules())
			return nil
		},
	}
}

func newPlanShowCommand() *cobra.Command {
	var executable string
	var pid int
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Show the patches a plan selects for an executable",
		Long: "Show the patches a plan selects for an executable. With --pid, module " +
			"offsets are resolved against that process's loaded modules.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}

			var locator plan.ModuleLocator = unresolved{}
			if pid != 0 {
				locator = locatorFor(pid)
			}
			applier := &plan.Applier{Locator: locator, DryRun: true}
			report := applier.Apply(p, executable)

			table := newTable(cmd.OutOrStdout())
			fmt.Fprintln(table, "NAME\tTARGET\tADDRESS\tPAYLOAD\tSTATUS")
			for _, o := range report.Outcomes {
				target := "absolute"
				if o.Patch.Module != "" {
					target = fmt.Sprintf("%v+%#x", o.Patch.Module, o.Patch.Offset)
				}
				address := "-"
				if o.Status == plan.StatusPlanned {
					address = hex(o.Address)
				}
				fmt.Fprintf(table, "%v\t%v\t%v\t%v\t%v\n", o.Patch.Name, target, address,
					plan.HexBytes(o.Patch.Payload()), o.Status)
			}
			return table.Flush()
		},
	}
	cmd.Flags().StringVar(&executable, "exe", "", "executable name to select patches for")
	cmd.Flags().IntVar(&pid, "pid", 0, "process whose modules resolve module offsets")
	cmd.MarkFlagRequired("exe")
	return cmd
}

// unresolved reports every module as missing, so only absolute patches get
// an address.
type unresolved struct{}

func (unresolved) FindModuleBase(name string) (uintptr, error) {
	return 0, fmt.Errorf("%w: %q (no --pid given)", hotpatch.ErrModuleNotFound, name)
}
