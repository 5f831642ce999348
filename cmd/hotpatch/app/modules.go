package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kstenerud/go-hotpatch"
)

func newModulesCommand() *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "modules [substring]",
		Short: "List loaded modules, or resolve the base of the first one matching substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator := locatorFor(pid)
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				module, err := locator.FindModule(args[0])
				if err != nil {
					return err
				}
				base, err := locator.FindModuleBase(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%v raw %v base %v\n", orMain(module.Name), hex(module.BaseAddress), hex(base))
				return nil
			}

			table := newTable(out)
			fmt.Fprintln(table, "BASE\tNAME")
			err := locator.Iterator.Modules(func(m hotpatch.LoadedModule) bool {
				fmt.Fprintf(table, "%v\t%v\n", hex(m.BaseAddress), orMain(m.Name))
				return true
			})
			if err != nil {
				return err
			}
			return table.Flush()
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "process to inspect (default: this process)")
	return cmd
}
